package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/quka-ai/synthesis/app/store"
	"github.com/quka-ai/synthesis/pkg/types"
)

const DEFAULT_JOBS_COLLECTION = "synthesis_jobs"

type Client struct {
	mongoClient *mongo.Client
	database    *mongo.Database
}

func NewClient(ctx context.Context, uri, database string) (*Client, error) {
	c, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = c.Ping(pingCtx, nil); err != nil {
		_ = c.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &Client{
		mongoClient: c,
		database:    c.Database(database),
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	if c.mongoClient == nil {
		return nil
	}
	return c.mongoClient.Disconnect(ctx)
}

// JobStore 每个任务一个文档，_id 为 job id
type JobStore struct {
	collection *mongo.Collection
}

func (c *Client) JobStore(collection string) *JobStore {
	if collection == "" {
		collection = DEFAULT_JOBS_COLLECTION
	}
	return &JobStore{collection: c.database.Collection(collection)}
}

var _ store.JobStore = (*JobStore)(nil)

// BuildUpdate 把 fields 转换为 $set，文档不存在时由 upsert 创建
func BuildUpdate(fields map[string]any) bson.M {
	set := bson.M{}
	for k, v := range fields {
		if k == "_id" || k == "id" {
			continue
		}
		set[k] = v
	}
	return bson.M{"$set": set}
}

func (s *JobStore) Update(ctx context.Context, jobID string, fields map[string]any) error {
	_, err := s.collection.UpdateOne(ctx, bson.M{"_id": jobID}, BuildUpdate(fields), options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", jobID, err)
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, jobID string) (*types.Job, error) {
	var job types.Job
	if err := s.collection.FindOne(ctx, bson.M{"_id": jobID}).Decode(&job); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job %s: %w", jobID, err)
	}
	return &job, nil
}
