package s3

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	objectstorage "github.com/quka-ai/synthesis/pkg/object-storage"
	"github.com/quka-ai/synthesis/pkg/utils"
)

const NAME = "s3"

var _ objectstorage.Storage = (*S3)(nil)

type S3 struct {
	Endpoint  string
	Region    string
	Bucket    string
	ak        string
	sk        string
	pathStyle bool
	cli       *s3.Client
}

type Option func(*S3)

// WithPathStyle 使用 endpoint/bucket 形式的地址，MinIO 等自建服务需要
func WithPathStyle(enable bool) Option {
	return func(s *S3) {
		s.pathStyle = enable
	}
}

func NewS3Client(endpoint, region, bucket, ak, sk string, opts ...Option) (*S3, error) {
	cli := &S3{
		Endpoint: endpoint,
		Region:   region,
		Bucket:   bucket,
		ak:       ak,
		sk:       sk,
	}
	for _, o := range opts {
		o(cli)
	}

	if _, err := cli.DefaultConfig(context.Background()); err != nil {
		return nil, err
	}

	return cli, nil
}

func (s *S3) DefaultConfig(ctx context.Context) (aws.Config, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID: s.ak, SecretAccessKey: s.sk,
			},
		}),
		config.WithRegion(s.Region),
	}
	if s.Endpoint != "" {
		loadOpts = append(loadOpts, config.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           s.Endpoint,
				SigningRegion: s.Region,
			}, nil
		})))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, err
	}

	s.cli = s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = s.pathStyle
	})
	return cfg, nil
}

func (s *S3) DefaultBucket() string {
	return s.Bucket
}

func (s *S3) bucket(bucket string) string {
	if bucket == "" {
		return s.Bucket
	}
	return bucket
}

func (s *S3) ObjectURL(bucket, key string) string {
	return utils.ObjectURL(s.bucket(bucket), key)
}

// Upload 上传本地文件到 bucket/dest
func (s *S3) Upload(ctx context.Context, bucket, localPath, dest string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	s3Manager := manager.NewUploader(s.cli)
	_, err = s3Manager.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket(bucket)),
		Key:         aws.String(strings.TrimPrefix(dest, "/")),
		Body:        f,
		ContentType: aws.String(objectstorage.ContentTypeByName(dest)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to %s, %w", localPath, dest, err)
	}
	return nil
}

func (s *S3) Download(ctx context.Context, bucket, key string) (*objectstorage.Object, error) {
	resp, err := s.cli.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket(bucket)),
		Key:    aws.String(strings.TrimPrefix(key, "/")),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &objectstorage.Object{
		Body:        body,
		ContentType: objectstorage.SniffContentType(aws.ToString(resp.ContentType), body),
	}, nil
}

func (s *S3) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.cli.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket(bucket)),
		Key:    aws.String(strings.TrimPrefix(key, "/")),
	})
	return err
}
