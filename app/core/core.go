package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/quka-ai/synthesis/app/store"
	"github.com/quka-ai/synthesis/app/store/mongostore"
	"github.com/quka-ai/synthesis/app/store/sqlstore"
	"github.com/quka-ai/synthesis/pkg/ai"
	"github.com/quka-ai/synthesis/pkg/ai/gemini"
	"github.com/quka-ai/synthesis/pkg/ai/openai"
	"github.com/quka-ai/synthesis/pkg/extract"
	objectstorage "github.com/quka-ai/synthesis/pkg/object-storage"
	"github.com/quka-ai/synthesis/pkg/object-storage/minio"
	"github.com/quka-ai/synthesis/pkg/object-storage/s3"
	"github.com/quka-ai/synthesis/pkg/podcast"
	"github.com/quka-ai/synthesis/pkg/queue"
	"github.com/quka-ai/synthesis/pkg/tts"
	"github.com/quka-ai/synthesis/pkg/tts/google"
	ttsopenai "github.com/quka-ai/synthesis/pkg/tts/openai"
)

const (
	METRICS_NAMESPACE = "quka"
	METRICS_SYSTEM    = "synthesis"
)

// Components 流水线依赖的外部服务，可选项为 nil 时对应功能关闭
type Components struct {
	Generator   ai.Generator
	Synthesizer tts.Synthesizer
	Merger      podcast.Merger

	Storage  objectstorage.Storage
	JobStore store.JobStore
	Redis    redis.UniversalClient
	Queue    queue.Enqueuer
	Registry *prometheus.Registry
}

type Core struct {
	cfg        CoreConfig
	httpEngine *gin.Engine
	metrics    *Metrics

	generator  ai.Generator
	storage    objectstorage.Storage
	jobStore   store.JobStore
	redis      redis.UniversalClient
	queue      queue.Enqueuer
	extractor  *extract.Extractor
	pipeline   *podcast.Pipeline
	semaphores *SemaphoreManager
	limiters   *Limiters

	closers []func() error
}

func SetupLogger(cfg Log) {
	var writer io.Writer = os.Stdout
	if cfg.Path != "" {
		writer = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    500, // megabytes
			MaxBackups: 3,
			MaxAge:     28,   //days
			Compress:   true, // disabled by default
		}
	}
	l := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(l)
}

// MustSetupCore 按配置创建所有驱动，任一驱动创建失败时 panic
func MustSetupCore(cfg CoreConfig) *Core {
	SetupLogger(cfg.Log)

	ctx := context.Background()
	var (
		comps   Components
		closers []func() error
		err     error
	)

	if comps.Generator, err = setupGenerator(ctx, cfg.AI, &closers); err != nil {
		panic(err)
	}
	if comps.Synthesizer, err = setupSynthesizer(ctx, cfg.TTS, &closers); err != nil {
		panic(err)
	}
	if comps.Merger, err = podcast.NewMerger(cfg.Audio.Merger, cfg.Audio.FFmpegPath); err != nil {
		panic(err)
	}
	if comps.Storage, err = setupObjectStorage(cfg.ObjectStorage); err != nil {
		panic(err)
	}
	if comps.JobStore, err = setupJobStore(ctx, cfg.JobStore, &closers); err != nil {
		panic(err)
	}

	if cfg.Redis.Enabled() {
		rdb := cfg.Redis.NewRedisClient()
		comps.Redis = rdb
		closers = append(closers, rdb.Close)

		if cfg.Queue.Enabled {
			q := queue.NewSynthesisQueue(asynq.NewClient(cfg.Redis.AsynqConnOpt()), cfg.Queue.GetTaskTimeout())
			comps.Queue = q
			closers = append(closers, func() error {
				q.Shutdown()
				return nil
			})
		}
	} else if cfg.Queue.Enabled {
		panic("queue is enabled but redis is not configured")
	}

	if registry, ok := prometheus.DefaultRegisterer.(*prometheus.Registry); ok {
		comps.Registry = registry
	}

	core := New(cfg, comps)
	core.closers = append(core.closers, closers...)
	return core
}

// New 使用已经创建好的组件组装 Core
func New(cfg CoreConfig, comps Components) *Core {
	core := &Core{
		cfg:        cfg,
		httpEngine: gin.New(),
		metrics:    NewMetrics(METRICS_NAMESPACE, METRICS_SYSTEM, comps.Registry),
		storage:    comps.Storage,
		jobStore:   comps.JobStore,
		redis:      comps.Redis,
		queue:      comps.Queue,
		limiters:   NewLimiters(),
	}

	if comps.Generator != nil {
		core.generator = NewInstrumentedGenerator(cfg.AI.Driver, comps.Generator, core.metrics, cfg.AI.RateLimit)
	}

	var fetcher extract.ObjectFetcher
	opts := []podcast.Option{
		podcast.WithMetrics(core.metrics),
		podcast.WithAudioConfig(cfg.Audio.PodcastAudioConfig()),
	}
	if comps.Storage != nil {
		fetcher = comps.Storage
		opts = append(opts, podcast.WithObjectStorage(comps.Storage))
	}
	if comps.JobStore != nil {
		opts = append(opts, podcast.WithJobRecorder(comps.JobStore))
	}

	core.extractor = extract.New(fetcher)
	core.pipeline = podcast.NewPipeline(core.generator, comps.Synthesizer, comps.Merger, opts...)

	if comps.Redis != nil {
		core.semaphores = NewSemaphoreManager(comps.Redis, cfg.Semaphore, cfg.Redis.KeyPrefix)
	}
	return core
}

func setupGenerator(ctx context.Context, cfg AIConfig, closers *[]func() error) (ai.Generator, error) {
	switch cfg.Driver {
	case openai.NAME:
		return openai.New(cfg.Token, cfg.Endpoint, cfg.Model), nil
	case gemini.NAME:
		d, err := gemini.New(ctx, cfg.Token, cfg.Model)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, d.Close)
		return d, nil
	}
	return nil, fmt.Errorf("unsupported ai driver %q", cfg.Driver)
}

func setupSynthesizer(ctx context.Context, cfg TTSConfig, closers *[]func() error) (tts.Synthesizer, error) {
	switch cfg.Driver {
	case "", google.NAME:
		d, err := google.New(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, d.Close)
		return d, nil
	case ttsopenai.NAME:
		return ttsopenai.New(cfg.Token, cfg.Endpoint, cfg.Model), nil
	}
	return nil, fmt.Errorf("unsupported tts driver %q", cfg.Driver)
}

func setupObjectStorage(cfg ObjectStorageDriver) (objectstorage.Storage, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case s3.NAME:
		if cfg.S3 == nil {
			return nil, fmt.Errorf("object storage driver s3 without [object_storage.s3] config")
		}
		return s3.NewS3Client(cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKey, cfg.S3.SecretKey, s3.WithPathStyle(cfg.S3.UsePathStyle))
	case minio.NAME:
		if cfg.Minio == nil {
			return nil, fmt.Errorf("object storage driver minio without [object_storage.minio] config")
		}
		return minio.New(cfg.Minio.Endpoint, cfg.Minio.Bucket, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.UseSSL)
	}
	return nil, fmt.Errorf("unsupported object storage driver %q", cfg.Driver)
}

func setupJobStore(ctx context.Context, cfg JobStoreConfig, closers *[]func() error) (store.JobStore, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case JOB_STORE_POSTGRES:
		p := sqlstore.MustSetup(cfg.Postgres)
		// 执行数据库表初始化
		if err := p.Install(); err != nil {
			return nil, err
		}
		*closers = append(*closers, p.Close)
		return p.JobStore(), nil
	case JOB_STORE_MONGO:
		c, err := mongostore.NewClient(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, func() error {
			return c.Close(context.Background())
		})
		return c.JobStore(cfg.Mongo.Collection), nil
	}
	return nil, fmt.Errorf("unsupported job store driver %q", cfg.Driver)
}

func (s *Core) Cfg() CoreConfig {
	return s.cfg
}

func (s *Core) HttpEngine() *gin.Engine {
	return s.httpEngine
}

func (s *Core) Metrics() *Metrics {
	return s.metrics
}

func (s *Core) Pipeline() *podcast.Pipeline {
	return s.pipeline
}

func (s *Core) Extractor() *extract.Extractor {
	return s.extractor
}

// JobStore 未配置时为 nil
func (s *Core) JobStore() store.JobStore {
	return s.jobStore
}

// Storage 未配置时为 nil
func (s *Core) Storage() objectstorage.Storage {
	return s.storage
}

func (s *Core) Redis() redis.UniversalClient {
	return s.redis
}

// Queue 未开启队列时为 nil
func (s *Core) Queue() queue.Enqueuer {
	return s.queue
}

// Semaphores 未配置 redis 时为 nil
func (s *Core) Semaphores() *SemaphoreManager {
	return s.semaphores
}

func (s *Core) UseLimiter(key string, opts ...LimitOption) Limiter {
	return s.limiters.Use(key, opts...)
}

func (s *Core) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			slog.Error("failed to close core component", slog.String("error", err.Error()))
		}
	}
	s.closers = nil
}
