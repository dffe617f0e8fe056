package core

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/quka-ai/synthesis/pkg/podcast"
	"github.com/quka-ai/synthesis/pkg/tts"
)

func MustLoadBaseConfig(path string) CoreConfig {
	if path == "" {
		return LoadBaseConfigFromENV()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	conf, err := ParseConfig(raw)
	if err != nil {
		panic(err)
	}
	return conf
}

func ParseConfig(raw []byte) (CoreConfig, error) {
	conf := CoreConfig{}
	if err := toml.Unmarshal(raw, &conf); err != nil {
		return conf, err
	}
	return conf, nil
}

func LoadBaseConfigFromENV() CoreConfig {
	var c CoreConfig
	c.FromENV()
	return c
}

type CoreConfig struct {
	Addr          string              `toml:"addr"`
	Log           Log                 `toml:"log"`
	Redis         RedisConfig         `toml:"redis"`
	JobStore      JobStoreConfig      `toml:"job_store"`
	ObjectStorage ObjectStorageDriver `toml:"object_storage"`

	AI    AIConfig    `toml:"ai"`
	TTS   TTSConfig   `toml:"tts"`
	Audio AudioConfig `toml:"audio"`

	Queue     QueueConfig     `toml:"queue"`
	Semaphore SemaphoreConfig `toml:"semaphore"`
	Cleanup   CleanupConfig   `toml:"cleanup"`
}

func (c *CoreConfig) FromENV() {
	c.Addr = os.Getenv("QUKA_API_SERVICE_ADDRESS")
	c.Log.FromENV()
	c.Redis.FromENV()
	c.JobStore.FromENV()
	c.ObjectStorage.FromENV()
	c.AI.FromENV()
	c.TTS.FromENV()
	c.Audio.FromENV()
	c.Queue.FromENV()
	c.Semaphore.FromENV()
	c.Cleanup.FromENV()
}

const (
	JOB_STORE_POSTGRES = "postgres"
	JOB_STORE_MONGO    = "mongo"
)

// JobStoreConfig driver 为空时不持久化任务状态，只输出日志
type JobStoreConfig struct {
	Driver   string      `toml:"driver"`
	Postgres PGConfig    `toml:"postgres"`
	Mongo    MongoConfig `toml:"mongo"`
}

func (c *JobStoreConfig) FromENV() {
	c.Driver = os.Getenv("QUKA_JOB_STORE_DRIVER")
	c.Postgres.FromENV()
	c.Mongo.FromENV()
}

type PGConfig struct {
	DSN string `toml:"dsn"`
}

func (m *PGConfig) FromENV() {
	m.DSN = os.Getenv("QUKA_API_POSTGRESQL_DSN")
}

func (c PGConfig) FormatDSN() string {
	return c.DSN
}

type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

func (m *MongoConfig) FromENV() {
	m.URI = os.Getenv("QUKA_MONGO_URI")
	m.Database = os.Getenv("QUKA_MONGO_DATABASE")
	m.Collection = os.Getenv("QUKA_MONGO_COLLECTION")
}

// ObjectStorageDriver driver 为空时音频保留在本地
type ObjectStorageDriver struct {
	Driver string       `toml:"driver"`
	S3     *S3Config    `toml:"s3"`
	Minio  *MinioConfig `toml:"minio"`
}

func (c *ObjectStorageDriver) FromENV() {
	c.Driver = os.Getenv("QUKA_OBJECT_STORAGE_DRIVER")
	switch c.Driver {
	case "s3":
		c.S3 = &S3Config{
			Bucket:       os.Getenv("QUKA_S3_BUCKET"),
			Region:       os.Getenv("QUKA_S3_REGION"),
			Endpoint:     os.Getenv("QUKA_S3_ENDPOINT"),
			AccessKey:    os.Getenv("QUKA_S3_ACCESS_KEY"),
			SecretKey:    os.Getenv("QUKA_S3_SECRET_KEY"),
			UsePathStyle: envBool("QUKA_S3_USE_PATH_STYLE"),
		}
	case "minio":
		c.Minio = &MinioConfig{
			Bucket:    os.Getenv("QUKA_MINIO_BUCKET"),
			Endpoint:  os.Getenv("QUKA_MINIO_ENDPOINT"),
			AccessKey: os.Getenv("QUKA_MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("QUKA_MINIO_SECRET_KEY"),
			UseSSL:    envBool("QUKA_MINIO_USE_SSL"),
		}
	}
}

type S3Config struct {
	Bucket       string `toml:"bucket"`
	Region       string `toml:"region"`
	Endpoint     string `toml:"endpoint"`
	AccessKey    string `toml:"access_key"`
	SecretKey    string `toml:"secret_key"`
	UsePathStyle bool   `toml:"use_path_style"`
}

type MinioConfig struct {
	Bucket    string `toml:"bucket"`
	Endpoint  string `toml:"endpoint"` // 不带协议头，如 127.0.0.1:9000
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
}

// AIConfig 文本生成服务，driver 可选 openai / gemini
type AIConfig struct {
	Driver   string `toml:"driver"`
	Token    string `toml:"token"`
	Endpoint string `toml:"endpoint"`
	Model    string `toml:"model"`
	// RateLimit 每分钟允许的生成请求数，0 表示不限制
	RateLimit int `toml:"rate_limit"`
}

func (c *AIConfig) FromENV() {
	c.Driver = os.Getenv("QUKA_AI_DRIVER")
	c.Token = os.Getenv("QUKA_AI_TOKEN")
	c.Endpoint = os.Getenv("QUKA_AI_ENDPOINT")
	c.Model = os.Getenv("QUKA_AI_MODEL")
	c.RateLimit = envInt("QUKA_AI_RATE_LIMIT")
}

// TTSConfig 语音合成服务，driver 可选 google / openai
type TTSConfig struct {
	Driver          string `toml:"driver"`
	CredentialsFile string `toml:"credentials_file"` // google
	Token           string `toml:"token"`            // openai
	Endpoint        string `toml:"endpoint"`
	Model           string `toml:"model"`
}

func (c *TTSConfig) FromENV() {
	c.Driver = os.Getenv("QUKA_TTS_DRIVER")
	c.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	c.Token = os.Getenv("QUKA_TTS_TOKEN")
	c.Endpoint = os.Getenv("QUKA_TTS_ENDPOINT")
	c.Model = os.Getenv("QUKA_TTS_MODEL")
}

type AudioConfig struct {
	WorkDir      string  `toml:"work_dir"`
	OutputDir    string  `toml:"output_dir"`
	BatchSize    int     `toml:"batch_size"`
	MaxRetries   *int    `toml:"max_retries"`    // 未配置时为 3
	BaseDelay    int     `toml:"base_delay_ms"`  // 重试的初始间隔(毫秒)，每次翻倍
	BatchDelay   *int    `toml:"batch_delay_ms"` // 批次之间的间隔(毫秒)，未配置时为 1000
	DefaultVoice string  `toml:"default_voice"`
	SpeakingRate float64 `toml:"speaking_rate"`
	Pitch        float64 `toml:"pitch"`
	Merger       string  `toml:"merger"` // ffmpeg / concat
	FFmpegPath   string  `toml:"ffmpeg_path"`
}

func (c *AudioConfig) FromENV() {
	c.WorkDir = os.Getenv("QUKA_AUDIO_WORK_DIR")
	c.OutputDir = os.Getenv("QUKA_AUDIO_OUTPUT_DIR")
	c.BatchSize = envInt("QUKA_AUDIO_BATCH_SIZE")
	if v := os.Getenv("QUKA_AUDIO_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = &n
		}
	}
	c.DefaultVoice = os.Getenv("QUKA_AUDIO_DEFAULT_VOICE")
	c.Merger = os.Getenv("QUKA_AUDIO_MERGER")
	c.FFmpegPath = os.Getenv("QUKA_AUDIO_FFMPEG_PATH")
}

// PodcastAudioConfig 转换为流水线使用的音频配置，未配置的项使用默认值
func (c AudioConfig) PodcastAudioConfig() podcast.AudioConfig {
	res := podcast.DefaultAudioConfig()
	if c.WorkDir != "" {
		res.WorkDir = c.WorkDir
		res.OutputDir = filepath.Join(c.WorkDir, podcast.OUTPUT_DIR)
	}
	if c.OutputDir != "" {
		res.OutputDir = c.OutputDir
	}
	if c.BatchSize > 0 {
		res.BatchSize = c.BatchSize
	}
	if c.MaxRetries != nil {
		res.MaxRetries = *c.MaxRetries
	}
	if c.BaseDelay > 0 {
		res.BaseDelay = time.Duration(c.BaseDelay) * time.Millisecond
	}
	if c.BatchDelay != nil {
		res.BatchDelay = time.Duration(*c.BatchDelay) * time.Millisecond
	}
	if c.DefaultVoice != "" {
		res.DefaultVoice = c.DefaultVoice
	}

	res.Audio = tts.DefaultAudioConfig()
	if c.SpeakingRate > 0 {
		res.Audio.SpeakingRate = c.SpeakingRate
	}
	res.Audio.Pitch = c.Pitch
	return res
}

type QueueConfig struct {
	Enabled     bool `toml:"enabled"`
	Concurrency int  `toml:"concurrency"`  // 默认 2
	TaskTimeout int  `toml:"task_timeout"` // 单个任务超时(秒)，默认 1800
}

func (c *QueueConfig) FromENV() {
	c.Enabled = envBool("QUKA_QUEUE_ENABLED")
	c.Concurrency = envInt("QUKA_QUEUE_CONCURRENCY")
	c.TaskTimeout = envInt("QUKA_QUEUE_TASK_TIMEOUT")
}

func (c QueueConfig) GetConcurrency() int {
	if c.Concurrency <= 0 {
		return 2
	}
	return c.Concurrency
}

func (c QueueConfig) GetTaskTimeout() time.Duration {
	if c.TaskTimeout <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.TaskTimeout) * time.Second
}

type SemaphoreConfig struct {
	Synthesis SynthesisSemaphoreConfig `toml:"synthesis"`
}

type SynthesisSemaphoreConfig struct {
	MaxConcurrency int `toml:"max_concurrency"` // 所有 worker 同时运行的流水线数量上限，默认 4
	RetryDelay     int `toml:"retry_delay"`     // 获取失败后任务延迟重新入队的秒数，默认 30
}

func (c *SemaphoreConfig) FromENV() {
	c.Synthesis.MaxConcurrency = envInt("QUKA_SYNTHESIS_MAX_CONCURRENCY")
	c.Synthesis.RetryDelay = envInt("QUKA_SYNTHESIS_RETRY_DELAY")
}

func (c SynthesisSemaphoreConfig) GetRetryDelay() time.Duration {
	if c.RetryDelay <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.RetryDelay) * time.Second
}

// CleanupConfig 定时清理异常退出后遗留的分段目录
type CleanupConfig struct {
	Spec   string `toml:"spec"`    // cron 表达式，默认每小时一次
	MaxAge int    `toml:"max_age"` // 超过该时长(秒)的目录会被删除，默认 6 小时
}

func (c *CleanupConfig) FromENV() {
	c.Spec = os.Getenv("QUKA_CLEANUP_SPEC")
	c.MaxAge = envInt("QUKA_CLEANUP_MAX_AGE")
}

func (c CleanupConfig) GetSpec() string {
	if c.Spec == "" {
		return "@every 1h"
	}
	return c.Spec
}

func (c CleanupConfig) GetMaxAge() time.Duration {
	if c.MaxAge <= 0 {
		return 6 * time.Hour
	}
	return time.Duration(c.MaxAge) * time.Second
}

type RedisConfig struct {
	// 单机模式配置
	Addr     string `toml:"addr"`     // Redis地址，格式: host:port
	Password string `toml:"password"` // Redis密码
	DB       int    `toml:"db"`       // Redis数据库索引 (0-15)

	// 集群模式配置
	Cluster       bool     `toml:"cluster"`        // 是否启用集群模式
	ClusterAddrs  []string `toml:"cluster_addrs"`  // 集群节点地址列表
	ClusterPasswd string   `toml:"cluster_passwd"` // 集群密码

	// 连接池配置
	PoolSize     int `toml:"pool_size"`      // 连接池大小，默认10
	MinIdleConns int `toml:"min_idle_conns"` // 最小空闲连接数，默认0
	MaxRetries   int `toml:"max_retries"`    // 最大重试次数，默认3
	DialTimeout  int `toml:"dial_timeout"`   // 连接超时(秒)，默认5
	ReadTimeout  int `toml:"read_timeout"`   // 读超时(秒)，默认3
	WriteTimeout int `toml:"write_timeout"`  // 写超时(秒)，默认3

	// 队列配置
	KeyPrefix string `toml:"key_prefix"` // Redis键前缀，用于隔离不同环境/应用
}

func (r *RedisConfig) FromENV() {
	r.Addr = os.Getenv("QUKA_REDIS_ADDR")
	r.Password = os.Getenv("QUKA_REDIS_PASSWORD")
	if dbStr := os.Getenv("QUKA_REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			r.DB = db
		}
	}
	r.KeyPrefix = os.Getenv("QUKA_REDIS_KEY_PREFIX")
}

func (r RedisConfig) Enabled() bool {
	if r.Cluster {
		return len(r.ClusterAddrs) > 0
	}
	return r.Addr != ""
}

type Log struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

func (l *Log) FromENV() {
	l.Level = os.Getenv("QUKA_API_LOG_LEVEL")
	l.Path = os.Getenv("QUKA_API_LOG_PATH")
}

func (l *Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

func envInt(key string) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return v
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}
