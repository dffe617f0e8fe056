package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DEFAULT_SYNTHESIS_MAX_CONCURRENCY = 4
	// 单个许可的最长占用时间，worker 异常退出后计数会在此之后自动归零
	SYNTHESIS_SEMAPHORE_TIMEOUT = time.Minute * 40
)

// 使用 Lua 脚本保证原子性
var (
	acquireScript = redis.NewScript(`
		local key = KEYS[1]
		local max_permits = tonumber(ARGV[1])
		local timeout = tonumber(ARGV[2])

		local current = tonumber(redis.call('GET', key) or '0')

		if current < max_permits then
			redis.call('INCR', key)
			redis.call('EXPIRE', key, timeout)
			return 1
		else
			return 0
		end
	`)

	// 避免减到负数
	releaseScript = redis.NewScript(`
		local key = KEYS[1]
		local current = tonumber(redis.call('GET', key) or '0')

		if current > 0 then
			redis.call('DECR', key)
			return 1
		else
			return 0
		end
	`)
)

// DistributedSemaphore 分布式信号量，基于 Redis 实现
type DistributedSemaphore struct {
	redis      redis.UniversalClient
	key        string
	maxPermits int
	timeout    time.Duration
}

// NewDistributedSemaphore 创建分布式信号量
func NewDistributedSemaphore(redis redis.UniversalClient, key string, maxPermits int, timeout time.Duration) *DistributedSemaphore {
	return &DistributedSemaphore{
		redis:      redis,
		key:        key,
		maxPermits: maxPermits,
		timeout:    timeout,
	}
}

func (s *DistributedSemaphore) Key() string {
	return s.key
}

func (s *DistributedSemaphore) MaxPermits() int {
	return s.maxPermits
}

// TryAcquire 尝试获取信号量许可，redis 不可用时视为获取失败
func (s *DistributedSemaphore) TryAcquire(ctx context.Context) bool {
	result, err := acquireScript.Run(ctx, s.redis, []string{s.key}, s.maxPermits, int(s.timeout.Seconds())).Int()
	if err != nil {
		slog.Error("failed to acquire semaphore", slog.String("key", s.key), slog.String("error", err.Error()))
		return false
	}

	return result == 1
}

// Release 释放信号量许可
func (s *DistributedSemaphore) Release(ctx context.Context) {
	if err := releaseScript.Run(context.WithoutCancel(ctx), s.redis, []string{s.key}).Err(); err != nil {
		slog.Error("failed to release semaphore", slog.String("key", s.key), slog.String("error", err.Error()))
	}
}

// GetCurrent 获取当前已使用的许可数
func (s *DistributedSemaphore) GetCurrent(ctx context.Context) int {
	result, err := s.redis.Get(ctx, s.key).Int()
	if err != nil {
		return 0
	}
	return result
}

// SemaphoreManager 信号量管理器，统一管理所有分布式信号量
type SemaphoreManager struct {
	redis         redis.UniversalClient
	cfg           SemaphoreConfig
	keyPrefix     string
	synthesis     *DistributedSemaphore
	synthesisOnce sync.Once
}

func NewSemaphoreManager(redis redis.UniversalClient, cfg SemaphoreConfig, keyPrefix string) *SemaphoreManager {
	return &SemaphoreManager{
		redis:     redis,
		cfg:       cfg,
		keyPrefix: keyPrefix,
	}
}

func GenSynthesisSemaphoreKey(prefix string) string {
	return prefix + "synthesis:semaphore:pipeline"
}

// Synthesis 限制所有 worker 同时运行的流水线数量（懒加载）
func (m *SemaphoreManager) Synthesis() *DistributedSemaphore {
	m.synthesisOnce.Do(func() {
		maxConcurrency := DEFAULT_SYNTHESIS_MAX_CONCURRENCY
		if m.cfg.Synthesis.MaxConcurrency > 0 {
			maxConcurrency = m.cfg.Synthesis.MaxConcurrency
		}

		m.synthesis = NewDistributedSemaphore(
			m.redis,
			GenSynthesisSemaphoreKey(m.keyPrefix),
			maxConcurrency,
			SYNTHESIS_SEMAPHORE_TIMEOUT,
		)
	})
	return m.synthesis
}
