package core

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Limiter interface {
	Allow() bool
}

type LimitConfig struct {
	Limit int
	Every time.Duration
}

type LimitOption func(l *LimitConfig)

func WithLimit(limit int) LimitOption {
	return func(l *LimitConfig) {
		l.Limit = limit
	}
}

func WithRange(r time.Duration) LimitOption {
	return func(l *LimitConfig) {
		l.Every = r
	}
}

// Limiters 进程内按 key 区分的令牌桶
type Limiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewLimiters() *Limiters {
	return &Limiters{limiters: make(map[string]*rate.Limiter)}
}

// Use limit 代表每个周期(默认一分钟)允许的数量，同一个 key 只在首次使用时按参数创建
func (l *Limiters) Use(key string, opts ...LimitOption) Limiter {
	cfg := &LimitConfig{
		Limit: 60,
		Every: time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 1
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	lim, exist := l.limiters[key]
	if !exist {
		lim = rate.NewLimiter(rate.Every(cfg.Every/time.Duration(cfg.Limit)), cfg.Limit*2)
		l.limiters[key] = lim
	}
	return lim
}
