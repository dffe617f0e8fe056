package core

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/quka-ai/synthesis/pkg/ai"
)

// instrumentedGenerator 记录每次生成请求的耗时与错误，配置了 rate_limit 时在请求前等待令牌
type instrumentedGenerator struct {
	driver  string
	next    ai.Generator
	metrics *Metrics
	limiter *rate.Limiter
}

func NewInstrumentedGenerator(driver string, next ai.Generator, metrics *Metrics, perMinute int) ai.Generator {
	g := &instrumentedGenerator{
		driver:  driver,
		next:    next,
		metrics: metrics,
	}
	if perMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
	return g
}

func (g *instrumentedGenerator) Generate(ctx context.Context, req *ai.GenerateRequest) (*ai.GenerateResponse, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	timer := g.metrics.GenerationRequestTimer(g.driver)
	defer timer.ObserveDuration()

	resp, err := g.next.Generate(ctx, req)
	if err != nil {
		g.metrics.GenerationErrorInc(g.driver)
		return nil, err
	}
	return resp, nil
}
