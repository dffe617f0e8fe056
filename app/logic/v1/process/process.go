package process

import (
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"

	"github.com/quka-ai/synthesis/app/core"
	"github.com/quka-ai/synthesis/pkg/queue"
	"github.com/quka-ai/synthesis/pkg/register"
)

// Process 后台任务：asynq 消费者与定时任务
type Process struct {
	cron        *cron.Cron
	core        *core.Core
	asynqServer *asynq.Server
	asynqMux    *asynq.ServeMux
}

type ProcessKey struct{}

func NewProcess(core *core.Core) *Process {
	p := &Process{
		cron: cron.New(),
		core: core,
	}

	cfg := core.Cfg()
	if cfg.Queue.Enabled && cfg.Redis.Enabled() {
		p.asynqServer = asynq.NewServer(cfg.Redis.AsynqConnOpt(), asynq.Config{
			// 单个 worker 的并发，跨 worker 的总并发由 redis 信号量控制
			Concurrency: cfg.Queue.GetConcurrency(),
			Queues: map[string]int{
				queue.SynthesisQueueName: 1,
			},
		})
		p.asynqMux = asynq.NewServeMux()
	}

	for _, h := range register.ResolveFuncHandlers[*Process](ProcessKey{}) {
		h(p)
	}
	slog.Info("process handlers registered", slog.Any("handlers", register.Names(ProcessKey{})))

	return p
}

func (p *Process) Cron() *cron.Cron {
	return p.cron
}

func (p *Process) Core() *core.Core {
	return p.core
}

// AsynqServerMux 未开启队列时为 nil
func (p *Process) AsynqServerMux() *asynq.ServeMux {
	return p.asynqMux
}

func (p *Process) Start() error {
	p.cron.Start()
	if p.asynqServer != nil {
		if err := p.asynqServer.Start(p.asynqMux); err != nil {
			return err
		}
		slog.Info("synthesis worker started", slog.Int("concurrency", p.core.Cfg().Queue.GetConcurrency()))
	}
	return nil
}

func (p *Process) Stop() {
	// 停止 cron 调度器
	if p.cron != nil {
		ctx := p.cron.Stop()
		<-ctx.Done()
	}

	// 等待进行中的任务结束
	if p.asynqServer != nil {
		p.asynqServer.Shutdown()
	}
}
