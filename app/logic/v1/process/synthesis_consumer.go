package process

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/quka-ai/synthesis/app/core"
	v1 "github.com/quka-ai/synthesis/app/logic/v1"
	"github.com/quka-ai/synthesis/pkg/queue"
	"github.com/quka-ai/synthesis/pkg/register"
)

// 并发已满时最多延后的次数，超过后任务直接失败
const MAX_SYNTHESIS_DEFERRALS = 20

func init() {
	register.RegisterFunc[*Process](ProcessKey{}, "synthesis_consumer", func(p *Process) {
		mux := p.AsynqServerMux()
		if mux == nil {
			slog.Info("synthesis queue disabled, consumer not started")
			return
		}

		consumer := NewSynthesisConsumer(p.Core())
		mux.HandleFunc(queue.TaskTypeSynthesisPodcast, consumer.Handle)
	})
}

// Semaphore 跨 worker 的并发许可
type Semaphore interface {
	TryAcquire(ctx context.Context) bool
	Release(ctx context.Context)
}

type SynthesisConsumer struct {
	core       *core.Core
	queue      queue.Enqueuer
	semaphore  Semaphore
	retryDelay time.Duration
}

func NewSynthesisConsumer(core *core.Core) *SynthesisConsumer {
	c := &SynthesisConsumer{
		core:       core,
		queue:      core.Queue(),
		retryDelay: core.Cfg().Semaphore.Synthesis.GetRetryDelay(),
	}
	if sm := core.Semaphores(); sm != nil {
		c.semaphore = sm.Synthesis()
	}
	return c
}

// WithSemaphore 替换默认的 redis 信号量
func (c *SynthesisConsumer) WithSemaphore(s Semaphore) *SynthesisConsumer {
	c.semaphore = s
	return c
}

func (c *SynthesisConsumer) Handle(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.ParseSynthesisTask(task.Payload())
	if err != nil {
		slog.Error("failed to parse synthesis task", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	return c.Process(ctx, payload)
}

// Process 获取到许可后运行流水线，否则延后重新入队
func (c *SynthesisConsumer) Process(ctx context.Context, task *queue.SynthesisTask) error {
	if c.semaphore != nil {
		if !c.semaphore.TryAcquire(ctx) {
			return c.postpone(ctx, task)
		}
		defer c.semaphore.Release(ctx)
	}

	slog.Info("processing synthesis task", slog.String("job_id", task.JobID), slog.Int("attempt", task.Attempt))

	res, err := v1.NewSynthesisLogic(ctx, c.core).Run(task, true)
	if err != nil {
		slog.Error("synthesis task failed", slog.String("job_id", task.JobID), slog.String("error", err.Error()))
		return err
	}

	slog.Info("synthesis task completed",
		slog.String("job_id", task.JobID),
		slog.String("audio_file_name", res.Audio.AudioFileName),
		slog.String("storage_url", res.Audio.StorageURL))
	return nil
}

func (c *SynthesisConsumer) postpone(ctx context.Context, task *queue.SynthesisTask) error {
	task.Attempt++
	if task.Attempt > MAX_SYNTHESIS_DEFERRALS || c.queue == nil {
		err := fmt.Errorf("synthesis concurrency limit reached, gave up after %d attempts", task.Attempt-1)
		c.core.Pipeline().MarkFailed(ctx, task.JobID, err)
		return err
	}

	if err := c.queue.EnqueueDelayedSynthesisTask(ctx, task, c.retryDelay); err != nil {
		c.core.Pipeline().MarkFailed(ctx, task.JobID, err)
		return err
	}
	return nil
}
