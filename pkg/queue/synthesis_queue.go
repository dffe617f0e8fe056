package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/quka-ai/synthesis/pkg/types"
)

const (
	TaskTypeSynthesisPodcast = "synthesis:podcast"

	SynthesisQueueName = "synthesis"

	// 流水线失败后由调用方决定是否重新提交，队列本身不重试
	SynthesisMaxRetries         = 0
	DefaultSynthesisTaskTimeout = 30 * time.Minute
)

// SynthesisTask 队列中的播客生成任务，inputs 为未解析的原始输入(文本或 url)
type SynthesisTask struct {
	JobID   string                `json:"job_id"`
	Inputs  []string              `json:"inputs"`
	Options *types.PodcastOptions `json:"options"`
	// Attempt 因并发限制被延迟的次数
	Attempt int `json:"attempt,omitempty"`
}

func ParseSynthesisTask(payload []byte) (*SynthesisTask, error) {
	var task SynthesisTask
	if err := json.Unmarshal(payload, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal synthesis task: %w", err)
	}
	if task.JobID == "" {
		return nil, fmt.Errorf("synthesis task without job id")
	}
	return &task, nil
}

// Enqueuer 便于在业务逻辑中替换为测试实现
type Enqueuer interface {
	EnqueueSynthesisTask(ctx context.Context, task *SynthesisTask) error
	EnqueueDelayedSynthesisTask(ctx context.Context, task *SynthesisTask, delay time.Duration) error
}

type SynthesisQueue struct {
	client  *asynq.Client
	timeout time.Duration
}

func NewSynthesisQueue(client *asynq.Client, timeout time.Duration) *SynthesisQueue {
	if timeout <= 0 {
		timeout = DefaultSynthesisTaskTimeout
	}
	return &SynthesisQueue{
		client:  client,
		timeout: timeout,
	}
}

// NewSynthesisTask 同一个 job id 只允许存在一个任务
func (q *SynthesisQueue) NewSynthesisTask(task *SynthesisTask, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}

	opts = append([]asynq.Option{
		asynq.MaxRetry(SynthesisMaxRetries),
		asynq.Timeout(q.timeout),
		asynq.Queue(SynthesisQueueName),
	}, opts...)
	return asynq.NewTask(TaskTypeSynthesisPodcast, payload, opts...), nil
}

func (q *SynthesisQueue) EnqueueSynthesisTask(ctx context.Context, task *SynthesisTask) error {
	t, err := q.NewSynthesisTask(task, asynq.TaskID(task.JobID))
	if err != nil {
		return err
	}

	if _, err = q.client.EnqueueContext(ctx, t); err != nil {
		return fmt.Errorf("failed to enqueue synthesis task: %w", err)
	}

	slog.Info("synthesis task enqueued", slog.String("job_id", task.JobID))
	return nil
}

// EnqueueDelayedSynthesisTask 用于并发已满时延后执行，原任务仍处于 active 状态，所以不设置 TaskID
func (q *SynthesisQueue) EnqueueDelayedSynthesisTask(ctx context.Context, task *SynthesisTask, delay time.Duration) error {
	t, err := q.NewSynthesisTask(task, asynq.ProcessIn(delay))
	if err != nil {
		return err
	}

	if _, err = q.client.EnqueueContext(ctx, t); err != nil {
		return fmt.Errorf("failed to enqueue delayed synthesis task: %w", err)
	}

	slog.Info("synthesis task scheduled for delayed execution",
		slog.String("job_id", task.JobID),
		slog.Int("attempt", task.Attempt),
		slog.Duration("delay", delay))
	return nil
}

func (q *SynthesisQueue) Shutdown() {
	slog.Info("shutting down synthesis queue")

	if q.client != nil {
		if err := q.client.Close(); err != nil {
			slog.Error("failed to close synthesis queue client", slog.String("error", err.Error()))
		}
	}
}
