package podcast

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quka-ai/synthesis/pkg/types"
)

// tracker 记录一次流水线运行的状态变化，写入失败只记录日志，不影响流水线本身
type tracker struct {
	jobID    string
	recorder JobRecorder
	metrics  Metrics

	mu     sync.Mutex
	stages types.StageMetrics
}

func newTracker(jobID string, recorder JobRecorder, metrics Metrics) *tracker {
	return &tracker{
		jobID:    jobID,
		recorder: recorder,
		metrics:  metrics,
		stages:   make(types.StageMetrics),
	}
}

func (t *tracker) update(ctx context.Context, fields map[string]any) {
	fields[types.JOB_FIELD_UPDATED_AT] = time.Now().UnixMilli()

	if t.recorder == nil {
		slog.Info("job update", slog.String("job_id", t.jobID), slog.Any("fields", fields))
		return
	}
	// 任务状态需要在调用方取消后仍然落库
	if err := t.recorder.Update(context.WithoutCancel(ctx), t.jobID, fields); err != nil {
		slog.Error("failed to update job record", slog.String("job_id", t.jobID), slog.String("error", err.Error()))
	}
}

func (t *tracker) queued(ctx context.Context) {
	t.metrics.IncJob(types.JOB_STATUS_QUEUED)
	t.update(ctx, map[string]any{
		types.JOB_FIELD_STATUS:     types.JOB_STATUS_QUEUED,
		types.JOB_FIELD_CREATED_AT: time.Now().UnixMilli(),
	})
}

func (t *tracker) processing(ctx context.Context) {
	t.metrics.IncJob(types.JOB_STATUS_PROCESSING)
	t.update(ctx, map[string]any{
		types.JOB_FIELD_STATUS:              types.JOB_STATUS_PROCESSING,
		types.JOB_FIELD_CURRENT_STEP:        types.JOB_STEP_SUMMARIZING,
		types.JOB_FIELD_START_TIME:          time.Now().UnixMilli(),
		types.JOB_FIELD_SUMMARIZE_COMPLETED: false,
		types.JOB_FIELD_HOOKS_COMPLETED:     false,
		types.JOB_FIELD_SCRIPT_COMPLETED:    false,
		types.JOB_FIELD_AUDIO_COMPLETED:     false,
	})
}

// observe 记录阶段耗时并返回当前累计的全部阶段耗时
func (t *tracker) observe(stage string, d time.Duration) types.StageMetrics {
	t.metrics.ObserveStage(stage, d)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.stages[stage] = d.Milliseconds()
	return t.stages.Clone()
}

func (t *tracker) snapshot() types.StageMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stages.Clone()
}

// stageDone 阶段完成时写入完成标记、累计耗时与阶段产物
func (t *tracker) stageDone(ctx context.Context, stage, completedField string, d time.Duration, data map[string]any) {
	fields := map[string]any{
		completedField:          true,
		types.JOB_FIELD_METRICS: t.observe(stage, d),
	}
	for k, v := range data {
		fields[k] = v
	}
	t.update(ctx, fields)
}

func (t *tracker) completed(ctx context.Context, data map[string]any) {
	t.metrics.IncJob(types.JOB_STATUS_COMPLETED)

	fields := map[string]any{
		types.JOB_FIELD_STATUS:       types.JOB_STATUS_COMPLETED,
		types.JOB_FIELD_CURRENT_STEP: types.JOB_STEP_NONE,
		types.JOB_FIELD_METRICS:      t.snapshot(),
		types.JOB_FIELD_COMPLETED_AT: time.Now().UnixMilli(),
	}
	for k, v := range data {
		fields[k] = v
	}
	t.update(ctx, fields)
}

func (t *tracker) failed(ctx context.Context, message string) {
	t.metrics.IncJob(types.JOB_STATUS_ERROR)
	t.update(ctx, map[string]any{
		types.JOB_FIELD_STATUS:    types.JOB_STATUS_ERROR,
		types.JOB_FIELD_ERROR:     message,
		types.JOB_FIELD_FAILED_AT: time.Now().UnixMilli(),
	})
}
