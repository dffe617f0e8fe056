package podcast

import (
	"context"
	"time"

	"github.com/quka-ai/synthesis/pkg/types"
)

// ObjectStorage 上传产物，bucket 为空时由实现选择默认 bucket
type ObjectStorage interface {
	Upload(ctx context.Context, bucket, localPath, dest string) error
	ObjectURL(bucket, key string) string
}

// Merger 按输入顺序把多段音频合并为一个文件
type Merger interface {
	Merge(ctx context.Context, inputs []string, output string) error
}

// JobRecorder 以合并写的方式更新任务文档，不存在时创建
type JobRecorder interface {
	Update(ctx context.Context, jobID string, fields map[string]any) error
}

// Metrics 流水线运行时的观测点
type Metrics interface {
	ObserveStage(stage string, d time.Duration)
	ObserveSegment(d time.Duration)
	IncRetry()
	IncJob(status types.JobStatus)
}

type noopMetrics struct{}

func (noopMetrics) ObserveStage(string, time.Duration) {}
func (noopMetrics) ObserveSegment(time.Duration)       {}
func (noopMetrics) IncRetry()                          {}
func (noopMetrics) IncJob(types.JobStatus)             {}
