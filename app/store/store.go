package store

import (
	"context"
	"errors"

	"github.com/quka-ai/synthesis/pkg/types"
)

var ErrNotFound = errors.New("record not found")

// JobStore 任务文档的存储，Update 为合并写，文档不存在时创建
type JobStore interface {
	Update(ctx context.Context, jobID string, fields map[string]any) error
	// Get 文档不存在时返回 ErrNotFound
	Get(ctx context.Context, jobID string) (*types.Job, error)
}
