package process

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/quka-ai/synthesis/pkg/register"
	"github.com/quka-ai/synthesis/pkg/safe"
)

func init() {
	register.RegisterFunc[*Process](ProcessKey{}, "workdir_cleanup", func(p *Process) {
		cfg := p.Core().Cfg()
		task := NewWorkDirCleanupTask(p.Core().Pipeline().AudioConfig().SegmentsRoot(), cfg.Cleanup.GetMaxAge())

		if _, err := p.Cron().AddFunc(cfg.Cleanup.GetSpec(), func() {
			safe.RunWithLog(func() {
				task.Run(context.Background())
			}, "workdir_cleanup")
		}); err != nil {
			slog.Error("failed to schedule workdir cleanup", slog.String("spec", cfg.Cleanup.GetSpec()), slog.String("error", err.Error()))
		}
	})
}

// WorkDirCleanupTask 删除 worker 异常退出后遗留的分段目录
type WorkDirCleanupTask struct {
	root   string
	maxAge time.Duration
	now    func() time.Time
}

func NewWorkDirCleanupTask(root string, maxAge time.Duration) *WorkDirCleanupTask {
	return &WorkDirCleanupTask{
		root:   root,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Run 返回删除的目录数，根目录不存在时什么也不做
func (t *WorkDirCleanupTask) Run(ctx context.Context) int {
	entries, err := os.ReadDir(t.root)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("failed to read segments root", slog.String("root", t.root), slog.String("error", err.Error()))
		}
		return 0
	}

	deadline := t.now().Add(-t.maxAge)
	removed := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(deadline) {
			continue
		}

		dir := filepath.Join(t.root, entry.Name())
		if err = os.RemoveAll(dir); err != nil {
			slog.Error("failed to remove stale segments dir", slog.String("dir", dir), slog.String("error", err.Error()))
			continue
		}
		removed++
	}

	if removed > 0 {
		slog.Info("stale segments dirs removed", slog.String("root", t.root), slog.Int("count", removed))
	}
	return removed
}
