package process

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/synthesis/app/core"
	"github.com/quka-ai/synthesis/pkg/ai"
	"github.com/quka-ai/synthesis/pkg/podcast"
	"github.com/quka-ai/synthesis/pkg/queue"
	"github.com/quka-ai/synthesis/pkg/tts"
	"github.com/quka-ai/synthesis/pkg/types"
)

type delayedTask struct {
	task  queue.SynthesisTask
	delay time.Duration
}

type memoryQueue struct {
	delayed []delayedTask
}

func (q *memoryQueue) EnqueueSynthesisTask(ctx context.Context, task *queue.SynthesisTask) error {
	return nil
}

func (q *memoryQueue) EnqueueDelayedSynthesisTask(ctx context.Context, task *queue.SynthesisTask, delay time.Duration) error {
	q.delayed = append(q.delayed, delayedTask{task: *task, delay: delay})
	return nil
}

type fakeSemaphore struct {
	free     bool
	acquired int
	released int
}

func (s *fakeSemaphore) TryAcquire(ctx context.Context) bool {
	if !s.free {
		return false
	}
	s.acquired++
	return true
}

func (s *fakeSemaphore) Release(ctx context.Context) {
	s.released++
}

type jobRecorder struct {
	statuses []any
}

func (r *jobRecorder) Update(ctx context.Context, jobID string, fields map[string]any) error {
	if v, ok := fields[types.JOB_FIELD_STATUS]; ok {
		r.statuses = append(r.statuses, v)
	}
	return nil
}

func (r *jobRecorder) Get(ctx context.Context, jobID string) (*types.Job, error) {
	return nil, nil
}

func newTestConsumer(t *testing.T) (*SynthesisConsumer, *memoryQueue, *jobRecorder, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	gen := ai.GeneratorFunc(func(ctx context.Context, req *ai.GenerateRequest) (*ai.GenerateResponse, error) {
		calls.Add(1)
		switch req.SchemaName {
		case podcast.SUMMARY_SCHEMA_NAME:
			out, _ := json.Marshal(podcast.Summary{Summary: "summary"})
			return &ai.GenerateResponse{Output: out}, nil
		case podcast.SCRIPT_SCHEMA_NAME:
			out, _ := json.Marshal(map[string]any{"script": types.Script{{Speaker: "Ana", Text: "Hello."}}})
			return &ai.GenerateResponse{Output: out}, nil
		}
		return &ai.GenerateResponse{Text: "- hook"}, nil
	})

	q := &memoryQueue{}
	jobs := &jobRecorder{}
	noDelay := 0
	c := core.New(core.CoreConfig{
		Audio: core.AudioConfig{WorkDir: t.TempDir(), BatchDelay: &noDelay},
		Semaphore: core.SemaphoreConfig{
			Synthesis: core.SynthesisSemaphoreConfig{RetryDelay: 7},
		},
	}, core.Components{
		Generator: gen,
		Synthesizer: tts.SynthesizerFunc(func(ctx context.Context, req *tts.Request) ([]byte, error) {
			return []byte(req.Text), nil
		}),
		Merger:   podcast.ConcatMerger{},
		JobStore: jobs,
		Queue:    q,
		Registry: prometheus.NewRegistry(),
	})
	return NewSynthesisConsumer(c), q, jobs, &calls
}

func newTask(jobID string) *queue.SynthesisTask {
	return &queue.SynthesisTask{
		JobID:  jobID,
		Inputs: []string{"some text"},
		Options: &types.PodcastOptions{
			Format:      types.PODCAST_FORMAT_INTERVIEW,
			PodcastBase: types.PodcastBase{Speakers: []types.Speaker{{Name: "Ana"}}},
			Interview:   &types.InterviewOptions{},
		},
	}
}

func TestSynthesisConsumer_PostponesWhenBusy(t *testing.T) {
	consumer, q, jobs, calls := newTestConsumer(t)
	sem := &fakeSemaphore{}
	consumer.WithSemaphore(sem)

	require.NoError(t, consumer.Process(context.Background(), newTask("podcast_busy")))

	require.Len(t, q.delayed, 1)
	assert.Equal(t, "podcast_busy", q.delayed[0].task.JobID)
	assert.Equal(t, 1, q.delayed[0].task.Attempt)
	assert.Equal(t, 7*time.Second, q.delayed[0].delay)
	assert.EqualValues(t, 0, calls.Load())
	assert.Empty(t, jobs.statuses)
	assert.Equal(t, 0, sem.released)
}

func TestSynthesisConsumer_GivesUpAfterMaxDeferrals(t *testing.T) {
	consumer, q, jobs, _ := newTestConsumer(t)
	consumer.WithSemaphore(&fakeSemaphore{})

	task := newTask("podcast_starved")
	task.Attempt = MAX_SYNTHESIS_DEFERRALS

	require.Error(t, consumer.Process(context.Background(), task))
	assert.Empty(t, q.delayed)
	assert.Equal(t, []any{types.JOB_STATUS_ERROR}, jobs.statuses)
}

func TestSynthesisConsumer_RunsWithPermit(t *testing.T) {
	consumer, q, jobs, calls := newTestConsumer(t)
	sem := &fakeSemaphore{free: true}
	consumer.WithSemaphore(sem)

	require.NoError(t, consumer.Process(context.Background(), newTask("podcast_run")))

	assert.Empty(t, q.delayed)
	assert.Equal(t, 1, sem.acquired)
	assert.Equal(t, 1, sem.released)
	assert.Positive(t, calls.Load())
	// QUEUED 已在入队时写入
	assert.Equal(t, []any{types.JOB_STATUS_PROCESSING, types.JOB_STATUS_COMPLETED}, jobs.statuses)
}

func TestSynthesisConsumer_HandleRejectsBadPayload(t *testing.T) {
	consumer, _, _, calls := newTestConsumer(t)

	err := consumer.Handle(context.Background(), asynq.NewTask(queue.TaskTypeSynthesisPodcast, []byte(`{"inputs":["x"]}`)))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.EqualValues(t, 0, calls.Load())
}

func TestWorkDirCleanupTask(t *testing.T) {
	root := t.TempDir()
	now := time.Now()

	stale := filepath.Join(root, "podcast_stale")
	fresh := filepath.Join(root, "podcast_fresh")
	require.NoError(t, os.MkdirAll(stale, 0o755))
	require.NoError(t, os.MkdirAll(fresh, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stale, "segment_0_Ana.mp3"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.mp3"), []byte("x"), 0o644))

	old := now.Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(filepath.Join(root, "stray.mp3"), old, old))

	task := NewWorkDirCleanupTask(root, time.Hour)
	task.now = func() time.Time { return now }

	assert.Equal(t, 1, task.Run(context.Background()))
	assert.NoDirExists(t, stale)
	assert.DirExists(t, fresh)
	assert.FileExists(t, filepath.Join(root, "stray.mp3"))

	assert.Equal(t, 0, NewWorkDirCleanupTask(filepath.Join(root, "missing"), time.Hour).Run(context.Background()))
}
