package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/synthesis/app/core"
	"github.com/quka-ai/synthesis/app/store"
	"github.com/quka-ai/synthesis/pkg/ai"
	"github.com/quka-ai/synthesis/pkg/errors"
	"github.com/quka-ai/synthesis/pkg/podcast"
	"github.com/quka-ai/synthesis/pkg/queue"
	"github.com/quka-ai/synthesis/pkg/tts"
	"github.com/quka-ai/synthesis/pkg/types"
)

// generator 按 schema 名称返回摘要、脚本或 hooks
type generator struct {
	calls   atomic.Int64
	mu      sync.Mutex
	prompts []string
	script  types.Script
}

func (g *generator) Generate(ctx context.Context, req *ai.GenerateRequest) (*ai.GenerateResponse, error) {
	g.calls.Add(1)
	g.mu.Lock()
	g.prompts = append(g.prompts, req.Prompt)
	g.mu.Unlock()

	switch req.SchemaName {
	case podcast.SUMMARY_SCHEMA_NAME:
		out, _ := json.Marshal(podcast.Summary{Summary: "a summary", QuotesBlock: "\"a quote\"", OutlineBlock: "- a point"})
		return &ai.GenerateResponse{Output: out}, nil
	case podcast.SCRIPT_SCHEMA_NAME:
		out, _ := json.Marshal(map[string]any{"script": g.script})
		return &ai.GenerateResponse{Output: out}, nil
	}
	return &ai.GenerateResponse{Text: "- angle one\n- angle two"}, nil
}

// memoryJobs 合并写入的任务文档，Get 时转换为 types.Job
type memoryJobs struct {
	mu      sync.Mutex
	docs    map[string]map[string]any
	updates int
}

func newMemoryJobs() *memoryJobs {
	return &memoryJobs{docs: make(map[string]map[string]any)}
}

func (m *memoryJobs) Update(ctx context.Context, jobID string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[jobID]
	if !ok {
		doc = map[string]any{"id": jobID}
		m.docs[jobID] = doc
	}
	for k, v := range fields {
		doc[k] = v
	}
	m.updates++
	return nil
}

func (m *memoryJobs) Get(ctx context.Context, jobID string) (*types.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[jobID]
	if !ok {
		return nil, store.ErrNotFound
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var job types.Job
	if err = json.Unmarshal(raw, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

type memoryQueue struct {
	tasks []*queue.SynthesisTask
}

func (q *memoryQueue) EnqueueSynthesisTask(ctx context.Context, task *queue.SynthesisTask) error {
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *memoryQueue) EnqueueDelayedSynthesisTask(ctx context.Context, task *queue.SynthesisTask, delay time.Duration) error {
	q.tasks = append(q.tasks, task)
	return nil
}

type testEnv struct {
	core  *core.Core
	gen   *generator
	jobs  *memoryJobs
	queue *memoryQueue
}

func setupTestEnv(t *testing.T, withJobs, withQueue bool) *testEnv {
	t.Helper()
	env := &testEnv{
		gen: &generator{script: types.Script{
			{Speaker: "Ben", Text: "Welcome, Ana."},
			{Speaker: "Ana", Text: "Thanks, Ben."},
		}},
	}

	noDelay := 0
	cfg := core.CoreConfig{Audio: core.AudioConfig{
		WorkDir:    t.TempDir(),
		BaseDelay:  1,
		BatchDelay: &noDelay,
		Merger:     podcast.MERGER_CONCAT,
	}}
	comps := core.Components{
		Generator: env.gen,
		Synthesizer: tts.SynthesizerFunc(func(ctx context.Context, req *tts.Request) ([]byte, error) {
			return []byte(req.Text), nil
		}),
		Merger:   podcast.ConcatMerger{},
		Registry: prometheus.NewRegistry(),
	}
	if withJobs {
		env.jobs = newMemoryJobs()
		comps.JobStore = env.jobs
	}
	if withQueue {
		env.queue = &memoryQueue{}
		comps.Queue = env.queue
	}
	env.core = core.New(cfg, comps)
	return env
}

func interviewRequest(input ...string) *types.SynthesisRequest {
	return &types.SynthesisRequest{
		Input: input,
		Output: []types.SynthesisOutput{{
			Type:    types.OUTPUT_TYPE_PODCAST,
			Options: json.RawMessage(`{"format":"interview","speakers":[{"name":"Ana"},{"name":"Ben"}],"interviewee_name":"Ana","max_questions":5}`),
		}},
	}
}

func TestSynthesize_UnsupportedOutputTypeRejected(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("remote text"))
	}))
	defer srv.Close()

	env := setupTestEnv(t, true, false)
	req := interviewRequest(srv.URL + "/doc.txt")
	req.Output = append(req.Output, types.SynthesisOutput{Type: "video"})

	_, err := NewSynthesisLogic(context.Background(), env.core).Synthesize(req)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindConfiguration))
	assert.EqualValues(t, 0, env.gen.calls.Load())
	assert.EqualValues(t, 0, hits.Load())
	assert.Equal(t, 0, env.jobs.updates)
}

func TestSynthesize_InterviewWithURLInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("Remote paper body."))
	}))
	defer srv.Close()

	env := setupTestEnv(t, true, false)
	req := interviewRequest("Pasted notes.", srv.URL+"/paper.txt")
	req.JobID = "podcast_given"

	res, err := NewSynthesisLogic(context.Background(), env.core).Synthesize(req)
	require.NoError(t, err)
	require.NotNil(t, res.Podcast)

	var script types.Script
	require.NoError(t, json.Unmarshal([]byte(res.Podcast.Transcript), &script))
	assert.Equal(t, env.gen.script, script)
	assert.True(t, strings.HasPrefix(res.Podcast.AudioFileName, "podcast_audio_"))
	assert.Empty(t, res.Podcast.StorageURL)

	summarized := strings.Join(env.gen.prompts, "\n")
	assert.Contains(t, summarized, "Pasted notes.")
	assert.Contains(t, summarized, "Remote paper body.")

	job, err := NewSynthesisLogic(context.Background(), env.core).GetJob("podcast_given")
	require.NoError(t, err)
	assert.Equal(t, types.JOB_STATUS_COMPLETED, job.Status)
	assert.Equal(t, types.JOB_STEP_NONE, job.CurrentStep)
	assert.True(t, job.AudioCompleted)
}

func TestSynthesize_GeneratesJobID(t *testing.T) {
	env := setupTestEnv(t, true, false)

	_, err := NewSynthesisLogic(context.Background(), env.core).Synthesize(interviewRequest("text"))
	require.NoError(t, err)

	require.Len(t, env.jobs.docs, 1)
	for id := range env.jobs.docs {
		assert.True(t, strings.HasPrefix(id, JOB_ID_PREFIX))
	}
}

func TestSynthesize_UnsupportedContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("\x89PNG\r\n\x1a\n0000"))
	}))
	defer srv.Close()

	env := setupTestEnv(t, true, false)
	req := interviewRequest(srv.URL + "/image")
	req.JobID = "podcast_png"

	_, err := NewSynthesisLogic(context.Background(), env.core).Synthesize(req)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindContentExtraction))
	assert.EqualValues(t, 0, env.gen.calls.Load())

	job, err := env.jobs.Get(context.Background(), "podcast_png")
	require.NoError(t, err)
	assert.Equal(t, types.JOB_STATUS_ERROR, job.Status)
	assert.NotEmpty(t, job.Error)
}

func TestSynthesize_UnsupportedFormat(t *testing.T) {
	env := setupTestEnv(t, false, false)
	req := interviewRequest("text")
	req.Output[0].Options = json.RawMessage(`{"format":"monologue","speakers":[{"name":"Ana"}]}`)

	_, err := NewSynthesisLogic(context.Background(), env.core).Synthesize(req)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindConfiguration))
	assert.EqualValues(t, 0, env.gen.calls.Load())
}

func TestBuildPodcastOptions(t *testing.T) {
	opts, err := BuildPodcastOptions(&types.SynthesisOutput{
		Type:     types.OUTPUT_TYPE_PODCAST,
		Template: podcast.TEMPLATE_ETHICAL_DEBATE,
		Options:  json.RawMessage(`{"title":"Safety first","num_rounds":2}`),
	})
	require.NoError(t, err)
	assert.Equal(t, types.PODCAST_FORMAT_DEBATE, opts.Format)
	assert.Equal(t, "Safety first", opts.Title)
	require.NotNil(t, opts.Debate)
	assert.Equal(t, 2, opts.Debate.NumRounds)
	assert.Equal(t, "AI Safety vs Innovation Speed", opts.Debate.DebateTopic)

	_, err = BuildPodcastOptions(&types.SynthesisOutput{Type: types.OUTPUT_TYPE_PODCAST, Template: "talk-show"})
	assert.True(t, errors.IsKind(err, errors.KindConfiguration))

	_, err = BuildPodcastOptions(&types.SynthesisOutput{Type: types.OUTPUT_TYPE_PODCAST})
	assert.True(t, errors.IsKind(err, errors.KindConfiguration))

	_, err = BuildPodcastOptions(&types.SynthesisOutput{
		Type:    types.OUTPUT_TYPE_PODCAST,
		Options: json.RawMessage(`{"format":"interview","speakers":[{"name":"Ana"}],"max_questions":50}`),
	})
	assert.True(t, errors.IsKind(err, errors.KindConfiguration))
}

func TestEnqueue(t *testing.T) {
	env := setupTestEnv(t, true, true)

	res, err := NewSynthesisLogic(context.Background(), env.core).Enqueue(interviewRequest("text one", "text two"))
	require.NoError(t, err)
	assert.Equal(t, types.SYNTHESIS_STATUS_QUEUED, res.Status)
	assert.True(t, strings.HasPrefix(res.JobID, JOB_ID_PREFIX))

	require.Len(t, env.queue.tasks, 1)
	task := env.queue.tasks[0]
	assert.Equal(t, res.JobID, task.JobID)
	assert.Equal(t, []string{"text one", "text two"}, task.Inputs)
	assert.Equal(t, types.PODCAST_FORMAT_INTERVIEW, task.Options.Format)
	assert.EqualValues(t, 0, env.gen.calls.Load())

	job, err := NewSynthesisLogic(context.Background(), env.core).GetJob(res.JobID)
	require.NoError(t, err)
	assert.Equal(t, types.JOB_STATUS_QUEUED, job.Status)
	assert.NotZero(t, job.CreatedAt)
}

func TestEnqueue_QueueDisabled(t *testing.T) {
	env := setupTestEnv(t, true, false)

	_, err := NewSynthesisLogic(context.Background(), env.core).Enqueue(interviewRequest("text"))
	require.Error(t, err)
	var cerr *errors.CustomizedError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, http.StatusNotImplemented, cerr.GetCode())
}

func TestGetJob_IdempotentRepoll(t *testing.T) {
	env := setupTestEnv(t, true, false)
	req := interviewRequest("text")
	req.JobID = "podcast_repoll"

	logic := NewSynthesisLogic(context.Background(), env.core)
	_, err := logic.Synthesize(req)
	require.NoError(t, err)
	writes := env.jobs.updates

	first, err := logic.GetJob("podcast_repoll")
	require.NoError(t, err)
	second, err := logic.GetJob("podcast_repoll")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, writes, env.jobs.updates)
}

func TestGetJob_Errors(t *testing.T) {
	var cerr *errors.CustomizedError

	env := setupTestEnv(t, true, false)
	_, err := NewSynthesisLogic(context.Background(), env.core).GetJob("missing")
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, http.StatusNotFound, cerr.GetCode())

	env = setupTestEnv(t, false, false)
	_, err = NewSynthesisLogic(context.Background(), env.core).GetJob("missing")
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, http.StatusNotImplemented, cerr.GetCode())
}
