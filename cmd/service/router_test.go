package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/synthesis/app/core"
	"github.com/quka-ai/synthesis/app/store"
	"github.com/quka-ai/synthesis/cmd/service/handler"
	"github.com/quka-ai/synthesis/pkg/ai"
	"github.com/quka-ai/synthesis/pkg/extract"
	"github.com/quka-ai/synthesis/pkg/podcast"
	"github.com/quka-ai/synthesis/pkg/queue"
	"github.com/quka-ai/synthesis/pkg/tts"
	"github.com/quka-ai/synthesis/pkg/types"
)

type memoryJobs struct {
	mu   sync.Mutex
	docs map[string]map[string]any
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
	return &job, json.Unmarshal(raw, &job)
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

func generate(ctx context.Context, req *ai.GenerateRequest) (*ai.GenerateResponse, error) {
	switch req.SchemaName {
	case podcast.SUMMARY_SCHEMA_NAME:
		out, _ := json.Marshal(podcast.Summary{Summary: "summary"})
		return &ai.GenerateResponse{Output: out}, nil
	case podcast.SCRIPT_SCHEMA_NAME:
		out, _ := json.Marshal(map[string]any{"script": types.Script{
			{Speaker: "Ben", Text: "Welcome, Ana."},
			{Speaker: "Ana", Text: "Thanks, Ben."},
		}})
		return &ai.GenerateResponse{Output: out}, nil
	}
	return &ai.GenerateResponse{Text: "- hook"}, nil
}

type testServer struct {
	engine *gin.Engine
	jobs   *memoryJobs
	queue  *memoryQueue
}

func setupTestServer(t *testing.T, withQueue bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{jobs: &memoryJobs{docs: make(map[string]map[string]any)}}
	noDelay := 0
	comps := core.Components{
		Generator: ai.GeneratorFunc(generate),
		Synthesizer: tts.SynthesizerFunc(func(ctx context.Context, req *tts.Request) ([]byte, error) {
			return []byte(req.Text), nil
		}),
		Merger:   podcast.ConcatMerger{},
		JobStore: ts.jobs,
		Registry: prometheus.NewRegistry(),
	}
	if withQueue {
		ts.queue = &memoryQueue{}
		comps.Queue = ts.queue
	}
	app := core.New(core.CoreConfig{Audio: core.AudioConfig{
		WorkDir:    t.TempDir(),
		BatchDelay: &noDelay,
		Merger:     podcast.MERGER_CONCAT,
	}}, comps)

	setupHttpRouter(&handler.HttpSrv{Core: app, Engine: app.HttpEngine()})
	ts.engine = app.HttpEngine()
	return ts
}

type envelope struct {
	Meta struct {
		Code      int    `json:"code"`
		RequestID string `json:"request_id"`
	} `json:"meta"`
	Data json.RawMessage `json:"data"`
}

func (ts *testServer) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)

	var res envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	}
	return w, res
}

const interviewBody = `{
	"input": "Some notes about the topic.",
	"output": [{
		"type": "podcast",
		"options": {"format": "interview", "speakers": [{"name": "Ana"}, {"name": "Ben"}], "interviewee_name": "Ana"}
	}]
}`

func TestSynthesize_Sync(t *testing.T) {
	ts := setupTestServer(t, false)

	w, res := ts.do(t, http.MethodPost, "/api/v1/synthesis", interviewBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, res.Meta.RequestID)
	assert.Equal(t, res.Meta.RequestID, w.Header().Get("X-Request-ID"))

	var data types.SynthesisResult
	require.NoError(t, json.Unmarshal(res.Data, &data))
	require.NotNil(t, data.Podcast)
	assert.NotEmpty(t, data.Podcast.AudioFileName)

	var script types.Script
	require.NoError(t, json.Unmarshal([]byte(data.Podcast.Transcript), &script))
	assert.Len(t, script, 2)
}

func TestSynthesize_QueuedByDefault(t *testing.T) {
	ts := setupTestServer(t, true)

	w, res := ts.do(t, http.MethodPost, "/api/v1/synthesis", interviewBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data types.SynthesisQueuedResult
	require.NoError(t, json.Unmarshal(res.Data, &data))
	assert.Equal(t, types.SYNTHESIS_STATUS_QUEUED, data.Status)
	require.Len(t, ts.queue.tasks, 1)
	assert.Equal(t, data.JobID, ts.queue.tasks[0].JobID)

	w, res = ts.do(t, http.MethodGet, "/api/v1/synthesis/status/"+data.JobID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var job types.Job
	require.NoError(t, json.Unmarshal(res.Data, &job))
	assert.Equal(t, types.JOB_STATUS_QUEUED, job.Status)
}

func TestSynthesize_Errors(t *testing.T) {
	ts := setupTestServer(t, false)

	w, res := ts.do(t, http.MethodPost, "/api/v1/synthesis", `{"input": "x", "output": [{"type": "video"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var data types.SynthesisErrorResult
	require.NoError(t, json.Unmarshal(res.Data, &data))
	assert.Equal(t, types.SYNTHESIS_STATUS_ERROR, data.Status)
	assert.Contains(t, data.Message, "video")

	w, _ = ts.do(t, http.MethodPost, "/api/v1/synthesis?mode=queued", interviewBody)
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	w, _ = ts.do(t, http.MethodPost, "/api/v1/synthesis?mode=later", interviewBody)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = ts.do(t, http.MethodPost, "/api/v1/synthesis", `{"output": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = ts.do(t, http.MethodGet, "/api/v1/synthesis/status/podcast_unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListTemplatesAndMetrics(t *testing.T) {
	ts := setupTestServer(t, false)

	w, res := ts.do(t, http.MethodGet, "/api/v1/synthesis/templates", "")
	require.Equal(t, http.StatusOK, w.Code)
	var templates []map[string]any
	require.NoError(t, json.Unmarshal(res.Data, &templates))
	assert.NotEmpty(t, templates)

	w, _ = ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "api_response_time")
}

func TestBuildSynthesisRequest(t *testing.T) {
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("local notes"), 0o644))
	optsFile := filepath.Join(dir, "options.json")
	require.NoError(t, os.WriteFile(optsFile, []byte(`{"format":"debate"}`), 0o644))

	req, err := BuildSynthesisRequest(extract.New(nil), &SynthesizeOptions{
		Inputs:      []string{notes, "https://example.com/a.pdf", "plain text"},
		OptionsPath: optsFile,
		Template:    podcast.TEMPLATE_ETHICAL_DEBATE,
		JobID:       "podcast_cli",
	})
	require.NoError(t, err)
	assert.Equal(t, types.SynthesisInput{"local notes", "https://example.com/a.pdf", "plain text"}, req.Input)
	assert.Equal(t, "podcast_cli", req.JobID)
	require.Len(t, req.Output, 1)
	assert.Equal(t, types.OUTPUT_TYPE_PODCAST, req.Output[0].Type)
	assert.Equal(t, podcast.TEMPLATE_ETHICAL_DEBATE, req.Output[0].Template)
	assert.JSONEq(t, `{"format":"debate"}`, string(req.Output[0].Options))

	require.NoError(t, os.WriteFile(optsFile, []byte(`{not json`), 0o644))
	_, err = BuildSynthesisRequest(extract.New(nil), &SynthesizeOptions{OptionsPath: optsFile})
	assert.Error(t, err)
}
