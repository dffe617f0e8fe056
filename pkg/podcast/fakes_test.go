package podcast

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quka-ai/synthesis/pkg/ai"
	"github.com/quka-ai/synthesis/pkg/tts"
	"github.com/quka-ai/synthesis/pkg/types"
)

// fakeLLM 按 schema 名称区分调用方，记录每次请求
type fakeLLM struct {
	mu       sync.Mutex
	requests []*ai.GenerateRequest

	summarize func(source string) (*ai.GenerateResponse, error)
	hooks     string
	script    types.Script
	scriptErr error
}

func newFakeLLM() *fakeLLM {
	return &fakeLLM{
		summarize: func(source string) (*ai.GenerateResponse, error) {
			out, _ := json.Marshal(Summary{Summary: "summary of " + source, QuotesBlock: "\"quote\"", OutlineBlock: "- point"})
			return &ai.GenerateResponse{Output: out}, nil
		},
		hooks: "- first angle\n\n- second angle\n",
	}
}

func (f *fakeLLM) Generate(ctx context.Context, req *ai.GenerateRequest) (*ai.GenerateResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	switch req.SchemaName {
	case SUMMARY_SCHEMA_NAME:
		return f.summarize(sourceOf(req.Prompt))
	case SCRIPT_SCHEMA_NAME:
		if f.scriptErr != nil {
			return nil, f.scriptErr
		}
		out, _ := json.Marshal(scriptOutput{Script: f.script})
		return &ai.GenerateResponse{Output: out}, nil
	}
	return &ai.GenerateResponse{Text: f.hooks}, nil
}

func (f *fakeLLM) calls() []*ai.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*ai.GenerateRequest{}, f.requests...)
}

func sourceOf(prompt string) string {
	idx := strings.LastIndex(prompt, "Source:\n")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(prompt[idx+len("Source:\n"):])
}

// fakeTTS 返回 "voice|text" 作为音频内容，fail 返回非 nil 时该次调用失败
type fakeTTS struct {
	mu    sync.Mutex
	calls map[string]int
	total atomic.Int64
	// inflight 当前并发中的调用数，peak 为其历史最大值
	inflight atomic.Int64
	peak     atomic.Int64

	delay func(text string) time.Duration
	fail  func(text string, attempt int) error
}

func newFakeTTS() *fakeTTS {
	return &fakeTTS{calls: make(map[string]int)}
}

func (f *fakeTTS) SynthesizeSpeech(ctx context.Context, req *tts.Request) ([]byte, error) {
	f.total.Add(1)
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[req.Text]++
	attempt := f.calls[req.Text]
	f.mu.Unlock()

	if f.delay != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay(req.Text)):
		}
	}
	if f.fail != nil {
		if err := f.fail(req.Text, attempt); err != nil {
			return nil, err
		}
	}
	return []byte(fmt.Sprintf("%s|%s;", req.Voice.Name, req.Text)), nil
}

func (f *fakeTTS) callsFor(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[text]
}

// recordingMerger 记录合并输入并以 ConcatMerger 的方式写出文件
type recordingMerger struct {
	mu     sync.Mutex
	inputs []string
	err    error
}

func (m *recordingMerger) Merge(ctx context.Context, inputs []string, output string) error {
	m.mu.Lock()
	m.inputs = append([]string{}, inputs...)
	m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	return ConcatMerger{}.Merge(ctx, inputs, output)
}

type upload struct {
	Bucket  string
	Dest    string
	Content []byte
}

type fakeStorage struct {
	mu      sync.Mutex
	uploads []upload
	err     error
}

func (s *fakeStorage) Upload(ctx context.Context, bucket, localPath, dest string) error {
	if s.err != nil {
		return s.err
	}
	raw, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.uploads = append(s.uploads, upload{Bucket: bucket, Dest: dest, Content: raw})
	s.mu.Unlock()
	return nil
}

func (s *fakeStorage) ObjectURL(bucket, key string) string {
	if bucket == "" {
		bucket = "default-bucket"
	}
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}

// memoryRecorder 以合并写的方式保存任务文档，同时记录每次写入
type memoryRecorder struct {
	mu      sync.Mutex
	docs    map[string]map[string]any
	updates []map[string]any
}

func newMemoryRecorder() *memoryRecorder {
	return &memoryRecorder{docs: make(map[string]map[string]any)}
}

func (r *memoryRecorder) Update(ctx context.Context, jobID string, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[jobID]
	if !ok {
		doc = make(map[string]any)
		r.docs[jobID] = doc
	}
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		doc[k] = v
		copied[k] = v
	}
	r.updates = append(r.updates, copied)
	return nil
}

func (r *memoryRecorder) doc(jobID string) map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.docs[jobID]
}

// values 按写入顺序返回某个字段出现过的值
func (r *memoryRecorder) values(field string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []any
	for _, u := range r.updates {
		if v, ok := u[field]; ok {
			res = append(res, v)
		}
	}
	return res
}

type countingMetrics struct {
	mu       sync.Mutex
	stages   []string
	segments int
	retries  int
	jobs     []types.JobStatus
}

func (m *countingMetrics) ObserveStage(stage string, d time.Duration) {
	m.mu.Lock()
	m.stages = append(m.stages, stage)
	m.mu.Unlock()
}

func (m *countingMetrics) ObserveSegment(d time.Duration) {
	m.mu.Lock()
	m.segments++
	m.mu.Unlock()
}

func (m *countingMetrics) IncRetry() {
	m.mu.Lock()
	m.retries++
	m.mu.Unlock()
}

func (m *countingMetrics) IncJob(status types.JobStatus) {
	m.mu.Lock()
	m.jobs = append(m.jobs, status)
	m.mu.Unlock()
}

func testAudioConfig(dir string) AudioConfig {
	return AudioConfig{
		WorkDir:    dir,
		BatchSize:  3,
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		BatchDelay: time.Millisecond,
	}
}

func interviewOptions() *types.PodcastOptions {
	return &types.PodcastOptions{
		Format: types.PODCAST_FORMAT_INTERVIEW,
		PodcastBase: types.PodcastBase{
			Speakers: []types.Speaker{{Name: "Ana"}, {Name: "Ben"}},
		},
		Interview: &types.InterviewOptions{
			IntervieweeName: "Ana",
			MaxQuestions:    5,
		},
	}
}
