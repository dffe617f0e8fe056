package podcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/quka-ai/synthesis/pkg/ai"
	"github.com/quka-ai/synthesis/pkg/errors"
	"github.com/quka-ai/synthesis/pkg/i18n"
	"github.com/quka-ai/synthesis/pkg/tts"
	"github.com/quka-ai/synthesis/pkg/types"
	"github.com/quka-ai/synthesis/pkg/utils"
)

type PipelineInput struct {
	JobID   string
	Sources []string
	Options *types.PodcastOptions
	// Enqueued 入队时已经通过 MarkQueued 写入 QUEUED，运行时不再重复写入
	Enqueued bool
}

type PipelineResult struct {
	JobID         string
	Summary       string
	Hooks         []string
	Script        types.Script
	TranscriptURL string
	Audio         *AudioResult
	Metrics       types.StageMetrics
}

// Podcast 对外返回的结果，transcript 为脚本的 json
func (r *PipelineResult) Podcast() *types.PodcastResult {
	transcript, _ := json.Marshal(r.Script)
	res := &types.PodcastResult{Transcript: string(transcript)}
	if r.Audio != nil {
		res.AudioFileName = r.Audio.AudioFileName
		res.StorageURL = r.Audio.StorageURL
	}
	return res
}

type Pipeline struct {
	summarizer *Summarizer
	hooks      *HookGenerator
	script     *ScriptGenerator
	audio      *AudioSynthesizer

	storage  ObjectStorage
	recorder JobRecorder
	metrics  Metrics
	audioCfg AudioConfig
}

type Option func(p *Pipeline)

// WithObjectStorage 配置后音频与 transcript 会被上传
func WithObjectStorage(s ObjectStorage) Option {
	return func(p *Pipeline) {
		p.storage = s
	}
}

// WithJobRecorder 未配置时任务状态只输出到日志
func WithJobRecorder(r JobRecorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

func WithMetrics(m Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

func WithAudioConfig(cfg AudioConfig) Option {
	return func(p *Pipeline) {
		p.audioCfg = cfg
	}
}

func NewPipeline(llm ai.Generator, synth tts.Synthesizer, merger Merger, opts ...Option) *Pipeline {
	p := &Pipeline{
		metrics:  noopMetrics{},
		audioCfg: DefaultAudioConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = noopMetrics{}
	}

	p.summarizer = NewSummarizer(llm)
	p.hooks = NewHookGenerator(llm)
	p.script = NewScriptGenerator(llm)
	p.audio = NewAudioSynthesizer(synth, merger, p.storage, p.audioCfg, p.metrics)
	return p
}

func (p *Pipeline) AudioConfig() AudioConfig {
	return p.audio.cfg
}

// Run 依次执行 摘要 -> hooks -> 脚本 -> 音频，每个阶段结束后更新任务文档。
// 任一阶段失败时任务被标记为 ERROR 并返回同一个错误
func (p *Pipeline) Run(ctx context.Context, in PipelineInput) (*PipelineResult, error) {
	if in.JobID == "" {
		return nil, errors.New("Pipeline.Run", i18n.ERROR_MISSING_JOB_ID, fmt.Errorf("job id is required")).Kind(errors.KindConfiguration)
	}

	t := newTracker(in.JobID, p.recorder, p.metrics)
	if !in.Enqueued {
		t.queued(ctx)
	}

	res, err := p.run(ctx, t, in)
	if err != nil {
		slog.Error("podcast pipeline failed", slog.String("job_id", in.JobID), slog.String("error", err.Error()))
		t.failed(ctx, errors.Describe(err))
		return nil, err
	}

	t.completed(ctx, map[string]any{
		types.JOB_FIELD_SUMMARY:         res.Summary,
		types.JOB_FIELD_HOOKS:           res.Hooks,
		types.JOB_FIELD_SCRIPT:          res.Script,
		types.JOB_FIELD_AUDIO_FILE_NAME: res.Audio.AudioFileName,
		types.JOB_FIELD_STORAGE_URL:     res.Audio.StorageURL,
	})
	res.Metrics = t.snapshot()
	return res, nil
}

// MarkQueued 任务进入队列时写入 QUEUED
func (p *Pipeline) MarkQueued(ctx context.Context, jobID string) {
	newTracker(jobID, p.recorder, p.metrics).queued(ctx)
}

// MarkFailed 流水线启动前的失败(如输入提取失败)也需要记录到任务中
func (p *Pipeline) MarkFailed(ctx context.Context, jobID string, err error) {
	newTracker(jobID, p.recorder, p.metrics).failed(ctx, errors.Describe(err))
}

func (p *Pipeline) run(ctx context.Context, t *tracker, in PipelineInput) (*PipelineResult, error) {
	if in.Options == nil {
		return nil, errors.New("Pipeline.run", i18n.ERROR_INVALID_PODCAST_OPTIONS, fmt.Errorf("podcast options are required")).Kind(errors.KindConfiguration)
	}
	if !in.Options.IsSupportedFormat() {
		return nil, errors.New("Pipeline.run", i18n.ERROR_UNSUPPORTED_FORMAT, fmt.Errorf("unsupported podcast format %q", in.Options.Format)).Kind(errors.KindConfiguration)
	}
	if err := in.Options.Validate(); err != nil {
		return nil, errors.New("Pipeline.run", i18n.ERROR_INVALID_PODCAST_OPTIONS, err).Kind(errors.KindConfiguration)
	}

	t.processing(ctx)
	res := &PipelineResult{JobID: in.JobID}
	logger := slog.With(slog.String("job_id", in.JobID))

	start := time.Now()
	summary, err := p.summarizer.SummarizeMany(ctx, in.Sources)
	if err != nil {
		return nil, errors.Trace("Pipeline.run.summarize", err)
	}
	res.Summary = summary
	t.stageDone(ctx, types.STAGE_SUMMARIZE, types.JOB_FIELD_SUMMARIZE_COMPLETED, time.Since(start), map[string]any{
		types.JOB_FIELD_SUMMARY:      summary,
		types.JOB_FIELD_CURRENT_STEP: types.JOB_STEP_GENERATING_HOOKS,
	})
	logger.Info("sources summarized", slog.Int("sources", len(in.Sources)))

	start = time.Now()
	hooks, err := p.hooks.GenerateHooks(ctx, summary)
	if err != nil {
		return nil, errors.Trace("Pipeline.run.hooks", err)
	}
	res.Hooks = hooks
	t.stageDone(ctx, types.STAGE_HOOKS, types.JOB_FIELD_HOOKS_COMPLETED, time.Since(start), map[string]any{
		types.JOB_FIELD_HOOKS:        hooks,
		types.JOB_FIELD_CURRENT_STEP: types.JOB_STEP_GENERATING_SCRIPT,
	})
	logger.Info("hooks generated", slog.Int("hooks", len(hooks)))

	start = time.Now()
	script, err := p.script.GenerateScript(ctx, summary, hooks, in.Options)
	if err != nil {
		return nil, errors.Trace("Pipeline.run.script", err)
	}
	if script.IsEmpty() {
		return nil, errors.New("Pipeline.run.script", i18n.ERROR_EMPTY_SCRIPT, fmt.Errorf("no script was generated")).Kind(errors.KindUpstreamGeneration)
	}
	res.Script = script

	scriptFields := map[string]any{
		types.JOB_FIELD_SCRIPT:       script,
		types.JOB_FIELD_CURRENT_STEP: types.JOB_STEP_SYNTHESIZING_AUDIO,
	}
	if p.storage != nil {
		if res.TranscriptURL, err = p.uploadTranscript(ctx, in.JobID, script, in.Options); err != nil {
			return nil, err
		}
		scriptFields[types.JOB_FIELD_TRANSCRIPT_URL] = res.TranscriptURL
	}
	t.stageDone(ctx, types.STAGE_SCRIPT, types.JOB_FIELD_SCRIPT_COMPLETED, time.Since(start), scriptFields)
	logger.Info("script generated", slog.Int("lines", len(script)))

	start = time.Now()
	audio, err := p.audio.Synthesize(ctx, in.JobID, script, in.Options)
	if err != nil {
		return nil, errors.Trace("Pipeline.run.audio", err)
	}
	res.Audio = audio
	t.stageDone(ctx, types.STAGE_AUDIO, types.JOB_FIELD_AUDIO_COMPLETED, time.Since(start), nil)

	return res, nil
}

// uploadTranscript 把脚本以缩进 json 上传到 transcript 目录
func (p *Pipeline) uploadTranscript(ctx context.Context, jobID string, script types.Script, opts *types.PodcastOptions) (string, error) {
	raw, err := json.MarshalIndent(script, "", "  ")
	if err != nil {
		return "", errors.New("Pipeline.uploadTranscript.MarshalIndent", i18n.ERROR_TRANSCRIPT_UPLOAD_FAILED, err).Kind(errors.KindPartialArtifact)
	}

	if err = os.MkdirAll(p.audio.cfg.WorkDir, 0o755); err != nil {
		return "", errors.New("Pipeline.uploadTranscript.MkdirAll", i18n.ERROR_TRANSCRIPT_UPLOAD_FAILED, err).Kind(errors.KindPartialArtifact)
	}
	f, err := os.CreateTemp(p.audio.cfg.WorkDir, "transcript_*.json")
	if err != nil {
		return "", errors.New("Pipeline.uploadTranscript.CreateTemp", i18n.ERROR_TRANSCRIPT_UPLOAD_FAILED, err).Kind(errors.KindPartialArtifact)
	}
	defer func() {
		f.Close()
		removeFiles(slog.With(slog.String("job_id", jobID)), f.Name())
	}()

	if _, err = f.Write(raw); err != nil {
		return "", errors.New("Pipeline.uploadTranscript.Write", i18n.ERROR_TRANSCRIPT_UPLOAD_FAILED, err).Kind(errors.KindPartialArtifact)
	}
	if err = f.Sync(); err != nil {
		return "", errors.New("Pipeline.uploadTranscript.Sync", i18n.ERROR_TRANSCRIPT_UPLOAD_FAILED, err).Kind(errors.KindPartialArtifact)
	}

	dest := utils.JoinObjectPath(opts.TranscriptStorage, fmt.Sprintf("transcript_%d.json", time.Now().UnixMilli()))
	if err = p.storage.Upload(ctx, opts.BucketName, f.Name(), dest); err != nil {
		return "", errors.New("Pipeline.uploadTranscript.Upload", i18n.ERROR_TRANSCRIPT_UPLOAD_FAILED, err).Kind(errors.KindPartialArtifact)
	}
	return p.storage.ObjectURL(opts.BucketName, dest), nil
}
