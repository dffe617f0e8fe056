package podcast

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/quka-ai/synthesis/pkg/errors"
	"github.com/quka-ai/synthesis/pkg/i18n"
	"github.com/quka-ai/synthesis/pkg/safe"
	"github.com/quka-ai/synthesis/pkg/tts"
	"github.com/quka-ai/synthesis/pkg/types"
	"github.com/quka-ai/synthesis/pkg/utils"
)

const (
	DEFAULT_BATCH_SIZE  = 3
	DEFAULT_MAX_RETRIES = 3
	DEFAULT_BASE_DELAY  = time.Second
	DEFAULT_BATCH_DELAY = time.Second

	SEGMENTS_DIR = "segments"
	OUTPUT_DIR   = "output"
)

type AudioConfig struct {
	// WorkDir 下的 segments/<job_id> 存放分段文件，output/<job_id> 存放合并后的文件
	WorkDir string
	// OutputDir 为空时使用 WorkDir/output，合并文件写在其下的任务子目录中
	OutputDir    string
	BatchSize    int
	MaxRetries   int
	BaseDelay    time.Duration
	BatchDelay   time.Duration
	DefaultVoice string
	Audio        tts.AudioConfig
}

func (c AudioConfig) withDefaults() AudioConfig {
	if c.WorkDir == "" {
		c.WorkDir = filepath.Join(os.TempDir(), "synthesis")
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.WorkDir, OUTPUT_DIR)
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DEFAULT_BATCH_SIZE
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DEFAULT_BASE_DELAY
	}
	if c.BatchDelay < 0 {
		c.BatchDelay = 0
	}
	if c.DefaultVoice == "" {
		c.DefaultVoice = types.DEFAULT_VOICE
	}
	if c.Audio.AudioEncoding == "" {
		c.Audio = tts.DefaultAudioConfig()
	}
	return c
}

// DefaultAudioConfig 重试 3 次(1s, 2s, 4s)，每批 3 段，批次间隔 1s
func DefaultAudioConfig() AudioConfig {
	return AudioConfig{
		BatchSize:  DEFAULT_BATCH_SIZE,
		MaxRetries: DEFAULT_MAX_RETRIES,
		BaseDelay:  DEFAULT_BASE_DELAY,
		BatchDelay: DEFAULT_BATCH_DELAY,
	}.withDefaults()
}

// SegmentsRoot 各任务分段目录的父目录，供过期目录清理使用
func (c AudioConfig) SegmentsRoot() string {
	return filepath.Join(c.withDefaults().WorkDir, SEGMENTS_DIR)
}

type AudioResult struct {
	AudioFileName string
	// StorageURL 上传成功时为 scheme://bucket/path
	StorageURL string
	// LocalPath 未配置存储时合并文件保留在本地的绝对路径
	LocalPath string
	Metrics   AudioMetrics
}

type AudioMetrics struct {
	TotalSegments  int
	AvgSegmentTime time.Duration
	MergeTime      time.Duration
	UploadTime     time.Duration
	Retries        int64
	Total          time.Duration
}

type AudioSynthesizer struct {
	tts     tts.Synthesizer
	merger  Merger
	storage ObjectStorage
	cfg     AudioConfig
	metrics Metrics
}

// NewAudioSynthesizer storage 为 nil 时合并文件保留在本地
func NewAudioSynthesizer(synth tts.Synthesizer, merger Merger, storage ObjectStorage, cfg AudioConfig, metrics Metrics) *AudioSynthesizer {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &AudioSynthesizer{
		tts:     synth,
		merger:  merger,
		storage: storage,
		cfg:     cfg.withDefaults(),
		metrics: metrics,
	}
}

// VoiceFor 主持人优先，其次是发言人列表，都没有时使用默认声音
func VoiceFor(speaker string, opts *types.PodcastOptions, defaultVoice string) string {
	if m := opts.Moderator(); m != nil && m.Name == speaker {
		if m.VoiceID != "" {
			return m.VoiceID
		}
		return defaultVoice
	}
	for _, s := range opts.Speakers {
		if s.Name == speaker && s.VoiceID != "" {
			return s.VoiceID
		}
	}
	return defaultVoice
}

func OutputFileName(title string) string {
	name := uuid.NewString()
	if title != "" {
		name = utils.SafeFileName(title)
	}
	return fmt.Sprintf("podcast_audio_%s.mp3", name)
}

// segmentSet 记录已经写入磁盘的分段文件，失败时用于清理
type segmentSet struct {
	mu    sync.Mutex
	files map[int]string
}

func (s *segmentSet) add(i int, path string) {
	s.mu.Lock()
	s.files[i] = path
	s.mu.Unlock()
}

// ordered 按脚本下标返回文件列表
func (s *segmentSet) ordered(n int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]string, 0, n)
	for i := 0; i < n; i++ {
		f, ok := s.files[i]
		if !ok {
			return nil, fmt.Errorf("audio segment %d is missing", i)
		}
		res = append(res, f)
	}
	return res, nil
}

func (s *segmentSet) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]string, 0, len(s.files))
	for _, f := range s.files {
		res = append(res, f)
	}
	return res
}

// Synthesize 分批合成每一句台词，合并后按配置上传。任何一步失败都会清理已经生成的临时文件
func (a *AudioSynthesizer) Synthesize(ctx context.Context, jobID string, script types.Script, opts *types.PodcastOptions) (*AudioResult, error) {
	if len(script) == 0 {
		return nil, errors.New("AudioSynthesizer.Synthesize", i18n.ERROR_EMPTY_SCRIPT, nil).Kind(errors.KindUpstreamGeneration)
	}

	start := time.Now()
	logger := slog.With(slog.String("job_id", jobID), slog.String("component", "audio"))
	logger.Info("starting audio synthesis", slog.Int("segments", len(script)))

	segDir := filepath.Join(a.cfg.WorkDir, SEGMENTS_DIR, utils.SafeFileName(jobID))
	if err := os.MkdirAll(segDir, 0o755); err != nil {
		return nil, errors.New("AudioSynthesizer.Synthesize.MkdirAll", i18n.ERROR_INTERNAL, err)
	}
	// 同名标题的任务各自写入自己的目录
	outDir := filepath.Join(a.cfg.OutputDir, utils.SafeFileName(jobID))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, errors.New("AudioSynthesizer.Synthesize.MkdirAll", i18n.ERROR_INTERNAL, err)
	}

	var (
		segments    = &segmentSet{files: make(map[int]string, len(script))}
		retries     atomic.Int64
		segmentTime atomic.Int64
		fileName    = OutputFileName(opts.Title)
		outputPath  = filepath.Join(outDir, fileName)
		result      = &AudioResult{AudioFileName: fileName}
		keepOutput  bool
	)

	defer func() {
		// 分段文件在任何情况下都会被删除，合并文件只在未配置存储且成功时保留
		removeFiles(logger, segments.all()...)
		if err := os.Remove(segDir); err != nil && !os.IsNotExist(err) {
			logger.Warn("could not remove segment dir", slog.String("dir", segDir), slog.String("error", err.Error()))
		}
		if !keepOutput {
			removeFiles(logger, outputPath)
			if err := os.Remove(outDir); err != nil && !os.IsNotExist(err) {
				logger.Warn("could not remove output dir", slog.String("dir", outDir), slog.String("error", err.Error()))
			}
		}
	}()

	for batchStart := 0; batchStart < len(script); batchStart += a.cfg.BatchSize {
		batchEnd := min(batchStart+a.cfg.BatchSize, len(script))

		g, gctx := errgroup.WithContext(ctx)
		for i := batchStart; i < batchEnd; i++ {
			i, line := i, script[i]
			g.Go(func() error {
				return safe.Call(fmt.Sprintf("synthesize segment %d", i), func() error {
					segStart := time.Now()
					path, err := a.synthesizeSegment(gctx, segDir, i, line, opts, &retries)
					if err != nil {
						return err
					}
					segments.add(i, path)
					d := time.Since(segStart)
					segmentTime.Add(int64(d))
					a.metrics.ObserveSegment(d)
					return nil
				})
			})
		}
		if err := g.Wait(); err != nil {
			logger.Error("audio synthesis failed", slog.Int("batch_start", batchStart), slog.String("error", err.Error()))
			return nil, errors.Trace("AudioSynthesizer.Synthesize", err)
		}

		if batchEnd < len(script) && a.cfg.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.New("AudioSynthesizer.Synthesize", i18n.ERROR_SPEECH_SYNTHESIS_FAILED, ctx.Err()).Kind(errors.KindUpstreamGeneration)
			case <-time.After(a.cfg.BatchDelay):
			}
		}
	}

	files, err := segments.ordered(len(script))
	if err != nil {
		return nil, errors.New("AudioSynthesizer.Synthesize.ordered", i18n.ERROR_AUDIO_MERGE_FAILED, err).Kind(errors.KindPartialArtifact)
	}

	logger.Info("merging audio segments", slog.Int("segments", len(files)))
	mergeStart := time.Now()
	if err = a.merger.Merge(ctx, files, outputPath); err != nil {
		return nil, errors.New("AudioSynthesizer.Synthesize.Merge", i18n.ERROR_AUDIO_MERGE_FAILED, err).Kind(errors.KindPartialArtifact)
	}
	result.Metrics.MergeTime = time.Since(mergeStart)

	if a.storage != nil {
		uploadStart := time.Now()
		dest := utils.JoinObjectPath(opts.AudioStorage, fileName)
		if err = a.storage.Upload(ctx, opts.BucketName, outputPath, dest); err != nil {
			return nil, errors.New("AudioSynthesizer.Synthesize.Upload", i18n.ERROR_AUDIO_UPLOAD_FAILED, err).Kind(errors.KindPartialArtifact)
		}
		result.Metrics.UploadTime = time.Since(uploadStart)
		result.StorageURL = a.storage.ObjectURL(opts.BucketName, dest)
	} else {
		keepOutput = true
		if abs, err := filepath.Abs(outputPath); err == nil {
			result.LocalPath = abs
		} else {
			result.LocalPath = outputPath
		}
	}

	result.Metrics.TotalSegments = len(script)
	result.Metrics.AvgSegmentTime = time.Duration(segmentTime.Load() / int64(len(script)))
	result.Metrics.Retries = retries.Load()
	result.Metrics.Total = time.Since(start)

	logger.Info("audio synthesis metrics",
		slog.Int("total_segments", result.Metrics.TotalSegments),
		slog.Int64("avg_segment_time_ms", result.Metrics.AvgSegmentTime.Milliseconds()),
		slog.Int64("merge_time_ms", result.Metrics.MergeTime.Milliseconds()),
		slog.Int64("upload_time_ms", result.Metrics.UploadTime.Milliseconds()),
		slog.Int64("retries", result.Metrics.Retries),
		slog.Int64("total_ms", result.Metrics.Total.Milliseconds()),
	)
	return result, nil
}

func (a *AudioSynthesizer) synthesizeSegment(ctx context.Context, dir string, index int, line types.ScriptLine, opts *types.PodcastOptions, retries *atomic.Int64) (string, error) {
	voice := tts.NewVoice(VoiceFor(line.Speaker, opts, a.cfg.DefaultVoice))
	attempts := uint(a.cfg.MaxRetries + 1)

	var audio []byte
	err := retry.Do(func() error {
		var err error
		audio, err = a.tts.SynthesizeSpeech(ctx, &tts.Request{
			Text:        line.Text,
			Voice:       voice,
			AudioConfig: a.cfg.Audio,
		})
		return err
	},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(a.cfg.BaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !stderrors.Is(err, context.Canceled)
		}),
		retry.OnRetry(func(n uint, err error) {
			if n+1 >= attempts {
				return
			}
			retries.Add(1)
			a.metrics.IncRetry()
			slog.Warn("retrying speech synthesis", slog.Int("segment", index), slog.Uint64("attempt", uint64(n+1)), slog.String("error", err.Error()))
		}),
	)
	if err != nil {
		return "", errors.New("AudioSynthesizer.synthesizeSegment", i18n.ERROR_SPEECH_SYNTHESIS_FAILED,
			fmt.Errorf("segment %d (%s): %w", index, line.Speaker, err)).Kind(errors.KindUpstreamGeneration)
	}

	path := filepath.Join(dir, fmt.Sprintf("segment_%d_%s.mp3", index, utils.SafeFileName(line.Speaker)))
	if err = writeSegment(path, audio); err != nil {
		// 写了一半的文件不会进入 segmentSet，这里直接删除
		removeFiles(slog.Default(), path)
		return "", errors.New("AudioSynthesizer.synthesizeSegment.WriteFile", i18n.ERROR_SPEECH_SYNTHESIS_FAILED, err)
	}
	return path, nil
}

var writeSegment = func(path string, audio []byte) error {
	return os.WriteFile(path, audio, 0o644)
}

// removeFiles 删除失败只记录日志
func removeFiles(logger *slog.Logger, files ...string) {
	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			logger.Warn("could not remove temp file", slog.String("file", f), slog.String("error", err.Error()))
		}
	}
}
