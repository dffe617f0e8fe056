package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/quka-ai/synthesis/app/core"
	"github.com/quka-ai/synthesis/app/store"
	"github.com/quka-ai/synthesis/pkg/errors"
	"github.com/quka-ai/synthesis/pkg/i18n"
	"github.com/quka-ai/synthesis/pkg/podcast"
	"github.com/quka-ai/synthesis/pkg/queue"
	"github.com/quka-ai/synthesis/pkg/types"
)

const JOB_ID_PREFIX = "podcast_"

func NewJobID() string {
	return JOB_ID_PREFIX + uuid.NewString()
}

// SynthesisLogic 请求入口：校验输出类型与参数、提取输入、运行或投递流水线
type SynthesisLogic struct {
	ctx  context.Context
	core *core.Core
}

func NewSynthesisLogic(ctx context.Context, core *core.Core) *SynthesisLogic {
	return &SynthesisLogic{
		ctx:  ctx,
		core: core,
	}
}

// Prepare 在任何提取与生成之前完成所有校验，返回可直接运行或入队的任务
func (l *SynthesisLogic) Prepare(req *types.SynthesisRequest) (*queue.SynthesisTask, error) {
	if len(req.Output) == 0 {
		return nil, errors.New("SynthesisLogic.Prepare", i18n.ERROR_INVALIDARGUMENT, fmt.Errorf("at least one output is required")).Kind(errors.KindConfiguration)
	}

	var podcastOutput *types.SynthesisOutput
	for i, out := range req.Output {
		switch out.Type {
		case types.OUTPUT_TYPE_PODCAST:
			if podcastOutput != nil {
				return nil, errors.New("SynthesisLogic.Prepare", i18n.ERROR_INVALIDARGUMENT, fmt.Errorf("only one podcast output is allowed per request")).Kind(errors.KindConfiguration)
			}
			podcastOutput = &req.Output[i]
		default:
			return nil, errors.New("SynthesisLogic.Prepare", i18n.ERROR_UNSUPPORTED_OUTPUT_TYPE, fmt.Errorf("unsupported output type %q", out.Type)).Kind(errors.KindConfiguration)
		}
	}

	opts, err := BuildPodcastOptions(podcastOutput)
	if err != nil {
		return nil, err
	}

	inputs := req.Input.Normalize()
	if len(inputs) == 0 {
		return nil, errors.New("SynthesisLogic.Prepare", i18n.ERROR_EMPTY_INPUT, fmt.Errorf("input is empty")).Kind(errors.KindConfiguration)
	}

	jobID := req.JobID
	if jobID == "" {
		jobID = NewJobID()
	}

	return &queue.SynthesisTask{
		JobID:   jobID,
		Inputs:  inputs,
		Options: opts,
	}, nil
}

// BuildPodcastOptions 先载入模板，再用请求中的 options 覆盖
func BuildPodcastOptions(out *types.SynthesisOutput) (*types.PodcastOptions, error) {
	opts := &types.PodcastOptions{}
	if out.Template != "" {
		tpl, ok := podcast.LookupTemplate(out.Template)
		if !ok {
			return nil, errors.New("BuildPodcastOptions", i18n.ERROR_UNKNOWN_TEMPLATE, fmt.Errorf("unknown template %q", out.Template)).Kind(errors.KindConfiguration)
		}
		opts = tpl.Options
	}

	if len(out.Options) > 0 && string(out.Options) != "null" {
		if err := json.Unmarshal(out.Options, opts); err != nil {
			return nil, errors.New("BuildPodcastOptions", i18n.ERROR_INVALID_PODCAST_OPTIONS, err).Kind(errors.KindConfiguration)
		}
	} else if out.Template == "" {
		return nil, errors.New("BuildPodcastOptions", i18n.ERROR_INVALID_PODCAST_OPTIONS, fmt.Errorf("podcast options or template is required")).Kind(errors.KindConfiguration)
	}

	if !opts.IsSupportedFormat() {
		return nil, errors.New("BuildPodcastOptions", i18n.ERROR_UNSUPPORTED_FORMAT, fmt.Errorf("unsupported podcast format %q", opts.Format)).Kind(errors.KindConfiguration)
	}
	if err := opts.Validate(); err != nil {
		return nil, errors.New("BuildPodcastOptions", i18n.ERROR_INVALID_PODCAST_OPTIONS, err).Kind(errors.KindConfiguration)
	}
	return opts, nil
}

// Synthesize 同步运行完整流水线
func (l *SynthesisLogic) Synthesize(req *types.SynthesisRequest) (*types.SynthesisResult, error) {
	task, err := l.Prepare(req)
	if err != nil {
		return nil, err
	}

	res, err := l.Run(task, false)
	if err != nil {
		return nil, err
	}
	return &types.SynthesisResult{Podcast: res.Podcast()}, nil
}

// Run 提取输入后运行流水线，提取失败同样记录到任务中
func (l *SynthesisLogic) Run(task *queue.SynthesisTask, enqueued bool) (*podcast.PipelineResult, error) {
	pipeline := l.core.Pipeline()

	sources, err := l.core.Extractor().Resolve(l.ctx, task.Inputs)
	if err != nil {
		slog.Error("failed to resolve synthesis inputs", slog.String("job_id", task.JobID), slog.String("error", err.Error()))
		pipeline.MarkFailed(l.ctx, task.JobID, err)
		return nil, errors.Trace("SynthesisLogic.Run", err)
	}

	res, err := pipeline.Run(l.ctx, podcast.PipelineInput{
		JobID:    task.JobID,
		Sources:  sources,
		Options:  task.Options,
		Enqueued: enqueued,
	})
	if err != nil {
		return nil, errors.Trace("SynthesisLogic.Run", err)
	}
	return res, nil
}

// Enqueue 校验通过后写入 QUEUED 并投递到队列，由 worker 异步执行
func (l *SynthesisLogic) Enqueue(req *types.SynthesisRequest) (*types.SynthesisQueuedResult, error) {
	q := l.core.Queue()
	if q == nil {
		return nil, errors.New("SynthesisLogic.Enqueue", i18n.ERROR_QUEUE_NOT_CONFIGURED, fmt.Errorf("synthesis queue is not enabled")).Code(http.StatusNotImplemented)
	}

	task, err := l.Prepare(req)
	if err != nil {
		return nil, err
	}

	l.core.Pipeline().MarkQueued(l.ctx, task.JobID)
	if err = q.EnqueueSynthesisTask(l.ctx, task); err != nil {
		l.core.Pipeline().MarkFailed(l.ctx, task.JobID, err)
		return nil, errors.New("SynthesisLogic.Enqueue.EnqueueSynthesisTask", i18n.ERROR_INTERNAL, err)
	}

	return &types.SynthesisQueuedResult{
		JobID:  task.JobID,
		Status: types.SYNTHESIS_STATUS_QUEUED,
	}, nil
}

// GetJob 只读取任务快照，不产生任何写入
func (l *SynthesisLogic) GetJob(jobID string) (*types.Job, error) {
	jobs := l.core.JobStore()
	if jobs == nil {
		return nil, errors.New("SynthesisLogic.GetJob", i18n.ERROR_JOB_STORE_NOT_CONFIGURED, fmt.Errorf("job store is not configured")).Code(http.StatusNotImplemented)
	}

	job, err := jobs.Get(l.ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.New("SynthesisLogic.GetJob.JobStore.Get", i18n.ERROR_NOT_FOUND, err).Code(http.StatusNotFound)
		}
		return nil, errors.New("SynthesisLogic.GetJob.JobStore.Get", i18n.ERROR_INTERNAL, err)
	}
	return job, nil
}

func (l *SynthesisLogic) Templates() []podcast.Template {
	return podcast.Templates()
}
