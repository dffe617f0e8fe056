package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

type JobStatus string

const (
	JOB_STATUS_QUEUED     JobStatus = "QUEUED"
	JOB_STATUS_PROCESSING JobStatus = "PROCESSING"
	JOB_STATUS_COMPLETED  JobStatus = "COMPLETED"
	JOB_STATUS_ERROR      JobStatus = "ERROR"
)

func (s JobStatus) IsFinal() bool {
	return s == JOB_STATUS_COMPLETED || s == JOB_STATUS_ERROR
}

// JobStep 当前正在执行的阶段，结束后置空
type JobStep string

const (
	JOB_STEP_NONE               JobStep = ""
	JOB_STEP_SUMMARIZING        JobStep = "summarizing"
	JOB_STEP_GENERATING_HOOKS   JobStep = "generating_hooks"
	JOB_STEP_GENERATING_SCRIPT  JobStep = "generating_script"
	JOB_STEP_SYNTHESIZING_AUDIO JobStep = "synthesizing_audio"
)

// 任务文档的字段名，Update 时作为 key 使用，sql 列名与 mongo 字段名一致
const (
	JOB_FIELD_STATUS              = "status"
	JOB_FIELD_CURRENT_STEP        = "current_step"
	JOB_FIELD_SUMMARIZE_COMPLETED = "summarize_completed"
	JOB_FIELD_HOOKS_COMPLETED     = "hooks_completed"
	JOB_FIELD_SCRIPT_COMPLETED    = "script_completed"
	JOB_FIELD_AUDIO_COMPLETED     = "audio_completed"
	JOB_FIELD_SUMMARY             = "summary"
	JOB_FIELD_HOOKS               = "hooks"
	JOB_FIELD_SCRIPT              = "script"
	JOB_FIELD_AUDIO_FILE_NAME     = "audio_file_name"
	JOB_FIELD_STORAGE_URL         = "storage_url"
	JOB_FIELD_TRANSCRIPT_URL      = "transcript_url"
	JOB_FIELD_METRICS             = "metrics"
	JOB_FIELD_ERROR               = "error"
	JOB_FIELD_CREATED_AT          = "created_at"
	JOB_FIELD_START_TIME          = "start_time"
	JOB_FIELD_COMPLETED_AT        = "completed_at"
	JOB_FIELD_FAILED_AT           = "failed_at"
	JOB_FIELD_UPDATED_AT          = "updated_at"
)

// 各阶段耗时的 key
const (
	STAGE_SUMMARIZE = "summarize"
	STAGE_HOOKS     = "hooks"
	STAGE_SCRIPT    = "script"
	STAGE_AUDIO     = "audio"
)

// StageMetrics 阶段名 -> 耗时(ms)
type StageMetrics map[string]int64

func (m StageMetrics) Clone() StageMetrics {
	res := make(StageMetrics, len(m))
	for k, v := range m {
		res[k] = v
	}
	return res
}

func (m StageMetrics) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *StageMetrics) Scan(src interface{}) error {
	switch src := src.(type) {
	case []byte:
		return m.scanBytes(src)
	case string:
		return m.scanBytes([]byte(src))
	case nil:
		*m = nil
		return nil
	}

	return fmt.Errorf("pq: cannot convert %T to StageMetrics", src)
}

func (m *StageMetrics) scanBytes(src []byte) error {
	if len(src) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(src, m)
}

// Job 一次播客生成任务的持久化状态，只由流水线写入
type Job struct {
	ID                 string         `json:"id" db:"id" bson:"_id"`
	Status             JobStatus      `json:"status" db:"status" bson:"status"`
	CurrentStep        JobStep        `json:"current_step" db:"current_step" bson:"current_step"`
	SummarizeCompleted bool           `json:"summarize_completed" db:"summarize_completed" bson:"summarize_completed"`
	HooksCompleted     bool           `json:"hooks_completed" db:"hooks_completed" bson:"hooks_completed"`
	ScriptCompleted    bool           `json:"script_completed" db:"script_completed" bson:"script_completed"`
	AudioCompleted     bool           `json:"audio_completed" db:"audio_completed" bson:"audio_completed"`
	Summary            string         `json:"summary,omitempty" db:"summary" bson:"summary,omitempty"`
	Hooks              pq.StringArray `json:"hooks,omitempty" db:"hooks" bson:"hooks,omitempty"`
	Script             Script         `json:"script,omitempty" db:"script" bson:"script,omitempty"`
	AudioFileName      string         `json:"audio_file_name,omitempty" db:"audio_file_name" bson:"audio_file_name,omitempty"`
	StorageURL         string         `json:"storage_url,omitempty" db:"storage_url" bson:"storage_url,omitempty"`
	TranscriptURL      string         `json:"transcript_url,omitempty" db:"transcript_url" bson:"transcript_url,omitempty"`
	Metrics            StageMetrics   `json:"metrics,omitempty" db:"metrics" bson:"metrics,omitempty"`
	Error              string         `json:"error,omitempty" db:"error" bson:"error,omitempty"`
	CreatedAt          int64          `json:"created_at" db:"created_at" bson:"created_at"`
	StartTime          int64          `json:"start_time,omitempty" db:"start_time" bson:"start_time,omitempty"`
	CompletedAt        int64          `json:"completed_at,omitempty" db:"completed_at" bson:"completed_at,omitempty"`
	FailedAt           int64          `json:"failed_at,omitempty" db:"failed_at" bson:"failed_at,omitempty"`
	UpdatedAt          int64          `json:"updated_at" db:"updated_at" bson:"updated_at"`
}
