package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	OUTPUT_TYPE_PODCAST = "podcast"

	SYNTHESIS_STATUS_QUEUED = "queued"
	SYNTHESIS_STATUS_ERROR  = "error"
)

// SynthesisInput 兼容单个字符串与字符串数组两种写法
type SynthesisInput []string

func (in *SynthesisInput) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*in = SynthesisInput{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("input must be a string or an array of strings")
	}
	*in = list
	return nil
}

// Normalize 去掉首尾空白并过滤空项
func (in SynthesisInput) Normalize() []string {
	var res []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			res = append(res, v)
		}
	}
	return res
}

type SynthesisOutput struct {
	Type     string          `json:"type" binding:"required"`
	Template string          `json:"template,omitempty"`
	Options  json.RawMessage `json:"options,omitempty"`
}

type SynthesisRequest struct {
	Input  SynthesisInput    `json:"input" binding:"required"`
	Output []SynthesisOutput `json:"output" binding:"required"`
	JobID  string            `json:"job_id,omitempty"`
}

type PodcastResult struct {
	Transcript    string `json:"transcript"`
	AudioFileName string `json:"audio_file_name"`
	StorageURL    string `json:"storage_url,omitempty"`
}

type SynthesisResult struct {
	Podcast *PodcastResult `json:"podcast,omitempty"`
}

type SynthesisQueuedResult struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type SynthesisErrorResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
