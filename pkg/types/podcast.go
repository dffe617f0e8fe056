package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PodcastFormat 播客的对话结构
type PodcastFormat string

const (
	PODCAST_FORMAT_INTERVIEW  PodcastFormat = "interview"
	PODCAST_FORMAT_ROUNDTABLE PodcastFormat = "roundtable"
	PODCAST_FORMAT_DEBATE     PodcastFormat = "debate"
)

const (
	DEFAULT_VOICE         = "en-US-Journey-D"
	DEFAULT_MAX_QUESTIONS = 10
)

type InterviewStyle string

const (
	INTERVIEW_STYLE_SCRIPTED InterviewStyle = "scripted"
	INTERVIEW_STYLE_FREEFORM InterviewStyle = "freeform"
)

// DiscussionStyle 圆桌讨论风格，除预置值外也允许自定义描述
type DiscussionStyle string

const (
	DISCUSSION_STYLE_EXPERT_PANEL        DiscussionStyle = "expert_panel"
	DISCUSSION_STYLE_FOUNDERS_CHAT       DiscussionStyle = "founders_chat"
	DISCUSSION_STYLE_TREND_ANALYSIS      DiscussionStyle = "trend_analysis"
	DISCUSSION_STYLE_INDUSTRY_ROUNDTABLE DiscussionStyle = "industry_roundtable"
	DISCUSSION_STYLE_BRAINSTORM_SESSION  DiscussionStyle = "brainstorm_session"
)

var DiscussionStyleDescriptions = map[DiscussionStyle]string{
	DISCUSSION_STYLE_EXPERT_PANEL:        "In-depth discussion with domain experts",
	DISCUSSION_STYLE_FOUNDERS_CHAT:       "Candid discussions between startup founders",
	DISCUSSION_STYLE_TREND_ANALYSIS:      "Discussion focused on analyzing current trends",
	DISCUSSION_STYLE_INDUSTRY_ROUNDTABLE: "Professionals discussing an industry challenge",
	DISCUSSION_STYLE_BRAINSTORM_SESSION:  "Free-flowing discussion of ideas & problem-solving",
}

// Description 预置风格返回描述文本，自定义风格原样返回
func (s DiscussionStyle) Description() string {
	if s == "" {
		return DiscussionStyleDescriptions[DISCUSSION_STYLE_EXPERT_PANEL]
	}
	if desc, ok := DiscussionStyleDescriptions[s]; ok {
		return desc
	}
	return string(s)
}

type RoundtableStructure string

const (
	ROUNDTABLE_STRUCTURE_OPEN      RoundtableStructure = "open_discussion"
	ROUNDTABLE_STRUCTURE_MODERATED RoundtableStructure = "moderated_topics"
)

type DebateStructure string

const (
	DEBATE_STRUCTURE_FORMAL DebateStructure = "formal"
	DEBATE_STRUCTURE_OPEN   DebateStructure = "open"
)

type ModeratorStyle string

const (
	MODERATOR_STYLE_NEUTRAL      ModeratorStyle = "neutral"
	MODERATOR_STYLE_ASSERTIVE    ModeratorStyle = "assertive"
	MODERATOR_STYLE_FACILITATING ModeratorStyle = "facilitating"
)

type Speaker struct {
	Name       string `json:"name"`
	VoiceID    string `json:"voice_id,omitempty"`
	Background string `json:"background,omitempty"`
}

// Intro 用于 prompt 中的发言人介绍，形如 "Name (background)"
func (s Speaker) Intro() string {
	if s.Background == "" {
		return s.Name
	}
	return fmt.Sprintf("%s (%s)", s.Name, s.Background)
}

type Moderator struct {
	Name           string         `json:"name"`
	VoiceID        string         `json:"voice_id,omitempty"`
	Style          ModeratorStyle `json:"style"`
	Gender         string         `json:"gender,omitempty"`
	SpeakingTime   int            `json:"speaking_time,omitempty"`
	OpeningRemarks bool           `json:"opening_remarks,omitempty"`
	ClosingRemarks bool           `json:"closing_remarks,omitempty"`
}

type DebateSide struct {
	SideName    string   `json:"side_name"`
	Speakers    []string `json:"speakers"`
	Description string   `json:"description,omitempty"`
	KeyPoints   []string `json:"key_points,omitempty"`
}

// PodcastBase 所有格式共享的参数
type PodcastBase struct {
	Speakers          []Speaker `json:"speakers"`
	Title             string    `json:"title,omitempty"`
	BucketName        string    `json:"bucket_name,omitempty"`
	TranscriptStorage string    `json:"transcript_storage,omitempty"`
	AudioStorage      string    `json:"audio_storage,omitempty"`
	Language          string    `json:"language,omitempty"`
}

type InterviewOptions struct {
	IntervieweeName      string         `json:"interviewee_name,omitempty"`
	Topic                string         `json:"topic,omitempty"`
	InterviewStyle       InterviewStyle `json:"interview_style,omitempty"`
	RotatingInterviewers bool           `json:"rotating_interviewers,omitempty"`
	MaxQuestions         int            `json:"max_questions,omitempty"`
}

type RoundtableOptions struct {
	DiscussionStyle DiscussionStyle     `json:"discussion_style,omitempty"`
	Structure       RoundtableStructure `json:"structure,omitempty"`
	Moderator       *Moderator          `json:"moderator,omitempty"`
}

type DebateOptions struct {
	DebateTopic     string          `json:"debate_topic,omitempty"`
	DebateStructure DebateStructure `json:"debate_structure,omitempty"`
	NumRounds       int             `json:"num_rounds,omitempty"`
	Moderator       *Moderator      `json:"moderator,omitempty"`
	AutoAssignSides bool            `json:"auto_assign_sides,omitempty"`
	Sides           []DebateSide    `json:"sides,omitempty"`
}

// PodcastOptions 以 format 区分的播客参数，json 结构是扁平的：
// 公共字段与所选格式的字段处于同一层级
type PodcastOptions struct {
	Format PodcastFormat `json:"format"`
	PodcastBase

	Interview  *InterviewOptions  `json:"-"`
	Roundtable *RoundtableOptions `json:"-"`
	Debate     *DebateOptions     `json:"-"`
}

func (o *PodcastOptions) UnmarshalJSON(data []byte) error {
	type head struct {
		Format PodcastFormat `json:"format"`
		PodcastBase
	}
	h := head{Format: o.Format, PodcastBase: o.PodcastBase}
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}

	if h.Format != o.Format {
		o.Interview, o.Roundtable, o.Debate = nil, nil, nil
	}
	o.Format = h.Format
	o.PodcastBase = h.PodcastBase

	switch o.Format {
	case PODCAST_FORMAT_INTERVIEW:
		if o.Interview == nil {
			o.Interview = &InterviewOptions{}
		}
		return json.Unmarshal(data, o.Interview)
	case PODCAST_FORMAT_ROUNDTABLE:
		if o.Roundtable == nil {
			o.Roundtable = &RoundtableOptions{}
		}
		return json.Unmarshal(data, o.Roundtable)
	case PODCAST_FORMAT_DEBATE:
		if o.Debate == nil {
			o.Debate = &DebateOptions{}
		}
		return json.Unmarshal(data, o.Debate)
	}
	// 未知格式在生成脚本时统一报错
	return nil
}

func (o PodcastOptions) MarshalJSON() ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if err := mergeJSONObject(fields, o.PodcastBase); err != nil {
		return nil, err
	}

	var variant any
	switch {
	case o.Interview != nil:
		variant = o.Interview
	case o.Roundtable != nil:
		variant = o.Roundtable
	case o.Debate != nil:
		variant = o.Debate
	}
	if variant != nil {
		if err := mergeJSONObject(fields, variant); err != nil {
			return nil, err
		}
	}

	format, err := json.Marshal(o.Format)
	if err != nil {
		return nil, err
	}
	fields["format"] = format
	return json.Marshal(fields)
}

func mergeJSONObject(dst map[string]json.RawMessage, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, &dst)
}

// Moderator 圆桌与辩论格式可以配置主持人
func (o *PodcastOptions) Moderator() *Moderator {
	switch {
	case o.Roundtable != nil:
		return o.Roundtable.Moderator
	case o.Debate != nil:
		return o.Debate.Moderator
	}
	return nil
}

func (o *PodcastOptions) IsSupportedFormat() bool {
	switch o.Format {
	case PODCAST_FORMAT_INTERVIEW, PODCAST_FORMAT_ROUNDTABLE, PODCAST_FORMAT_DEBATE:
		return true
	}
	return false
}

// Validate 校验公共字段及各格式的取值范围，format 本身是否支持由脚本生成阶段判断
func (o *PodcastOptions) Validate() error {
	if len(o.Speakers) == 0 {
		return fmt.Errorf("at least one speaker is required")
	}
	names := make(map[string]struct{}, len(o.Speakers))
	for _, s := range o.Speakers {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return fmt.Errorf("speaker name must not be empty")
		}
		if _, exist := names[name]; exist {
			return fmt.Errorf("duplicate speaker name %q", name)
		}
		names[name] = struct{}{}
	}

	if o.Interview != nil {
		if o.Interview.MaxQuestions != 0 && (o.Interview.MaxQuestions < 3 || o.Interview.MaxQuestions > 20) {
			return fmt.Errorf("max_questions must be between 3 and 20, got %d", o.Interview.MaxQuestions)
		}
		switch o.Interview.InterviewStyle {
		case "", INTERVIEW_STYLE_SCRIPTED, INTERVIEW_STYLE_FREEFORM:
		default:
			return fmt.Errorf("unknown interview_style %q", o.Interview.InterviewStyle)
		}
	}

	if o.Roundtable != nil {
		switch o.Roundtable.Structure {
		case "", ROUNDTABLE_STRUCTURE_OPEN, ROUNDTABLE_STRUCTURE_MODERATED:
		default:
			return fmt.Errorf("unknown roundtable structure %q", o.Roundtable.Structure)
		}
	}

	if o.Debate != nil {
		if o.Debate.NumRounds != 0 && (o.Debate.NumRounds < 1 || o.Debate.NumRounds > 10) {
			return fmt.Errorf("num_rounds must be between 1 and 10, got %d", o.Debate.NumRounds)
		}
		switch o.Debate.DebateStructure {
		case "", DEBATE_STRUCTURE_FORMAL, DEBATE_STRUCTURE_OPEN:
		default:
			return fmt.Errorf("unknown debate_structure %q", o.Debate.DebateStructure)
		}
		for _, side := range o.Debate.Sides {
			if side.SideName == "" {
				return fmt.Errorf("debate side name must not be empty")
			}
		}
	}

	if m := o.Moderator(); m != nil {
		if m.Name == "" {
			return fmt.Errorf("moderator name must not be empty")
		}
		switch m.Style {
		case "", MODERATOR_STYLE_NEUTRAL, MODERATOR_STYLE_ASSERTIVE, MODERATOR_STYLE_FACILITATING:
		default:
			return fmt.Errorf("unknown moderator style %q", m.Style)
		}
		if m.SpeakingTime != 0 && (m.SpeakingTime < 1 || m.SpeakingTime > 10) {
			return fmt.Errorf("moderator speaking_time must be between 1 and 10, got %d", m.SpeakingTime)
		}
	}
	return nil
}
