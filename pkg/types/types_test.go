package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPodcastOptionsUnmarshal(t *testing.T) {
	raw := `{
		"format": "debate",
		"speakers": [{"name": "A", "background": "AI Safety Expert"}, {"name": "B"}],
		"title": "t",
		"debate_topic": "AI Safety vs Innovation Speed",
		"debate_structure": "formal",
		"num_rounds": 3,
		"moderator": {"name": "M", "style": "neutral", "opening_remarks": true},
		"sides": [{"side_name": "Safety First", "speakers": ["A"]}]
	}`

	var opts PodcastOptions
	require.NoError(t, json.Unmarshal([]byte(raw), &opts))
	assert.Equal(t, PODCAST_FORMAT_DEBATE, opts.Format)
	assert.Nil(t, opts.Interview)
	assert.Nil(t, opts.Roundtable)
	require.NotNil(t, opts.Debate)
	assert.Equal(t, 3, opts.Debate.NumRounds)
	assert.Equal(t, "M", opts.Moderator().Name)
	assert.Equal(t, "A (AI Safety Expert)", opts.Speakers[0].Intro())
	assert.Equal(t, "B", opts.Speakers[1].Intro())
	assert.NoError(t, opts.Validate())

	out, err := json.Marshal(opts)
	require.NoError(t, err)
	var flat map[string]any
	require.NoError(t, json.Unmarshal(out, &flat))
	assert.Equal(t, "debate", flat["format"])
	assert.Equal(t, "AI Safety vs Innovation Speed", flat["debate_topic"])
	assert.Equal(t, "t", flat["title"])
}

func TestPodcastOptionsOverlay(t *testing.T) {
	base := PodcastOptions{
		Format:      PODCAST_FORMAT_INTERVIEW,
		PodcastBase: PodcastBase{Speakers: []Speaker{{Name: "Host"}}, AudioStorage: "audio"},
		Interview:   &InterviewOptions{Topic: "climate", MaxQuestions: 12},
	}

	require.NoError(t, json.Unmarshal([]byte(`{"format":"interview","max_questions":5}`), &base))
	assert.Equal(t, "climate", base.Interview.Topic)
	assert.Equal(t, 5, base.Interview.MaxQuestions)
	assert.Equal(t, "audio", base.AudioStorage)

	// 切换格式时旧的格式参数被丢弃
	require.NoError(t, json.Unmarshal([]byte(`{"format":"roundtable"}`), &base))
	assert.Nil(t, base.Interview)
	assert.NotNil(t, base.Roundtable)
}

func TestPodcastOptionsUnknownFormat(t *testing.T) {
	var opts PodcastOptions
	require.NoError(t, json.Unmarshal([]byte(`{"format":"monologue","speakers":[{"name":"A"}]}`), &opts))
	assert.False(t, opts.IsSupportedFormat())
	assert.Nil(t, opts.Moderator())
}

func TestPodcastOptionsValidate(t *testing.T) {
	cases := []struct {
		name string
		opts PodcastOptions
		ok   bool
	}{
		{"no speakers", PodcastOptions{Format: PODCAST_FORMAT_INTERVIEW}, false},
		{"duplicate speakers", PodcastOptions{PodcastBase: PodcastBase{Speakers: []Speaker{{Name: "A"}, {Name: "A"}}}}, false},
		{"max questions too large", PodcastOptions{
			PodcastBase: PodcastBase{Speakers: []Speaker{{Name: "A"}}},
			Interview:   &InterviewOptions{MaxQuestions: 21},
		}, false},
		{"rounds out of range", PodcastOptions{
			PodcastBase: PodcastBase{Speakers: []Speaker{{Name: "A"}}},
			Debate:      &DebateOptions{NumRounds: 11},
		}, false},
		{"bad moderator style", PodcastOptions{
			PodcastBase: PodcastBase{Speakers: []Speaker{{Name: "A"}}},
			Roundtable:  &RoundtableOptions{Moderator: &Moderator{Name: "M", Style: "shouty"}},
		}, false},
		{"custom discussion style", PodcastOptions{
			PodcastBase: PodcastBase{Speakers: []Speaker{{Name: "A"}}},
			Roundtable:  &RoundtableOptions{DiscussionStyle: "late night radio"},
		}, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.opts.Validate()
			if c.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDiscussionStyleDescription(t *testing.T) {
	assert.Equal(t, "Professionals discussing an industry challenge", DISCUSSION_STYLE_INDUSTRY_ROUNDTABLE.Description())
	assert.Equal(t, "In-depth discussion with domain experts", DiscussionStyle("").Description())
	assert.Equal(t, "late night radio", DiscussionStyle("late night radio").Description())
}

func TestSynthesisInput(t *testing.T) {
	var req SynthesisRequest
	require.NoError(t, json.Unmarshal([]byte(`{"input":"hello","output":[{"type":"podcast"}]}`), &req))
	assert.Equal(t, []string{"hello"}, req.Input.Normalize())

	require.NoError(t, json.Unmarshal([]byte(`{"input":["a"," ","b "],"output":[]}`), &req))
	assert.Equal(t, []string{"a", "b"}, req.Input.Normalize())

	assert.Error(t, json.Unmarshal([]byte(`{"input":42}`), &req))
}

func TestScriptScan(t *testing.T) {
	var s Script
	require.NoError(t, s.Scan([]byte(`[{"speaker":"A","text":"hi"},{"speaker":"B","text":"yo"},{"speaker":"A","text":"ok"}]`)))
	assert.Len(t, s, 3)
	assert.Equal(t, []string{"A", "B"}, s.Speakers())
	assert.Equal(t, "A: hi\nB: yo\nA: ok", s.String())

	require.NoError(t, s.Scan(nil))
	assert.True(t, s.IsEmpty())
	assert.Error(t, s.Scan(42))

	var m StageMetrics
	require.NoError(t, m.Scan(`{"summarize":12}`))
	assert.Equal(t, int64(12), m[STAGE_SUMMARIZE])
}
