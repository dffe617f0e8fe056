package podcast

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/synthesis/pkg/ai"
	"github.com/quka-ai/synthesis/pkg/errors"
)

func TestSummarizeOne_Structured(t *testing.T) {
	llm := newFakeLLM()
	s := NewSummarizer(llm)

	res, err := s.SummarizeOne(context.Background(), "paper text")
	require.NoError(t, err)
	assert.Equal(t, "summary of paper text", res.Summary)
	assert.Equal(t, "\"quote\"", res.QuotesBlock)
	assert.Equal(t, "- point", res.OutlineBlock)

	calls := llm.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, SUMMARY_TEMPERATURE, calls[0].Temperature)
	assert.Equal(t, SUMMARY_SCHEMA_NAME, calls[0].SchemaName)
	assert.NotNil(t, calls[0].Schema)
	assert.Contains(t, calls[0].Prompt, "paper text")
}

func TestSummarizeOne_MarkerFallback(t *testing.T) {
	llm := newFakeLLM()
	llm.summarize = func(source string) (*ai.GenerateResponse, error) {
		return &ai.GenerateResponse{Text: "The gist.\nQUOTES:\n\"a\"\nOUTLINE:\n- b"}, nil
	}

	res, err := NewSummarizer(llm).SummarizeOne(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "The gist.", res.Summary)
	assert.Equal(t, "\"a\"", res.QuotesBlock)
	assert.Equal(t, "- b", res.OutlineBlock)
}

func TestParseMarkedSummary(t *testing.T) {
	cases := []struct {
		name string
		text string
		want Summary
	}{
		{"no markers", "only a summary", Summary{Summary: "only a summary"}},
		{"quotes only", "s\nQUOTES: q", Summary{Summary: "s", QuotesBlock: "q"}},
		{"outline only", "s\nOUTLINE: o", Summary{Summary: "s", OutlineBlock: "o"}},
		{"empty", "", Summary{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, *ParseMarkedSummary(c.text))
		})
	}
}

func TestSummarizeOne_BadStructuredOutputFallsBack(t *testing.T) {
	llm := newFakeLLM()
	llm.summarize = func(source string) (*ai.GenerateResponse, error) {
		return &ai.GenerateResponse{Output: json.RawMessage(`"not an object"`), Text: "plain summary"}, nil
	}

	res, err := NewSummarizer(llm).SummarizeOne(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "plain summary", res.Summary)
	assert.Empty(t, res.QuotesBlock)
}

func TestSummarizeMany_PreservesInputOrder(t *testing.T) {
	llm := newFakeLLM()
	base := llm.summarize
	llm.summarize = func(source string) (*ai.GenerateResponse, error) {
		// 越靠前的来源完成得越晚
		switch source {
		case "first":
			time.Sleep(30 * time.Millisecond)
		case "second":
			time.Sleep(15 * time.Millisecond)
		}
		return base(source)
	}

	combined, err := NewSummarizer(llm).SummarizeMany(context.Background(), []string{"first", "second", "third"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(combined, SUMMARIES_BEGIN))
	assert.True(t, strings.HasSuffix(combined, SUMMARIES_END))

	first := strings.Index(combined, "SOURCE #1:\nSummary: summary of first")
	second := strings.Index(combined, "SOURCE #2:\nSummary: summary of second")
	third := strings.Index(combined, "SOURCE #3:\nSummary: summary of third")
	require.True(t, first >= 0 && second >= 0 && third >= 0, combined)
	assert.Less(t, first, second)
	assert.Less(t, second, third)
	assert.Equal(t, 2, strings.Count(combined, SUMMARIES_SEPARATOR))
}

func TestSummarizeMany_AnyFailureFailsAll(t *testing.T) {
	llm := newFakeLLM()
	base := llm.summarize
	llm.summarize = func(source string) (*ai.GenerateResponse, error) {
		if source == "bad" {
			return nil, fmt.Errorf("rate limited")
		}
		return base(source)
	}

	_, err := NewSummarizer(llm).SummarizeMany(context.Background(), []string{"good", "bad"})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindUpstreamGeneration))
}

func TestSummarizeMany_EmptyInput(t *testing.T) {
	llm := newFakeLLM()
	_, err := NewSummarizer(llm).SummarizeMany(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindConfiguration))
	assert.Empty(t, llm.calls())
}

func TestHooks(t *testing.T) {
	llm := newFakeLLM()
	hooks, err := NewHookGenerator(llm).GenerateHooks(context.Background(), "combined summary")
	require.NoError(t, err)
	assert.Equal(t, []string{"- first angle", "- second angle"}, hooks)

	calls := llm.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, HOOKS_TEMPERATURE, calls[0].Temperature)
	assert.Nil(t, calls[0].Schema)
	assert.Contains(t, calls[0].Prompt, "combined summary")
}

func TestSplitHooks(t *testing.T) {
	assert.Equal(t, []string{}, SplitHooks(""))
	assert.Equal(t, []string{}, SplitHooks("\n  \n"))
	assert.Equal(t, []string{"a", "b", "c"}, SplitHooks("  a\r\nb\n\n\tc  "))
}

func TestGenerators_NilResponse(t *testing.T) {
	llm := ai.GeneratorFunc(func(ctx context.Context, req *ai.GenerateRequest) (*ai.GenerateResponse, error) {
		return nil, nil
	})
	ctx := context.Background()

	_, err := NewSummarizer(llm).SummarizeOne(ctx, "source")
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)
	assert.True(t, errors.IsKind(err, errors.KindUpstreamGeneration))

	_, err = NewHookGenerator(llm).GenerateHooks(ctx, "summary")
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)

	_, err = NewScriptGenerator(llm).GenerateScript(ctx, "summary", nil, interviewOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)
}
