package podcast

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
	"golang.org/x/sync/errgroup"

	"github.com/quka-ai/synthesis/pkg/ai"
	"github.com/quka-ai/synthesis/pkg/errors"
	"github.com/quka-ai/synthesis/pkg/i18n"
	"github.com/quka-ai/synthesis/pkg/safe"
)

const (
	SUMMARY_SCHEMA_NAME = "source_summary"

	SUMMARIES_BEGIN     = "------ BEGIN INPUT SOURCE SUMMARIES ------\n"
	SUMMARIES_SEPARATOR = "\n------------\n"
	SUMMARIES_END       = "\n------ END INPUT SOURCE SUMMARIES -----"

	QUOTES_MARKER  = "QUOTES:"
	OUTLINE_MARKER = "OUTLINE:"
)

// Summary 单个来源的摘要
type Summary struct {
	Summary      string `json:"summary"`
	QuotesBlock  string `json:"quotesBlock"`
	OutlineBlock string `json:"outlineBlock"`
}

var summarySchema = &jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"summary": {
			Type:        jsonschema.String,
			Description: "A 2-3 paragraph summary of the source",
		},
		"quotesBlock": {
			Type:        jsonschema.String,
			Description: "A short list of direct quotes or excerpts from the source",
		},
		"outlineBlock": {
			Type:        jsonschema.String,
			Description: "A bullet-list outline of the key points",
		},
	},
	Required: []string{"summary", "quotesBlock", "outlineBlock"},
}

type Summarizer struct {
	llm ai.Generator
}

func NewSummarizer(llm ai.Generator) *Summarizer {
	return &Summarizer{llm: llm}
}

func (s *Summarizer) SummarizeOne(ctx context.Context, source string) (*Summary, error) {
	resp, err := s.llm.Generate(ctx, &ai.GenerateRequest{
		Prompt:      ai.ReplaceVars(PROMPT_SUMMARIZE_SOURCE, ai.PROMPT_VAR_SOURCE, source),
		Temperature: SUMMARY_TEMPERATURE,
		Schema:      summarySchema,
		SchemaName:  SUMMARY_SCHEMA_NAME,
	})
	if err == nil && resp == nil {
		err = ai.ErrEmptyResponse
	}
	if err != nil {
		return nil, errors.New("Summarizer.SummarizeOne.Generate", i18n.ERROR_GENERATION_FAILED, err).Kind(errors.KindUpstreamGeneration)
	}

	if resp.HasOutput() {
		var res Summary
		if err = resp.Decode(&res); err == nil {
			return &res, nil
		}
		slog.Warn("failed to decode structured summary, fall back to markers", slog.String("error", err.Error()))
	}

	text := resp.Text
	if text == "" && resp.HasOutput() {
		text = string(resp.Output)
	}
	return ParseMarkedSummary(text), nil
}

// ParseMarkedSummary 无结构化输出时的兜底解析：
// QUOTES: 之前为摘要，QUOTES: 与 OUTLINE: 之间为引用，OUTLINE: 之后为提纲，缺失的部分为空字符串
func ParseMarkedSummary(text string) *Summary {
	res := &Summary{}
	rest := text

	outlineIdx := strings.Index(rest, OUTLINE_MARKER)
	if outlineIdx >= 0 {
		res.OutlineBlock = strings.TrimSpace(rest[outlineIdx+len(OUTLINE_MARKER):])
		rest = rest[:outlineIdx]
	}

	quotesIdx := strings.Index(rest, QUOTES_MARKER)
	if quotesIdx >= 0 {
		res.QuotesBlock = strings.TrimSpace(rest[quotesIdx+len(QUOTES_MARKER):])
		rest = rest[:quotesIdx]
	}

	res.Summary = strings.TrimSpace(rest)
	return res
}

// SummarizeMany 并发摘要所有来源，结果按输入顺序拼接，任一失败则整体失败
func (s *Summarizer) SummarizeMany(ctx context.Context, sources []string) (string, error) {
	if len(sources) == 0 {
		return "", errors.New("Summarizer.SummarizeMany", i18n.ERROR_EMPTY_INPUT, nil).Kind(errors.KindConfiguration)
	}

	summaries := make([]*Summary, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, source := range sources {
		i, source := i, source
		g.Go(func() error {
			return safe.Call(fmt.Sprintf("summarize source #%d", i+1), func() error {
				res, err := s.SummarizeOne(gctx, source)
				if err != nil {
					return err
				}
				summaries[i] = res
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return "", errors.Trace("Summarizer.SummarizeMany", err)
	}

	return CombineSummaries(summaries), nil
}

func CombineSummaries(summaries []*Summary) string {
	entries := make([]string, 0, len(summaries))
	for i, v := range summaries {
		entries = append(entries, fmt.Sprintf("SOURCE #%d:\nSummary: %s\nQuotes: %s", i+1, v.Summary, v.QuotesBlock))
	}
	return SUMMARIES_BEGIN + strings.Join(entries, SUMMARIES_SEPARATOR) + SUMMARIES_END
}
