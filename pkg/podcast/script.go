package podcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/quka-ai/synthesis/pkg/ai"
	"github.com/quka-ai/synthesis/pkg/errors"
	"github.com/quka-ai/synthesis/pkg/i18n"
	"github.com/quka-ai/synthesis/pkg/types"
	"github.com/quka-ai/synthesis/pkg/utils"
)

const (
	SCRIPT_SCHEMA_NAME = "podcast_script"

	// 语言检测的最低置信度
	LANGUAGE_DETECT_CONFIDENCE = 0.5
)

var scriptSchema = &jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"script": {
			Type:        jsonschema.Array,
			Description: "The ordered lines of the podcast",
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"speaker": {Type: jsonschema.String, Description: "Name of the speaker of this line"},
					"text":    {Type: jsonschema.String, Description: "What the speaker says"},
				},
				Required: []string{"speaker", "text"},
			},
		},
	},
	Required: []string{"script"},
}

type scriptOutput struct {
	Script types.Script `json:"script"`
}

type ScriptGenerator struct {
	llm ai.Generator
}

func NewScriptGenerator(llm ai.Generator) *ScriptGenerator {
	return &ScriptGenerator{llm: llm}
}

// GenerateScript 根据 format 选择对应的脚本构造方式，未知 format 在调用模型之前报错。
// 模型没有返回 script 时得到空脚本，由调用方决定如何处理
func (g *ScriptGenerator) GenerateScript(ctx context.Context, summary string, hooks []string, opts *types.PodcastOptions) (types.Script, error) {
	if opts == nil {
		return nil, errors.New("ScriptGenerator.GenerateScript", i18n.ERROR_INVALID_PODCAST_OPTIONS, fmt.Errorf("podcast options are required")).Kind(errors.KindConfiguration)
	}

	var directives string
	switch opts.Format {
	case types.PODCAST_FORMAT_INTERVIEW:
		directives = interviewDirectives(opts)
	case types.PODCAST_FORMAT_ROUNDTABLE:
		directives = roundtableDirectives(opts)
	case types.PODCAST_FORMAT_DEBATE:
		directives = debateDirectives(opts)
	default:
		return nil, errors.New("ScriptGenerator.GenerateScript", i18n.ERROR_UNSUPPORTED_FORMAT,
			fmt.Errorf("unsupported podcast format %q", opts.Format)).Kind(errors.KindConfiguration)
	}

	lang := opts.Language
	if lang == "" {
		lang = utils.DetectLanguage(summary, LANGUAGE_DETECT_CONFIDENCE)
	}

	resp, err := g.llm.Generate(ctx, &ai.GenerateRequest{
		Prompt:      buildScriptPrompt(directives, summary, hooks, lang),
		Temperature: SCRIPT_TEMPERATURE,
		Schema:      scriptSchema,
		SchemaName:  SCRIPT_SCHEMA_NAME,
	})
	if err == nil && resp == nil {
		err = ai.ErrEmptyResponse
	}
	if err != nil {
		return nil, errors.New("ScriptGenerator.GenerateScript.Generate", i18n.ERROR_GENERATION_FAILED, err).Kind(errors.KindUpstreamGeneration)
	}

	return decodeScript(resp), nil
}

// decodeScript 优先读取结构化输出，其次尝试从文本中找出 json，都失败时返回空脚本
func decodeScript(resp *ai.GenerateResponse) types.Script {
	var out scriptOutput
	if resp.HasOutput() {
		err := resp.Decode(&out)
		if err == nil {
			return cleanScript(out.Script)
		}
		slog.Warn("failed to decode structured script", slog.String("error", err.Error()))
	}

	raw := stripCodeFence(resp.Text)
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return cleanScript(out.Script)
	}
	// 部分模型直接返回数组
	var lines types.Script
	if err := json.Unmarshal([]byte(raw), &lines); err == nil {
		return cleanScript(lines)
	}
	return nil
}

// cleanScript 去掉空白台词，保持原有顺序
func cleanScript(s types.Script) types.Script {
	res := make(types.Script, 0, len(s))
	for _, line := range s {
		line.Speaker = strings.TrimSpace(line.Speaker)
		line.Text = strings.TrimSpace(line.Text)
		if line.Text == "" {
			continue
		}
		res = append(res, line)
	}
	return res
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
