package podcast

import (
	"context"
	"strings"

	"github.com/quka-ai/synthesis/pkg/ai"
	"github.com/quka-ai/synthesis/pkg/errors"
	"github.com/quka-ai/synthesis/pkg/i18n"
)

type HookGenerator struct {
	llm ai.Generator
}

func NewHookGenerator(llm ai.Generator) *HookGenerator {
	return &HookGenerator{llm: llm}
}

// GenerateHooks 返回的 hook 保持模型输出的顺序，不校验数量
func (h *HookGenerator) GenerateHooks(ctx context.Context, summary string) ([]string, error) {
	resp, err := h.llm.Generate(ctx, &ai.GenerateRequest{
		Prompt:      ai.ReplaceVars(PROMPT_DISCUSSION_HOOKS, ai.PROMPT_VAR_SUMMARY, summary),
		Temperature: HOOKS_TEMPERATURE,
	})
	if err == nil && resp == nil {
		err = ai.ErrEmptyResponse
	}
	if err != nil {
		return nil, errors.New("HookGenerator.GenerateHooks", i18n.ERROR_GENERATION_FAILED, err).Kind(errors.KindUpstreamGeneration)
	}
	return SplitHooks(resp.Text), nil
}

// SplitHooks 没有内容时返回空切片而不是 nil
func SplitHooks(text string) []string {
	hooks := []string{}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			hooks = append(hooks, line)
		}
	}
	return hooks
}
