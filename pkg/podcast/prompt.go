package podcast

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/quka-ai/synthesis/pkg/ai"
	"github.com/quka-ai/synthesis/pkg/types"
)

const (
	SUMMARY_TEMPERATURE float32 = 0.8
	HOOKS_TEMPERATURE   float32 = 0.7
	SCRIPT_TEMPERATURE  float32 = 0.8
)

const PROMPT_SUMMARIZE_SOURCE = `
You have a piece of text.
1) Summarize it (2-3 paragraphs).
2) Provide a short list of direct quotes or excerpts.
3) Give a bullet-list outline of the key points.

If you cannot return the structured result, answer in plain text using this layout:
<summary paragraphs>
QUOTES:
<quotes>
OUTLINE:
<outline>

Source:
${source}
`

const PROMPT_DISCUSSION_HOOKS = `
Given the following summaries:
${summary}

Suggest 5-7 angles or hooks for a podcast conversation.
Each one should be a short bullet introducing a question or point.
Put every hook on its own line and do not add any other text.
`

// PROMPT_SCRIPT 各格式共用的脚本模板，${directives} 由各格式构造
const PROMPT_SCRIPT = `
${directives}

The script should also:
- Use at least two direct quotes from the sources
- Include natural disagreement or debate between speakers
- Have at least one lighthearted or comedic moment
- Return a valid, ordered JSON array of lines (speaker + text), using only the speaker names given above
${lang}
These scripts should be based on the following input sources (summarized below):
====== BEGIN SUMMARY ======
${summary}
====== END SUMMARY ======

These are some conversational hooks that you can use for inspiration to develop the script:
====== BEGIN HOOKS ======
${hooks}
====== END HOOKS ======
`

// SpeakerIntros 形如 "Name (background), Name"
func SpeakerIntros(speakers []types.Speaker) string {
	return strings.Join(lo.Map(speakers, func(s types.Speaker, _ int) string {
		return s.Intro()
	}), ", ")
}

func moderatorDirective(m *types.Moderator, subject, fallback string) string {
	if m == nil {
		return fallback
	}
	style := m.Style
	if style == "" {
		style = types.MODERATOR_STYLE_NEUTRAL
	}
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("Include %s as a %s moderator to guide the %s", m.Name, style, subject))
	if m.OpeningRemarks {
		sb.WriteString(", starting with opening remarks")
	}
	if m.ClosingRemarks {
		sb.WriteString(" and ending with closing remarks")
	}
	sb.WriteString(".")
	return sb.String()
}

func buildScriptPrompt(directives, summary string, hooks []string, lang string) string {
	langDirective := ""
	if lang != "" {
		langDirective = fmt.Sprintf("- Write every line of dialogue in %s\n", lang)
	}
	return ai.ReplaceVars(PROMPT_SCRIPT,
		ai.PROMPT_VAR_DIRECTIVES, strings.TrimSpace(directives),
		ai.PROMPT_VAR_LANG, langDirective,
		ai.PROMPT_VAR_SUMMARY, summary,
		ai.PROMPT_VAR_HOOKS, strings.Join(hooks, "\n"),
	)
}
