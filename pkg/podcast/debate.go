package podcast

import (
	"fmt"
	"strings"

	"github.com/quka-ai/synthesis/pkg/types"
)

func debateDirectives(opts *types.PodcastOptions) string {
	o := opts.Debate
	if o == nil {
		o = &types.DebateOptions{}
	}

	sb := strings.Builder{}
	sb.WriteString("Create a debate-style podcast script featuring these speakers:\n")
	sb.WriteString(SpeakerIntros(opts.Speakers))
	sb.WriteString("\n\n")

	if o.DebateTopic != "" {
		sb.WriteString(fmt.Sprintf("The debate topic is: %s\n", o.DebateTopic))
	} else {
		sb.WriteString("The debate topic should be inferred from the input content.\n")
	}

	sb.WriteString("\nThe debate should:\n")
	sb.WriteString("- Include clear opening statements from each side\n")
	sb.WriteString("- Feature structured rebuttals and counter-arguments\n")
	sb.WriteString("- Use direct quotes and evidence to support positions\n")
	sb.WriteString("- Maintain a respectful but passionate tone\n\n")

	if o.DebateStructure == types.DEBATE_STRUCTURE_FORMAL {
		sb.WriteString("Structure this as a formal debate with clear rounds and timed responses.\n")
	} else {
		sb.WriteString("Structure this as an open debate format with natural back-and-forth exchanges.\n")
	}
	if o.NumRounds > 0 {
		sb.WriteString(fmt.Sprintf("The debate should have %d rounds.\n", o.NumRounds))
	}

	sb.WriteString(moderatorDirective(o.Moderator, "debate",
		"Allow the debate to flow naturally between speakers with minimal moderation."))
	sb.WriteString("\n")

	if len(o.Sides) > 0 && !o.AutoAssignSides {
		sb.WriteString("The debate sides are:\n")
		for _, side := range o.Sides {
			sb.WriteString(fmt.Sprintf("- %s: %s", side.SideName, strings.Join(side.Speakers, ", ")))
			if side.Description != "" {
				sb.WriteString(fmt.Sprintf("\n  Description: %s", side.Description))
			}
			if len(side.KeyPoints) > 0 {
				sb.WriteString(fmt.Sprintf("\n  Key Points: %s", strings.Join(side.KeyPoints, ", ")))
			}
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("Assign speakers to opposing sides based on the content and their backgrounds.\n")
	}
	return sb.String()
}
