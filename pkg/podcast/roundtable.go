package podcast

import (
	"fmt"
	"strings"

	"github.com/quka-ai/synthesis/pkg/types"
)

func roundtableDirectives(opts *types.PodcastOptions) string {
	o := opts.Roundtable
	if o == nil {
		o = &types.RoundtableOptions{}
	}

	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("Create a %s style roundtable podcast script featuring these speakers:\n", o.DiscussionStyle.Description()))
	sb.WriteString(SpeakerIntros(opts.Speakers))
	sb.WriteString("\n\n")

	sb.WriteString("The discussion should:\n")
	sb.WriteString("- Explain the data and key points\n")
	sb.WriteString("- Let every speaker contribute from their own background\n\n")

	if o.Structure == types.ROUNDTABLE_STRUCTURE_MODERATED {
		sb.WriteString("Structure this as a moderated discussion with clear topic transitions.\n")
	} else {
		sb.WriteString("Structure this as an open discussion where speakers can naturally interact.\n")
	}

	sb.WriteString(moderatorDirective(o.Moderator, "discussion",
		"Allow the conversation to flow naturally between speakers. This is a discussion with no moderation, and speakers naturally interrupt each other."))
	sb.WriteString("\n")
	return sb.String()
}
