package podcast

import (
	"fmt"
	"strings"

	"github.com/quka-ai/synthesis/pkg/types"
)

func interviewDirectives(opts *types.PodcastOptions) string {
	o := opts.Interview
	if o == nil {
		o = &types.InterviewOptions{}
	}

	sb := strings.Builder{}
	sb.WriteString("Create an interview-style podcast script featuring these speakers:\n")
	sb.WriteString(SpeakerIntros(opts.Speakers))
	sb.WriteString("\n\n")

	if o.IntervieweeName != "" {
		sb.WriteString(fmt.Sprintf("The main interviewee is: %s\n", o.IntervieweeName))
	} else {
		sb.WriteString("Select the most relevant speaker as the interviewee based on the content.\n")
	}
	if o.Topic != "" {
		sb.WriteString(fmt.Sprintf("The interview topic is: %s\n", o.Topic))
	} else {
		sb.WriteString("The interview topic should be inferred from the input content.\n")
	}

	sb.WriteString("\nThe interview should:\n")
	sb.WriteString("- Include thoughtful questions and detailed responses\n")
	sb.WriteString("- Use direct quotes and specific examples\n")
	sb.WriteString("- Create natural conversation flow\n")
	sb.WriteString("- Balance depth with accessibility\n")
	if o.InterviewStyle == types.INTERVIEW_STYLE_FREEFORM {
		sb.WriteString("- Follow up on interesting answers instead of sticking to a fixed list of questions\n")
	}

	if o.RotatingInterviewers {
		sb.WriteString("Multiple interviewers should take turns asking questions.\n")
	} else {
		sb.WriteString("The first listed host should be the primary interviewer.\n")
	}

	maxQuestions := o.MaxQuestions
	if maxQuestions == 0 {
		maxQuestions = types.DEFAULT_MAX_QUESTIONS
	}
	sb.WriteString(fmt.Sprintf("Include approximately %d main questions.\n", maxQuestions))
	return sb.String()
}
