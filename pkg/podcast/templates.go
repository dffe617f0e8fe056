package podcast

import (
	"sort"

	"github.com/quka-ai/synthesis/pkg/types"
)

const (
	TEMPLATE_ETHICAL_DEBATE      = "ethical-debate"
	TEMPLATE_PANEL_INTERVIEW     = "panel-interview"
	TEMPLATE_INDUSTRY_ROUNDTABLE = "industry-roundtable"
)

// Template 预置的播客参数
type Template struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Options     *types.PodcastOptions `json:"options"`
}

var templates = map[string]func() Template{
	TEMPLATE_ETHICAL_DEBATE: func() Template {
		return Template{
			Name:        TEMPLATE_ETHICAL_DEBATE,
			Description: "A formal debate on AI safety versus innovation speed",
			Options: &types.PodcastOptions{
				Format: types.PODCAST_FORMAT_DEBATE,
				PodcastBase: types.PodcastBase{
					Speakers: []types.Speaker{
						{Name: "Professor Smith", VoiceID: "en-US-Journey-D", Background: "AI Safety Expert at Oxford"},
						{Name: "Dr. Zhang", VoiceID: "en-US-Neural2-D", Background: "AI Development Lead at OpenAI"},
					},
					TranscriptStorage: "transcripts",
					AudioStorage:      "audio",
				},
				Debate: &types.DebateOptions{
					DebateTopic:     "AI Safety vs Innovation Speed",
					DebateStructure: types.DEBATE_STRUCTURE_FORMAL,
					NumRounds:       3,
					Moderator: &types.Moderator{
						Name:           "Rachel Adams",
						VoiceID:        "en-US-Journey-F",
						Style:          types.MODERATOR_STYLE_NEUTRAL,
						OpeningRemarks: true,
						ClosingRemarks: true,
					},
					Sides: []types.DebateSide{
						{
							SideName:  "Safety First",
							Speakers:  []string{"Professor Smith"},
							KeyPoints: []string{"Risk mitigation", "Ethical considerations", "Societal impact"},
						},
						{
							SideName:  "Innovation Priority",
							Speakers:  []string{"Dr. Zhang"},
							KeyPoints: []string{"Technological progress", "Economic benefits", "Global competitiveness"},
						},
					},
				},
			},
		}
	},
	TEMPLATE_PANEL_INTERVIEW: func() Template {
		return Template{
			Name:        TEMPLATE_PANEL_INTERVIEW,
			Description: "Two journalists interviewing a climate researcher",
			Options: &types.PodcastOptions{
				Format: types.PODCAST_FORMAT_INTERVIEW,
				PodcastBase: types.PodcastBase{
					Speakers: []types.Speaker{
						{Name: "Dr. Elena Rodriguez", VoiceID: "en-US-Journey-F", Background: "Climate Science Researcher"},
						{Name: "Michael Chang", VoiceID: "en-US-Journey-D", Background: "Environmental Tech Journalist"},
						{Name: "Amanda Foster", VoiceID: "en-US-Neural2-F", Background: "Sustainability Expert"},
					},
					TranscriptStorage: "transcripts",
					AudioStorage:      "audio",
				},
				Interview: &types.InterviewOptions{
					IntervieweeName:      "Dr. Elena Rodriguez",
					Topic:                "AI Applications in Climate Change",
					InterviewStyle:       types.INTERVIEW_STYLE_SCRIPTED,
					RotatingInterviewers: true,
					MaxQuestions:         12,
				},
			},
		}
	},
	TEMPLATE_INDUSTRY_ROUNDTABLE: func() Template {
		return Template{
			Name:        TEMPLATE_INDUSTRY_ROUNDTABLE,
			Description: "Practitioners discussing an industry challenge with a moderator",
			Options: &types.PodcastOptions{
				Format: types.PODCAST_FORMAT_ROUNDTABLE,
				PodcastBase: types.PodcastBase{
					Speakers: []types.Speaker{
						{Name: "Alex Thompson", VoiceID: "en-US-Journey-D", Background: "AI Ethics Researcher at EthicsAI"},
						{Name: "Maria Garcia", VoiceID: "en-US-Journey-F", Background: "Lead Data Scientist at TechCorp"},
						{Name: "Dr. John Lee", VoiceID: "en-US-Neural2-D", Background: "Machine Learning Engineer at DeepMind"},
					},
					TranscriptStorage: "transcripts",
					AudioStorage:      "audio",
				},
				Roundtable: &types.RoundtableOptions{
					DiscussionStyle: types.DISCUSSION_STYLE_INDUSTRY_ROUNDTABLE,
					Structure:       types.ROUNDTABLE_STRUCTURE_MODERATED,
					Moderator: &types.Moderator{
						Name:           "Emily Parker",
						VoiceID:        "en-US-Journey-F",
						Style:          types.MODERATOR_STYLE_FACILITATING,
						OpeningRemarks: true,
						ClosingRemarks: true,
					},
				},
			},
		}
	},
}

// LookupTemplate 每次返回新的副本，调用方可以直接修改
func LookupTemplate(name string) (Template, bool) {
	fn, ok := templates[name]
	if !ok {
		return Template{}, false
	}
	return fn(), true
}

func Templates() []Template {
	res := make([]Template, 0, len(templates))
	for _, fn := range templates {
		res = append(res, fn())
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Name < res[j].Name
	})
	return res
}
