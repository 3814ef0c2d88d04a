package convcontext

import "github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"

// MediaRef describes one piece of inbound media the current turn carries.
type MediaRef struct {
	Type domain.MediaType
	Ref  string
}

// Bundle is the context the agent orchestrator consumes for one turn
// (§4.C).
type Bundle struct {
	CurrentMessageText string
	MediaRefs          []MediaRef

	Lead                   *domain.Lead
	RecentMessages         []domain.Message // last N=100, oldest first
	Stage                  domain.Stage
	QualificationProgress  domain.QualificationProgress
	EmotionalState         domain.EmotionalRead
	Extracted              Extracted
	ShouldUseReasoning     bool
}

// RecentMessagesLimit is §4.C's N for recent_messages.
const RecentMessagesLimit = 100

// Builder assembles Bundle values from a lead snapshot and message history.
type Builder struct {
	Thresholds QualificationThresholds
	Lexicons   Lexicons
}

func NewBuilder(thresholds QualificationThresholds) *Builder {
	return &Builder{Thresholds: thresholds, Lexicons: DefaultLexicons()}
}

// Build assembles the full context bundle for one turn. recentMessages must
// already be ordered oldest-first and capped at RecentMessagesLimit by the
// caller's store query.
func (b *Builder) Build(currentText string, media []MediaRef, lead *domain.Lead, recentMessages []domain.Message, signals Signals) Bundle {
	stage := InferStage(lead)
	qualification := Assess(lead, signals, b.Thresholds)

	var recentInbound []domain.Message
	for _, m := range recentMessages {
		if m.Direction == domain.DirectionInbound {
			recentInbound = append(recentInbound, m)
		}
	}
	emotional := AnalyzeEmotion(recentInbound, b.Lexicons)
	extracted := Extract(recentMessages)

	return Bundle{
		CurrentMessageText:    currentText,
		MediaRefs:             media,
		Lead:                  lead,
		RecentMessages:        recentMessages,
		Stage:                 stage,
		QualificationProgress: qualification,
		EmotionalState:        emotional,
		Extracted:             extracted,
		ShouldUseReasoning:    ShouldUseReasoning(recentInbound, stage, emotional),
	}
}
