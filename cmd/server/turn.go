package main

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/agent"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/convcontext"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/humanizer"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/idgen"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/session"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/store"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/telemetry"
)

// turnEngine is the glue the buffer hands coalesced message batches to: it
// assembles the context bundle, runs the orchestrator, and delivers the
// reply through the humanizer. This is the concrete buffer.Handler closure
// the spec's pipeline diagram draws between §4.B and §4.D.
type turnEngine struct {
	store     *store.Store
	sessions  *session.Manager
	builder   *convcontext.Builder
	agent     *agent.Orchestrator
	humanizer *humanizer.Humanizer
	gateway   humanizer.Gateway
	log       *zap.Logger
}

func (e *turnEngine) handleTurn(ctx context.Context, phone string, messages []domain.Message) {
	if len(messages) == 0 {
		return
	}

	lead, err := e.store.Leads.GetByPhone(ctx, phone)
	if err != nil {
		e.log.Error("load lead failed", zap.Error(err), telemetry.PhoneField(phone))
		return
	}
	if lead == nil {
		lead, err = e.store.Leads.Upsert(ctx, &domain.Lead{ID: idgen.NewEntityID("lead"), Phone: phone})
		if err != nil {
			e.log.Error("create lead failed", zap.Error(err), telemetry.PhoneField(phone))
			return
		}
	}

	conv, err := e.store.Conversations.GetOrCreate(ctx, phone, lead.ID)
	if err != nil {
		e.log.Error("get-or-create conversation failed", zap.Error(err), telemetry.PhoneField(phone))
		return
	}

	sess, err := e.sessions.GetOrCreate(ctx, phone, lead.ID)
	if err != nil {
		e.log.Error("get-or-create session failed", zap.Error(err), telemetry.PhoneField(phone))
		return
	}

	for _, m := range messages {
		m.ConversationID = conv.ID
		if _, err := e.store.Messages.Save(ctx, &m); err != nil {
			e.log.Error("save inbound message failed", zap.Error(err), telemetry.PhoneField(phone))
		}
	}
	e.sessions.Bump(ctx, phone)
	if err := e.store.Conversations.UpdateLastMessageAt(ctx, conv.ID, messages[len(messages)-1].Timestamp); err != nil {
		e.log.Warn("update conversation timestamp failed", zap.Error(err))
	}

	recent, err := e.store.Messages.Recent(ctx, conv.ID, convcontext.RecentMessagesLimit)
	if err != nil {
		e.log.Error("load recent messages failed", zap.Error(err), telemetry.PhoneField(phone))
		return
	}

	currentText, media := flattenBatch(messages)
	signals := deriveSignals(recent, sess.MessageCount)
	bundle := e.builder.Build(currentText, media, lead, recent, signals)

	result := e.agent.Run(ctx, agent.Input{
		Context:   bundle,
		Phone:     phone,
		Message:   currentText,
		MediaRefs: media,
		Timestamp: messages[len(messages)-1].Timestamp,
	})

	if result.Failed {
		e.log.Warn("turn failed", zap.String("cause", result.FailCause), telemetry.PhoneField(phone))
	}
	if result.ReplyText == "" {
		return
	}

	plan := e.humanizer.Plan(result.ReplyText, emotionalState(bundle), len(recent) <= len(messages))
	if err := humanizer.Execute(ctx, plan, phone, e.gateway); err != nil {
		e.log.Error("humanizer execute failed", zap.Error(err), telemetry.PhoneField(phone))
		return
	}

	outbound := domain.Message{
		ID:             idgen.NewEntityID("msg"),
		ConversationID: conv.ID,
		Phone:          phone,
		Direction:      domain.DirectionOutbound,
		Content:        result.ReplyText,
		Timestamp:      messages[len(messages)-1].Timestamp,
	}
	if _, err := e.store.Messages.Save(ctx, &outbound); err != nil {
		e.log.Error("save outbound message failed", zap.Error(err), telemetry.PhoneField(phone))
	}
}

func flattenBatch(messages []domain.Message) (string, []convcontext.MediaRef) {
	var texts []string
	var media []convcontext.MediaRef
	for _, m := range messages {
		if m.Content != "" {
			texts = append(texts, m.Content)
		}
		if m.MediaType != domain.MediaNone && m.MediaRef != "" {
			media = append(media, convcontext.MediaRef{Type: m.MediaType, Ref: m.MediaRef})
		}
	}
	return strings.Join(texts, "\n"), media
}

// emotionalState maps the derived EmotionalRead (§3) onto the humanizer's
// four pacing states (§4.A): the objection-handling stage reads as empathy,
// high urgency or positive sentiment as enthusiasm, the scheduling stage as
// determination, and everything else as neutral.
func emotionalState(bundle convcontext.Bundle) humanizer.EmotionalState {
	switch {
	case bundle.Stage == domain.StageObjectionHandling:
		return humanizer.StateEmpathetic
	case bundle.EmotionalState.Urgency == "high" || bundle.EmotionalState.Sentiment == "pos":
		return humanizer.StateEnthusiastic
	case bundle.Stage == domain.StageScheduling:
		return humanizer.StateDetermined
	default:
		return humanizer.StateNeutral
	}
}

func deriveSignals(recent []domain.Message, sessionMessageCount int) convcontext.Signals {
	s := convcontext.Signals{MessageCount: sessionMessageCount}
	for _, m := range recent {
		if m.Direction != domain.DirectionInbound {
			continue
		}
		if strings.Contains(m.Content, "?") {
			s.AskedQuestions = true
		}
		if m.MediaType == domain.MediaDocument {
			s.ProvidedDocuments = true
		}
	}
	return s
}
