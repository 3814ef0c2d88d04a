package toolcatalog

import (
	"context"
	"fmt"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/calendar"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/crm"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/gateway"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/humanizer"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/idgen"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/media"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/store"
)

// Dependencies bundles every backend the fixed §4.D tool catalogue calls
// into. RegisterAll wires one Spec per row of that table.
type Dependencies struct {
	Gateway   *gateway.Client
	CRM       *crm.Client
	Calendar  *calendar.Client
	Store     *store.Store
	Media     *media.Resolver
	Analyzer  media.Analyzer
}

func arg[T any](args map[string]any, key string) (T, bool) {
	v, ok := args[key]
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// RegisterAll wires the full §4.D tool catalogue against deps.
func RegisterAll(c *Catalog, deps Dependencies) {
	registerOutboundTools(c, deps)
	registerCRMTools(c, deps)
	registerCalendarTools(c, deps)
	registerPersistenceTools(c, deps)
	registerMediaTools(c, deps)
	registerUtilityTools(c)
}

func registerOutboundTools(c *Catalog, deps Dependencies) {
	c.Register(Spec{
		Name: "send_text", Category: "outbound", Idempotency: SideEffectOnce,
		Description: "Send a plain text message to the lead's WhatsApp number.",
		InputSchema: schema("phone", "text"),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			phone, _ := arg[string](args, "phone")
			text, _ := arg[string](args, "text")
			return nil, deps.Gateway.SendText(ctx, phone, text)
		},
	})
	c.Register(Spec{
		Name: "send_media", Category: "outbound", Idempotency: SideEffectOnce,
		Description: "Send an image, audio, document, or location to the lead.",
		InputSchema: schema("phone", "kind", "ref"),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			phone, _ := arg[string](args, "phone")
			kind, _ := arg[string](args, "kind")
			ref, _ := arg[string](args, "ref")
			caption, _ := arg[string](args, "caption")
			return nil, deps.Gateway.SendMedia(ctx, phone, gateway.MediaKind(kind), ref, caption)
		},
	})
	c.Register(Spec{
		Name: "send_typing_indicator", Category: "outbound", Idempotency: SafeRetry,
		Description: "Toggle the WhatsApp typing indicator for the lead.",
		InputSchema: withType(schema("phone", "on"), "on", map[string]any{"type": "boolean"}),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			phone, _ := arg[string](args, "phone")
			on, _ := arg[bool](args, "on")
			return nil, deps.Gateway.SetTyping(ctx, phone, on)
		},
	})
}

func registerCRMTools(c *Catalog, deps Dependencies) {
	c.Register(Spec{
		Name: "search_lead", Category: "crm", Idempotency: SafeRetry,
		Description: "Search the CRM for a lead by phone number.",
		InputSchema: schema("phone"),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			phone, _ := arg[string](args, "phone")
			return deps.CRM.SearchLead(ctx, phone)
		},
	})
	c.Register(Spec{
		Name: "create_lead", Category: "crm", Idempotency: UniqueByKey,
		Description: "Create a CRM lead, or update it if one already exists for this phone.",
		InputSchema: schema("phone", "name", "email"),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			phone, _ := arg[string](args, "phone")
			name, _ := arg[string](args, "name")
			email, _ := arg[string](args, "email")

			existing, err := deps.CRM.SearchLead(ctx, phone)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				if err := deps.CRM.UpdateLead(ctx, existing.ID, crm.LeadPayload{Name: name, Email: email}); err != nil {
					return nil, err
				}
				return existing, nil
			}
			return deps.CRM.CreateLead(ctx, crm.LeadPayload{Phone: phone, Name: name, Email: email})
		},
	})
	c.Register(Spec{
		Name: "update_lead", Category: "crm", Idempotency: SafeRetry,
		Description: "Update fields on an existing CRM lead.",
		InputSchema: schema("lead_id", "name", "email"),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			leadID, _ := arg[string](args, "lead_id")
			name, _ := arg[string](args, "name")
			email, _ := arg[string](args, "email")
			return nil, deps.CRM.UpdateLead(ctx, leadID, crm.LeadPayload{Name: name, Email: email})
		},
	})
	c.Register(Spec{
		Name: "move_stage", Category: "crm", Idempotency: SafeRetry,
		Description: "Move a CRM lead to a new pipeline stage.",
		InputSchema: schema("lead_id", "stage"),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			leadID, _ := arg[string](args, "lead_id")
			stage, _ := arg[string](args, "stage")
			return nil, deps.CRM.MoveStage(ctx, leadID, domain.Stage(stage))
		},
	})
	c.Register(Spec{
		Name: "add_note", Category: "crm", Idempotency: SafeRetry,
		Description: "Attach a free-text note to a CRM lead.",
		InputSchema: schema("lead_id", "text"),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			leadID, _ := arg[string](args, "lead_id")
			text, _ := arg[string](args, "text")
			return nil, deps.CRM.AddNote(ctx, leadID, text)
		},
	})
	c.Register(Spec{
		Name: "schedule_activity", Category: "crm", Idempotency: SafeRetry,
		Description: "Schedule a CRM task/activity for a lead.",
		InputSchema: schema("lead_id", "kind", "due_at"),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			leadID, _ := arg[string](args, "lead_id")
			kind, _ := arg[string](args, "kind")
			dueAt, _ := arg[string](args, "due_at")
			t, err := time.Parse(time.RFC3339, dueAt)
			if err != nil {
				return nil, domain.NewError(domain.ErrToolDomain, err)
			}
			return nil, deps.CRM.ScheduleActivity(ctx, leadID, kind, t)
		},
	})
}

func registerCalendarTools(c *Catalog, deps Dependencies) {
	c.Register(Spec{
		Name: "check_availability", Category: "calendar", Idempotency: SafeRetry,
		Description: "Check free/busy for an attendee within a time window.",
		InputSchema: schema("attendee", "from", "to"),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			attendee, _ := arg[string](args, "attendee")
			from, to, err := parseWindow(args)
			if err != nil {
				return nil, err
			}
			return deps.Calendar.CheckAvailability(ctx, attendee, from, to)
		},
	})
	c.Register(Spec{
		Name: "create_meeting", Category: "calendar", Idempotency: UniqueByKey,
		Description: "Create a calendar meeting with attendees.",
		InputSchema: withType(schema("title", "start", "end", "attendees"), "attendees", map[string]any{"type": "array", "items": map[string]any{"type": "string"}}),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			ev, err := decodeEvent(args)
			if err != nil {
				return nil, err
			}
			return deps.Calendar.CreateMeeting(ctx, ev)
		},
	})
	c.Register(Spec{
		Name: "update_meeting", Category: "calendar", Idempotency: SafeRetry,
		Description: "Update an existing calendar meeting.",
		InputSchema: schema("event_id", "title", "start", "end"),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			id, _ := arg[string](args, "event_id")
			ev, err := decodeEvent(args)
			if err != nil {
				return nil, err
			}
			return nil, deps.Calendar.UpdateMeeting(ctx, id, ev)
		},
	})
	c.Register(Spec{
		Name: "cancel_meeting", Category: "calendar", Idempotency: SafeRetry,
		Description: "Cancel an existing calendar meeting.",
		InputSchema: schema("event_id"),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			id, _ := arg[string](args, "event_id")
			return nil, deps.Calendar.CancelMeeting(ctx, id)
		},
	})
	c.Register(Spec{
		Name: "send_invite", Category: "calendar", Idempotency: SafeRetry,
		Description: "Re-send the attendee invite for a calendar meeting.",
		InputSchema: schema("event_id"),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			id, _ := arg[string](args, "event_id")
			return nil, deps.Calendar.SendInvite(ctx, id)
		},
	})
}

func registerPersistenceTools(c *Catalog, deps Dependencies) {
	c.Register(Spec{
		Name: "get_lead", Category: "persistence", Idempotency: SafeRetry,
		Description: "Fetch the stored Lead for a phone number.",
		InputSchema: schema("phone"),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			phone, _ := arg[string](args, "phone")
			return deps.Store.Leads.GetByPhone(ctx, phone)
		},
	})
	c.Register(Spec{
		Name: "create_lead_record", Category: "persistence", Idempotency: UniqueByKey,
		Description: "Create or merge the stored Lead row for a phone number.",
		InputSchema: schema("phone", "name", "email"),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			phone, _ := arg[string](args, "phone")
			name, _ := arg[string](args, "name")
			email, _ := arg[string](args, "email")
			return deps.Store.Leads.Upsert(ctx, &domain.Lead{ID: idgen.NewEntityID("lead"), Phone: phone, Name: name, Email: email})
		},
	})
	c.Register(Spec{
		Name: "update_lead_record", Category: "persistence", Idempotency: SafeRetry,
		Description: "Merge fields into the stored Lead row.",
		InputSchema: withType(schema("phone", "stage", "score"), "score", map[string]any{"type": "number"}),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			phone, _ := arg[string](args, "phone")
			stage, _ := arg[string](args, "stage")
			score, _ := arg[float64](args, "score")
			return deps.Store.Leads.Upsert(ctx, &domain.Lead{Phone: phone, Stage: domain.Stage(stage), Score: int(score)})
		},
	})
	c.Register(Spec{
		Name: "save_message", Category: "persistence", Idempotency: UniqueByKey,
		Description: "Persist one outbound message, idempotent on its id.",
		InputSchema: schema("id", "conversation_id", "phone", "content"),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			id, _ := arg[string](args, "id")
			conversationID, _ := arg[string](args, "conversation_id")
			phone, _ := arg[string](args, "phone")
			content, _ := arg[string](args, "content")
			inserted, err := deps.Store.Messages.Save(ctx, &domain.Message{
				ID: id, ConversationID: conversationID, Phone: phone,
				Direction: domain.DirectionOutbound, Content: content, Timestamp: time.Now(),
			})
			return map[string]any{"inserted": inserted}, err
		},
	})
	c.Register(Spec{
		Name: "update_conversation", Category: "persistence", Idempotency: SafeRetry,
		Description: "Bump a conversation's last_message_at timestamp.",
		InputSchema: schema("conversation_id"),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			conversationID, _ := arg[string](args, "conversation_id")
			return nil, deps.Store.Conversations.UpdateLastMessageAt(ctx, conversationID, time.Now())
		},
	})
	c.Register(Spec{
		Name: "schedule_follow_up", Category: "persistence", Idempotency: UniqueByKey,
		Description: "Insert a pending FollowUp row for a lead.",
		InputSchema: schema("lead_id", "type", "scheduled_for"),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			leadID, _ := arg[string](args, "lead_id")
			followUpType, _ := arg[string](args, "type")
			scheduledFor, _ := arg[string](args, "scheduled_for")
			t, err := time.Parse(time.RFC3339, scheduledFor)
			if err != nil {
				return nil, domain.NewError(domain.ErrToolDomain, err)
			}
			return deps.Store.FollowUps.Insert(ctx, &domain.FollowUp{LeadID: leadID, Type: domain.FollowUpType(followUpType), ScheduledFor: t})
		},
	})
}

func registerMediaTools(c *Catalog, deps Dependencies) {
	c.Register(Spec{
		Name: "analyze_image", Category: "media", Idempotency: SafeRetry,
		Description: "Analyze an inbound image and describe its content.",
		InputSchema: schema("media_ref"),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			ref, _ := arg[string](args, "media_ref")
			data, err := deps.Media.Fetch(ctx, ref)
			if err != nil {
				return nil, err
			}
			return deps.Analyzer.AnalyzeImage(ctx, data)
		},
	})
	c.Register(Spec{
		Name: "transcribe_audio", Category: "media", Idempotency: SafeRetry,
		Description: "Transcribe an inbound voice note.",
		InputSchema: schema("media_ref"),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			ref, _ := arg[string](args, "media_ref")
			data, err := deps.Media.Fetch(ctx, ref)
			if err != nil {
				return nil, err
			}
			return deps.Analyzer.TranscribeAudio(ctx, data)
		},
	})
	c.Register(Spec{
		Name: "extract_document_text", Category: "media", Idempotency: SafeRetry,
		Description: "Extract text content from an inbound document.",
		InputSchema: schema("media_ref"),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			ref, _ := arg[string](args, "media_ref")
			data, err := deps.Media.Fetch(ctx, ref)
			if err != nil {
				return nil, err
			}
			return deps.Analyzer.ExtractDocumentText(ctx, data)
		},
	})
}

func registerUtilityTools(c *Catalog) {
	c.Register(Spec{
		Name: "validate_phone", Category: "utility", Idempotency: SafeRetry,
		Description: "Check that a Brazilian phone number has 10 to 13 characters.",
		InputSchema: schema("phone"),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			phone, _ := arg[string](args, "phone")
			return map[string]any{"valid": len(phone) >= 10 && len(phone) <= 13}, nil
		},
	})
	c.Register(Spec{
		Name: "format_currency", Category: "utility", Idempotency: SafeRetry,
		Description: "Format a numeric amount as Brazilian Real currency text.",
		InputSchema: withType(schema("amount"), "amount", map[string]any{"type": "number"}),
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			amount, _ := arg[float64](args, "amount")
			return map[string]any{"formatted": humanizer.FormatWhatsAppStyle(fmt.Sprintf("R$ %.2f", amount))}, nil
		},
	})
}

func schema(fields ...string) map[string]any {
	props := make(map[string]any, len(fields))
	for _, f := range fields {
		props[f] = map[string]any{"type": "string"}
	}
	return map[string]any{"type": "object", "properties": props, "required": fields}
}

// withType replaces the string type schema gives field with prop, for the
// fields whose Invoke reads a boolean, number or array.
func withType(s map[string]any, field string, prop map[string]any) map[string]any {
	s["properties"].(map[string]any)[field] = prop
	return s
}

func parseWindow(args map[string]any) (time.Time, time.Time, error) {
	fromRaw, _ := arg[string](args, "from")
	toRaw, _ := arg[string](args, "to")
	from, err := time.Parse(time.RFC3339, fromRaw)
	if err != nil {
		return time.Time{}, time.Time{}, domain.NewError(domain.ErrToolDomain, err)
	}
	to, err := time.Parse(time.RFC3339, toRaw)
	if err != nil {
		return time.Time{}, time.Time{}, domain.NewError(domain.ErrToolDomain, err)
	}
	return from, to, nil
}

func decodeEvent(args map[string]any) (calendar.Event, error) {
	title, _ := arg[string](args, "title")
	startRaw, _ := arg[string](args, "start")
	endRaw, _ := arg[string](args, "end")
	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return calendar.Event{}, domain.NewError(domain.ErrToolDomain, err)
	}
	end, err := time.Parse(time.RFC3339, endRaw)
	if err != nil {
		return calendar.Event{}, domain.NewError(domain.ErrToolDomain, err)
	}
	var attendees []string
	if raw, ok := args["attendees"].([]any); ok {
		for _, a := range raw {
			if s, ok := a.(string); ok {
				attendees = append(attendees, s)
			}
		}
	}
	return calendar.Event{Title: title, Start: start, End: end, Attendees: attendees}, nil
}
