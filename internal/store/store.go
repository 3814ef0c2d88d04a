// Package store defines the persistence interfaces the core depends on
// (§6: leads, conversations, messages, follow_ups) and the invariants that
// must hold at the boundary: the unique constraints on leads.phone,
// conversations.phone, and messages.id (the vendor's message id) are load-bearing and must
// be honored atomically (§9) — implementations upsert, they never
// read-then-insert.
package store

import (
	"context"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
)

// Leads is the persistence boundary for domain.Lead.
type Leads interface {
	// GetByPhone returns the lead for phone, or (nil, nil) if none exists.
	GetByPhone(ctx context.Context, phone string) (*domain.Lead, error)
	GetByID(ctx context.Context, id string) (*domain.Lead, error)
	// Upsert inserts lead or merges it into the existing row for its phone,
	// atomically. Never implemented as read-then-insert (§9).
	Upsert(ctx context.Context, lead *domain.Lead) (*domain.Lead, error)
}

// Conversations is the persistence boundary for domain.Conversation. Exactly
// one Conversation exists per phone (§3); GetOrCreate is the sole entry
// point and must be an atomic upsert keyed on phone (§9).
type Conversations interface {
	GetOrCreate(ctx context.Context, phone, leadID string) (*domain.Conversation, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Conversation, error)
	UpdateLastMessageAt(ctx context.Context, conversationID string, at time.Time) error
}

// Messages is the persistence boundary for domain.Message. Save is
// idempotent on Message.ID (the external WhatsApp id, or a generated
// fallback): re-delivering the same external id is a no-op (§8).
type Messages interface {
	// Save inserts the message if no row with the same ID exists yet, and
	// reports whether it actually inserted a new row (false means the call
	// observed an existing row — the webhook redelivery case, §8 scenario 6).
	Save(ctx context.Context, msg *domain.Message) (inserted bool, err error)
	Recent(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)
}

// FollowUps is the persistence boundary for domain.FollowUp.
type FollowUps interface {
	Insert(ctx context.Context, f *domain.FollowUp) (*domain.FollowUp, error)
	GetByID(ctx context.Context, id string) (*domain.FollowUp, error)
	// DuePending returns pending rows with scheduled_for <= now, for the
	// scheduler's poll loop (§4.E). Implementations should select-for-update
	// or equivalent so two workers never claim the same row (§8).
	DuePending(ctx context.Context, now time.Time, limit int) ([]domain.FollowUp, error)
	MarkExecuted(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, cause string) error
	MarkSkipped(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, newTime time.Time) error
}

// Store aggregates the four persistence boundaries behind one handle for
// convenient dependency injection.
type Store struct {
	Leads         Leads
	Conversations Conversations
	Messages      Messages
	FollowUps     FollowUps
}
