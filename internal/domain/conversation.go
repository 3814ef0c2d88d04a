package domain

import "time"

// Conversation is the persistent per-phone thread record. Exactly one
// Conversation exists per phone at any time (§3 invariant); the store
// enforces this with an upsert on the phone unique key, never
// read-then-insert (§9).
type Conversation struct {
	ID            string
	Phone         string
	LeadID        string
	LastMessageAt time.Time
}

// Direction is the flow of a Message relative to the lead.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// MediaType classifies the payload attached to a Message.
type MediaType string

const (
	MediaNone     MediaType = "none"
	MediaImage    MediaType = "image"
	MediaAudio    MediaType = "audio"
	MediaDocument MediaType = "document"
)

// Message is the canonical, narrow record for one WhatsApp message. It is
// immutable once constructed by the webhook receiver; conversation linkage
// and any enrichment travel through a separate context bag, never by
// mutating this struct (§9, "open attribute access").
type Message struct {
	ID             string
	ConversationID string
	Phone          string
	Direction      Direction
	Content        string
	MediaType      MediaType
	MediaRef       string
	Timestamp      time.Time
}

// FollowUpType identifies a step in the re-engagement cadence (§4.E).
type FollowUpType string

const (
	FollowUpReminder      FollowUpType = "reminder"
	FollowUpCheckIn       FollowUpType = "check_in"
	FollowUpReengagement  FollowUpType = "reengagement"
	FollowUpNurture       FollowUpType = "nurture"
)

// FollowUpStatus is the lifecycle state of a FollowUp row.
type FollowUpStatus string

const (
	FollowUpPending  FollowUpStatus = "pending"
	FollowUpExecuted FollowUpStatus = "executed"
	FollowUpFailed   FollowUpStatus = "failed"
	FollowUpSkipped  FollowUpStatus = "skipped"
)

// FollowUp is a durable re-engagement timer. It transitions
// pending -> executed|failed|skipped exactly once (§3).
type FollowUp struct {
	ID              string
	LeadID          string
	Type            FollowUpType
	ScheduledFor    time.Time
	Status          FollowUpStatus
	AttemptNumber   int
	MessageOverride string
	CreatedAt       time.Time
	ExecutedAt      *time.Time
	Error           string
}

// NextType returns the follow-up hop that should be scheduled after t
// executes successfully, per the §4.E cadence table. The nurture hop is
// terminal: it does not chain further.
func (t FollowUpType) NextType() (FollowUpType, bool) {
	switch t {
	case FollowUpReminder:
		return FollowUpCheckIn, true
	case FollowUpCheckIn:
		return FollowUpReengagement, true
	case FollowUpReengagement:
		return FollowUpNurture, true
	default:
		return "", false
	}
}

// Delay returns the cadence delay after the previous event for type t,
// per the §4.E cadence table.
func (t FollowUpType) Delay() time.Duration {
	switch t {
	case FollowUpReminder:
		return 30 * time.Minute
	case FollowUpCheckIn:
		return 24 * time.Hour
	case FollowUpReengagement:
		return 48 * time.Hour
	case FollowUpNurture:
		return 72 * time.Hour
	default:
		return 30 * time.Minute
	}
}
