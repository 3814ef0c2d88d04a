package domain

import "time"

// SessionState is the lifecycle state of an in-memory Session.
type SessionState string

const (
	SessionActive    SessionState = "active"
	SessionIdle      SessionState = "idle"
	SessionExpired   SessionState = "expired"
	SessionCompleted SessionState = "completed"
	SessionAbandoned SessionState = "abandoned"
)

// Session is the ephemeral per-phone execution-time state owned by
// internal/session. It is distinct from the persistent Conversation row
// (§3, Glossary).
type Session struct {
	Phone          string
	ConversationID string
	LeadID         string
	State          SessionState
	CreatedAt      time.Time
	LastActivity   time.Time
	MessageCount   int
	ResumedAt      *time.Time
}

// EmotionalRead is the per-turn derived sentiment/urgency/interest reading
// (§3, "Emotional read").
type EmotionalRead struct {
	InterestLevel int    // 1-10
	Urgency       string // low|med|high
	Sentiment     string // neg|neu|pos
}

// QualificationProgress is the derived view over a Lead's metadata (§3).
type QualificationProgress struct {
	HighValueBill        bool
	DecisionMaker         bool
	NoExistingSystem     bool
	NoActiveContract     bool
	DemonstratesInterest bool
	CompletionPercent    int
	NextQuestion         string
	Qualified            bool
	Disqualified          bool
}
