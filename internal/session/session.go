// Package session maintains the per-phone Session lifecycle (§4.C):
// get-or-create with resume, activity bumps, explicit end, and a background
// sweeper that expires stale sessions. Grounded on
// agente/core/session_manager.py's SessionManager, restated as a Go type
// with an RWMutex-protected map instead of an asyncio-lock-guarded dict —
// one writer, readers copy the snapshot they need (§5 Shared-resource
// policy).
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/store"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/telemetry"
)

// Timeouts bundles §4.C's timeout table.
type Timeouts struct {
	SessionTimeout     time.Duration
	IdleWarning        time.Duration
	MaxSessionDuration time.Duration
	MaxMessages        int
}

// AbandonmentHook is invoked when the sweeper ends a session by abandonment,
// so the caller can schedule the first-touch follow-up (§4.E).
type AbandonmentHook func(ctx context.Context, leadID, phone string)

// Manager owns the in-memory session map for every active phone.
type Manager struct {
	timeouts Timeouts
	store    *store.Store
	log      *zap.Logger
	onAbandon AbandonmentHook

	mu       sync.RWMutex
	sessions map[string]*domain.Session // phone -> session

	stopSweep chan struct{}
}

// New builds a session Manager. Call Run to start the background sweeper.
func New(timeouts Timeouts, st *store.Store, log *zap.Logger, onAbandon AbandonmentHook) *Manager {
	return &Manager{
		timeouts:  timeouts,
		store:     st,
		log:       log,
		onAbandon: onAbandon,
		sessions:  make(map[string]*domain.Session),
		stopSweep: make(chan struct{}),
	}
}

// GetOrCreate implements §4.C's get-or-create: reuse a valid in-memory
// session, resume from the store if the last message was within the
// session timeout, or start fresh.
func (m *Manager) GetOrCreate(ctx context.Context, phone, leadID string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if s, ok := m.sessions[phone]; ok && m.isValid(s, now) {
		s.LastActivity = now
		cp := *s
		return &cp, nil
	}

	conv, err := m.store.Conversations.GetOrCreate(ctx, phone, leadID)
	if err != nil {
		return nil, err
	}

	s := &domain.Session{
		Phone:          phone,
		ConversationID: conv.ID,
		LeadID:         leadID,
		State:          domain.SessionActive,
		CreatedAt:      now,
		LastActivity:   now,
	}
	if !conv.LastMessageAt.IsZero() && now.Sub(conv.LastMessageAt) < m.timeouts.SessionTimeout {
		resumedAt := now
		s.ResumedAt = &resumedAt
	}
	m.sessions[phone] = s
	cp := *s
	return &cp, nil
}

// isValid implements §4.C's in-memory validity check: not expired, not
// completed, not past max-duration, state active.
func (m *Manager) isValid(s *domain.Session, now time.Time) bool {
	if s.State != domain.SessionActive {
		return false
	}
	if now.Sub(s.LastActivity) >= m.timeouts.SessionTimeout {
		return false
	}
	if now.Sub(s.CreatedAt) >= m.timeouts.MaxSessionDuration {
		return false
	}
	return true
}

// Bump records one more turn for phone's session and asynchronously
// persists Conversation.last_message_at (§4.C Update).
func (m *Manager) Bump(ctx context.Context, phone string) {
	m.mu.Lock()
	s, ok := m.sessions[phone]
	if !ok {
		m.mu.Unlock()
		return
	}
	s.MessageCount++
	s.LastActivity = time.Now()
	convID := s.ConversationID
	m.mu.Unlock()

	go func() {
		if err := m.store.Conversations.UpdateLastMessageAt(ctx, convID, time.Now()); err != nil {
			m.log.Warn("failed to bump conversation last_message_at", zap.Error(err), zap.String("conversation_id", convID))
		}
	}()
}

// End explicitly completes phone's session.
func (m *Manager) End(phone string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[phone]; ok {
		s.State = domain.SessionCompleted
	}
}

// Run starts the background sweeper that scans every interval and ends
// sessions that fail validity, firing the abandonment hook for those that
// went idle rather than completing explicitly (§4.C Cleanup, default 60s).
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopSweep:
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

// Stop halts the sweeper started by Run.
func (m *Manager) Stop() {
	close(m.stopSweep)
}

func (m *Manager) sweep(ctx context.Context) {
	now := time.Now()

	type abandon struct{ leadID, phone string }
	var toAbandon []abandon

	m.mu.Lock()
	for phone, s := range m.sessions {
		if s.State != domain.SessionActive {
			delete(m.sessions, phone)
			continue
		}
		if !m.isValid(s, now) {
			s.State = domain.SessionAbandoned
			toAbandon = append(toAbandon, abandon{leadID: s.LeadID, phone: phone})
			delete(m.sessions, phone)
		}
	}
	m.mu.Unlock()

	for _, a := range toAbandon {
		m.log.Info("session abandoned by sweeper", telemetry.PhoneField(a.phone))
		if m.onAbandon != nil {
			m.onAbandon(ctx, a.leadID, a.phone)
		}
	}
}
