// Package memory provides an in-process implementation of internal/store's
// interfaces, used by unit tests. It
// upholds the same upsert-not-read-then-insert discipline as the postgres
// adapter by serializing all mutation behind one mutex per sub-store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/idgen"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/store"
)

// New returns a fully wired in-memory store.Store.
func New() *store.Store {
	return &store.Store{
		Leads:         NewLeads(),
		Conversations: NewConversations(),
		Messages:      NewMessages(),
		FollowUps:     NewFollowUps(),
	}
}

// --- Leads ---

type leadStore struct {
	mu    sync.Mutex
	byID  map[string]*domain.Lead
	byPhone map[string]string // phone -> id
}

func NewLeads() *leadStore {
	return &leadStore{byID: map[string]*domain.Lead{}, byPhone: map[string]string{}}
}

func (s *leadStore) GetByPhone(_ context.Context, phone string) (*domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byPhone[phone]
	if !ok {
		return nil, nil
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *leadStore) GetByID(_ context.Context, id string) (*domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

// Upsert merges lead into the existing row for its phone (if any) under the
// store's single mutex, which is the in-memory equivalent of a native
// ON CONFLICT upsert: no caller ever observes a window in which two rows
// exist for the same phone (§9).
func (s *leadStore) Upsert(_ context.Context, lead *domain.Lead) (*domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if id, ok := s.byPhone[lead.Phone]; ok {
		existing := s.byID[id]
		merged := mergeLead(existing, lead)
		merged.UpdatedAt = now
		s.byID[id] = merged
		cp := *merged
		return &cp, nil
	}

	cp := *lead
	if cp.ID == "" {
		cp.ID = idgen.NewEntityID("lead")
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	if cp.Metadata == nil {
		cp.Metadata = map[string]any{}
	}
	s.byID[cp.ID] = &cp
	s.byPhone[cp.Phone] = cp.ID
	out := cp
	return &out, nil
}

func mergeLead(existing, incoming *domain.Lead) *domain.Lead {
	merged := *existing
	if incoming.Name != "" {
		merged.Name = incoming.Name
	}
	if incoming.Email != "" {
		merged.Email = incoming.Email
	}
	if incoming.Stage != "" {
		merged.Stage = incoming.Stage
	}
	if incoming.Score != 0 {
		merged.Score = incoming.Score
	}
	if incoming.ExternalCRMID != "" {
		merged.ExternalCRMID = incoming.ExternalCRMID
	}
	if merged.Metadata == nil {
		merged.Metadata = map[string]any{}
	}
	for k, v := range incoming.Metadata {
		merged.Metadata[k] = v
	}
	return &merged
}

// --- Conversations ---

type conversationStore struct {
	mu      sync.Mutex
	byPhone map[string]*domain.Conversation
}

func NewConversations() *conversationStore {
	return &conversationStore{byPhone: map[string]*domain.Conversation{}}
}

// GetOrCreate is the in-memory equivalent of the store's phone-keyed upsert:
// the mutex makes the check-then-create atomic from every caller's
// perspective, which is the invariant §9 requires at the database boundary.
func (s *conversationStore) GetOrCreate(_ context.Context, phone, leadID string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.byPhone[phone]; ok {
		cp := *c
		return &cp, nil
	}
	c := &domain.Conversation{
		ID:     idgen.NewEntityID("conv"),
		Phone:  phone,
		LeadID: leadID,
	}
	s.byPhone[phone] = c
	cp := *c
	return &cp, nil
}

func (s *conversationStore) GetByPhone(_ context.Context, phone string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byPhone[phone]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *conversationStore) UpdateLastMessageAt(_ context.Context, conversationID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.byPhone {
		if c.ID == conversationID {
			c.LastMessageAt = at
			return nil
		}
	}
	return nil
}

// --- Messages ---

type messageStore struct {
	mu      sync.Mutex
	byExternalID map[string]*domain.Message
	byConv       map[string][]*domain.Message
}

func NewMessages() *messageStore {
	return &messageStore{byExternalID: map[string]*domain.Message{}, byConv: map[string][]*domain.Message{}}
}

func (s *messageStore) Save(_ context.Context, msg *domain.Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byExternalID[msg.ID]; exists {
		return false, nil
	}
	cp := *msg
	s.byExternalID[msg.ID] = &cp
	s.byConv[msg.ConversationID] = append(s.byConv[msg.ConversationID], &cp)
	return true, nil
}

func (s *messageStore) Recent(_ context.Context, conversationID string, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := append([]*domain.Message(nil), s.byConv[conversationID]...)
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]domain.Message, len(all))
	for i, m := range all {
		out[i] = *m
	}
	return out, nil
}

// --- FollowUps ---

type followUpStore struct {
	mu   sync.Mutex
	byID map[string]*domain.FollowUp
}

func NewFollowUps() *followUpStore {
	return &followUpStore{byID: map[string]*domain.FollowUp{}}
}

func (s *followUpStore) Insert(_ context.Context, f *domain.FollowUp) (*domain.FollowUp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *f
	if cp.ID == "" {
		cp.ID = idgen.NewEntityID("followup")
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	if cp.Status == "" {
		cp.Status = domain.FollowUpPending
	}
	s.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *followUpStore) GetByID(_ context.Context, id string) (*domain.FollowUp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *f
	return &cp, nil
}

func (s *followUpStore) DuePending(_ context.Context, now time.Time, limit int) ([]domain.FollowUp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []domain.FollowUp
	for _, f := range s.byID {
		if f.Status == domain.FollowUpPending && !f.ScheduledFor.After(now) {
			due = append(due, *f)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledFor.Before(due[j].ScheduledFor) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *followUpStore) MarkExecuted(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.byID[id]
	if !ok {
		return nil
	}
	f.Status = domain.FollowUpExecuted
	f.ExecutedAt = &at
	return nil
}

func (s *followUpStore) MarkFailed(_ context.Context, id string, cause string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.byID[id]
	if !ok {
		return nil
	}
	f.Status = domain.FollowUpFailed
	f.Error = cause
	return nil
}

func (s *followUpStore) MarkSkipped(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.byID[id]
	if !ok {
		return nil
	}
	f.Status = domain.FollowUpSkipped
	return nil
}

func (s *followUpStore) Reschedule(_ context.Context, id string, newTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.byID[id]
	if !ok {
		return nil
	}
	f.ScheduledFor = newTime
	return nil
}
