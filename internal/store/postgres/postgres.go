// Package postgres implements internal/store against PostgreSQL via
// jackc/pgx/v5, the driver basegraphhq-basegraph uses for its own stores.
// Every write that must be atomic per §9 is a single INSERT ... ON CONFLICT
// statement — never a read followed by a conditional insert.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/idgen"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/store"
)

// New connects to postgres and returns a fully wired store.Store.
func New(ctx context.Context, dsn string) (*store.Store, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, domain.NewError(domain.ErrTransientNetwork, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, domain.NewError(domain.ErrTransientNetwork, err)
	}
	return &store.Store{
		Leads:         &leadStore{pool: pool},
		Conversations: &conversationStore{pool: pool},
		Messages:      &messageStore{pool: pool},
		FollowUps:     &followUpStore{pool: pool},
	}, pool, nil
}

type leadStore struct{ pool *pgxpool.Pool }

func (s *leadStore) GetByPhone(ctx context.Context, phone string) (*domain.Lead, error) {
	return scanLead(s.pool.QueryRow(ctx, `
		SELECT id, phone, name, email, stage, score, metadata, external_crm_id, created_at, updated_at
		FROM leads WHERE phone = $1`, phone))
}

func (s *leadStore) GetByID(ctx context.Context, id string) (*domain.Lead, error) {
	return scanLead(s.pool.QueryRow(ctx, `
		SELECT id, phone, name, email, stage, score, metadata, external_crm_id, created_at, updated_at
		FROM leads WHERE id = $1`, id))
}

// Upsert is the sole write path for leads: a single ON CONFLICT statement,
// never a read-then-insert (§9), so concurrent first-contacts from the same
// phone can never create two rows.
func (s *leadStore) Upsert(ctx context.Context, lead *domain.Lead) (*domain.Lead, error) {
	id := lead.ID
	if id == "" {
		id = idgen.NewEntityID("lead")
	}
	meta := lead.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, domain.NewError(domain.ErrInternal, err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO leads (id, phone, name, email, stage, score, metadata, external_crm_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (phone) DO UPDATE SET
			name             = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE leads.name END,
			email            = CASE WHEN EXCLUDED.email <> '' THEN EXCLUDED.email ELSE leads.email END,
			stage            = CASE WHEN EXCLUDED.stage <> '' THEN EXCLUDED.stage ELSE leads.stage END,
			score            = CASE WHEN EXCLUDED.score <> 0 THEN EXCLUDED.score ELSE leads.score END,
			metadata         = leads.metadata || EXCLUDED.metadata,
			external_crm_id  = CASE WHEN EXCLUDED.external_crm_id <> '' THEN EXCLUDED.external_crm_id ELSE leads.external_crm_id END,
			updated_at       = now()
		RETURNING id, phone, name, email, stage, score, metadata, external_crm_id, created_at, updated_at`,
		id, lead.Phone, lead.Name, lead.Email, string(lead.Stage), lead.Score, metaJSON, lead.ExternalCRMID)

	return scanLead(row)
}

func scanLead(row pgx.Row) (*domain.Lead, error) {
	var l domain.Lead
	var stage string
	var metaJSON []byte
	err := row.Scan(&l.ID, &l.Phone, &l.Name, &l.Email, &stage, &l.Score, &metaJSON, &l.ExternalCRMID, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewError(domain.ErrInternal, err)
	}
	l.Stage = domain.Stage(stage)
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &l.Metadata); err != nil {
			return nil, domain.NewError(domain.ErrInternal, err)
		}
	}
	return &l, nil
}

type conversationStore struct{ pool *pgxpool.Pool }

// GetOrCreate upserts on the unique phone constraint in one round trip: the
// "one Conversation per phone" invariant (§3, §9) never depends on a
// check-then-insert race window.
func (s *conversationStore) GetOrCreate(ctx context.Context, phone, leadID string) (*domain.Conversation, error) {
	id := idgen.NewEntityID("conv")
	row := s.pool.QueryRow(ctx, `
		INSERT INTO conversations (id, phone, lead_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (phone) DO UPDATE SET phone = conversations.phone
		RETURNING id, phone, lead_id, last_message_at`, id, phone, leadID)

	var c domain.Conversation
	var lastMsg *time.Time
	if err := row.Scan(&c.ID, &c.Phone, &c.LeadID, &lastMsg); err != nil {
		return nil, domain.NewError(domain.ErrInternal, err)
	}
	if lastMsg != nil {
		c.LastMessageAt = *lastMsg
	}
	return &c, nil
}

func (s *conversationStore) GetByPhone(ctx context.Context, phone string) (*domain.Conversation, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, phone, lead_id, last_message_at FROM conversations WHERE phone = $1`, phone)
	var c domain.Conversation
	var lastMsg *time.Time
	err := row.Scan(&c.ID, &c.Phone, &c.LeadID, &lastMsg)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewError(domain.ErrInternal, err)
	}
	if lastMsg != nil {
		c.LastMessageAt = *lastMsg
	}
	return &c, nil
}

func (s *conversationStore) UpdateLastMessageAt(ctx context.Context, conversationID string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE conversations SET last_message_at = $2 WHERE id = $1`, conversationID, at)
	if err != nil {
		return domain.NewError(domain.ErrInternal, err)
	}
	return nil
}

type messageStore struct{ pool *pgxpool.Pool }

// Save is idempotent on the message's external id via ON CONFLICT DO NOTHING,
// reporting whether a row was actually inserted so callers can detect a
// webhook redelivery (§8 scenario 6) without a prior existence check.
func (s *messageStore) Save(ctx context.Context, msg *domain.Message) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, phone, direction, content, media_type, media_ref, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		msg.ID, msg.ConversationID, msg.Phone, string(msg.Direction), msg.Content, string(msg.MediaType), msg.MediaRef, msg.Timestamp)
	if err != nil {
		return false, domain.NewError(domain.ErrInternal, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *messageStore) Recent(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, phone, direction, content, media_type, media_ref, ts
		FROM messages WHERE conversation_id = $1 ORDER BY ts DESC LIMIT $2`, conversationID, limit)
	if err != nil {
		return nil, domain.NewError(domain.ErrInternal, err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		var direction, mediaType string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Phone, &direction, &m.Content, &mediaType, &m.MediaRef, &m.Timestamp); err != nil {
			return nil, domain.NewError(domain.ErrInternal, err)
		}
		m.Direction = domain.Direction(direction)
		m.MediaType = domain.MediaType(mediaType)
		out = append(out, m)
	}
	// Oldest-first, matching the buffer/context-builder's expected ordering.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

type followUpStore struct{ pool *pgxpool.Pool }

func (s *followUpStore) Insert(ctx context.Context, f *domain.FollowUp) (*domain.FollowUp, error) {
	id := f.ID
	if id == "" {
		id = idgen.NewEntityID("followup")
	}
	status := f.Status
	if status == "" {
		status = domain.FollowUpPending
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO follow_ups (id, lead_id, type, scheduled_for, status, attempt_number, message_override)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, lead_id, type, scheduled_for, status, attempt_number, message_override, created_at, executed_at, error`,
		id, f.LeadID, string(f.Type), f.ScheduledFor, string(status), f.AttemptNumber, f.MessageOverride)
	return scanFollowUp(row)
}

func (s *followUpStore) GetByID(ctx context.Context, id string) (*domain.FollowUp, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, lead_id, type, scheduled_for, status, attempt_number, message_override, created_at, executed_at, error
		FROM follow_ups WHERE id = $1`, id)
	return scanFollowUp(row)
}

// DuePending claims due rows with SELECT ... FOR UPDATE SKIP LOCKED, so two
// scheduler workers polling concurrently never claim the same follow-up (§8).
func (s *followUpStore) DuePending(ctx context.Context, now time.Time, limit int) ([]domain.FollowUp, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, lead_id, type, scheduled_for, status, attempt_number, message_override, created_at, executed_at, error
		FROM follow_ups
		WHERE status = 'pending' AND scheduled_for <= $1
		ORDER BY scheduled_for ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED`, now, limit)
	if err != nil {
		return nil, domain.NewError(domain.ErrInternal, err)
	}
	defer rows.Close()

	var out []domain.FollowUp
	for rows.Next() {
		f, err := scanFollowUpRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (s *followUpStore) MarkExecuted(ctx context.Context, id string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE follow_ups SET status = 'executed', executed_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return domain.NewError(domain.ErrInternal, err)
	}
	return nil
}

func (s *followUpStore) MarkFailed(ctx context.Context, id string, cause string) error {
	_, err := s.pool.Exec(ctx, `UPDATE follow_ups SET status = 'failed', error = $2, attempt_number = attempt_number + 1 WHERE id = $1`, id, cause)
	if err != nil {
		return domain.NewError(domain.ErrInternal, err)
	}
	return nil
}

func (s *followUpStore) MarkSkipped(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE follow_ups SET status = 'skipped' WHERE id = $1`, id)
	if err != nil {
		return domain.NewError(domain.ErrInternal, err)
	}
	return nil
}

func (s *followUpStore) Reschedule(ctx context.Context, id string, newTime time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE follow_ups SET scheduled_for = $2, status = 'pending' WHERE id = $1`, id, newTime)
	if err != nil {
		return domain.NewError(domain.ErrInternal, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFollowUp(row pgx.Row) (*domain.FollowUp, error) {
	return scanFollowUpRow(row)
}

func scanFollowUpRow(row rowScanner) (*domain.FollowUp, error) {
	var f domain.FollowUp
	var typ, status string
	err := row.Scan(&f.ID, &f.LeadID, &typ, &f.ScheduledFor, &status, &f.AttemptNumber, &f.MessageOverride, &f.CreatedAt, &f.ExecutedAt, &f.Error)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewError(domain.ErrInternal, err)
	}
	f.Type = domain.FollowUpType(typ)
	f.Status = domain.FollowUpStatus(status)
	return &f, nil
}
