package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/store/memory"
)

func testTimeouts() Timeouts {
	return Timeouts{
		SessionTimeout:     50 * time.Millisecond,
		IdleWarning:        25 * time.Millisecond,
		MaxSessionDuration: time.Hour,
		MaxMessages:        100,
	}
}

func TestGetOrCreateStartsFreshSession(t *testing.T) {
	t.Parallel()

	m := New(testTimeouts(), memory.New(), zap.NewNop(), nil)

	s, err := m.GetOrCreate(context.Background(), "5511988887777", "lead-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, s.State)
	assert.Equal(t, "lead-1", s.LeadID)
	assert.Nil(t, s.ResumedAt, "a brand new conversation has nothing to resume from")
}

func TestGetOrCreateReusesValidInMemorySession(t *testing.T) {
	t.Parallel()

	m := New(testTimeouts(), memory.New(), zap.NewNop(), nil)
	ctx := context.Background()

	first, err := m.GetOrCreate(ctx, "5511988887777", "lead-1")
	require.NoError(t, err)

	second, err := m.GetOrCreate(ctx, "5511988887777", "lead-1")
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt, "reusing a valid session must not reset CreatedAt")
}

func TestGetOrCreateResumesWhenConversationWasRecentlyActive(t *testing.T) {
	t.Parallel()

	st := memory.New()
	ctx := context.Background()

	conv, err := st.Conversations.GetOrCreate(ctx, "5511988887777", "lead-1")
	require.NoError(t, err)
	require.NoError(t, st.Conversations.UpdateLastMessageAt(ctx, conv.ID, time.Now()))

	m := New(testTimeouts(), st, zap.NewNop(), nil)
	s, err := m.GetOrCreate(ctx, "5511988887777", "lead-1")
	require.NoError(t, err)
	assert.NotNil(t, s.ResumedAt, "a conversation active within the session timeout should resume")
}

func TestGetOrCreateStartsFreshAfterExpiry(t *testing.T) {
	t.Parallel()

	m := New(testTimeouts(), memory.New(), zap.NewNop(), nil)
	ctx := context.Background()

	first, err := m.GetOrCreate(ctx, "5511988887777", "lead-1")
	require.NoError(t, err)

	time.Sleep(testTimeouts().SessionTimeout + 20*time.Millisecond)

	second, err := m.GetOrCreate(ctx, "5511988887777", "lead-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.CreatedAt, second.CreatedAt, "an expired session must be replaced, not reused")
}

func TestBumpIncrementsMessageCountAndPersistsLastMessageAt(t *testing.T) {
	t.Parallel()

	st := memory.New()
	m := New(testTimeouts(), st, zap.NewNop(), nil)
	ctx := context.Background()

	s, err := m.GetOrCreate(ctx, "5511988887777", "lead-1")
	require.NoError(t, err)
	assert.Equal(t, 0, s.MessageCount)

	m.Bump(ctx, "5511988887777")
	m.Bump(ctx, "5511988887777")

	updated, err := m.GetOrCreate(ctx, "5511988887777", "lead-1")
	require.NoError(t, err)
	assert.Equal(t, 2, updated.MessageCount)
}

func TestBumpIsNoOpForUnknownPhone(t *testing.T) {
	t.Parallel()

	m := New(testTimeouts(), memory.New(), zap.NewNop(), nil)
	assert.NotPanics(t, func() { m.Bump(context.Background(), "5511900000000") })
}

func TestEndCompletesSessionSoNextGetOrCreateStartsFresh(t *testing.T) {
	t.Parallel()

	m := New(testTimeouts(), memory.New(), zap.NewNop(), nil)
	ctx := context.Background()

	first, err := m.GetOrCreate(ctx, "5511988887777", "lead-1")
	require.NoError(t, err)

	m.End("5511988887777")

	second, err := m.GetOrCreate(ctx, "5511988887777", "lead-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.CreatedAt, second.CreatedAt)
}

func TestSweepAbandonsExpiredSessionsAndFiresHook(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var abandoned []string

	m := New(testTimeouts(), memory.New(), zap.NewNop(), func(_ context.Context, leadID, phone string) {
		mu.Lock()
		abandoned = append(abandoned, phone)
		mu.Unlock()
	})
	ctx := context.Background()

	_, err := m.GetOrCreate(ctx, "5511988887777", "lead-1")
	require.NoError(t, err)

	time.Sleep(testTimeouts().SessionTimeout + 20*time.Millisecond)
	m.sweep(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"5511988887777"}, abandoned)
}

func TestSweepDoesNotAbandonAnActiveSession(t *testing.T) {
	t.Parallel()

	m := New(testTimeouts(), memory.New(), zap.NewNop(), func(context.Context, string, string) {
		t.Fatal("abandonment hook must not fire for a still-active session")
	})
	ctx := context.Background()

	_, err := m.GetOrCreate(ctx, "5511988887777", "lead-1")
	require.NoError(t, err)

	m.sweep(ctx)

	m.mu.RLock()
	_, stillPresent := m.sessions["5511988887777"]
	m.mu.RUnlock()
	assert.True(t, stillPresent)
}

func TestRunStopsOnStop(t *testing.T) {
	t.Parallel()

	m := New(testTimeouts(), memory.New(), zap.NewNop(), nil)
	done := make(chan struct{})
	go func() {
		m.Run(context.Background(), time.Millisecond)
		close(done)
	}()

	m.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
