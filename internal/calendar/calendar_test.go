package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
)

func TestCheckAvailabilityFormatsRangeAsRFC3339UTC(t *testing.T) {
	t.Parallel()

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		_ = json.NewEncoder(w).Encode([]Event{})
	}))
	defer srv.Close()

	from := time.Date(2026, 8, 3, 13, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	to := from.Add(time.Hour)

	c := New(srv.URL, "key")
	busy, err := c.CheckAvailability(context.Background(), "vendedora@example.com", from, to)
	require.NoError(t, err)
	assert.Empty(t, busy)

	assert.Contains(t, gotPath, "from=2026-08-03T16:00:00Z")
	assert.Contains(t, gotPath, "to=2026-08-03T17:00:00Z")
}

func TestCheckAvailabilityReturnsBusyIntervals(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]Event{{Title: "ocupado"}})
	}))
	defer srv.Close()

	c := New(srv.URL, "key")
	busy, err := c.CheckAvailability(context.Background(), "vendedora@example.com", time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, busy, 1)
	assert.Equal(t, "ocupado", busy[0].Title)
}

func TestCreateMeetingPostsAndDecodesEvent(t *testing.T) {
	t.Parallel()

	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		_ = json.NewEncoder(w).Encode(Event{ID: "evt-1", Title: "Apresentação"})
	}))
	defer srv.Close()

	c := New(srv.URL, "key")
	ev, err := c.CreateMeeting(context.Background(), Event{Title: "Apresentação"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/events", path)
	assert.Equal(t, "evt-1", ev.ID)
}

func TestCancelMeetingUsesDeleteOnEventPath(t *testing.T) {
	t.Parallel()

	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "key")
	require.NoError(t, c.CancelMeeting(context.Background(), "evt-1"))
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/events/evt-1", path)
}

func TestDoMapsStatusCodesToDomainErrorKinds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		kind   domain.ErrorKind
	}{
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusServiceUnavailable, domain.ErrTransientNetwork},
		{http.StatusConflict, domain.ErrToolDomain},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(string(tc.kind), func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			c := New(srv.URL, "key")
			err := c.SendInvite(context.Background(), "evt-1")
			require.Error(t, err)
			assert.Equal(t, tc.kind, domain.KindOf(err))
		})
	}
}
