package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
)

func TestJIDAppendsWhatsAppSuffix(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "5511988887777@s.whatsapp.net", JID("5511988887777"))
}

func TestCapitalizeUppercasesFirstRune(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Image", capitalize("image"))
	assert.Equal(t, "", capitalize(""))
}

func TestPresenceValueMapsBoolToEvolutionStrings(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "composing", presenceValue(true))
	assert.Equal(t, "paused", presenceValue(false))
}

func newTestServer(t *testing.T, status int, captured *capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.apiKey = r.Header.Get("apikey")
		captured.contentType = r.Header.Get("Content-Type")
		w.WriteHeader(status)
	}))
}

type capturedRequest struct {
	method      string
	path        string
	apiKey      string
	contentType string
}

func TestSendTextPostsToExpectedPathWithAuthHeader(t *testing.T) {
	t.Parallel()

	var captured capturedRequest
	srv := newTestServer(t, http.StatusOK, &captured)
	defer srv.Close()

	c := New(srv.URL, "secret-key", "instance-1")
	err := c.SendText(context.Background(), "5511988887777", "oi")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, captured.method)
	assert.Equal(t, "/message/sendText/instance-1", captured.path)
	assert.Equal(t, "secret-key", captured.apiKey)
	assert.Equal(t, "application/json", captured.contentType)
}

func TestSendMediaUsesCapitalizedKindInPath(t *testing.T) {
	t.Parallel()

	var captured capturedRequest
	srv := newTestServer(t, http.StatusOK, &captured)
	defer srv.Close()

	c := New(srv.URL, "key", "inst")
	require.NoError(t, c.SendMedia(context.Background(), "5511988887777", MediaImage, "ref", "legenda"))
	assert.Equal(t, "/message/sendImage/inst", captured.path)
}

func TestPostMapsStatusCodesToDomainErrorKinds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		kind   domain.ErrorKind
	}{
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusInternalServerError, domain.ErrTransientNetwork},
		{http.StatusBadGateway, domain.ErrTransientNetwork},
		{http.StatusBadRequest, domain.ErrToolDomain},
		{http.StatusNotFound, domain.ErrToolDomain},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(string(tc.kind), func(t *testing.T) {
			t.Parallel()
			var captured capturedRequest
			srv := newTestServer(t, tc.status, &captured)
			defer srv.Close()

			c := New(srv.URL, "key", "inst")
			err := c.SendText(context.Background(), "5511988887777", "oi")
			require.Error(t, err)
			assert.Equal(t, tc.kind, domain.KindOf(err))
		})
	}
}

func TestPostSucceedsOn2xx(t *testing.T) {
	t.Parallel()

	var captured capturedRequest
	srv := newTestServer(t, http.StatusCreated, &captured)
	defer srv.Close()

	c := New(srv.URL, "key", "inst")
	assert.NoError(t, c.SetTyping(context.Background(), "5511988887777", true))
}
