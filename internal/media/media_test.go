package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
)

func TestFetchSucceedsOnFirstFallbackBase64Payload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/chat/getBase64/abc123" {
			_, _ = w.Write([]byte("payload-bytes"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := New(srv.URL, "key")
	data, err := r.Fetch(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "payload-bytes", string(data))
}

func TestFetchFallsThroughToIDEndpointWhenEarlierFallbacksFail(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/media/id/xyz" {
			_, _ = w.Write([]byte("by-id-bytes"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := New(srv.URL, "key")
	data, err := r.Fetch(context.Background(), "xyz")
	require.NoError(t, err)
	assert.Equal(t, "by-id-bytes", string(data))
}

func TestFetchReturnsMediaUnavailableWhenEveryFallbackFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := New(srv.URL, "key")
	_, err := r.Fetch(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, domain.ErrMediaUnavailable, domain.KindOf(err))
}

func TestFetchUsesMediaRefDirectlyWhenItIsAlreadyAnAbsoluteURL(t *testing.T) {
	t.Parallel()

	var gotDirectHit bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/direct-file" {
			gotDirectHit = true
			_, _ = w.Write([]byte("direct-bytes"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := New(srv.URL, "key")
	_, err := r.Fetch(context.Background(), srv.URL+"/direct-file")
	require.NoError(t, err)
	assert.True(t, gotDirectHit, "the base64 fallback tries the raw ref as a path segment and 404s, then the direct-URL fallback should hit it")
}
