package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintStableAndDistinguishing(t *testing.T) {
	t.Parallel()

	a := Fingerprint("5511988887777", "oi, tudo bem?")
	b := Fingerprint("5511988887777", "oi, tudo bem?")
	c := Fingerprint("5511988887777", "outro texto")
	d := Fingerprint("5511900000000", "oi, tudo bem?")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
}

func TestLRUCacheSeenRecently(t *testing.T) {
	t.Parallel()

	cache, err := NewLRUCache(16)
	require.NoError(t, err)

	ctx := context.Background()
	fp := Fingerprint("5511988887777", "oi")

	seen, err := cache.SeenRecently(ctx, fp, time.Minute)
	require.NoError(t, err)
	assert.False(t, seen, "first sighting should not be a duplicate")

	seen, err = cache.SeenRecently(ctx, fp, time.Minute)
	require.NoError(t, err)
	assert.True(t, seen, "second sighting within ttl is a duplicate")
}

func TestLRUCacheExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	cache, err := NewLRUCache(16)
	require.NoError(t, err)

	ctx := context.Background()
	fp := Fingerprint("5511988887777", "oi")

	_, err = cache.SeenRecently(ctx, fp, time.Millisecond)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	seen, err := cache.SeenRecently(ctx, fp, time.Millisecond)
	require.NoError(t, err)
	assert.False(t, seen, "entry older than ttl should read as absent")
}
