// Package policy enforces §4.D's tool invocation policy: retry with
// exponential backoff for safe-retry tools (Retryer) and fingerprint dedup
// for side-effect-once tools (SendGate). The read-then-upgrade probe of
// unique-by-key tools lives in each tool's own Invoke, not here.
// Modeled on goa-ai's agents/runtime/policy.Engine — a decision made fresh
// per call rather than a stateful allowlist, since this domain's tool set
// is fixed and small enough that per-call policy is simpler than a caps
// engine.
package policy

import (
	"context"
	"math/rand"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/dedup"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
)

// Backoff is §4.D's retry schedule: base 1s, factor 2, jitter ±50%, cap 10s.
type Backoff struct {
	Base   time.Duration
	Factor float64
	Jitter float64
	Cap    time.Duration
}

func DefaultBackoff() Backoff {
	return Backoff{Base: time.Second, Factor: 2, Jitter: 0.5, Cap: 10 * time.Second}
}

func (b Backoff) delay(attempt int, rng *rand.Rand) time.Duration {
	d := float64(b.Base)
	for i := 0; i < attempt; i++ {
		d *= b.Factor
	}
	if d > float64(b.Cap) {
		d = float64(b.Cap)
	}
	jitter := 1 + (rng.Float64()*2-1)*b.Jitter
	d *= jitter
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// RetryableStatusCodes are the HTTP statuses §4.D names as retryable,
// alongside timeout and network-reset errors.
var RetryableStatusCodes = map[int]bool{429: true, 500: true, 502: true, 503: true, 504: true}

// Retryer runs a safe-retry tool call with §4.D's backoff schedule.
type Retryer struct {
	backoff Backoff
	rng     *rand.Rand
}

func NewRetryer(backoff Backoff, rngSeed int64) *Retryer {
	return &Retryer{backoff: backoff, rng: rand.New(rand.NewSource(rngSeed))}
}

// Do retries fn up to maxAttempts times (§4.D "up to 3 attempts") while the
// returned error's Kind is retryable, sleeping the backoff delay between
// attempts. Gives up early on a non-retryable error or ctx cancellation.
func (r *Retryer) Do(ctx context.Context, maxAttempts int, fn func(ctx context.Context) (any, error)) (any, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !domain.KindOf(err).Retryable() {
			return nil, err
		}
		if attempt == maxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.backoff.delay(attempt, r.rng)):
		}
	}
	return nil, lastErr
}

// SendGate de-duplicates side-effect-once calls by content fingerprint
// (§4.D: "de-dup by a content fingerprint sha256(phone:text) cached for 5
// min to shed obvious duplicates").
type SendGate struct {
	cache dedup.Cache
	ttl   time.Duration
}

func NewSendGate(cache dedup.Cache) *SendGate {
	return &SendGate{cache: cache, ttl: 5 * time.Minute}
}

// Allow reports whether the (phone, text) pair should actually be sent —
// false means it was sent within the last ttl and the caller should skip it.
func (g *SendGate) Allow(ctx context.Context, phone, text string) (bool, error) {
	seen, err := g.cache.SeenRecently(ctx, dedup.Fingerprint(phone, text), g.ttl)
	if err != nil {
		return true, err // fail open: a dedup-cache outage must not block sends
	}
	return !seen, nil
}
