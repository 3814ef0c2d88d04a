// Package buffer absorbs bursts of inbound messages per phone into single
// logical turns (§4.B), the Go port of MessageBuffer in
// agente/core/message_processor.py. Each phone gets its own mutex-guarded
// pending slice and at most one drain goroutine at a time, instead of
// Python's per-phone asyncio.Lock + task, giving strict per-phone FIFO with
// free concurrency across phones (§5, and the concurrency-model design note
// in §9).
package buffer

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/telemetry"
)

// Handler drains one coalesced turn for a phone. The buffer guarantees the
// handler for turn N returns before turn N+1's handler starts for the same
// phone; handlers for different phones may run concurrently.
type Handler func(ctx context.Context, phone string, messages []domain.Message)

// Config bounds the coalescer.
type Config struct {
	Window       time.Duration // drain quiescence window (§4.B default 3s)
	PerPhoneCap  int           // hard ceiling on pending messages per phone (§5, default 20)
	DedupSize    int           // recent-id dedup set capacity (§4.B "last ~1000")
}

func DefaultConfig() Config {
	return Config{Window: 3 * time.Second, PerPhoneCap: 20, DedupSize: 1000}
}

// Buffer coalesces bursts of messages per phone and dispatches one Handler
// call per turn.
type Buffer struct {
	cfg     Config
	handler Handler
	log     *zap.Logger

	mu     sync.Mutex // guards actors map only, never held across a handler call
	actors map[string]*phoneActor

	seen *lru.Cache[string, struct{}]
}

// New builds a Buffer that dispatches coalesced turns to handler.
func New(cfg Config, handler Handler, log *zap.Logger) (*Buffer, error) {
	seen, err := lru.New[string, struct{}](cfg.DedupSize)
	if err != nil {
		return nil, err
	}
	return &Buffer{
		cfg:     cfg,
		handler: handler,
		log:     log,
		actors:  make(map[string]*phoneActor),
		seen:    seen,
	}, nil
}

// Accept enqueues an inbound message, rejecting it if its id was seen
// recently (§4.B deduplication). Safe for concurrent callers across and
// within phones — per-phone ordering is enforced downstream by the actor.
func (b *Buffer) Accept(ctx context.Context, msg domain.Message) {
	if _, dup := b.seen.Get(msg.ID); dup {
		b.log.Debug("dropping duplicate inbound message", zap.String("message_id", msg.ID))
		return
	}
	b.seen.Add(msg.ID, struct{}{})

	actor := b.actorFor(msg.Phone)
	actor.enqueue(ctx, msg, b.cfg, b.handler, b.log)
}

func (b *Buffer) actorFor(phone string) *phoneActor {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.actors[phone]
	if !ok {
		a = &phoneActor{phone: phone}
		b.actors[phone] = a
	}
	return a
}

// phoneActor holds one phone's pending slice and in-flight turn state. Its
// mutex is held only for the brief append/swap operations named in §4.B —
// never across the drain sleep or the handler call — so a panic in the
// handler cannot leave pending permanently locked (§4.B Failure).
type phoneActor struct {
	mu           sync.Mutex
	pending      []domain.Message
	lastArrival  time.Time
	drainPending bool

	turnMu sync.Mutex // serializes handler invocations for this phone (§5 per-phone FIFO)
}

func (a *phoneActor) enqueue(ctx context.Context, msg domain.Message, cfg Config, handler Handler, log *zap.Logger) {
	a.mu.Lock()
	if len(a.pending) >= cfg.PerPhoneCap {
		dropped := a.pending[0]
		a.pending = a.pending[1:]
		log.Warn("buffer per-phone cap exceeded, dropping oldest",
			telemetry.PhoneField(msg.Phone), zap.String("dropped_message_id", dropped.ID))
	}
	a.pending = append(a.pending, msg)
	a.lastArrival = time.Now()
	startDrain := !a.drainPending
	if startDrain {
		a.drainPending = true
	}
	a.mu.Unlock()

	if startDrain {
		go a.drain(ctx, cfg, handler, log)
	}
}

// drain waits out the quiescence window and, once no new arrival has
// extended it, swaps pending atomically and runs the handler — serialized
// per phone via turnMu, per §4.B/§5. Holds no mutex while sleeping.
func (a *phoneActor) drain(ctx context.Context, cfg Config, handler Handler, log *zap.Logger) {
	for {
		a.mu.Lock()
		elapsed := time.Since(a.lastArrival)
		a.mu.Unlock()

		remaining := cfg.Window - elapsed
		if remaining > 0 {
			time.Sleep(remaining)
			continue
		}

		a.mu.Lock()
		if time.Since(a.lastArrival) < cfg.Window {
			a.mu.Unlock()
			continue
		}
		batch := a.pending
		a.pending = nil
		a.drainPending = false
		a.mu.Unlock()

		if len(batch) == 0 {
			return
		}

		a.turnMu.Lock()
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic in buffer handler", telemetry.PhoneField(batch[0].Phone), zap.Any("recovered", r))
				}
			}()
			handler(ctx, batch[0].Phone, batch)
		}()
		a.turnMu.Unlock()
		return
	}
}
