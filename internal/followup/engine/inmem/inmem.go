// Package inmem implements engine.Engine with plain goroutines and real
// timers. It offers no durability across process restarts — a crash loses
// any workflow sleeping in ExecuteActivity/Sleep — and exists for local
// development and tests, mirroring goa-ai's engine/inmem adapter of the same
// role for its own Engine abstraction.
package inmem

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/followup/engine"
)

type Engine struct {
	mu         sync.Mutex
	workflows  map[string]engine.WorkflowDefinition
	activities map[string]engine.ActivityFunc
}

func New() *Engine {
	return &Engine{
		workflows:  map[string]engine.WorkflowDefinition{},
		activities: map[string]engine.ActivityFunc{},
	}
}

func (e *Engine) RegisterWorkflow(_ context.Context, def engine.WorkflowDefinition) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.workflows[def.Name]; exists {
		return fmt.Errorf("inmem: workflow %q already registered", def.Name)
	}
	e.workflows[def.Name] = def
	return nil
}

func (e *Engine) RegisterActivity(_ context.Context, def engine.ActivityDefinition) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.activities[def.Name]; exists {
		return fmt.Errorf("inmem: activity %q already registered", def.Name)
	}
	e.activities[def.Name] = def.Handler
	return nil
}

func (e *Engine) StartWorkflow(ctx context.Context, req engine.WorkflowStartRequest) (engine.WorkflowHandle, error) {
	e.mu.Lock()
	def, ok := e.workflows[req.Workflow]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("inmem: workflow %q not registered", req.Workflow)
	}

	h := &handle{done: make(chan struct{})}
	wfCtx := &workflowContext{ctx: ctx, id: req.ID, engine: e}

	go func() {
		defer close(h.done)
		h.result, h.err = def.Handler(wfCtx, req.Input)
	}()
	return h, nil
}

type handle struct {
	done   chan struct{}
	result any
	err    error
}

func (h *handle) Wait(ctx context.Context, result any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
	}
	if h.err != nil {
		return h.err
	}
	if result == nil || h.result == nil {
		return nil
	}
	return assign(result, h.result)
}

// assign copies src into the pointer dest points to, when their concrete
// types match. Activities in this domain pass their own result type through
// verbatim (no wire serialization in the in-memory engine), so a type
// assertion suffices in place of the JSON round-trip Temporal requires.
func assign(dest, src any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("inmem: result destination %T is not a non-nil pointer", dest)
	}
	sv := reflect.ValueOf(src)
	if !sv.Type().AssignableTo(dv.Elem().Type()) && sv.Kind() == reflect.Pointer && !sv.IsNil() {
		sv = sv.Elem()
	}
	if !sv.Type().AssignableTo(dv.Elem().Type()) {
		return fmt.Errorf("inmem: cannot assign %T into %T", src, dest)
	}
	dv.Elem().Set(sv)
	return nil
}

type workflowContext struct {
	ctx    context.Context
	id     string
	engine *Engine
}

func (w *workflowContext) Context() context.Context { return w.ctx }
func (w *workflowContext) WorkflowID() string        { return w.id }
func (w *workflowContext) Now() time.Time            { return time.Now() }

func (w *workflowContext) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (w *workflowContext) ExecuteActivity(ctx context.Context, req engine.ActivityRequest, result any) error {
	w.engine.mu.Lock()
	handler, ok := w.engine.activities[req.Name]
	w.engine.mu.Unlock()
	if !ok {
		return fmt.Errorf("inmem: activity %q not registered", req.Name)
	}

	out, err := handler(ctx, req.Input)
	if err != nil {
		return err
	}
	if result == nil || out == nil {
		return nil
	}
	return assign(result, out)
}
