// Package temporal implements engine.Engine on top of go.temporal.io/sdk,
// grounded on goa-ai's runtime/agent/engine/temporal adapter — narrowed to
// a single task queue and no OTEL interceptor wiring (that belongs to
// internal/telemetry's exporter-less tracer in this repo, not the engine
// adapter) since this domain runs one follow-up workflow type, not an
// arbitrary generated set.
package temporal

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/followup/engine"
)

// Options configures the Temporal-backed engine.
type Options struct {
	Client    client.Client
	TaskQueue string
}

type Engine struct {
	client    client.Client
	taskQueue string
	worker    worker.Worker
	started   bool
}

func New(opts Options) *Engine {
	return &Engine{client: opts.Client, taskQueue: opts.TaskQueue}
}

func (e *Engine) ensureWorker() worker.Worker {
	if e.worker == nil {
		e.worker = worker.New(e.client, e.taskQueue, worker.Options{})
	}
	return e.worker
}

// RegisterWorkflow registers def against the Temporal worker, wrapping
// engine.WorkflowFunc as a plain Temporal workflow function.
func (e *Engine) RegisterWorkflow(_ context.Context, def engine.WorkflowDefinition) error {
	w := e.ensureWorker()
	w.RegisterWorkflowWithOptions(func(ctx workflow.Context, input any) (any, error) {
		return def.Handler(&workflowContext{ctx: ctx}, input)
	}, workflow.RegisterOptions{Name: def.Name})
	return nil
}

// RegisterActivity registers def against the Temporal worker.
func (e *Engine) RegisterActivity(_ context.Context, def engine.ActivityDefinition) error {
	w := e.ensureWorker()
	w.RegisterActivityWithOptions(func(ctx context.Context, input any) (any, error) {
		return def.Handler(ctx, input)
	}, activity.RegisterOptions{Name: def.Name})
	return nil
}

// StartWorker starts the worker pool. Must be called once before any
// follow-up rows are scheduled through this engine.
func (e *Engine) StartWorker() error {
	if e.started {
		return nil
	}
	e.started = true
	return e.ensureWorker().Start()
}

func (e *Engine) StartWorkflow(ctx context.Context, req engine.WorkflowStartRequest) (engine.WorkflowHandle, error) {
	queue := req.TaskQueue
	if queue == "" {
		queue = e.taskQueue
	}
	run, err := e.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        req.ID,
		TaskQueue: queue,
	}, req.Workflow, req.Input)
	if err != nil {
		return nil, fmt.Errorf("temporal: start workflow %q: %w", req.Workflow, err)
	}
	return &handle{run: run}, nil
}

type handle struct {
	run client.WorkflowRun
}

func (h *handle) Wait(ctx context.Context, result any) error {
	return h.run.Get(ctx, result)
}

type workflowContext struct {
	ctx workflow.Context
}

func (w *workflowContext) Context() context.Context { return context.Background() }
func (w *workflowContext) WorkflowID() string        { return workflow.GetInfo(w.ctx).WorkflowExecution.ID }
func (w *workflowContext) Now() time.Time            { return workflow.Now(w.ctx) }

func (w *workflowContext) Sleep(_ context.Context, d time.Duration) error {
	return workflow.Sleep(w.ctx, d)
}

func (w *workflowContext) ExecuteActivity(_ context.Context, req engine.ActivityRequest, result any) error {
	ao := workflow.ActivityOptions{StartToCloseTimeout: 30 * time.Second}
	activityCtx := workflow.WithActivityOptions(w.ctx, ao)
	future := workflow.ExecuteActivity(activityCtx, req.Name, req.Input)
	if result == nil {
		return future.Get(activityCtx, nil)
	}
	return future.Get(activityCtx, result)
}
