// Package engine defines the durable-execution abstraction behind the
// follow-up scheduler (§4.E), pluggable between an in-process backend (dev,
// tests) and a Temporal-backed one (production), mirroring goa-ai's
// runtime/agent/engine.Engine — narrowed to the one shape this domain's
// single workflow actually needs: start a workflow for one FollowUp row,
// sleep until it is due, run the nudge-compose-and-send activity chain.
// Signals and workflow-to-workflow messaging (present in the teacher's
// fuller Engine) have no caller here and are intentionally left out.
package engine

import (
	"context"
	"time"
)

// WorkflowFunc is the durable entry point for one follow-up hop. It must be
// deterministic under replay: all non-deterministic work (time, I/O, random)
// goes through WorkflowContext or an activity, never called directly.
type WorkflowFunc func(ctx WorkflowContext, input any) (any, error)

// ActivityFunc performs the actual side effect (DB write, gateway send, LLM
// call) a workflow schedules. Activities may do I/O freely.
type ActivityFunc func(ctx context.Context, input any) (any, error)

// WorkflowDefinition binds a workflow handler to a logical name and queue.
type WorkflowDefinition struct {
	Name      string
	TaskQueue string
	Handler   WorkflowFunc
}

// ActivityDefinition binds an activity handler to a logical name.
type ActivityDefinition struct {
	Name    string
	Handler ActivityFunc
}

// WorkflowStartRequest describes one workflow execution to launch.
type WorkflowStartRequest struct {
	// ID must be unique per in-flight execution; the scheduler uses the
	// FollowUp row id, so a row can never have two workflows racing it.
	ID        string
	Workflow  string
	TaskQueue string
	Input     any
}

// ActivityRequest describes one activity invocation from within a workflow.
type ActivityRequest struct {
	Name  string
	Input any
}

// WorkflowHandle lets the caller await a started workflow's result.
type WorkflowHandle interface {
	Wait(ctx context.Context, result any) error
}

// Engine abstracts workflow registration and execution so the scheduler can
// run against an in-memory backend in dev/tests and Temporal in production
// without touching scheduler code.
type Engine interface {
	RegisterWorkflow(ctx context.Context, def WorkflowDefinition) error
	RegisterActivity(ctx context.Context, def ActivityDefinition) error
	StartWorkflow(ctx context.Context, req WorkflowStartRequest) (WorkflowHandle, error)
}

// WorkflowContext exposes engine operations to a running workflow. Temporal's
// implementation wraps workflow.Context; the in-memory implementation wraps
// a plain context.Context plus a real timer.
type WorkflowContext interface {
	Context() context.Context
	WorkflowID() string
	// ExecuteActivity schedules an activity and blocks for its result,
	// decoding it into result (a pointer).
	ExecuteActivity(ctx context.Context, req ActivityRequest, result any) error
	// Sleep suspends the workflow for d in a replay-safe way.
	Sleep(ctx context.Context, d time.Duration) error
	// Now returns the current time through a deterministic, replay-safe
	// source (Temporal's workflow.Now, or time.Now for the in-memory engine).
	Now() time.Time
}
