// Package agent implements the tool-calling orchestrator (§4.D): given a
// context bundle, run the model in a bounded loop, invoking tools per
// policy, until a user-visible reply is produced or max_tool_hops is
// exhausted. The loop shape mirrors goa-ai's runtime/agent/runtime
// workflowLoop: call model, execute requested tools, feed results back,
// repeat — generalized from that package's Temporal-workflow machinery to
// a plain in-process loop, since this domain runs one turn per buffered
// message batch rather than a long-lived durable workflow.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/agent/llmclient"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/agent/policy"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/agent/toolcatalog"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/convcontext"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/telemetry"
)

// Input is one turn's request to the orchestrator (§4.D "prepare input").
type Input struct {
	Context   convcontext.Bundle
	Phone     string
	Message   string
	MediaRefs []convcontext.MediaRef
	Timestamp time.Time
}

// Result is one turn's outcome.
type Result struct {
	ReplyText string
	Failed    bool
	FailCause string
	ToolHops  int
}

// Orchestrator runs the bounded tool-calling loop.
type Orchestrator struct {
	model       llmclient.Client
	catalog     *toolcatalog.Catalog
	retryer     *policy.Retryer
	sendGate    *policy.SendGate
	maxToolHops int
	turnBudget  time.Duration
	systemPrompt string
	log         *zap.Logger
}

type Config struct {
	MaxToolHops  int
	TurnBudget   time.Duration // §5 "~25s" overall turn budget
	SystemPrompt string
}

func New(model llmclient.Client, catalog *toolcatalog.Catalog, retryer *policy.Retryer, sendGate *policy.SendGate, cfg Config, log *zap.Logger) *Orchestrator {
	if cfg.MaxToolHops <= 0 {
		cfg.MaxToolHops = 8
	}
	if cfg.TurnBudget <= 0 {
		cfg.TurnBudget = 25 * time.Second
	}
	return &Orchestrator{
		model:        model,
		catalog:      catalog,
		retryer:      retryer,
		sendGate:     sendGate,
		maxToolHops:  cfg.MaxToolHops,
		turnBudget:   cfg.TurnBudget,
		systemPrompt: cfg.SystemPrompt,
		log:          log,
	}
}

const fallbackReply = "Desculpe, tive um problema para processar sua mensagem agora. Pode repetir em instantes?"

// Run implements §4.D's Loop.
func (o *Orchestrator) Run(ctx context.Context, in Input) Result {
	ctx, span := telemetry.Tracer().Start(ctx, "agent.turn")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, o.turnBudget)
	defer cancel()

	messages := []llmclient.Message{{Role: llmclient.RoleUser, Text: in.Message}}
	declarations := o.catalog.Declarations()
	tools := make([]llmclient.ToolDeclaration, len(declarations))
	for i, d := range declarations {
		tools[i] = llmclient.ToolDeclaration{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema}
	}

	for hop := 0; hop < o.maxToolHops; hop++ {
		resp, err := o.model.Generate(ctx, llmclient.Request{
			SystemPrompt: o.systemPrompt,
			Messages:     messages,
			Tools:        tools,
			Reasoning:    in.Context.ShouldUseReasoning,
		})
		if err != nil {
			o.log.Warn("model generate failed", zap.Error(err), telemetry.PhoneField(in.Phone))
			return Result{ReplyText: fallbackReply, Failed: true, FailCause: err.Error(), ToolHops: hop}
		}

		if len(resp.ToolCalls) == 0 {
			return Result{ReplyText: o.extractReply(resp.Text), ToolHops: hop}
		}

		messages = append(messages, llmclient.Message{Role: llmclient.RoleAssistant, Text: resp.Text})

		results := o.invokeAll(ctx, in.Phone, resp.ToolCalls)
		for _, r := range results {
			messages = append(messages, llmclient.Message{Role: llmclient.RoleTool, ToolCallID: r.callID, Text: r.encoded})
		}

		if resp.Text != "" {
			return Result{ReplyText: o.extractReply(resp.Text), ToolHops: hop + 1}
		}
	}

	o.log.Warn("turn exceeded max tool hops", telemetry.PhoneField(in.Phone), zap.Int("max_tool_hops", o.maxToolHops))
	return Result{ReplyText: fallbackReply, Failed: true, FailCause: "max_tool_hops exceeded", ToolHops: o.maxToolHops}
}

type toolResult struct {
	callID  string
	encoded string
}

// invokeAll runs all of the calls concurrently when every one of them is a
// SafeRetry tool, and all of them sequentially otherwise (§4.D Parallelism:
// "iff all are declared safe").
func (o *Orchestrator) invokeAll(ctx context.Context, phone string, calls []llmclient.ToolCall) []toolResult {
	allSafe := true
	for _, call := range calls {
		spec, ok := o.catalog.Get(call.Name)
		if !ok || spec.Idempotency != toolcatalog.SafeRetry {
			allSafe = false
			break
		}
	}

	results := make([]toolResult, len(calls))
	if allSafe {
		var wg sync.WaitGroup
		for i, call := range calls {
			wg.Add(1)
			go func(i int, call llmclient.ToolCall) {
				defer wg.Done()
				results[i] = o.invokeOne(ctx, phone, call)
			}(i, call)
		}
		wg.Wait()
		return results
	}

	for i, call := range calls {
		results[i] = o.invokeOne(ctx, phone, call)
	}
	return results
}

func (o *Orchestrator) invokeOne(ctx context.Context, phone string, call llmclient.ToolCall) toolResult {
	ctx, span := telemetry.Tracer().Start(ctx, "agent.tool_hop")
	defer span.End()

	spec, ok := o.catalog.Get(call.Name)
	if !ok {
		return toolResult{callID: call.ID, encoded: encodeToolError(fmt.Errorf("unknown tool %q", call.Name))}
	}

	if err := o.catalog.ValidateArgs(call.Name, call.Arguments); err != nil {
		return toolResult{callID: call.ID, encoded: encodeToolError(err)}
	}

	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := o.dispatch(callCtx, phone, spec, call.Arguments)
	if err != nil {
		return toolResult{callID: call.ID, encoded: encodeToolError(err)}
	}
	raw, _ := json.Marshal(result)
	return toolResult{callID: call.ID, encoded: string(raw)}
}

func (o *Orchestrator) dispatch(ctx context.Context, phone string, spec toolcatalog.Spec, args map[string]any) (any, error) {
	switch spec.Idempotency {
	case toolcatalog.SafeRetry:
		return o.retryer.Do(ctx, 3, func(ctx context.Context) (any, error) { return spec.Invoke(ctx, args) })

	case toolcatalog.SideEffectOnce:
		text, _ := args["text"].(string)
		if text != "" {
			allow, err := o.sendGate.Allow(ctx, phone, text)
			if err != nil {
				o.log.Warn("send-dedup cache unavailable, proceeding", zap.Error(err))
			}
			if !allow {
				return map[string]any{"skipped": true, "reason": "duplicate send suppressed"}, nil
			}
		}
		return spec.Invoke(ctx, args)

	default: // UniqueByKey: the tool's own Invoke implements probe-then-upgrade.
		return spec.Invoke(ctx, args)
	}
}

func encodeToolError(err error) string {
	raw, _ := json.Marshal(map[string]any{"error": err.Error(), "kind": string(domain.KindOf(err))})
	return string(raw)
}

// extractReply probes common container shapes before falling back to the
// raw string, per §4.D "Extracting the reply". The llmclient adapters
// already normalize provider responses to plain text, so this is a
// defensive no-op for the common case and only matters if a future
// adapter returns a JSON-encoded container.
func (o *Orchestrator) extractReply(text string) string {
	var container map[string]any
	if err := json.Unmarshal([]byte(text), &container); err == nil {
		for _, key := range []string{"content", "message", "text", "response"} {
			if v, ok := container[key].(string); ok && v != "" {
				return v
			}
		}
	}
	return text
}
