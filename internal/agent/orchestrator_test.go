package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/agent/llmclient"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/agent/policy"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/agent/toolcatalog"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/convcontext"
	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/dedup"
)

func testRetryer() *policy.Retryer {
	return policy.NewRetryer(policy.Backoff{Base: time.Millisecond, Factor: 2, Jitter: 0, Cap: 5 * time.Millisecond}, 1)
}

func testSendGate(t *testing.T) *policy.SendGate {
	t.Helper()
	cache, err := dedup.NewLRUCache(16)
	require.NoError(t, err)
	return policy.NewSendGate(cache)
}

// scriptedModel replays one response per call, in order.
type scriptedModel struct {
	responses []llmclient.Response
	calls     int
}

func (m *scriptedModel) Generate(context.Context, llmclient.Request) (llmclient.Response, error) {
	if m.calls >= len(m.responses) {
		return llmclient.Response{}, nil
	}
	r := m.responses[m.calls]
	m.calls++
	return r, nil
}

type erroringModel struct{ err error }

func (m *erroringModel) Generate(context.Context, llmclient.Request) (llmclient.Response, error) {
	return llmclient.Response{}, m.err
}

func newOrchestrator(model llmclient.Client, catalog *toolcatalog.Catalog, t *testing.T) *Orchestrator {
	return New(model, catalog, testRetryer(), testSendGate(t), Config{MaxToolHops: 4}, zap.NewNop())
}

func TestRunReturnsReplyWhenModelCallsNoTools(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{responses: []llmclient.Response{{Text: "Oi! Como posso ajudar?"}}}
	o := newOrchestrator(model, toolcatalog.NewCatalog(), t)

	result := o.Run(context.Background(), Input{Context: convcontext.Bundle{}, Phone: "5511988887777", Message: "oi"})
	assert.False(t, result.Failed)
	assert.Equal(t, "Oi! Como posso ajudar?", result.ReplyText)
	assert.Equal(t, 0, result.ToolHops)
}

func TestRunReturnsFallbackOnModelError(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(&erroringModel{err: assert.AnError}, toolcatalog.NewCatalog(), t)

	result := o.Run(context.Background(), Input{Phone: "5511988887777", Message: "oi"})
	assert.True(t, result.Failed)
	assert.Equal(t, fallbackReply, result.ReplyText)
	assert.NotEmpty(t, result.FailCause)
}

func TestRunInvokesToolThenReturnsReplyFromSameHop(t *testing.T) {
	t.Parallel()

	invoked := false
	catalog := toolcatalog.NewCatalog()
	catalog.Register(toolcatalog.Spec{
		Name:        "create_lead",
		Idempotency: toolcatalog.UniqueByKey,
		Invoke: func(context.Context, map[string]any) (any, error) {
			invoked = true
			return map[string]any{"id": "lead-1"}, nil
		},
	})

	model := &scriptedModel{responses: []llmclient.Response{
		{Text: "registrando você", ToolCalls: []llmclient.ToolCall{{ID: "c1", Name: "create_lead", Arguments: map[string]any{}}}},
	}}

	o := newOrchestrator(model, catalog, t)
	result := o.Run(context.Background(), Input{Phone: "5511988887777", Message: "meu nome é Ana"})

	assert.True(t, invoked)
	assert.False(t, result.Failed)
	assert.Equal(t, "registrando você", result.ReplyText)
	assert.Equal(t, 1, result.ToolHops)
}

func TestRunContinuesLoopWhenToolHopHasNoText(t *testing.T) {
	t.Parallel()

	catalog := toolcatalog.NewCatalog()
	catalog.Register(toolcatalog.Spec{
		Name:        "lookup_lead",
		Idempotency: toolcatalog.SafeRetry,
		Invoke: func(context.Context, map[string]any) (any, error) {
			return map[string]any{"found": true}, nil
		},
	})

	model := &scriptedModel{responses: []llmclient.Response{
		{ToolCalls: []llmclient.ToolCall{{ID: "c1", Name: "lookup_lead", Arguments: map[string]any{}}}},
		{Text: "encontrei seu cadastro"},
	}}

	o := newOrchestrator(model, catalog, t)
	result := o.Run(context.Background(), Input{Phone: "5511988887777", Message: "oi de novo"})

	assert.False(t, result.Failed)
	assert.Equal(t, "encontrei seu cadastro", result.ReplyText)
	assert.Equal(t, 1, result.ToolHops)
}

func TestRunFailsAfterMaxToolHopsExceeded(t *testing.T) {
	t.Parallel()

	catalog := toolcatalog.NewCatalog()
	catalog.Register(toolcatalog.Spec{
		Name:        "noop_tool",
		Idempotency: toolcatalog.SafeRetry,
		Invoke:      func(context.Context, map[string]any) (any, error) { return nil, nil },
	})

	// Always asks for the tool again, never yields a final text reply.
	responses := make([]llmclient.Response, 0, 10)
	for i := 0; i < 10; i++ {
		responses = append(responses, llmclient.Response{ToolCalls: []llmclient.ToolCall{{ID: "c", Name: "noop_tool"}}})
	}
	model := &scriptedModel{responses: responses}

	o := newOrchestrator(model, catalog, t)
	result := o.Run(context.Background(), Input{Phone: "5511988887777", Message: "oi"})

	assert.True(t, result.Failed)
	assert.Equal(t, fallbackReply, result.ReplyText)
	assert.Equal(t, "max_tool_hops exceeded", result.FailCause)
}

func TestRunSkipsSecondSendOfIdenticalTextViaSendGate(t *testing.T) {
	t.Parallel()

	sendCount := 0
	catalog := toolcatalog.NewCatalog()
	catalog.Register(toolcatalog.Spec{
		Name:        "send_text",
		Idempotency: toolcatalog.SideEffectOnce,
		Invoke: func(context.Context, map[string]any) (any, error) {
			sendCount++
			return map[string]any{"sent": true}, nil
		},
	})

	sameCallTwice := []llmclient.ToolCall{
		{ID: "c1", Name: "send_text", Arguments: map[string]any{"text": "oi, tudo bem?"}},
		{ID: "c2", Name: "send_text", Arguments: map[string]any{"text": "oi, tudo bem?"}},
	}
	model := &scriptedModel{responses: []llmclient.Response{{Text: "ok", ToolCalls: sameCallTwice}}}

	o := newOrchestrator(model, catalog, t)
	o.Run(context.Background(), Input{Phone: "5511988887777", Message: "oi"})

	assert.Equal(t, 1, sendCount, "the send gate should suppress the duplicate identical send within one turn")
}

func TestRunInvokesNonSafeToolsSequentiallyNotConcurrently(t *testing.T) {
	t.Parallel()

	var order []string
	catalog := toolcatalog.NewCatalog()
	catalog.Register(toolcatalog.Spec{
		Name:        "step_one",
		Idempotency: toolcatalog.UniqueByKey,
		Invoke: func(context.Context, map[string]any) (any, error) {
			order = append(order, "one")
			return nil, nil
		},
	})
	catalog.Register(toolcatalog.Spec{
		Name:        "step_two",
		Idempotency: toolcatalog.UniqueByKey,
		Invoke: func(context.Context, map[string]any) (any, error) {
			order = append(order, "two")
			return nil, nil
		},
	})

	model := &scriptedModel{responses: []llmclient.Response{
		{Text: "feito", ToolCalls: []llmclient.ToolCall{
			{ID: "c1", Name: "step_one"},
			{ID: "c2", Name: "step_two"},
		}},
	}}

	o := newOrchestrator(model, catalog, t)
	o.Run(context.Background(), Input{Phone: "5511988887777", Message: "oi"})

	assert.Equal(t, []string{"one", "two"}, order)
}

func TestExtractReplyUnwrapsJSONContainer(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(&scriptedModel{}, toolcatalog.NewCatalog(), t)
	assert.Equal(t, "olá!", o.extractReply(`{"content":"olá!"}`))
	assert.Equal(t, "texto puro", o.extractReply("texto puro"))
}
