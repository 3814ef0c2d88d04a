// Package llmclient defines the provider-agnostic chat/tool-call surface
// the orchestrator drives (§4.D), plus anthropic, openai and bedrock
// adapters. The Message/ToolCall shape is modeled on goa-ai's
// runtime/agent/model package (provider-agnostic roles) simplified to the
// subset this domain needs: no streaming and no typed message parts, only
// the text the media pipeline already resolved.
package llmclient

import "context"

// Role is the speaker of one Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of the conversation sent to the model, including
// prior tool outputs fed back as RoleTool messages (§4.D Loop).
type Message struct {
	Role       Role
	Text       string
	ToolCallID string // set on RoleTool messages: which call this result answers
}

// ToolDeclaration describes one callable tool in the catalogue (§4.D): name,
// input schema, and a free-form description. Output schema and idempotency
// class live in toolcatalog.Spec — the model only needs enough to decide
// whether and how to call it.
type ToolDeclaration struct {
	Name        string
	Description string
	InputSchema map[string]any // JSON Schema
}

// ToolCall is one tool invocation the model requested.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Request is one call to Generate.
type Request struct {
	SystemPrompt string
	Messages     []Message
	Tools        []ToolDeclaration
	Reasoning    bool // §4.D reasoning-mode toggle
}

// Response is the model's reply: natural text, zero or more tool calls, or
// both (§4.D Loop allows both in the same turn).
type Response struct {
	Text      string
	ToolCalls []ToolCall
}

// Client is the provider-agnostic surface the orchestrator depends on.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
}
