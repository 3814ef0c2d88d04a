package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
)

// AnthropicClient implements Client on top of the Anthropic Messages API,
// the primary model behind the agent orchestrator (§4.D). Grounded on
// goa-ai's features/model/anthropic adapter: same SDK, same
// request/response translation shape, narrowed to this package's simpler
// Message/ToolCall types (no streaming, no thinking-budget knob beyond the
// Reasoning toggle).
type AnthropicClient struct {
	msg          *sdk.MessageService
	model        string
	reasonModel  string
	maxTokens    int64
	thinkBudget  int64
}

// NewAnthropicClient builds a Client from an API key. model is used for
// ordinary turns; reasoningModel (may equal model) is used when
// Request.Reasoning is set (§4.C should_use_reasoning).
func NewAnthropicClient(apiKey, model, reasoningModel string, maxTokens int64) *AnthropicClient {
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{
		msg:         &c.Messages,
		model:       model,
		reasonModel: reasoningModel,
		maxTokens:   maxTokens,
		thinkBudget: 4096,
	}
}

func (c *AnthropicClient) Generate(ctx context.Context, req Request) (Response, error) {
	modelID := c.model
	if req.Reasoning && c.reasonModel != "" {
		modelID = c.reasonModel
	}

	msgs, err := encodeAnthropicMessages(req.Messages)
	if err != nil {
		return Response{}, domain.NewError(domain.ErrInternal, err)
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(modelID),
		MaxTokens: c.maxTokens,
		Messages:  msgs,
	}
	if req.SystemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if len(req.Tools) > 0 {
		toolParams, err := encodeAnthropicTools(req.Tools)
		if err != nil {
			return Response{}, domain.NewError(domain.ErrInternal, err)
		}
		params.Tools = toolParams
	}
	if req.Reasoning {
		params.Thinking = sdk.ThinkingConfigParamOfEnabled(c.thinkBudget)
	}

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return Response{}, classifyAnthropicError(err)
	}
	return translateAnthropicResponse(msg), nil
}

func encodeAnthropicMessages(msgs []Message) ([]sdk.MessageParam, error) {
	out := make([]sdk.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleUser:
			out = append(out, sdk.NewUserMessage(sdk.NewTextBlock(m.Text)))
		case RoleAssistant:
			out = append(out, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Text)))
		case RoleTool:
			out = append(out, sdk.NewUserMessage(sdk.NewToolResultBlock(m.ToolCallID, m.Text, false)))
		case RoleSystem:
			// System messages are carried via params.System, not the transcript.
		default:
			return nil, fmt.Errorf("llmclient: unknown role %q", m.Role)
		}
	}
	return out, nil
}

func encodeAnthropicTools(decls []ToolDeclaration) ([]sdk.ToolUnionParam, error) {
	out := make([]sdk.ToolUnionParam, 0, len(decls))
	for _, d := range decls {
		raw, err := json.Marshal(d.InputSchema)
		if err != nil {
			return nil, err
		}
		var schema sdk.ToolInputSchemaParam
		if err := json.Unmarshal(raw, &schema); err != nil {
			return nil, err
		}
		out = append(out, sdk.ToolUnionParamOfTool(schema, d.Name))
	}
	return out, nil
}

func translateAnthropicResponse(msg *sdk.Message) Response {
	var resp Response
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				resp.Text += block.Text
			}
		case "tool_use":
			var args map[string]any
			_ = json.Unmarshal(block.Input, &args)
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{ID: block.ID, Name: block.Name, Arguments: args})
		}
	}
	return resp
}

func classifyAnthropicError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429:
			return domain.NewError(domain.ErrRateLimited, err)
		case 500, 502, 503, 504:
			return domain.NewError(domain.ErrTransientNetwork, err)
		}
	}
	return domain.NewError(domain.ErrLLMTimeout, err)
}
