package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithy "github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
)

// RuntimeClient is the subset of *bedrockruntime.Client the adapter needs,
// matching the teacher's bedrock adapter so a fake can stand in for tests.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockClient implements Client on top of the AWS Bedrock Converse API.
// It exists as a third backend for deployments that run inside an AWS
// account with no direct network egress to the Anthropic or OpenAI APIs —
// the same model family as AnthropicClient, reached through Bedrock instead.
type BedrockClient struct {
	runtime     RuntimeClient
	model       string
	reasonModel string
	maxTokens   int32
}

// NewBedrockClient builds a Client from an already-configured Bedrock
// runtime client (the caller owns AWS credential resolution). model is the
// Bedrock model ID used for ordinary turns; reasoningModel (may equal
// model) is used when Request.Reasoning is set.
func NewBedrockClient(runtime RuntimeClient, model, reasoningModel string, maxTokens int32) *BedrockClient {
	return &BedrockClient{
		runtime:     runtime,
		model:       model,
		reasonModel: reasoningModel,
		maxTokens:   maxTokens,
	}
}

func (c *BedrockClient) Generate(ctx context.Context, req Request) (Response, error) {
	modelID := c.model
	if req.Reasoning && c.reasonModel != "" {
		modelID = c.reasonModel
	}

	messages, system, err := encodeBedrockMessages(req.Messages)
	if err != nil {
		return Response{}, domain.NewError(domain.ErrInternal, err)
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(modelID),
		Messages: messages,
	}
	if len(system) > 0 {
		input.System = system
	}
	if len(req.Tools) > 0 {
		toolConfig, err := encodeBedrockTools(req.Tools)
		if err != nil {
			return Response{}, domain.NewError(domain.ErrInternal, err)
		}
		input.ToolConfig = toolConfig
	}
	if c.maxTokens > 0 {
		input.InferenceConfig = &brtypes.InferenceConfiguration{MaxTokens: aws.Int32(c.maxTokens)}
	}

	out, err := c.runtime.Converse(ctx, input)
	if err != nil {
		return Response{}, classifyBedrockError(err)
	}
	return translateBedrockResponse(out), nil
}

func encodeBedrockMessages(msgs []Message) ([]brtypes.Message, []brtypes.SystemContentBlock, error) {
	out := make([]brtypes.Message, 0, len(msgs))
	var system []brtypes.SystemContentBlock
	for _, m := range msgs {
		switch m.Role {
		case RoleUser:
			out = append(out, brtypes.Message{
				Role:    brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: m.Text}},
			})
		case RoleAssistant:
			out = append(out, brtypes.Message{
				Role:    brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: m.Text}},
			})
		case RoleTool:
			out = append(out, brtypes.Message{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberToolResult{
					Value: brtypes.ToolResultBlock{
						ToolUseId: aws.String(m.ToolCallID),
						Content:   []brtypes.ToolResultContentBlock{&brtypes.ToolResultContentBlockMemberText{Value: m.Text}},
					},
				}},
			})
		case RoleSystem:
			system = append(system, &brtypes.SystemContentBlockMemberText{Value: m.Text})
		default:
			return nil, nil, fmt.Errorf("llmclient: unknown role %q", m.Role)
		}
	}
	return out, system, nil
}

func encodeBedrockTools(decls []ToolDeclaration) (*brtypes.ToolConfiguration, error) {
	specs := make([]brtypes.Tool, 0, len(decls))
	for _, d := range decls {
		raw, err := json.Marshal(d.InputSchema)
		if err != nil {
			return nil, err
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		specs = append(specs, &brtypes.ToolMemberToolSpec{
			Value: brtypes.ToolSpecification{
				Name:        aws.String(d.Name),
				Description: aws.String(d.Description),
				InputSchema: &brtypes.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(doc)},
			},
		})
	}
	return &brtypes.ToolConfiguration{Tools: specs}, nil
}

func translateBedrockResponse(out *bedrockruntime.ConverseOutput) Response {
	var resp Response
	if out == nil {
		return resp
	}
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return resp
	}
	for _, block := range msg.Value.Content {
		switch v := block.(type) {
		case *brtypes.ContentBlockMemberText:
			resp.Text += v.Value
		case *brtypes.ContentBlockMemberToolUse:
			var args map[string]any
			if raw, err := v.Value.Input.MarshalSmithyDocument(); err == nil {
				_ = json.Unmarshal(raw, &args)
			}
			name := ""
			if v.Value.Name != nil {
				name = *v.Value.Name
			}
			id := ""
			if v.Value.ToolUseId != nil {
				id = *v.Value.ToolUseId
			}
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{ID: id, Name: name, Arguments: args})
		}
	}
	return resp
}

func classifyBedrockError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return domain.NewError(domain.ErrRateLimited, err)
		case "ServiceUnavailableException", "ModelTimeoutException":
			return domain.NewError(domain.ErrTransientNetwork, err)
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch {
		case respErr.HTTPStatusCode() == 429:
			return domain.NewError(domain.ErrRateLimited, err)
		case respErr.HTTPStatusCode() >= 500:
			return domain.NewError(domain.ErrTransientNetwork, err)
		}
	}
	return domain.NewError(domain.ErrLLMTimeout, err)
}
