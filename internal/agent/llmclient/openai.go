package llmclient

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
)

// OpenAIClient implements Client on top of the OpenAI Chat Completions API.
// Used for the follow-up scheduler's lightweight nudge persona (§4.E step
// 3) — a smaller, cheaper model than the primary Anthropic one, since a
// short re-engagement message needs no tool access or deep reasoning.
type OpenAIClient struct {
	client openai.Client
	model  string
}

func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (Response, error) {
	var msgs []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.SystemMessage(req.SystemPrompt))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleUser:
			msgs = append(msgs, openai.UserMessage(m.Text))
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Text))
		}
	}

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: msgs,
	})
	if err != nil {
		return Response{}, domain.NewError(domain.ErrLLMTimeout, err)
	}
	if len(completion.Choices) == 0 {
		return Response{}, domain.NewError(domain.ErrLLMTimeout, err)
	}
	return Response{Text: completion.Choices[0].Message.Content}, nil
}
