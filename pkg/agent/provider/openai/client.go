// Package openai provides an OpenAI capability adapter over the official
// Responses API.
package openai

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"agora/pkg/agent"
	"agora/pkg/agent/agenterrors"
	"agora/pkg/budget"
	"agora/pkg/event"
)

const providerName = "openai"

// Client wraps the official OpenAI client to implement agent.Capability.
type Client struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

// New creates an OpenAI capability (raw client, middleware applied at a
// higher level).
func New(apiKey, model string) *Client {
	return &Client{
		client:    sdk.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: 4096,
	}
}

// Model returns the model name this client targets.
func (c *Client) Model() string {
	return c.model
}

// Start implements agent.Capability.
func (c *Client) Start(ctx context.Context, req agent.Request) agent.Handle {
	return agent.Go(ctx, func(ctx context.Context, push agent.Push) (agent.Response, error) {
		// The Responses API takes a single input string; fold the
		// conversation into one, labeling non-user turns.
		var input string
		for _, msg := range req.Messages {
			switch msg.Role {
			case agent.RoleSystem:
				input += fmt.Sprintf("System: %s\n\n", msg.Content)
			case agent.RoleAssistant:
				input += fmt.Sprintf("Assistant: %s\n\n", msg.Content)
			default:
				input += msg.Content
			}
		}

		params := responses.ResponseNewParams{
			Model:           c.model,
			MaxOutputTokens: sdk.Int(c.maxTokens),
			Input:           responses.ResponseNewParamsInputUnion{OfString: sdk.String(input)},
		}

		resp, err := c.client.Responses.New(ctx, params)
		if err != nil {
			return agent.Response{}, agenterrors.Classify(providerName, err)
		}
		if resp == nil {
			return agent.Response{}, agenterrors.NewError(agenterrors.ErrorTypeEmptyResponse, "empty response from OpenAI Responses API")
		}

		content := resp.OutputText()
		push(event.Chunk{Content: content, Time: time.Now()})

		return agent.Response{
			Message: agent.NewAssistantMessage(content),
			Usage: &budget.Usage{
				InputTokens:  resp.Usage.InputTokens,
				OutputTokens: resp.Usage.OutputTokens,
				TotalTokens:  resp.Usage.TotalTokens,
			},
		}, nil
	})
}
