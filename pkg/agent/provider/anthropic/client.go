// Package anthropic provides an Anthropic Claude capability adapter.
package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"agora/pkg/agent"
	"agora/pkg/agent/agenterrors"
	"agora/pkg/budget"
	"agora/pkg/event"
)

const providerName = "anthropic"

// Client wraps the Anthropic API client to implement agent.Capability.
type Client struct {
	client    sdk.Client
	model     sdk.Model
	maxTokens int64
}

// New creates a Claude capability (raw client, middleware applied at a
// higher level).
func New(apiKey, model string) *Client {
	return &Client{
		client:    sdk.NewClient(option.WithAPIKey(apiKey)),
		model:     sdk.Model(model),
		maxTokens: 4096,
	}
}

// Model returns the model name this client targets.
func (c *Client) Model() string {
	return string(c.model)
}

// Start implements agent.Capability.
func (c *Client) Start(ctx context.Context, req agent.Request) agent.Handle {
	return agent.Go(ctx, func(ctx context.Context, push agent.Push) (agent.Response, error) {
		systemPrompt, merged, err := prepareMessages(req.Messages)
		if err != nil {
			return agent.Response{}, agenterrors.NewErrorWithCause(agenterrors.ErrorTypeBadPrompt, err, "message preparation failed")
		}

		params := sdk.MessageNewParams{
			Model:     c.model,
			Messages:  merged,
			MaxTokens: c.maxTokens,
		}
		if systemPrompt != "" {
			params.System = []sdk.TextBlockParam{{
				Text: systemPrompt,
				Type: "text",
			}}
		}

		resp, err := c.client.Messages.New(ctx, params)
		if err != nil {
			return agent.Response{}, agenterrors.Classify(providerName, err)
		}
		if resp == nil || len(resp.Content) == 0 {
			return agent.Response{}, agenterrors.NewError(agenterrors.ErrorTypeEmptyResponse, "received empty or nil response from Claude API")
		}

		var text strings.Builder
		for i := range resp.Content {
			block := &resp.Content[i]
			if block.Type == "text" {
				text.WriteString(block.AsText().Text)
			}
		}

		content := text.String()
		push(event.Chunk{Content: content, Time: time.Now()})

		return agent.Response{
			Message: agent.NewAssistantMessage(content),
			Usage: &budget.Usage{
				InputTokens:  resp.Usage.InputTokens,
				OutputTokens: resp.Usage.OutputTokens,
				TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
			},
		}, nil
	})
}

// prepareMessages extracts system messages into the top-level system
// parameter and merges consecutive non-assistant messages so the sequence
// satisfies Anthropic's strict user/assistant alternation.
func prepareMessages(messages []agent.Message) (string, []sdk.MessageParam, error) {
	if len(messages) == 0 {
		return "", nil, fmt.Errorf("message list cannot be empty")
	}

	var systemParts []string
	var rest []agent.Message
	for _, msg := range messages {
		if msg.Role == agent.RoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			rest = append(rest, msg)
		}
	}
	if len(rest) == 0 {
		return "", nil, fmt.Errorf("must have at least one non-system message")
	}

	var merged []sdk.MessageParam
	var userParts []string
	flushUser := func() {
		if len(userParts) > 0 {
			merged = append(merged, sdk.NewUserMessage(sdk.NewTextBlock(strings.Join(userParts, "\n\n"))))
			userParts = nil
		}
	}

	for _, msg := range rest {
		if msg.Role == agent.RoleAssistant {
			flushUser()
			merged = append(merged, sdk.NewAssistantMessage(sdk.NewTextBlock(msg.Content)))
		} else {
			userParts = append(userParts, msg.Content)
		}
	}
	flushUser()

	last := merged[len(merged)-1]
	if last.Role != sdk.MessageParamRoleUser {
		return "", nil, fmt.Errorf("last message must be user role")
	}

	return strings.Join(systemParts, "\n\n"), merged, nil
}
