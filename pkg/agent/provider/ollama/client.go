// Package ollama provides a capability adapter for local models served by
// an Ollama runtime.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"agora/pkg/agent"
	"agora/pkg/agent/agenterrors"
	"agora/pkg/budget"
	"agora/pkg/event"
)

// Client wraps the Ollama API client to implement agent.Capability.
type Client struct {
	client    *api.Client
	model     string
	hostURL   string
	maxTokens int
}

// New creates an Ollama capability. hostURL should be the Ollama server URL
// (e.g., "http://localhost:11434").
func New(hostURL, model string) *Client {
	parsedURL, err := url.Parse(hostURL)
	if err != nil {
		parsedURL, _ = url.Parse("http://localhost:11434")
	}

	return &Client{
		client:    api.NewClient(parsedURL, http.DefaultClient),
		model:     model,
		hostURL:   hostURL,
		maxTokens: 4096,
	}
}

// Model returns the model name this client targets.
func (o *Client) Model() string {
	return o.model
}

// Start implements agent.Capability.
func (o *Client) Start(ctx context.Context, req agent.Request) agent.Handle {
	return agent.Go(ctx, func(ctx context.Context, push agent.Push) (agent.Response, error) {
		if len(req.Messages) == 0 {
			return agent.Response{}, agenterrors.NewError(agenterrors.ErrorTypeBadPrompt, "message list cannot be empty")
		}

		messages := make([]api.Message, 0, len(req.Messages))
		for i := range req.Messages {
			msg := &req.Messages[i]
			messages = append(messages, api.Message{
				Role:    string(msg.Role),
				Content: msg.Content,
			})
		}

		stream := false
		chatReq := &api.ChatRequest{
			Model:    o.model,
			Messages: messages,
			Stream:   &stream,
			Options: map[string]any{
				"num_predict": o.maxTokens,
			},
		}

		var response api.ChatResponse
		err := o.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
			response = resp
			return nil
		})
		if err != nil {
			return agent.Response{}, classifyError(err)
		}

		content := response.Message.Content
		if content == "" {
			return agent.Response{}, agenterrors.NewError(agenterrors.ErrorTypeEmptyResponse, "Ollama returned no content")
		}
		push(event.Chunk{Content: content, Time: time.Now()})

		in := int64(response.Metrics.PromptEvalCount)
		out := int64(response.Metrics.EvalCount)
		return agent.Response{
			Message: agent.NewAssistantMessage(content),
			Usage: &budget.Usage{
				InputTokens:  in,
				OutputTokens: out,
				TotalTokens:  in + out,
			},
		}, nil
	})
}

// classifyError converts Ollama transport errors to our error types.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "connection refused"):
		return agenterrors.NewError(agenterrors.ErrorTypeTransient, fmt.Sprintf("Ollama server not reachable: %v", err))
	case strings.Contains(errStr, "model") && strings.Contains(errStr, "not found"):
		return agenterrors.NewError(agenterrors.ErrorTypeBadPrompt, fmt.Sprintf("Ollama model not found: %v", err))
	case strings.Contains(errStr, "timeout"):
		return agenterrors.NewError(agenterrors.ErrorTypeTransient, fmt.Sprintf("request timeout: %v", err))
	default:
		return agenterrors.NewError(agenterrors.ErrorTypeUnknown, fmt.Sprintf("Ollama API error: %v", err))
	}
}
