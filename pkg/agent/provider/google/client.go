// Package google provides a Google Gemini capability adapter.
package google

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"agora/pkg/agent"
	"agora/pkg/agent/agenterrors"
	"agora/pkg/budget"
	"agora/pkg/event"
)

const providerName = "google"

// Client wraps the Google GenAI client to implement agent.Capability.
type Client struct {
	client    *genai.Client
	apiKey    string
	model     string
	maxTokens int32
}

// New creates a Gemini capability. Client creation requires a context, so
// the underlying genai client is created lazily on first Start.
func New(apiKey, model string) *Client {
	return &Client{
		apiKey:    apiKey,
		model:     model,
		maxTokens: 4096,
	}
}

// Model returns the model name this client targets.
func (g *Client) Model() string {
	return g.model
}

// Start implements agent.Capability.
func (g *Client) Start(ctx context.Context, req agent.Request) agent.Handle {
	return agent.Go(ctx, func(ctx context.Context, push agent.Push) (agent.Response, error) {
		if g.client == nil {
			client, err := genai.NewClient(ctx, &genai.ClientConfig{
				APIKey:  g.apiKey,
				Backend: genai.BackendGeminiAPI,
			})
			if err != nil {
				return agent.Response{}, agenterrors.NewError(agenterrors.ErrorTypeAuth, fmt.Sprintf("failed to create Gemini client: %v", err))
			}
			g.client = client
		}

		contents, systemInstruction, err := convertMessages(req.Messages)
		if err != nil {
			return agent.Response{}, agenterrors.NewError(agenterrors.ErrorTypeBadPrompt, fmt.Sprintf("message conversion error: %v", err))
		}

		config := &genai.GenerateContentConfig{
			MaxOutputTokens: g.maxTokens,
		}
		if systemInstruction != "" {
			config.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: systemInstruction}},
			}
		}

		result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err != nil {
			return agent.Response{}, agenterrors.Classify(providerName, err)
		}
		if result == nil {
			return agent.Response{}, agenterrors.NewError(agenterrors.ErrorTypeEmptyResponse, "empty response from Gemini API")
		}

		content := result.Text()
		if content == "" {
			return agent.Response{}, agenterrors.NewError(agenterrors.ErrorTypeEmptyResponse, "Gemini returned no text content")
		}
		push(event.Chunk{Content: content, Time: time.Now()})

		resp := agent.Response{Message: agent.NewAssistantMessage(content)}
		if result.UsageMetadata != nil {
			resp.Usage = &budget.Usage{
				InputTokens:  int64(result.UsageMetadata.PromptTokenCount),
				OutputTokens: int64(result.UsageMetadata.CandidatesTokenCount),
				TotalTokens:  int64(result.UsageMetadata.TotalTokenCount),
			}
		}
		return resp, nil
	})
}

// convertMessages converts our message format to Gemini's Content format.
// System messages are pulled out into a single system instruction.
func convertMessages(messages []agent.Message) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("message list cannot be empty")
	}

	var systemInstruction string
	var contents []*genai.Content

	for i := range messages {
		msg := &messages[i]

		if msg.Role == agent.RoleSystem {
			if systemInstruction != "" {
				systemInstruction += "\n\n" + msg.Content
			} else {
				systemInstruction = msg.Content
			}
			continue
		}

		var role string
		switch msg.Role {
		case agent.RoleUser:
			role = "user"
		case agent.RoleAssistant:
			role = "model" // Gemini uses "model" instead of "assistant"
		default:
			return nil, "", fmt.Errorf("unsupported message role: %s", msg.Role)
		}

		if msg.Content == "" {
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	return contents, systemInstruction, nil
}
