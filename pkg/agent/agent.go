// Package agent defines the capability contract that interaction patterns
// call into, and the configuration describing one participant.
//
// A Capability is anything that can take a message list and produce a
// response: a provider SDK adapter, a middleware-wrapped chain, or a test
// fake. Patterns depend only on this contract; retry, budget enforcement,
// and metrics live in middleware around it.
package agent

import (
	"context"

	"agora/pkg/budget"
	"agora/pkg/event"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is one call into a capability.
type Request struct {
	Messages []Message `json:"messages"`
}

// Response is the final output of one capability call. Usage is nil when
// the provider did not report it.
type Response struct {
	Message Message       `json:"message"`
	Usage   *budget.Usage `json:"usage,omitempty"`
}

// Handle is the in-flight view of one capability call. Events yields the
// call's pass-through events (stream chunks, usage reports) and closes
// when the call completes; Wait settles exactly once with the final
// response or error, consistent with what Events implied.
//
// Implementations must honor cancellation promptly: a cancelled context
// makes Wait return, it never hangs.
type Handle interface {
	Events() <-chan event.Event
	Wait(ctx context.Context) (Response, error)
}

// Capability starts one model invocation. Errors surface through the
// returned handle's Wait, so callers always get a handle to drain.
type Capability interface {
	Start(ctx context.Context, req Request) Handle
}

// Config describes one configured participant. Immutable during a run.
type Config struct {
	ID           string
	Name         string
	Capability   Capability
	SystemPrompt string
	Skills       []string
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
