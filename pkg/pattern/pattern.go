// Package pattern implements the fan-out interaction patterns: Sequential,
// Parallel, Ensemble, and CrossCheck. Each pattern composes the shared
// agent invocation helper with its own control flow and failure policy and
// delivers results through an event stream.
package pattern

import (
	"fmt"
	"strings"
	"time"

	"agora/pkg/agent"
	"agora/pkg/event"
	"agora/pkg/run"
	"agora/pkg/trace"
)

// Invocation is the outcome of one agent call made on behalf of a pattern.
type Invocation struct {
	Response agent.Response
	Duration time.Duration
}

// Invoke wraps one call to an agent capability: it builds the message list
// (optional system prompt, then the user prompt), emits agent_start,
// forwards every capability event re-stamped with the agent id and trace,
// waits for the response, and emits agent_end.
//
// Errors propagate to the caller unchanged. Retry and error translation
// belong to the capability layer, never to patterns.
func Invoke(rc *run.Context, cfg agent.Config, prompt string, tc *trace.Context, push func(event.Event)) (Invocation, error) {
	var messages []agent.Message
	if cfg.SystemPrompt != "" {
		messages = append(messages, agent.NewSystemMessage(cfg.SystemPrompt))
	}
	messages = append(messages, agent.NewUserMessage(prompt))

	start := time.Now()
	push(event.AgentStart{
		AgentID:   cfg.ID,
		AgentName: cfg.Name,
		Trace:     tc,
		Time:      start,
	})

	handle := cfg.Capability.Start(rc.Ctx(), agent.Request{Messages: messages})
	for ev := range handle.Events() {
		push(restamp(ev, cfg.ID, tc))
	}

	resp, err := handle.Wait(rc.Ctx())
	elapsed := time.Since(start)

	push(event.AgentEnd{
		AgentID:    cfg.ID,
		DurationMs: elapsed.Milliseconds(),
		Trace:      tc,
		Time:       time.Now(),
	})

	if err != nil {
		return Invocation{}, err
	}
	return Invocation{Response: resp, Duration: elapsed}, nil
}

// restamp rewrites a pass-through capability event so its agent id and
// trace reflect the invocation it belongs to.
func restamp(ev event.Event, agentID string, tc *trace.Context) event.Event {
	switch e := ev.(type) {
	case event.Chunk:
		e.AgentID = agentID
		e.Trace = tc
		return e
	case event.UsageReport:
		e.AgentID = agentID
		e.Trace = tc
		return e
	default:
		return ev
	}
}

// AgentOutcome records one agent's result within a fan-out stage. Failed
// agents keep their slot with Success false and a non-empty Err.
type AgentOutcome struct {
	AgentID   string        `json:"agent_id"`
	AgentName string        `json:"agent_name"`
	Content   string        `json:"content"`
	Success   bool          `json:"success"`
	Err       string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// StepResult records one step of a Sequential run.
type StepResult struct {
	AgentID   string        `json:"agent_id"`
	AgentName string        `json:"agent_name"`
	Input     string        `json:"input"`
	Response  string        `json:"response"`
	Duration  time.Duration `json:"duration"`
}

// SequentialResult is the output of a Sequential run.
type SequentialResult struct {
	FinalOutput string       `json:"final_output"`
	Steps       []StepResult `json:"steps"`
}

// ParallelResult is the output of a Parallel run: one entry per configured
// agent, in configuration order, regardless of outcome.
type ParallelResult struct {
	Responses []AgentOutcome `json:"responses"`
}

// EnsembleResult is the output of an Ensemble run.
type EnsembleResult struct {
	FinalAnswer string         `json:"final_answer"`
	Responses   []AgentOutcome `json:"responses"`
}

// CrossCheckResult is the output of a CrossCheck run. Agreement is a mean
// pairwise Jaccard similarity over the agents' responses, computed
// independently of the judge.
type CrossCheckResult struct {
	FinalAnswer string         `json:"final_answer"`
	Agreement   float64        `json:"agreement"`
	Responses   []AgentOutcome `json:"responses"`
}

// AllAgentsFailedError reports that a fan-out stage produced zero usable
// responses.
type AllAgentsFailedError struct {
	Errors []string
}

func (e *AllAgentsFailedError) Error() string {
	return fmt.Sprintf("all agents failed: %s", strings.Join(e.Errors, "; "))
}
