// Package event defines the closed set of events emitted by pattern
// executions, and the bridge that delivers them to a consumer.
package event

import (
	"time"

	"agora/pkg/budget"
	"agora/pkg/trace"
)

// Event type tags. The union is closed: consumers can switch exhaustively
// over these values.
const (
	TypeAgentStart       = "agent_start"
	TypeAgentEnd         = "agent_end"
	TypePhaseStart       = "phase_start"
	TypePhaseEnd         = "phase_end"
	TypeDebatePhaseStart = "debate_phase_start"
	TypeDebatePhaseEnd   = "debate_phase_end"
	TypeDebateRoundStart = "debate_round_start"
	TypeDebateRoundEnd   = "debate_round_end"
	TypePositionChange   = "position_change"
	TypeDone             = "done"
	TypeChunk            = "chunk"
	TypeUsage            = "usage"
)

// Event is the sealed interface implemented by every variant in this
// package. The unexported method keeps the union closed.
type Event interface {
	EventType() string
	TraceContext() *trace.Context
	isEvent()
}

// AgentStart marks the beginning of one agent invocation.
type AgentStart struct {
	AgentID   string         `json:"agent_id"`
	AgentName string         `json:"agent_name"`
	Trace     *trace.Context `json:"trace,omitempty"`
	Time      time.Time      `json:"time"`
}

// AgentEnd marks the completion of one agent invocation.
type AgentEnd struct {
	AgentID    string         `json:"agent_id"`
	DurationMs int64          `json:"duration_ms"`
	Trace      *trace.Context `json:"trace,omitempty"`
	Time       time.Time      `json:"time"`
}

// PhaseStart marks the beginning of a named stage within a fan-out pattern,
// e.g. CrossCheck's "fanout" and "judge" stages.
type PhaseStart struct {
	Pattern string         `json:"pattern"`
	Name    string         `json:"name"`
	Trace   *trace.Context `json:"trace,omitempty"`
	Time    time.Time      `json:"time"`
}

// PhaseEnd marks the end of a named stage within a fan-out pattern.
type PhaseEnd struct {
	Pattern string         `json:"pattern"`
	Name    string         `json:"name"`
	Trace   *trace.Context `json:"trace,omitempty"`
	Time    time.Time      `json:"time"`
}

// DebatePhaseStart marks a debate state machine entering a phase.
type DebatePhaseStart struct {
	Phase string         `json:"phase"`
	Trace *trace.Context `json:"trace,omitempty"`
	Time  time.Time      `json:"time"`
}

// DebatePhaseEnd marks a debate state machine leaving a phase.
type DebatePhaseEnd struct {
	Phase string         `json:"phase"`
	Trace *trace.Context `json:"trace,omitempty"`
	Time  time.Time      `json:"time"`
}

// DebateRoundStart marks one participant starting its turn within a phase.
type DebateRoundStart struct {
	Phase   string         `json:"phase"`
	Speaker string         `json:"speaker"`
	Trace   *trace.Context `json:"trace,omitempty"`
	Time    time.Time      `json:"time"`
}

// DebateRoundEnd marks one participant finishing its turn within a phase.
type DebateRoundEnd struct {
	Phase   string         `json:"phase"`
	Speaker string         `json:"speaker"`
	Trace   *trace.Context `json:"trace,omitempty"`
	Time    time.Time      `json:"time"`
}

// PositionChange reports a detected reversal between a participant's
// initial and revised contributions.
type PositionChange struct {
	Participant string         `json:"participant"`
	From        string         `json:"from"`
	To          string         `json:"to"`
	Reason      string         `json:"reason"`
	Phase       string         `json:"phase"`
	Trace       *trace.Context `json:"trace,omitempty"`
	Time        time.Time      `json:"time"`
}

// Done marks the end of a pattern execution's event stream.
type Done struct {
	Trace *trace.Context `json:"trace,omitempty"`
	Time  time.Time      `json:"time"`
}

// Chunk is a pass-through streaming fragment from an agent capability.
type Chunk struct {
	AgentID string         `json:"agent_id"`
	Content string         `json:"content"`
	Trace   *trace.Context `json:"trace,omitempty"`
	Time    time.Time      `json:"time"`
}

// UsageReport is a pass-through usage record from an agent capability.
type UsageReport struct {
	AgentID  string         `json:"agent_id"`
	Provider string         `json:"provider"`
	Model    string         `json:"model"`
	Usage    budget.Usage   `json:"usage"`
	Trace    *trace.Context `json:"trace,omitempty"`
	Time     time.Time      `json:"time"`
}

func (e AgentStart) EventType() string       { return TypeAgentStart }
func (e AgentEnd) EventType() string         { return TypeAgentEnd }
func (e PhaseStart) EventType() string       { return TypePhaseStart }
func (e PhaseEnd) EventType() string         { return TypePhaseEnd }
func (e DebatePhaseStart) EventType() string { return TypeDebatePhaseStart }
func (e DebatePhaseEnd) EventType() string   { return TypeDebatePhaseEnd }
func (e DebateRoundStart) EventType() string { return TypeDebateRoundStart }
func (e DebateRoundEnd) EventType() string   { return TypeDebateRoundEnd }
func (e PositionChange) EventType() string   { return TypePositionChange }
func (e Done) EventType() string             { return TypeDone }
func (e Chunk) EventType() string            { return TypeChunk }
func (e UsageReport) EventType() string      { return TypeUsage }

func (e AgentStart) TraceContext() *trace.Context       { return e.Trace }
func (e AgentEnd) TraceContext() *trace.Context         { return e.Trace }
func (e PhaseStart) TraceContext() *trace.Context       { return e.Trace }
func (e PhaseEnd) TraceContext() *trace.Context         { return e.Trace }
func (e DebatePhaseStart) TraceContext() *trace.Context { return e.Trace }
func (e DebatePhaseEnd) TraceContext() *trace.Context   { return e.Trace }
func (e DebateRoundStart) TraceContext() *trace.Context { return e.Trace }
func (e DebateRoundEnd) TraceContext() *trace.Context   { return e.Trace }
func (e PositionChange) TraceContext() *trace.Context   { return e.Trace }
func (e Done) TraceContext() *trace.Context             { return e.Trace }
func (e Chunk) TraceContext() *trace.Context            { return e.Trace }
func (e UsageReport) TraceContext() *trace.Context      { return e.Trace }

func (e AgentStart) isEvent()       {}
func (e AgentEnd) isEvent()         {}
func (e PhaseStart) isEvent()       {}
func (e PhaseEnd) isEvent()         {}
func (e DebatePhaseStart) isEvent() {}
func (e DebatePhaseEnd) isEvent()   {}
func (e DebateRoundStart) isEvent() {}
func (e DebateRoundEnd) isEvent()   {}
func (e PositionChange) isEvent()   {}
func (e Done) isEvent()             {}
func (e Chunk) isEvent()            {}
func (e UsageReport) isEvent()      {}
