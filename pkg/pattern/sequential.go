package pattern

import (
	"fmt"
	"time"

	"agora/pkg/agent"
	"agora/pkg/event"
	"agora/pkg/logx"
	"agora/pkg/run"
	"agora/pkg/trace"
)

// Sequential runs agents one at a time, threading each step's output into
// the next step's prompt. Any step failure aborts the whole chain.
type Sequential struct {
	// Agents are invoked in slice order.
	Agents []agent.Config

	// NoContextPassing makes every step receive the identical original
	// task instead of the previous step's output.
	NoContextPassing bool

	logger *logx.Logger
}

// NewSequential creates a sequential chain with context passing enabled.
func NewSequential(agents []agent.Config) *Sequential {
	return &Sequential{
		Agents: agents,
		logger: logx.NewLogger("pattern.sequential"),
	}
}

// Run executes the chain. The returned stream's events carry per-agent
// progress; Wait settles with the final result or the first step's error.
func (p *Sequential) Run(rc *run.Context, task string) *event.Stream[SequentialResult] {
	stream := event.NewStream[SequentialResult]()
	go func() {
		result, err := p.execute(rc, task, stream.Push)
		if err == nil {
			stream.Push(event.Done{Trace: rc.Trace, Time: time.Now()})
		}
		stream.Finish(result, err)
	}()
	return stream
}

func (p *Sequential) execute(rc *run.Context, task string, push func(event.Event)) (SequentialResult, error) {
	if p.logger == nil {
		p.logger = logx.NewLogger("pattern.sequential")
	}

	var result SequentialResult
	previous := ""

	for i, cfg := range p.Agents {
		if err := rc.CheckBudget(); err != nil {
			return SequentialResult{}, err
		}
		if err := rc.Err(); err != nil {
			return SequentialResult{}, err
		}

		input := task
		if i > 0 && !p.NoContextPassing {
			input = fmt.Sprintf("<previous_output>\n%s\n</previous_output>\n\n%s", previous, task)
		}

		var tc *trace.Context
		if rc.Trace != nil {
			tc = rc.Trace.Child(cfg.Name)
		}

		p.logger.Debug("step %d/%d: invoking %s", i+1, len(p.Agents), cfg.Name)
		inv, err := Invoke(rc, cfg, input, tc, push)
		if err != nil {
			p.logger.Warn("step %d (%s) failed: %v", i+1, cfg.Name, err)
			return SequentialResult{}, fmt.Errorf("sequential step %d (%s): %w", i+1, cfg.Name, err)
		}

		previous = inv.Response.Message.Content
		result.Steps = append(result.Steps, StepResult{
			AgentID:   cfg.ID,
			AgentName: cfg.Name,
			Input:     input,
			Response:  previous,
			Duration:  inv.Duration,
		})
	}

	result.FinalOutput = previous
	return result, nil
}
