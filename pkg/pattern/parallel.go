package pattern

import (
	"sync"
	"time"

	"agora/pkg/agent"
	"agora/pkg/event"
	"agora/pkg/logx"
	"agora/pkg/run"
	"agora/pkg/trace"
)

// Parallel fans the same task out to all agents concurrently and waits for
// every one of them. Individual failures are recorded in the result, never
// propagated: the pattern always settles with one outcome per agent.
type Parallel struct {
	Agents []agent.Config

	logger *logx.Logger
}

// NewParallel creates a parallel fan-out over the given agents.
func NewParallel(agents []agent.Config) *Parallel {
	return &Parallel{
		Agents: agents,
		logger: logx.NewLogger("pattern.parallel"),
	}
}

// Run executes the fan-out. Wait never returns an error for individual
// agent failures; inspect each outcome's Success field.
func (p *Parallel) Run(rc *run.Context, task string) *event.Stream[ParallelResult] {
	stream := event.NewStream[ParallelResult]()
	go func() {
		if err := preflight(rc); err != nil {
			stream.Finish(ParallelResult{}, err)
			return
		}
		outcomes := fanOut(rc, p.Agents, task, stream.Push)
		stream.Push(event.Done{Trace: rc.Trace, Time: time.Now()})
		stream.Finish(ParallelResult{Responses: outcomes}, nil)
	}()
	return stream
}

func preflight(rc *run.Context) error {
	if err := rc.CheckBudget(); err != nil {
		return err
	}
	return rc.Err()
}

// fanOut invokes all agents concurrently and collects one outcome per
// agent in configuration order. Event interleaving across agents follows
// completion order and is not guaranteed.
func fanOut(rc *run.Context, agents []agent.Config, prompt string, push func(event.Event)) []AgentOutcome {
	outcomes := make([]AgentOutcome, len(agents))
	var wg sync.WaitGroup

	for i, cfg := range agents {
		wg.Add(1)
		go func(i int, cfg agent.Config) {
			defer wg.Done()

			var tc *trace.Context
			if rc.Trace != nil {
				tc = rc.Trace.Child(cfg.Name)
			}

			outcome := AgentOutcome{AgentID: cfg.ID, AgentName: cfg.Name}
			inv, err := Invoke(rc, cfg, prompt, tc, push)
			if err != nil {
				outcome.Err = err.Error()
			} else {
				outcome.Success = true
				outcome.Content = inv.Response.Message.Content
				outcome.Duration = inv.Duration
			}
			outcomes[i] = outcome
		}(i, cfg)
	}

	wg.Wait()
	return outcomes
}
