package pattern

import (
	"fmt"
	"strings"
	"time"

	"agora/pkg/agent"
	"agora/pkg/event"
	"agora/pkg/logx"
	"agora/pkg/run"
)

// AggregationStrategy selects how Ensemble reduces successful responses to
// one answer. Chosen once per pattern instance, never mixed.
type AggregationStrategy string

const (
	AggregateFirst    AggregationStrategy = "first"
	AggregateLongest  AggregationStrategy = "longest"
	AggregateShortest AggregationStrategy = "shortest"
	AggregateConcat   AggregationStrategy = "concat"
	AggregateCustom   AggregationStrategy = "custom"
)

// Ensemble fans out like Parallel, then aggregates the successful
// responses. Failed and empty responses are filtered before aggregation;
// if every agent fails the pattern rejects with AllAgentsFailedError.
type Ensemble struct {
	Agents   []agent.Config
	Strategy AggregationStrategy

	// Reducer is required for AggregateCustom and ignored otherwise. It
	// receives only the successful outcomes.
	Reducer func([]AgentOutcome) (string, error)

	logger *logx.Logger
}

// NewEnsemble creates an ensemble with the given aggregation strategy.
func NewEnsemble(agents []agent.Config, strategy AggregationStrategy) *Ensemble {
	return &Ensemble{
		Agents:   agents,
		Strategy: strategy,
		logger:   logx.NewLogger("pattern.ensemble"),
	}
}

// Run executes the fan-out and aggregation.
func (p *Ensemble) Run(rc *run.Context, task string) *event.Stream[EnsembleResult] {
	stream := event.NewStream[EnsembleResult]()
	go func() {
		result, err := p.execute(rc, task, stream.Push)
		if err == nil {
			stream.Push(event.Done{Trace: rc.Trace, Time: time.Now()})
		}
		stream.Finish(result, err)
	}()
	return stream
}

func (p *Ensemble) execute(rc *run.Context, task string, push func(event.Event)) (EnsembleResult, error) {
	if err := preflight(rc); err != nil {
		return EnsembleResult{}, err
	}

	outcomes := fanOut(rc, p.Agents, task, push)

	var usable []AgentOutcome
	var failures []string
	for _, o := range outcomes {
		if o.Success && o.Content != "" {
			usable = append(usable, o)
		} else if o.Err != "" {
			failures = append(failures, fmt.Sprintf("%s: %s", o.AgentName, o.Err))
		} else {
			failures = append(failures, fmt.Sprintf("%s: empty response", o.AgentName))
		}
	}
	if len(usable) == 0 {
		return EnsembleResult{}, &AllAgentsFailedError{Errors: failures}
	}

	answer, err := p.aggregate(usable)
	if err != nil {
		return EnsembleResult{}, err
	}
	return EnsembleResult{FinalAnswer: answer, Responses: outcomes}, nil
}

func (p *Ensemble) aggregate(usable []AgentOutcome) (string, error) {
	switch p.Strategy {
	case AggregateFirst, "":
		return usable[0].Content, nil
	case AggregateLongest:
		best := usable[0]
		for _, o := range usable[1:] {
			if len(o.Content) > len(best.Content) {
				best = o
			}
		}
		return best.Content, nil
	case AggregateShortest:
		best := usable[0]
		for _, o := range usable[1:] {
			if len(o.Content) < len(best.Content) {
				best = o
			}
		}
		return best.Content, nil
	case AggregateConcat:
		var b strings.Builder
		for i, o := range usable {
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "[Agent %d]\n%s", i+1, o.Content)
		}
		return b.String(), nil
	case AggregateCustom:
		if p.Reducer == nil {
			return "", fmt.Errorf("ensemble: custom strategy requires a reducer")
		}
		return p.Reducer(usable)
	default:
		return "", fmt.Errorf("ensemble: unknown aggregation strategy %q", p.Strategy)
	}
}
