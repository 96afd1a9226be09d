package pattern

import (
	"fmt"
	"html"
	"strings"
	"time"

	"agora/pkg/agent"
	"agora/pkg/event"
	"agora/pkg/logx"
	"agora/pkg/run"
	"agora/pkg/trace"
)

// CrossCheck fans the task out to all agents (wait-all, fail-fast), then
// asks a judge agent to synthesize a final answer from the responses. An
// agreement score is computed independently of the judge.
type CrossCheck struct {
	Agents []agent.Config
	Judge  agent.Config

	logger *logx.Logger
}

// NewCrossCheck creates a cross-check over the given agents and judge.
func NewCrossCheck(agents []agent.Config, judge agent.Config) *CrossCheck {
	return &CrossCheck{
		Agents: agents,
		Judge:  judge,
		logger: logx.NewLogger("pattern.crosscheck"),
	}
}

// Run executes both stages. Any agent or judge failure aborts the run.
func (p *CrossCheck) Run(rc *run.Context, task string) *event.Stream[CrossCheckResult] {
	stream := event.NewStream[CrossCheckResult]()
	go func() {
		result, err := p.execute(rc, task, stream.Push)
		if err == nil {
			stream.Push(event.Done{Trace: rc.Trace, Time: time.Now()})
		}
		stream.Finish(result, err)
	}()
	return stream
}

func (p *CrossCheck) execute(rc *run.Context, task string, push func(event.Event)) (CrossCheckResult, error) {
	if err := preflight(rc); err != nil {
		return CrossCheckResult{}, err
	}

	push(event.PhaseStart{Pattern: "crosscheck", Name: "fanout", Trace: rc.Trace, Time: time.Now()})
	outcomes := fanOut(rc, p.Agents, task, push)
	push(event.PhaseEnd{Pattern: "crosscheck", Name: "fanout", Trace: rc.Trace, Time: time.Now()})

	for _, o := range outcomes {
		if !o.Success {
			return CrossCheckResult{}, fmt.Errorf("crosscheck agent %s: %s", o.AgentName, o.Err)
		}
	}
	if len(outcomes) == 0 {
		return CrossCheckResult{}, &AllAgentsFailedError{Errors: []string{"no agents configured"}}
	}

	if err := preflight(rc); err != nil {
		return CrossCheckResult{}, err
	}

	push(event.PhaseStart{Pattern: "crosscheck", Name: "judge", Trace: rc.Trace, Time: time.Now()})
	var tc *trace.Context
	if rc.Trace != nil {
		tc = rc.Trace.Child(p.Judge.Name)
	}
	inv, err := Invoke(rc, p.Judge, judgePrompt(task, outcomes), tc, push)
	push(event.PhaseEnd{Pattern: "crosscheck", Name: "judge", Trace: rc.Trace, Time: time.Now()})
	if err != nil {
		return CrossCheckResult{}, fmt.Errorf("crosscheck judge %s: %w", p.Judge.Name, err)
	}

	contents := make([]string, len(outcomes))
	for i, o := range outcomes {
		contents[i] = o.Content
	}

	return CrossCheckResult{
		FinalAnswer: inv.Response.Message.Content,
		Agreement:   MeanPairwiseJaccard(contents),
		Responses:   outcomes,
	}, nil
}

// judgePrompt builds the XML-tagged synthesis prompt. Responses are
// HTML-escaped so agent output cannot break the tag structure.
func judgePrompt(task string, outcomes []AgentOutcome) string {
	var b strings.Builder
	b.WriteString("You are a judge evaluating responses from multiple independent agents.\n\n")
	fmt.Fprintf(&b, "<task>\n%s\n</task>\n\n", html.EscapeString(task))
	b.WriteString("<responses>\n")
	for _, o := range outcomes {
		fmt.Fprintf(&b, "<response agent=%q>\n%s\n</response>\n", o.AgentID, html.EscapeString(o.Content))
	}
	b.WriteString("</responses>\n\n")
	b.WriteString("<instructions>\n")
	b.WriteString("Evaluate each response for accuracy, completeness, reasoning, and clarity.\n")
	b.WriteString("Then synthesize a single best answer to the task, drawing on the strongest\n")
	b.WriteString("parts of each response and correcting any errors you identify.\n")
	b.WriteString("</instructions>")
	return b.String()
}

// MeanPairwiseJaccard computes the mean pairwise Jaccard similarity of the
// lower-cased, whitespace-tokenized word sets of the given texts. Returns
// 1.0 when fewer than two texts exist. A cheap syntactic proxy for
// agreement, not a semantic measure.
func MeanPairwiseJaccard(texts []string) float64 {
	if len(texts) < 2 {
		return 1.0
	}

	sets := make([]map[string]struct{}, len(texts))
	for i, t := range texts {
		set := make(map[string]struct{})
		for _, w := range strings.Fields(strings.ToLower(t)) {
			set[w] = struct{}{}
		}
		sets[i] = set
	}

	var sum float64
	var pairs int
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			sum += jaccard(sets[i], sets[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
