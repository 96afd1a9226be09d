package debate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/pkg/agent"
	"agora/pkg/event"
	"agora/pkg/run"
	"agora/pkg/skills"
	"agora/pkg/trace"
)

// scripted replays canned replies in order, repeating the last one, and
// records every prompt it receives.
type scripted struct {
	mu      sync.Mutex
	replies []string
	idx     int
	err     error
	prompts []string
}

func (s *scripted) Start(ctx context.Context, req agent.Request) agent.Handle {
	s.mu.Lock()
	if len(req.Messages) > 0 {
		s.prompts = append(s.prompts, req.Messages[len(req.Messages)-1].Content)
	}
	reply := ""
	if len(s.replies) > 0 {
		if s.idx >= len(s.replies) {
			s.idx = len(s.replies) - 1
		}
		reply = s.replies[s.idx]
		s.idx++
	}
	s.mu.Unlock()

	if s.err != nil {
		return agent.Done(agent.Response{}, s.err)
	}
	return agent.Done(agent.Response{Message: agent.NewAssistantMessage(reply)}, nil)
}

func participant(name string, cap agent.Capability) agent.Config {
	return agent.Config{ID: name, Name: name, Capability: cap}
}

func newRun(t *testing.T) *run.Context {
	t.Helper()
	rc := run.New(context.Background(), run.WithTrace(trace.New("debate")))
	t.Cleanup(rc.Cancel)
	return rc
}

func phases(rounds []Round) []Phase {
	out := make([]Phase, len(rounds))
	for i, r := range rounds {
		out[i] = r.Phase
	}
	return out
}

func TestWeakModeRoundCount(t *testing.T) {
	alice := &scripted{replies: []string{"position A"}}
	bob := &scripted{replies: []string{"position B"}}
	orch := &scripted{replies: []string{"## Agreements\n- all good"}}

	p := New(Config{
		Participants: []agent.Config{participant("alice", alice), participant("bob", bob)},
		Orchestrator: ptr(participant("orch", orch)),
		Mode:         ModeWeak,
	})

	rc := newRun(t)
	result, err := p.Run(rc, "which database?").Wait(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Rounds, 3) // P + 1
	assert.Equal(t, []Phase{PhaseInitial, PhaseInitial, PhaseConsensus}, phases(result.Rounds))
	assert.Equal(t, ModeWeak, result.Mode)
	assert.Equal(t, 2, result.Metadata.ParticipantCount)
	assert.Empty(t, result.PositionChanges)
}

func TestStrongModeRoundCountAndOrder(t *testing.T) {
	alice := &scripted{replies: []string{"initial a", "rebuttal a", "final a"}}
	bob := &scripted{replies: []string{"initial b", "rebuttal b", "final b"}}
	orch := &scripted{replies: []string{"## Final Recommendation\n- ship it"}}

	p := New(Config{
		Participants: []agent.Config{participant("alice", alice), participant("bob", bob)},
		Orchestrator: ptr(participant("orch", orch)),
		Mode:         ModeStrong,
	})

	rc := newRun(t)
	result, err := p.Run(rc, "topic").Wait(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Rounds, 7) // 3P + 1
	got := phases(result.Rounds)
	lastOf := func(ph Phase) int {
		last := -1
		for i, p := range got {
			if p == ph {
				last = i
			}
		}
		return last
	}
	firstOf := func(ph Phase) int {
		for i, p := range got {
			if p == ph {
				return i
			}
		}
		return -1
	}
	assert.Less(t, lastOf(PhaseInitial), firstOf(PhaseRebuttal))
	assert.Less(t, lastOf(PhaseRebuttal), firstOf(PhaseRevised))
	assert.Less(t, lastOf(PhaseRevised), firstOf(PhaseConsensus))

	// participants keep configuration order within each phase
	assert.Equal(t, "alice", result.Rounds[0].Speaker)
	assert.Equal(t, "bob", result.Rounds[1].Speaker)
}

func TestNoOrchestratorSkipsConsensus(t *testing.T) {
	alice := &scripted{replies: []string{"only position"}}
	p := New(Config{
		Participants: []agent.Config{participant("alice", alice)},
		Mode:         ModeWeak,
	})

	rc := newRun(t)
	result, err := p.Run(rc, "topic").Wait(context.Background())
	require.NoError(t, err)

	assert.Len(t, result.Rounds, 1)
	assert.Empty(t, result.Consensus)
	assert.Empty(t, result.UnresolvedDisagreements)
}

func TestPositionChangeDetected(t *testing.T) {
	alice := &scripted{replies: []string{
		"I recommend Option A.",
		"rebuttal content",
		"After reviewing, I have revised my position to Option A with guardrails.",
	}}
	bob := &scripted{replies: []string{
		"I recommend Option B.",
		"rebuttal content",
		"I still recommend Option B without reservation.",
	}}

	p := New(Config{
		Participants: []agent.Config{participant("alice", alice), participant("bob", bob)},
		Mode:         ModeStrong,
	})

	rc := newRun(t)
	stream := p.Run(rc, "option A or B?")

	var changeEvents int
	for ev := range stream.Events() {
		if ev.EventType() == event.TypePositionChange {
			changeEvents++
		}
	}
	result, err := stream.Wait(context.Background())
	require.NoError(t, err)

	require.Len(t, result.PositionChanges, 1)
	change := result.PositionChanges[0]
	assert.Equal(t, "alice", change.Participant)
	assert.Equal(t, "I recommend Option A.", change.From)
	assert.Equal(t, "Revised after rebuttal phase", change.Reason)
	assert.Equal(t, PhaseRevised, change.Phase)
	assert.Equal(t, 1, changeEvents)
}

func TestRebuttalExcludesSelf(t *testing.T) {
	alice := &scripted{replies: []string{"alice position", "alice rebuttal", "alice final"}}
	bob := &scripted{replies: []string{"bob position", "bob rebuttal", "bob final"}}

	p := New(Config{
		Participants: []agent.Config{participant("alice", alice), participant("bob", bob)},
		Mode:         ModeStrong,
	})

	rc := newRun(t)
	_, err := p.Run(rc, "topic").Wait(context.Background())
	require.NoError(t, err)

	require.Len(t, alice.prompts, 3)
	rebuttal := alice.prompts[1]
	assert.Contains(t, rebuttal, "bob position")
	assert.NotContains(t, rebuttal, "alice position")

	// revised phase sees the whole transcript with disambiguated roles
	revised := alice.prompts[2]
	assert.Contains(t, revised, "### alice\n")
	assert.Contains(t, revised, "### bob(rebuttal)\n")
	assert.Contains(t, revised, "alice rebuttal")
}

func TestToolAugmentation(t *testing.T) {
	alice := &scripted{replies: []string{"a", "b", "c"}}
	bob := &scripted{replies: []string{"a", "b", "c"}}

	p := New(Config{
		Participants:     []agent.Config{participant("alice", alice), participant("bob", bob)},
		Mode:             ModeStrong,
		ToolAugmentation: true,
	})

	rc := newRun(t)
	_, err := p.Run(rc, "topic").Wait(context.Background())
	require.NoError(t, err)

	assert.Contains(t, alice.prompts[1], "web search")
	assert.NotContains(t, alice.prompts[0], "web search")
}

func TestParticipantFailureAborts(t *testing.T) {
	boom := errors.New("participant down")
	alice := &scripted{replies: []string{"fine"}}
	bob := &scripted{err: boom}
	orch := &scripted{replies: []string{"never reached"}}

	p := New(Config{
		Participants: []agent.Config{participant("alice", alice), participant("bob", bob)},
		Orchestrator: ptr(participant("orch", orch)),
		Mode:         ModeWeak,
	})

	rc := newRun(t)
	_, err := p.Run(rc, "topic").Wait(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, orch.prompts)
}

func TestEventTraceTree(t *testing.T) {
	alice := &scripted{replies: []string{"pos"}}
	p := New(Config{
		Participants: []agent.Config{participant("alice", alice)},
		Mode:         ModeWeak,
	})

	rc := newRun(t)
	stream := p.Run(rc, "topic")

	traceIDs := make(map[string]bool)
	var rootPath []string
	for ev := range stream.Events() {
		tc := ev.TraceContext()
		if tc == nil {
			continue
		}
		traceIDs[tc.TraceID] = true
		if ev.EventType() == event.TypeAgentStart {
			rootPath = tc.Path
		}
	}
	_, err := stream.Wait(context.Background())
	require.NoError(t, err)

	assert.Len(t, traceIDs, 1)
	assert.Equal(t, []string{"debate", "initial", "alice"}, rootPath)
}

// countingLoader fails for "broken" and counts loads per name.
type countingLoader struct {
	mu    sync.Mutex
	loads map[string]int
}

func (l *countingLoader) Load(name string) (*skills.Skill, error) {
	l.mu.Lock()
	l.loads[name]++
	l.mu.Unlock()
	if name == "broken" {
		return nil, fmt.Errorf("cannot read skill")
	}
	return &skills.Skill{Name: name, Instructions: "use " + name}, nil
}

func TestSkillsCachedPerInstanceAndFailuresSwallowed(t *testing.T) {
	alice := &scripted{replies: []string{"a", "b", "c"}}
	loader := &countingLoader{loads: make(map[string]int)}

	p := New(Config{
		Participants:  []agent.Config{participant("alice", alice)},
		Mode:          ModeStrong,
		SkillLoader:   loader,
		DefaultSkills: []string{"review", "broken"},
	})

	rc := newRun(t)
	_, err := p.Run(rc, "topic").Wait(context.Background())
	require.NoError(t, err)

	// loaded once despite three phases; failures cached too
	assert.Equal(t, 1, loader.loads["review"])
	assert.Equal(t, 1, loader.loads["broken"])

	assert.Contains(t, alice.prompts[0], "use review")
	assert.NotContains(t, alice.prompts[0], "broken")
}

func TestConcurrentRunsShareSkillCache(t *testing.T) {
	loader := &countingLoader{loads: make(map[string]int)}
	p := New(Config{
		Participants:  []agent.Config{participant("alice", &scripted{replies: []string{"a"}})},
		Mode:          ModeStrong,
		SkillLoader:   loader,
		DefaultSkills: []string{"review", "broken"},
	})

	const runs = 4
	errs := make(chan error, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rc := run.New(context.Background(), run.WithTrace(trace.New("debate")))
			defer rc.Cancel()
			_, err := p.Run(rc, "topic").Wait(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// every run hit the cache, loader and failures consulted once each
	assert.Equal(t, 1, loader.loads["review"])
	assert.Equal(t, 1, loader.loads["broken"])
}

func TestParticipantSkillOverride(t *testing.T) {
	alice := &scripted{replies: []string{"a"}}
	loader := &countingLoader{loads: make(map[string]int)}

	cfg := participant("alice", alice)
	cfg.Skills = []string{"special"}

	p := New(Config{
		Participants:  []agent.Config{cfg},
		Mode:          ModeWeak,
		SkillLoader:   loader,
		DefaultSkills: []string{"review"},
	})

	rc := newRun(t)
	_, err := p.Run(rc, "topic").Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, loader.loads["special"])
	assert.Zero(t, loader.loads["review"])
}

func TestContainsPositionChangePhrase(t *testing.T) {
	assert.True(t, ContainsPositionChangePhrase("After Reviewing the rebuttals, I changed course."))
	assert.True(t, ContainsPositionChangePhrase("My position has evolved substantially."))
	assert.False(t, ContainsPositionChangePhrase("I stand by my original recommendation."))
	assert.False(t, ContainsPositionChangePhrase(""))
}

func TestExtractUnresolvedDisagreements(t *testing.T) {
	consensus := `## Agreements
- both prefer managed services

## Unresolved Disagreements
- cost model for sustained load
- operational maturity of option B

## Final Recommendation
- pick option A

## Cautions
- revisit in six months`

	got := ExtractUnresolvedDisagreements(consensus)
	want := []string{"cost model for sustained load", "operational maturity of option B"}
	assert.Equal(t, want, got)

	// deterministic across runs
	assert.Equal(t, got, ExtractUnresolvedDisagreements(consensus))
}

func TestExtractUnresolvedDisagreementsAbsentSection(t *testing.T) {
	assert.Empty(t, ExtractUnresolvedDisagreements("## Agreements\n- everything\n\n## Final Recommendation\n- go"))
	assert.Empty(t, ExtractUnresolvedDisagreements(""))
}

func ptr(cfg agent.Config) *agent.Config {
	return &cfg
}
