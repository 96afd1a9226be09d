// Package debate implements the multi-round debate protocol: participants
// state initial positions, optionally rebut each other and revise, and an
// orchestrator synthesizes a consensus. The phase machine traverses
// strictly in order with no backtracking:
//
//	initial → [rebuttal → revised] → consensus
//
// weak mode skips the bracketed phases; consensus is skipped when no
// orchestrator is configured.
package debate

import (
	"fmt"
	"sync"
	"time"

	"agora/pkg/agent"
	"agora/pkg/event"
	"agora/pkg/logx"
	"agora/pkg/pattern"
	"agora/pkg/run"
	"agora/pkg/skills"
	"agora/pkg/trace"
)

// Mode selects the debate depth.
type Mode string

const (
	// ModeWeak runs initial positions straight to consensus.
	ModeWeak Mode = "weak"
	// ModeStrong adds rebuttal and revision phases between them.
	ModeStrong Mode = "strong"
)

// Phase is one stage of the debate state machine.
type Phase string

const (
	PhaseInitial   Phase = "initial"
	PhaseRebuttal  Phase = "rebuttal"
	PhaseRevised   Phase = "revised"
	PhaseConsensus Phase = "consensus"
)

// Round is one participant's recorded contribution. Rounds are appended in
// strict phase order and never mutated.
type Round struct {
	Phase   Phase     `json:"phase"`
	Speaker string    `json:"speaker"`
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
}

// PositionChange records a detected reversal between a participant's
// initial and revised rounds.
type PositionChange struct {
	Participant string `json:"participant"`
	From        string `json:"from"`
	To          string `json:"to"`
	Reason      string `json:"reason"`
	Phase       Phase  `json:"phase"`
}

// Metadata summarizes one debate run.
type Metadata struct {
	StartTime        time.Time     `json:"start_time"`
	EndTime          time.Time     `json:"end_time"`
	TotalDuration    time.Duration `json:"total_duration"`
	ParticipantCount int           `json:"participant_count"`
}

// Result is the immutable output of one debate run.
type Result struct {
	Topic                   string           `json:"topic"`
	Mode                    Mode             `json:"mode"`
	Rounds                  []Round          `json:"rounds"`
	Consensus               string           `json:"consensus"`
	PositionChanges         []PositionChange `json:"position_changes"`
	UnresolvedDisagreements []string         `json:"unresolved_disagreements"`
	Metadata                Metadata         `json:"metadata"`
}

// Config describes one debate pattern instance.
type Config struct {
	// Participants argue positions, invoked sequentially in slice order
	// within each phase.
	Participants []agent.Config

	// Orchestrator synthesizes the consensus. Nil skips the consensus
	// phase and leaves Result.Consensus empty.
	Orchestrator *agent.Config

	// Mode defaults to ModeStrong when empty.
	Mode Mode

	// SkillLoader resolves skill names to prompt blocks. Nil disables
	// skills augmentation. Load failures are swallowed; the skill is
	// simply omitted.
	SkillLoader skills.Loader

	// DefaultSkills apply to participants that declare none of their own.
	DefaultSkills []string

	// ToolAugmentation adds a web-verification instruction to rebuttal
	// prompts.
	ToolAugmentation bool
}

// Pattern runs debates. The skill cache is owned by the instance, never
// process-wide, so independent runs cannot observe each other's entries.
// One Pattern may drive concurrent runs; mu guards the cache.
type Pattern struct {
	cfg    Config
	logger *logx.Logger

	mu         sync.Mutex
	skillCache map[string]*skills.Skill
}

// New creates a debate pattern.
func New(cfg Config) *Pattern {
	if cfg.Mode == "" {
		cfg.Mode = ModeStrong
	}
	return &Pattern{
		cfg:        cfg,
		skillCache: make(map[string]*skills.Skill),
		logger:     logx.NewLogger("debate"),
	}
}

// Run executes the debate. Any participant or orchestrator failure aborts
// the whole run; no partial results are settled.
func (p *Pattern) Run(rc *run.Context, topic string) *event.Stream[Result] {
	stream := event.NewStream[Result]()
	go func() {
		result, err := p.execute(rc, topic, stream.Push)
		if err == nil {
			stream.Push(event.Done{Trace: rc.Trace, Time: time.Now()})
		}
		stream.Finish(result, err)
	}()
	return stream
}

// historyEntry is one line of the running transcript. The transcript is
// the only channel carrying information between phases and participants.
type historyEntry struct {
	Role    string
	Content string
}

// state is the mutable core of one debate run, driven by a single
// goroutine so no locking is needed.
type state struct {
	topic   string
	rounds  []Round
	history []historyEntry
	initial map[string]string // participant name -> initial content
	revised map[string]string // participant name -> revised content
}

func (p *Pattern) execute(rc *run.Context, topic string, push func(event.Event)) (Result, error) {
	if len(p.cfg.Participants) == 0 {
		return Result{}, fmt.Errorf("debate: no participants configured")
	}

	startTime := time.Now()
	st := &state{
		topic:   topic,
		initial: make(map[string]string),
		revised: make(map[string]string),
	}

	p.logger.Info("starting %s debate with %d participants: %q", p.cfg.Mode, len(p.cfg.Participants), topic)

	if err := p.runPhase(rc, st, PhaseInitial, push); err != nil {
		return Result{}, err
	}
	if p.cfg.Mode == ModeStrong {
		if err := p.runPhase(rc, st, PhaseRebuttal, push); err != nil {
			return Result{}, err
		}
		if err := p.runPhase(rc, st, PhaseRevised, push); err != nil {
			return Result{}, err
		}
	}

	changes := p.detectPositionChanges(rc, st, push)

	consensus := ""
	var disagreements []string
	if p.cfg.Orchestrator != nil {
		var err error
		consensus, err = p.runConsensus(rc, st, push)
		if err != nil {
			return Result{}, err
		}
		disagreements = ExtractUnresolvedDisagreements(consensus)
	}

	endTime := time.Now()
	return Result{
		Topic:                   topic,
		Mode:                    p.cfg.Mode,
		Rounds:                  st.rounds,
		Consensus:               consensus,
		PositionChanges:         changes,
		UnresolvedDisagreements: disagreements,
		Metadata: Metadata{
			StartTime:        startTime,
			EndTime:          endTime,
			TotalDuration:    endTime.Sub(startTime),
			ParticipantCount: len(p.cfg.Participants),
		},
	}, nil
}

// runPhase drives one participant phase: participants are invoked strictly
// sequentially in configuration order, each round appended to rounds and
// the transcript before the next participant starts.
func (p *Pattern) runPhase(rc *run.Context, st *state, phase Phase, push func(event.Event)) error {
	phaseTrace := rc.ChildTrace(string(phase))
	push(event.DebatePhaseStart{Phase: string(phase), Trace: phaseTrace, Time: time.Now()})
	defer func() {
		push(event.DebatePhaseEnd{Phase: string(phase), Trace: phaseTrace, Time: time.Now()})
	}()

	for _, participant := range p.cfg.Participants {
		if err := rc.CheckBudget(); err != nil {
			return err
		}
		if err := rc.Err(); err != nil {
			return err
		}

		prompt := p.phasePrompt(st, phase, participant)
		prompt = p.augmentWithSkills(prompt, participant)

		var callTrace *trace.Context
		if phaseTrace != nil {
			callTrace = phaseTrace.Child(participant.Name)
		}

		push(event.DebateRoundStart{Phase: string(phase), Speaker: participant.Name, Trace: callTrace, Time: time.Now()})
		inv, err := pattern.Invoke(rc, participant, prompt, callTrace, push)
		if err != nil {
			return fmt.Errorf("debate %s phase, participant %s: %w", phase, participant.Name, err)
		}
		push(event.DebateRoundEnd{Phase: string(phase), Speaker: participant.Name, Trace: callTrace, Time: time.Now()})

		content := inv.Response.Message.Content
		st.rounds = append(st.rounds, Round{
			Phase:   phase,
			Speaker: participant.Name,
			Content: content,
			Time:    time.Now(),
		})
		st.history = append(st.history, historyEntry{
			Role:    historyRole(participant.Name, phase),
			Content: content,
		})

		switch phase {
		case PhaseInitial:
			st.initial[participant.Name] = content
		case PhaseRevised:
			st.revised[participant.Name] = content
		}
	}
	return nil
}

// historyRole disambiguates one participant's multiple transcript entries.
func historyRole(name string, phase Phase) string {
	switch phase {
	case PhaseRebuttal:
		return name + "(rebuttal)"
	case PhaseRevised:
		return name + "(final)"
	default:
		return name
	}
}

func (p *Pattern) runConsensus(rc *run.Context, st *state, push func(event.Event)) (string, error) {
	if err := rc.CheckBudget(); err != nil {
		return "", err
	}
	if err := rc.Err(); err != nil {
		return "", err
	}

	phaseTrace := rc.ChildTrace(string(PhaseConsensus))
	push(event.DebatePhaseStart{Phase: string(PhaseConsensus), Trace: phaseTrace, Time: time.Now()})
	defer func() {
		push(event.DebatePhaseEnd{Phase: string(PhaseConsensus), Trace: phaseTrace, Time: time.Now()})
	}()

	orch := *p.cfg.Orchestrator
	var callTrace *trace.Context
	if phaseTrace != nil {
		callTrace = phaseTrace.Child(orch.Name)
	}

	push(event.DebateRoundStart{Phase: string(PhaseConsensus), Speaker: orch.Name, Trace: callTrace, Time: time.Now()})
	inv, err := pattern.Invoke(rc, orch, consensusPrompt(st), callTrace, push)
	if err != nil {
		return "", fmt.Errorf("debate consensus, orchestrator %s: %w", orch.Name, err)
	}
	push(event.DebateRoundEnd{Phase: string(PhaseConsensus), Speaker: orch.Name, Trace: callTrace, Time: time.Now()})

	content := inv.Response.Message.Content
	st.rounds = append(st.rounds, Round{
		Phase:   PhaseConsensus,
		Speaker: orch.Name,
		Content: content,
		Time:    time.Now(),
	})
	return content, nil
}

// detectPositionChanges compares each participant's initial and revised
// content via the phrase lexicon and emits a position_change event per
// match. Weak mode records no revised rounds, so it never fires.
func (p *Pattern) detectPositionChanges(rc *run.Context, st *state, push func(event.Event)) []PositionChange {
	var changes []PositionChange
	for _, participant := range p.cfg.Participants {
		initial, okInitial := st.initial[participant.Name]
		revised, okRevised := st.revised[participant.Name]
		if !okInitial || !okRevised {
			continue
		}
		if !ContainsPositionChangePhrase(revised) {
			continue
		}

		change := PositionChange{
			Participant: participant.Name,
			From:        initial,
			To:          revised,
			Reason:      "Revised after rebuttal phase",
			Phase:       PhaseRevised,
		}
		changes = append(changes, change)
		push(event.PositionChange{
			Participant: change.Participant,
			From:        change.From,
			To:          change.To,
			Reason:      change.Reason,
			Phase:       string(change.Phase),
			Trace:       rc.Trace,
			Time:        time.Now(),
		})
		p.logger.Debug("position change detected for %s", participant.Name)
	}
	return changes
}

// resolveSkillNames applies the participant-over-default precedence.
func (p *Pattern) resolveSkillNames(participant agent.Config) []string {
	if len(participant.Skills) > 0 {
		return participant.Skills
	}
	return p.cfg.DefaultSkills
}

// augmentWithSkills appends the skills block to a phase prompt. Skills are
// cached by name for the instance's lifetime; load failures drop the skill
// from the prompt and nothing else.
func (p *Pattern) augmentWithSkills(prompt string, participant agent.Config) string {
	if p.cfg.SkillLoader == nil {
		return prompt
	}
	names := p.resolveSkillNames(participant)
	if len(names) == 0 {
		return prompt
	}

	var loaded []*skills.Skill
	for _, name := range names {
		if s := p.lookupSkill(name); s != nil {
			loaded = append(loaded, s)
		}
	}

	block := skills.PromptBlock(loaded)
	if block == "" {
		return prompt
	}
	return prompt + "\n\n" + block
}

// lookupSkill loads a skill through the cache. A failed load is cached as
// nil so the loader is consulted once per name even across concurrent runs.
func (p *Pattern) lookupSkill(name string) *skills.Skill {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.skillCache[name]; ok {
		return s
	}
	s, err := p.cfg.SkillLoader.Load(name)
	if err != nil {
		p.logger.Debug("skill %q failed to load, omitting: %v", name, err)
		p.skillCache[name] = nil
		return nil
	}
	p.skillCache[name] = s
	return s
}
