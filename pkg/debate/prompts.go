package debate

import (
	"fmt"
	"strings"

	"agora/pkg/agent"
)

// phasePrompt builds the participant prompt for one phase. Later phases
// embed the transcript, which is the only cross-participant channel.
func (p *Pattern) phasePrompt(st *state, phase Phase, participant agent.Config) string {
	switch phase {
	case PhaseInitial:
		return initialPrompt(st.topic)
	case PhaseRebuttal:
		return p.rebuttalPrompt(st, participant)
	case PhaseRevised:
		return revisedPrompt(st)
	default:
		return initialPrompt(st.topic)
	}
}

func initialPrompt(topic string) string {
	var b strings.Builder
	b.WriteString("You are participating in a structured debate with other AI agents.\n\n")
	fmt.Fprintf(&b, "Topic: %s\n\n", topic)
	b.WriteString("State your position on the topic, your reasoning, and the main risks\n")
	b.WriteString("or failure modes you see. Be concrete and direct; do not hedge.")
	return b.String()
}

// rebuttalPrompt embeds every other participant's initial position, self
// excluded, and asks for concrete weaknesses.
func (p *Pattern) rebuttalPrompt(st *state, participant agent.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\n", st.topic)
	b.WriteString("The other participants stated these initial positions:\n\n")
	for _, other := range p.cfg.Participants {
		if other.Name == participant.Name {
			continue
		}
		if content, ok := st.initial[other.Name]; ok {
			fmt.Fprintf(&b, "### %s\n%s\n\n", other.Name, content)
		}
	}
	b.WriteString("Identify concrete weaknesses, unstated assumptions, and conditions\n")
	b.WriteString("under which these positions fail. Avoid hedged agreement; if you agree\n")
	b.WriteString("with a point, say so briefly and move on to what is wrong or missing.")
	if p.cfg.ToolAugmentation {
		b.WriteString("\n\nBefore asserting any factual claim you have not verified, verify it\n")
		b.WriteString("using the web search capability available to you.")
	}
	return b.String()
}

// revisedPrompt embeds the entire transcript so far, including the
// participant's own entries.
func revisedPrompt(st *state) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\n", st.topic)
	b.WriteString("Here is the full debate transcript so far:\n\n")
	writeTranscript(&b, st.history)
	b.WriteString("Considering the rebuttals, revise your position or defend it against\n")
	b.WriteString("the criticism raised. Restate your final recommendation explicitly.")
	return b.String()
}

// consensusPrompt asks the orchestrator for the four-section synthesis the
// disagreement extractor expects.
func consensusPrompt(st *state) string {
	var b strings.Builder
	b.WriteString("You are the orchestrator of a debate between AI agents. You did not\n")
	b.WriteString("argue a position; your job is to synthesize theirs.\n\n")
	fmt.Fprintf(&b, "Topic: %s\n\n", st.topic)
	b.WriteString("Full transcript:\n\n")
	writeTranscript(&b, st.history)
	b.WriteString("Produce exactly these four sections, using `- ` bullet lines inside each:\n\n")
	b.WriteString("## Agreements\n")
	b.WriteString("## Unresolved Disagreements\n")
	b.WriteString("## Final Recommendation\n")
	b.WriteString("## Cautions")
	return b.String()
}

func writeTranscript(b *strings.Builder, history []historyEntry) {
	for _, entry := range history {
		fmt.Fprintf(b, "### %s\n%s\n\n", entry.Role, entry.Content)
	}
}
