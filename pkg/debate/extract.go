package debate

import "strings"

// positionChangePhrases is the fixed lexicon matched case-insensitively
// against revised text only. This is a deliberate heuristic, not semantic
// diffing; false positives and negatives are an accepted limitation.
var positionChangePhrases = []string{
	"i have revised",
	"i now agree",
	"i've changed my mind",
	"i have changed my mind",
	"after reviewing",
	"reconsidering",
	"my position has evolved",
	"i am updating my position",
	"on reflection",
}

// ContainsPositionChangePhrase reports whether revised text matches the
// position-change lexicon.
func ContainsPositionChangePhrase(revised string) bool {
	lower := strings.ToLower(revised)
	for _, phrase := range positionChangePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// ExtractUnresolvedDisagreements scrapes the consensus text for the
// disagreements section: it looks for a heading containing "unresolved" or
// "disagreement", then collects `- `-prefixed bullet lines until a heading
// containing "recommendation" or "caution" appears.
//
// This is coupled to the orchestrator following the requested output
// structure. It is deterministic but brittle by design; it is not a
// general markdown parser.
func ExtractUnresolvedDisagreements(consensus string) []string {
	var bullets []string
	inSection := false

	for _, line := range strings.Split(consensus, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)

		if strings.HasPrefix(trimmed, "#") {
			if strings.Contains(lower, "unresolved") || strings.Contains(lower, "disagreement") {
				inSection = true
				continue
			}
			if inSection && (strings.Contains(lower, "recommendation") || strings.Contains(lower, "caution")) {
				break
			}
			continue
		}

		if inSection && strings.HasPrefix(trimmed, "- ") {
			bullets = append(bullets, strings.TrimSpace(trimmed[2:]))
		}
	}
	return bullets
}
