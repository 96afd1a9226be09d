package budget

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// Estimator counts tokens in text for providers that do not report usage.
// All supported models approximate with the GPT-4 encoding.
type Estimator struct {
	codec tokenizer.Codec
}

// NewEstimator creates a token estimator. The model name selects the
// encoding; unknown models fall back to GPT-4.
func NewEstimator(model string) (*Estimator, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec for model %s: %w", model, err)
	}
	return &Estimator{codec: codec}, nil
}

// Estimate returns the approximate token count of text. Falls back to a
// 4-chars-per-token heuristic when the codec is unavailable.
func (e *Estimator) Estimate(text string) int64 {
	if e == nil || e.codec == nil {
		return int64(len(text) / 4)
	}
	count, err := e.codec.Count(text)
	if err != nil {
		return int64(len(text) / 4)
	}
	return int64(count)
}

// EstimateUsage builds a Usage from prompt and completion text, for turns
// where the provider returned no usage block.
func (e *Estimator) EstimateUsage(prompt, completion string) Usage {
	in := e.Estimate(prompt)
	out := e.Estimate(completion)
	return Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out}
}
