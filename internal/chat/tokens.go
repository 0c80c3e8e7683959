package chat

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"
)

// tokenCounter reports the model-token count of a text.
type tokenCounter func(text string) int

// newTokenCounter resolves a tokenizer for the model: the model's own
// encoding when known, otherwise cl100k_base, otherwise the word-ratio
// estimate. The budget is enforced with whichever counter is returned.
func newTokenCounter(model string) tokenCounter {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		log.Warn().Err(err).Str("model", model).Msg("no tokenizer available, estimating token counts")
		return EstimateTokens
	}
	return func(text string) int { return len(enc.Encode(text, nil, nil)) }
}

// EstimateTokens approximates the token count of text at the usual rough
// ratio of 1.3 tokens per word, which overshoots slightly for English prose
// and keeps prompts under the real limit.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	return int(float64(words) * 1.3)
}
