package agent

import (
	"github.com/sprklai/mesoclaw/internal/providers"
)

// estimateMessageTokens approximates a message's token cost without calling
// the provider's tokenizer: roughly 4 characters per token, plus a small
// fixed overhead for role/formatting.
func estimateMessageTokens(msg providers.Message) int {
	return (len(msg.Content)+3)/4 + 4
}

// trimToFit evicts the oldest non-system messages, one at a time and in
// order, until the estimated token total plus maxCompletionTokens fits
// within modelLimit. System messages are never evicted; if the system
// messages alone exceed the limit, the full set of system messages is
// returned unchanged.
func trimToFit(messages []providers.Message, maxCompletionTokens, modelLimit int) []providers.Message {
	trimmed := make([]providers.Message, len(messages))
	copy(trimmed, messages)

	total := 0
	for _, msg := range trimmed {
		total += estimateMessageTokens(msg)
	}

	for total+maxCompletionTokens > modelLimit {
		idx := -1
		for i, msg := range trimmed {
			if msg.Role != "system" {
				idx = i
				break
			}
		}
		if idx == -1 {
			// Only system messages remain; proceed even if over budget.
			break
		}
		total -= estimateMessageTokens(trimmed[idx])
		trimmed = append(trimmed[:idx], trimmed[idx+1:]...)
	}

	return trimmed
}
