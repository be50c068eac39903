package tutor

import (
	"slices"
	"unicode/utf8"

	"github.com/firebase/genkit/go/ai"
)

// TokenBudget bounds what goes into the model's context window.
type TokenBudget struct {
	MaxHistoryTokens int // conversation history
	MaxInputTokens   int // user question
}

// DefaultTokenBudget returns conservative defaults for Gemini-class models.
func DefaultTokenBudget() TokenBudget {
	return TokenBudget{
		MaxHistoryTokens: 8000,
		MaxInputTokens:   2000,
	}
}

// estimateTokens is a rough token count: rune count divided by 2.
// Conservative for both English (~4 chars/token) and CJK (~1.5 chars/token).
func estimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 2
}

// estimateMessagesTokens sums the estimate over all message parts.
func estimateMessagesTokens(msgs []*ai.Message) int {
	total := 0
	for _, msg := range msgs {
		for _, part := range msg.Content {
			total += estimateTokens(part.Text)
		}
	}
	return total
}

// truncateHistory drops the oldest messages until the estimate fits budget.
// A leading system message is always kept; otherwise the newest messages win.
func (s *Service) truncateHistory(msgs []*ai.Message, budget int) []*ai.Message {
	if len(msgs) == 0 || estimateMessagesTokens(msgs) <= budget {
		return msgs
	}

	result := make([]*ai.Message, 0, len(msgs))
	startIdx := 0
	if msgs[0].Role == ai.RoleSystem {
		result = append(result, msgs[0])
		startIdx = 1
	}

	remaining := budget - estimateMessagesTokens(result)
	kept := make([]*ai.Message, 0)
	for i := len(msgs) - 1; i >= startIdx; i-- {
		msgTokens := estimateMessagesTokens([]*ai.Message{msgs[i]})
		if remaining < msgTokens {
			break
		}
		kept = append(kept, msgs[i])
		remaining -= msgTokens
	}
	slices.Reverse(kept)
	result = append(result, kept...)

	s.logger.Debug("history truncated",
		"original_count", len(msgs),
		"new_count", len(result),
	)

	return result
}
