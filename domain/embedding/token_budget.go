package embedding

import (
	"fmt"
	"unicode/utf8"
)

// TokenBudget constrains embedding batches to stay within model limits.
// Each batch's total (truncated) text is at most maxChars, each batch holds
// at most maxBatchSize texts, and single texts are truncated to maxChars.
type TokenBudget struct {
	maxChars     int
	maxBatchSize int
}

// NewTokenBudget creates a TokenBudget with the given character limit.
func NewTokenBudget(maxChars int) (TokenBudget, error) {
	if maxChars <= 0 {
		return TokenBudget{}, fmt.Errorf("NewTokenBudget: maxChars must be positive, got %d", maxChars)
	}
	return TokenBudget{maxChars: maxChars, maxBatchSize: DefaultMaxBatchSize}, nil
}

// DefaultMaxBatchSize is the number of texts sent in one provider request.
const DefaultMaxBatchSize = 64

// DefaultTokenBudget returns a budget of 24 000 characters per request,
// roughly 6 000 tokens, under the 8 192-token input limit of
// text-embedding-3-small.
func DefaultTokenBudget() TokenBudget {
	b, _ := NewTokenBudget(24000)
	return b
}

// WithMaxBatchSize returns a copy with the given maximum texts per batch.
// Values <= 0 are clamped to 1.
func (b TokenBudget) WithMaxBatchSize(n int) TokenBudget {
	if n <= 0 {
		n = 1
	}
	b.maxBatchSize = n
	return b
}

// MaxChars returns the character budget.
func (b TokenBudget) MaxChars() int { return b.maxChars }

// MaxBatchSize returns the maximum texts per batch.
func (b TokenBudget) MaxBatchSize() int { return b.maxBatchSize }

// Truncate caps text to the character (rune) limit.
func (b TokenBudget) Truncate(text string) string {
	if utf8.RuneCountInString(text) <= b.maxChars {
		return text
	}
	runes := []rune(text)
	return string(runes[:b.maxChars])
}

// Batches partitions texts into consecutive groups within the budget.
// Concatenating the groups yields the input in order. A text that alone
// exceeds the budget is placed in its own batch.
func (b TokenBudget) Batches(texts []string) [][]string {
	if len(texts) == 0 {
		return nil
	}

	var batches [][]string
	i := 0

	for i < len(texts) {
		start := i
		chars := 0

		for i < len(texts) {
			if i-start >= b.maxBatchSize {
				break
			}
			n := min(utf8.RuneCountInString(texts[i]), b.maxChars)
			if chars+n > b.maxChars && i > start {
				break
			}
			chars += n
			i++
		}

		batch := make([]string, i-start)
		copy(batch, texts[start:i])
		batches = append(batches, batch)
	}

	return batches
}
