package convo

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/anaphora"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

const (
	// DefaultMaxTokens is the token budget for the compressed context block.
	DefaultMaxTokens = 1500

	// maxAssistantTokens caps each verbatim assistant line before it is
	// cut back to a sentence boundary.
	maxAssistantTokens = 150

	// maxSummaryEntities caps the "Earlier topics" prefix.
	maxSummaryEntities = 5

	// emptyHistoryMarker is emitted when the session has no turns yet, so
	// the prompt template always has a context section.
	emptyHistoryMarker = "No previous conversation."
)

// Compressor folds session history into a context block that fits a token
// budget: older turns collapse into a one-line topic summary, the most
// recent turns are kept verbatim with long answers trimmed at sentence
// boundaries.
type Compressor struct {
	maxTokens int
	maxTurns  int
}

// NewCompressor returns a compressor keeping maxTurns verbatim turns
// within a maxTokens budget.
func NewCompressor(maxTokens, maxTurns int) *Compressor {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Compressor{maxTokens: maxTokens, maxTurns: maxTurns}
}

// Compress renders history into the context block used for prompt
// assembly. Token counts are estimated, so the budget is approximate.
func (c *Compressor) Compress(history []models.Turn) string {
	if len(history) == 0 {
		return emptyHistoryMarker
	}

	var b strings.Builder

	recent := history
	if len(history) > c.maxTurns {
		older := history[:len(history)-c.maxTurns]
		recent = history[len(history)-c.maxTurns:]
		if topics := anaphora.Entities(older, maxSummaryEntities); len(topics) > 0 {
			fmt.Fprintf(&b, "Earlier topics: %s\n\n", strings.Join(topics, ", "))
		}
	}

	for _, turn := range recent {
		fmt.Fprintf(&b, "User: %s\n", turn.User)
		fmt.Fprintf(&b, "Assistant: %s\n", trimAnswer(turn.Assistant))
	}

	out := strings.TrimRight(b.String(), "\n")
	if utils.EstimateTokens(out) > c.maxTokens {
		out = strings.TrimSpace(utils.Truncate(out, c.maxTokens*4))
	}
	return out
}

// trimAnswer shortens a long assistant reply to roughly maxAssistantTokens,
// cutting back to the last full sentence so the context reads cleanly.
func trimAnswer(answer string) string {
	if utils.EstimateTokens(answer) <= maxAssistantTokens {
		return answer
	}
	cut := answer[:maxAssistantTokens*4]
	if i := strings.LastIndex(cut, ". "); i > 0 {
		cut = cut[:i+1]
	}
	return strings.TrimSpace(cut) + "..."
}
