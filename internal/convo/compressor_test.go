package convo

import (
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

func TestCompress_EmptyHistory(t *testing.T) {
	c := NewCompressor(1500, 5)
	if got := c.Compress(nil); got != "No previous conversation." {
		t.Errorf("Compress(nil) = %q", got)
	}
}

func TestCompress_RecentTurnsVerbatim(t *testing.T) {
	c := NewCompressor(1500, 5)
	history := []models.Turn{
		{User: "Tell me about Tiger", Assistant: "Tigers are striped cats."},
		{User: "What do they eat?", Assistant: "Mostly deer and wild boar."},
	}
	got := c.Compress(history)
	if !strings.Contains(got, "User: Tell me about Tiger") {
		t.Errorf("missing user line:\n%s", got)
	}
	if !strings.Contains(got, "Assistant: Mostly deer and wild boar.") {
		t.Errorf("missing assistant line:\n%s", got)
	}
	if strings.Contains(got, "Earlier topics") {
		t.Errorf("summary emitted with no older turns:\n%s", got)
	}
}

func TestCompress_OlderTurnsSummarized(t *testing.T) {
	c := NewCompressor(1500, 2)
	history := []models.Turn{
		{User: "Tell me about Tiger", Assistant: "Tigers are striped."},
		{User: "Tell me about Penguin", Assistant: "Penguins are birds."},
		{User: "Tell me about Cheetah", Assistant: "Cheetahs are fast."},
		{User: "What do cheetahs eat?", Assistant: "Gazelles."},
	}
	got := c.Compress(history)
	if !strings.HasPrefix(got, "Earlier topics: ") {
		t.Fatalf("missing topic summary:\n%s", got)
	}
	first := strings.SplitN(got, "\n", 2)[0]
	if !strings.Contains(first, "tiger") || !strings.Contains(first, "penguin") {
		t.Errorf("summary missing older entities: %q", first)
	}
	if strings.Contains(first, "cheetah") {
		t.Errorf("summary includes in-window entity: %q", first)
	}
	if strings.Contains(got, "Tigers are striped") {
		t.Errorf("older turn kept verbatim:\n%s", got)
	}
}

func TestCompress_SummaryCappedAtFiveEntities(t *testing.T) {
	c := NewCompressor(1500, 1)
	names := []string{"Tiger", "Penguin", "Cheetah", "Elephant", "Walrus", "Ocelot", "Narwhal"}
	var history []models.Turn
	for _, n := range names {
		history = append(history, models.Turn{User: "Tell me about " + n, Assistant: "ok"})
	}
	got := c.Compress(history)
	first := strings.SplitN(got, "\n", 2)[0]
	topics := strings.Split(strings.TrimPrefix(first, "Earlier topics: "), ", ")
	if len(topics) != 5 {
		t.Errorf("summary has %d topics, want 5: %q", len(topics), first)
	}
}

func TestCompress_LongAnswerTrimmedAtSentence(t *testing.T) {
	c := NewCompressor(1500, 5)
	long := strings.Repeat("The tiger is the largest living cat species. ", 30)
	history := []models.Turn{{User: "Tell me about Tiger", Assistant: long}}
	got := c.Compress(history)
	line := ""
	for _, l := range strings.Split(got, "\n") {
		if strings.HasPrefix(l, "Assistant: ") {
			line = l
		}
	}
	if line == "" {
		t.Fatalf("no assistant line:\n%s", got)
	}
	if !strings.HasSuffix(line, "...") {
		t.Errorf("trimmed answer missing ellipsis: %q", line)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(line, "Assistant: "), "...")
	if !strings.HasSuffix(strings.TrimSpace(body), ".") {
		t.Errorf("trim did not land on sentence boundary: %q", line)
	}
	if utils.EstimateTokens(line) > maxAssistantTokens+10 {
		t.Errorf("assistant line still ~%d tokens", utils.EstimateTokens(line))
	}
}

func TestCompress_TotalBudgetEnforced(t *testing.T) {
	c := NewCompressor(100, 5)
	long := strings.Repeat("Lions live in prides on the savanna. ", 20)
	history := []models.Turn{
		{User: "Tell me about Lion", Assistant: long},
		{User: "Tell me about Tiger", Assistant: long},
		{User: "Tell me about Bear", Assistant: long},
	}
	got := c.Compress(history)
	if tokens := utils.EstimateTokens(got); tokens > 105 {
		t.Errorf("context ~%d tokens, budget 100", tokens)
	}
}
