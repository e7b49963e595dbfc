package anaphora

import (
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func TestResolve_Pronoun(t *testing.T) {
	r := New(3)
	history := []models.Turn{
		{User: "Tell me about Tiger", Assistant: "A Tiger is a big cat found in Asia."},
	}
	got := r.Resolve("What does it eat?", history)
	if got != "What does the tiger eat?" {
		t.Errorf("Resolve = %q", got)
	}
}

func TestResolve_NoAnaphora(t *testing.T) {
	r := New(3)
	got := r.Resolve("What does a tiger eat?", nil)
	if got != "What does a tiger eat?" {
		t.Errorf("query without anaphora changed: %q", got)
	}
}

func TestResolve_NoReferentFound(t *testing.T) {
	r := New(3)
	history := []models.Turn{
		{User: "what about those?", Assistant: "not sure what you mean"},
	}
	got := r.Resolve("Where do they live?", history)
	if got != "Where do they live?" {
		t.Errorf("query changed without a referent: %q", got)
	}
}

func TestResolve_BinomialNameTakesPriority(t *testing.T) {
	r := New(3)
	history := []models.Turn{
		{
			User:      "Tell me about the red fox",
			Assistant: "The Red Fox (*Vulpes vulpes*) is a widespread canid.",
		},
	}
	got := r.Resolve("How long does it live?", history)
	if got != "How long does the vulpes live?" {
		t.Errorf("Resolve = %q", got)
	}
}

func TestResolve_Demonstratives(t *testing.T) {
	r := New(3)
	history := []models.Turn{
		{User: "Tell me about Elephant", Assistant: "Elephant herds roam the savanna."},
	}
	cases := []struct{ in, want string }{
		{"How big is that animal?", "How big is the elephant?"},
		{"Where do these animals sleep?", "Where do elephants sleep?"},
		{"Is this species endangered?", "Is the elephant endangered?"},
		{"What is its diet?", "What is the elephant's diet?"},
		{"Do they migrate?", "Do elephants migrate?"},
		{"What threatens their habitat?", "What threatens elephant's habitat?"},
	}
	for _, c := range cases {
		if got := r.Resolve(c.in, history); got != c.want {
			t.Errorf("Resolve(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestResolve_WindowBound(t *testing.T) {
	r := New(1)
	history := []models.Turn{
		{User: "Tell me about Tiger", Assistant: "Tigers are striped."},
		{User: "thanks", Assistant: "you're welcome"},
	}
	// Only the last turn is in the window and it has no entity.
	got := r.Resolve("What does it eat?", history)
	if got != "What does it eat?" {
		t.Errorf("referent found outside window: %q", got)
	}
}

func TestResolve_MostRecentEntityWins(t *testing.T) {
	r := New(3)
	history := []models.Turn{
		{User: "Tell me about Tiger", Assistant: "Tigers are striped."},
		{User: "Tell me about Penguin", Assistant: "Penguins are flightless birds."},
	}
	got := r.Resolve("Where does it live?", history)
	if got != "Where does the penguin live?" {
		t.Errorf("Resolve = %q", got)
	}
}

func TestResolve_StopwordsFiltered(t *testing.T) {
	r := New(3)
	history := []models.Turn{
		{User: "What is the fastest land animal?", Assistant: "The Cheetah is the fastest."},
	}
	got := r.Resolve("How fast can it run?", history)
	if got != "How fast can the cheetah run?" {
		t.Errorf("Resolve = %q", got)
	}
}
