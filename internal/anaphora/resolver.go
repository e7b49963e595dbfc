package anaphora

import (
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// DefaultWindow is how many of the most recent turns are scanned for a
// referent when no window is configured.
const DefaultWindow = 3

// Resolver expands anaphoric references against conversation history. It
// is a pure function of its inputs and the package pattern tables; the
// zero value is not usable, construct with New.
type Resolver struct {
	window int
}

// New returns a resolver that scans the last window turns of history.
func New(window int) *Resolver {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Resolver{window: window}
}

// Resolve returns query with anaphoric expressions replaced by the most
// recently mentioned animal in history. The query is returned unchanged
// when it contains no anaphora or when no referent can be found. This is a
// best-effort heuristic, not a guaranteed-correct coreference system.
func (r *Resolver) Resolve(query string, history []models.Turn) string {
	if !anaphoraDetect.MatchString(query) {
		return query
	}
	referent := lastEntity(history, r.window)
	if referent == "" {
		return query
	}
	resolved := query
	for _, rep := range replacements {
		resolved = rep.pattern.ReplaceAllString(resolved, rep.render(referent))
	}
	return resolved
}

// Entities returns up to max distinct animal names mentioned in the turns,
// oldest mention first. It shares the stopword and pattern tables with the
// resolver so both sides agree on what counts as an entity.
func Entities(history []models.Turn, max int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, turn := range history {
		text := turn.User + " " + turn.Assistant
		for _, run := range capitalizedRun.FindAllString(text, -1) {
			words := strings.Fields(run)
			for len(words) > 0 && entityStopwords[words[0]] {
				words = words[1:]
			}
			if len(words) == 0 {
				continue
			}
			candidate := strings.ToLower(strings.Join(words, " "))
			if len(candidate) <= 2 || seen[candidate] {
				continue
			}
			seen[candidate] = true
			out = append(out, candidate)
			if len(out) == max {
				return out
			}
		}
	}
	return out
}

// lastEntity scans up to window turns, newest first, and returns the first
// referent found: the genus of an italicized binomial name if present,
// otherwise the first capitalized phrase that survives the stopword filter.
func lastEntity(history []models.Turn, window int) string {
	start := len(history) - window
	if start < 0 {
		start = 0
	}
	for i := len(history) - 1; i >= start; i-- {
		text := history[i].User + " " + history[i].Assistant

		if m := binomialName.FindStringSubmatch(text); m != nil {
			return strings.ToLower(m[1])
		}
		for _, run := range capitalizedRun.FindAllString(text, -1) {
			words := strings.Fields(run)
			// Trim leading determiners/question words/headings so
			// "The Cheetah" yields "cheetah", not nothing.
			for len(words) > 0 && entityStopwords[words[0]] {
				words = words[1:]
			}
			if len(words) == 0 {
				continue
			}
			candidate := strings.Join(words, " ")
			if len(candidate) <= 2 {
				continue
			}
			return strings.ToLower(candidate)
		}
	}
	return ""
}
