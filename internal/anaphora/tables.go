// Package anaphora rewrites pronouns and demonstratives in follow-up
// queries using the most recently mentioned animal in session history.
package anaphora

import "regexp"

// anaphoraDetect matches any anaphoric expression the resolver understands.
// A query with no match is returned untouched without scanning history.
var anaphoraDetect = regexp.MustCompile(`(?i)\b(this animal|that animal|these animals|those animals|this species|that species|the animal|the species|it|its|they|them|their|he|she|him|her)\b`)

// replacement rewrites one anaphoric pattern into an entity-anchored
// phrase. Render receives the lower-cased referent.
type replacement struct {
	pattern *regexp.Regexp
	render  func(referent string) string
}

// replacements is ordered most-specific-first so multi-word demonstratives
// are consumed before the single-word pronouns they contain.
var replacements = []replacement{
	{regexp.MustCompile(`(?i)\bthis animal\b`), func(r string) string { return "the " + r }},
	{regexp.MustCompile(`(?i)\bthat animal\b`), func(r string) string { return "the " + r }},
	{regexp.MustCompile(`(?i)\bthese animals\b`), func(r string) string { return r + "s" }},
	{regexp.MustCompile(`(?i)\bthose animals\b`), func(r string) string { return r + "s" }},
	{regexp.MustCompile(`(?i)\bthis species\b`), func(r string) string { return "the " + r }},
	{regexp.MustCompile(`(?i)\bthat species\b`), func(r string) string { return "the " + r }},
	{regexp.MustCompile(`(?i)\bthe animal\b`), func(r string) string { return "the " + r }},
	{regexp.MustCompile(`(?i)\bthe species\b`), func(r string) string { return "the " + r }},
	{regexp.MustCompile(`(?i)\bits\b`), func(r string) string { return "the " + r + "'s" }},
	{regexp.MustCompile(`(?i)\bit\b`), func(r string) string { return "the " + r }},
	{regexp.MustCompile(`(?i)\bthey\b`), func(r string) string { return r + "s" }},
	{regexp.MustCompile(`(?i)\bthem\b`), func(r string) string { return r + "s" }},
	{regexp.MustCompile(`(?i)\btheir\b`), func(r string) string { return r + "'s" }},
}

// binomialName matches italicized scientific names (*Genus species*); the
// genus is taken as the referent.
var binomialName = regexp.MustCompile(`\*([A-Z][a-z]+) [a-z]+\*`)

// capitalizedRun matches a run of capitalized words ("Red Fox",
// "Cheetah"), the loose shape of animal names in query and answer text.
var capitalizedRun = regexp.MustCompile(`\b[A-Z][a-z]+(?: [A-Z][a-z]+)*\b`)

// entityStopwords filters capitalized phrases that are not entities:
// determiners, question words, imperative query verbs, and the section
// headings the generator's response format emits.
var entityStopwords = map[string]bool{
	"The": true, "This": true, "That": true, "These": true, "Those": true,
	"What": true, "How": true, "Why": true, "When": true, "Where": true,
	"Which": true, "Who": true,
	"Tell": true, "Show": true, "Give": true, "Explain": true,
	"Describe": true, "Compare": true, "List": true,
	"Kingdom": true, "Animalia": true, "Scientific": true,
	"Classification": true, "Related": true, "Topics": true,
	"Primary": true, "Answer": true, "Details": true, "Context": true,
	"Additional": true, "Key": true, "Facts": true,
}
