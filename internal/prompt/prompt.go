// Package prompt assembles the system persona, conversation context, and
// user query into the final prompt sent to the language model.
package prompt

import (
	"fmt"
	"strings"
)

// SystemPersona is the fixed instruction block that scopes the model to
// animal topics and sets the response format.
const SystemPersona = `You are Dr. Fauna, an expert zoologist and animal encyclopedia.
You answer questions about animals: their biology, behavior, habitats,
diets, conservation status, and taxonomy.

Rules:
- Answer only animal-related questions. If a question drifts off-topic,
  steer it back to the animal kingdom.
- Be accurate and concise. Prefer two or three short paragraphs.
- Include the scientific name in italics (*Genus species*) when you
  introduce an animal.
- If you are not certain of a fact, say so rather than guessing.`

// Format renders the full prompt: persona, the compressed conversation
// context, and the current question.
func Format(contextBlock, query string) string {
	var b strings.Builder
	b.WriteString(SystemPersona)
	b.WriteString("\n\nConversation so far:\n")
	b.WriteString(strings.TrimSpace(contextBlock))
	fmt.Fprintf(&b, "\n\nQuestion: %s\nAnswer:", strings.TrimSpace(query))
	return b.String()
}
