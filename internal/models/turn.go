// Package models defines core data structures shared across the pipeline:
// conversation turns, routing decisions, and per-query results.
package models

// Turn is a single (user query, assistant response) exchange in a session.
type Turn struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// Message is a role-tagged line of conversation history, the shape the
// history endpoint exposes.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnsToMessages flattens turns into alternating user/assistant messages.
func TurnsToMessages(turns []Turn) []Message {
	messages := make([]Message, 0, len(turns)*2)
	for _, t := range turns {
		messages = append(messages,
			Message{Role: "user", Content: t.User},
			Message{Role: "assistant", Content: t.Assistant},
		)
	}
	return messages
}
