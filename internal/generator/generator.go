// Package generator wraps the language model providers behind a single
// completion interface.
package generator

import (
	"context"
	"errors"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrNotConfigured is returned when no provider API key is set.
var ErrNotConfigured = errors.New("generator: no provider configured")

// Completion is one model answer with its usage accounting.
type Completion struct {
	Answer string
	Model  string
	Usage  models.TokenUsage
}

// Generator produces an answer for a fully assembled prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string) (*Completion, error)
	Name() string
}
