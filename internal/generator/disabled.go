package generator

import "context"

// Disabled is the generator used when no provider API key is configured.
// Every completion fails with ErrNotConfigured, which the pipeline
// surfaces as an errored result instead of crashing at startup.
type Disabled struct{}

func (Disabled) Complete(context.Context, string) (*Completion, error) {
	return nil, ErrNotConfigured
}

func (Disabled) Name() string { return "disabled" }
