package generator

import (
	"context"
	"fmt"

	"charm.land/fantasy"
	"charm.land/fantasy/providers/anthropic"
	"charm.land/fantasy/providers/openai"
	"charm.land/fantasy/providers/openrouter"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// ProviderConfig selects and authenticates a hosted model provider.
type ProviderConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"-"`
}

// FantasyGenerator completes prompts through a fantasy language model.
type FantasyGenerator struct {
	model fantasy.LanguageModel
	name  string
}

// NewFantasyGenerator builds a generator for the configured provider.
// Returns ErrNotConfigured when no API key is present.
func NewFantasyGenerator(ctx context.Context, cfg ProviderConfig) (*FantasyGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	var provider fantasy.Provider
	var err error
	switch cfg.Provider {
	case "openai":
		opts := []openai.Option{openai.WithAPIKey(cfg.APIKey)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		provider, err = openai.New(opts...)
	case "anthropic":
		opts := []anthropic.Option{anthropic.WithAPIKey(cfg.APIKey)}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		provider, err = anthropic.New(opts...)
	case "openrouter":
		provider, err = openrouter.New(openrouter.WithAPIKey(cfg.APIKey))
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}

	model, err := provider.LanguageModel(ctx, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("get language model: %w", err)
	}
	return &FantasyGenerator{model: model, name: cfg.Model}, nil
}

// Complete runs one generation. Token usage is estimated from text
// length, which is close enough for the stats endpoint.
func (g *FantasyGenerator) Complete(ctx context.Context, prompt string) (*Completion, error) {
	agent := fantasy.NewAgent(g.model)
	result, err := agent.Generate(ctx, fantasy.AgentCall{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	answer := result.Response.Content.Text()
	usage := models.TokenUsage{
		Prompt:     utils.EstimateTokens(prompt),
		Completion: utils.EstimateTokens(answer),
	}
	usage.Total = usage.Prompt + usage.Completion
	return &Completion{Answer: answer, Model: g.name, Usage: usage}, nil
}

// Name returns the configured model name.
func (g *FantasyGenerator) Name() string { return g.name }
