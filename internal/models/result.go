package models

import (
	"fmt"
	"strings"
	"time"
)

// Outcome is the terminal state of one pipeline pass.
type Outcome string

const (
	OutcomeRejected  Outcome = "REJECTED"
	OutcomeCacheHit  Outcome = "CACHE_HIT"
	OutcomeGenerated Outcome = "GENERATED"
	OutcomeErrored   Outcome = "ERRORED"
)

// QueryInfo carries the original query and its anaphora-resolved form.
type QueryInfo struct {
	Original string `json:"original"`
	Resolved string `json:"resolved"`
	// AnaphoraResolved is true when Resolved differs from Original.
	AnaphoraResolved bool `json:"anaphora_resolved"`
}

// CacheInfo describes the cache outcome for one query.
type CacheInfo struct {
	Hit        bool    `json:"hit"`
	Similarity float64 `json:"similarity"`
	// OriginalQuery is the cached query that matched, on a hit.
	OriginalQuery string `json:"original_query,omitempty"`
}

// TokenUsage is the generator's token accounting for one completion.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// Answer sources, reported so callers can tell where a response came from.
const (
	SourceFilter = "semantic_filter"
	SourceCache  = "semantic_cache"
	SourceLLM    = "llm"
)

// ProcessResult is the full result of one pipeline pass. Fields beyond the
// always-present ones are populated per Outcome: Answer/Source on REJECTED,
// CACHE_HIT and GENERATED; Model/Usage on GENERATED only; Error on ERRORED.
type ProcessResult struct {
	SessionID string           `json:"session_id"`
	Outcome   Outcome          `json:"outcome"`
	Query     QueryInfo        `json:"query"`
	Routing   *RoutingDecision `json:"routing,omitempty"`
	Cache     CacheInfo        `json:"cache"`
	Answer    string           `json:"answer,omitempty"`
	Source    string           `json:"source,omitempty"`
	Model     string           `json:"model,omitempty"`
	Usage     *TokenUsage      `json:"usage,omitempty"`
	Error     string           `json:"error,omitempty"`
	ElapsedMS int64            `json:"response_time_ms"`
	Timestamp time.Time        `json:"timestamp"`
}

// QueryRequest is the input for the query endpoint.
type QueryRequest struct {
	Query string `json:"query"`
	// SessionID is optional; the server generates one when absent.
	SessionID string `json:"session_id,omitempty"`
	SkipCache bool   `json:"skip_cache,omitempty"`
}

// maxQueryLength bounds queries accepted by the API.
const maxQueryLength = 500

// Validate checks the request fields. Returns an error for an empty or
// oversized query.
func (r *QueryRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if len(r.Query) > maxQueryLength {
		return fmt.Errorf("query exceeds %d characters", maxQueryLength)
	}
	return nil
}
