// Package pipeline runs a query through classification, anaphora
// resolution, the semantic cache, and generation, and tags every result
// with how it was produced.
package pipeline

import (
	"context"
	"time"

	"github.com/hyperjump/kotae/internal/anaphora"
	"github.com/hyperjump/kotae/internal/cache"
	"github.com/hyperjump/kotae/internal/convo"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/generator"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/prompt"
	"github.com/hyperjump/kotae/internal/router"
	"go.uber.org/zap"
)

// RefusalMessage is returned verbatim for off-topic queries.
const RefusalMessage = "I specialize exclusively in animal-related questions. Please ask me about any creature in Kingdom Animalia."

// Pipeline wires the query path together. It never returns an error:
// every failure becomes a result with the errored outcome so callers
// always get something renderable.
type Pipeline struct {
	embedder   embedding.Embedder
	router     *router.Router
	resolver   *anaphora.Resolver
	sessions   *convo.SessionStore
	compressor *convo.Compressor
	cache      *cache.Cache
	generator  generator.Generator
	logger     *zap.Logger
}

// Options collects the pipeline's collaborators.
type Options struct {
	Embedder   embedding.Embedder
	Router     *router.Router
	Resolver   *anaphora.Resolver
	Sessions   *convo.SessionStore
	Compressor *convo.Compressor
	Cache      *cache.Cache
	Generator  generator.Generator
	Logger     *zap.Logger
}

// New assembles a pipeline.
func New(opts Options) *Pipeline {
	return &Pipeline{
		embedder:   opts.Embedder,
		router:     opts.Router,
		resolver:   opts.Resolver,
		sessions:   opts.Sessions,
		compressor: opts.Compressor,
		cache:      opts.Cache,
		generator:  opts.Generator,
		logger:     opts.Logger,
	}
}

// Process answers one query. The result's outcome is always one of
// rejected, cache_hit, generated, or errored.
func (p *Pipeline) Process(ctx context.Context, req models.QueryRequest) *models.ProcessResult {
	start := time.Now()
	result := &models.ProcessResult{
		SessionID: req.SessionID,
		Query:     models.QueryInfo{Original: req.Query, Resolved: req.Query},
	}
	defer func() {
		result.ElapsedMS = time.Since(start).Milliseconds()
		result.Timestamp = time.Now().UTC()
	}()

	emb, err := p.embedder.Embed(ctx, req.Query)
	if err != nil {
		p.logger.Error("embedding failed", zap.Error(err))
		result.Outcome = models.OutcomeErrored
		result.Error = "embedding failed: " + err.Error()
		return result
	}

	decision := p.router.Classify(emb)
	result.Routing = &decision
	if decision.Label == models.RouteReject {
		result.Outcome = models.OutcomeRejected
		result.Answer = RefusalMessage
		result.Source = models.SourceFilter
		return result
	}

	// Resolution runs after routing so off-topic queries never pay for a
	// history scan. A rewritten query is re-embedded: the cache must key
	// on what the query means, not on its pronouns.
	history := p.sessions.Get(req.SessionID)
	resolved := p.resolver.Resolve(req.Query, history)
	result.Query.Resolved = resolved
	result.Query.AnaphoraResolved = resolved != req.Query
	if result.Query.AnaphoraResolved {
		p.logger.Debug("anaphora resolved",
			zap.String("original", req.Query), zap.String("resolved", resolved))
		emb, err = p.embedder.Embed(ctx, resolved)
		if err != nil {
			p.logger.Error("embedding failed", zap.Error(err))
			result.Outcome = models.OutcomeErrored
			result.Error = "embedding failed: " + err.Error()
			return result
		}
	}

	if !req.SkipCache {
		if hit, ok := p.cache.Lookup(ctx, emb); ok {
			result.Outcome = models.OutcomeCacheHit
			result.Answer = hit.Entry.Response
			result.Source = models.SourceCache
			result.Cache = models.CacheInfo{
				Hit:           true,
				Similarity:    hit.Similarity,
				OriginalQuery: hit.Entry.Query,
			}
			p.sessions.Append(req.SessionID, models.Turn{User: req.Query, Assistant: result.Answer})
			return result
		}
	}

	contextBlock := p.compressor.Compress(history)
	completion, err := p.generator.Complete(ctx, prompt.Format(contextBlock, resolved))
	if err != nil {
		p.logger.Error("generation failed", zap.Error(err))
		result.Outcome = models.OutcomeErrored
		result.Error = "generation failed: " + err.Error()
		return result
	}

	result.Outcome = models.OutcomeGenerated
	result.Answer = completion.Answer
	result.Source = models.SourceLLM
	result.Model = completion.Model
	result.Usage = &completion.Usage

	if err := p.cache.Store(ctx, resolved, completion.Answer, emb); err != nil {
		// A full or flaky cache must not fail a good answer.
		p.logger.Warn("cache store failed", zap.Error(err))
	}
	p.sessions.Append(req.SessionID, models.Turn{User: req.Query, Assistant: completion.Answer})
	return result
}

// History returns the session's turns, oldest first.
func (p *Pipeline) History(sessionID string) []models.Turn {
	return p.sessions.Get(sessionID)
}

// ClearSession drops one session and reports whether it existed.
func (p *Pipeline) ClearSession(sessionID string) bool {
	return p.sessions.Clear(sessionID)
}

// ClearCache empties the semantic cache.
func (p *Pipeline) ClearCache(ctx context.Context) error {
	return p.cache.Clear(ctx)
}

// SearchCache exposes the admin full-text view of cached queries.
func (p *Pipeline) SearchCache(ctx context.Context, term string, limit int) ([]cache.Entry, error) {
	return p.cache.SearchText(ctx, term, limit)
}

// Stats aggregates counters from the router, cache, and session store.
type Stats struct {
	Router   router.Stats `json:"router"`
	Cache    cache.Stats  `json:"cache"`
	Sessions int          `json:"sessions"`
	Model    string       `json:"model"`
}

// Stats returns a point-in-time snapshot.
func (p *Pipeline) Stats(ctx context.Context) Stats {
	return Stats{
		Router:   p.router.Stats(),
		Cache:    p.cache.Stats(ctx),
		Sessions: p.sessions.Count(),
		Model:    p.generator.Name(),
	}
}
