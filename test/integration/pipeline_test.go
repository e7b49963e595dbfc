// Package integration exercises the full query path against real storage.
package integration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/internal/anaphora"
	"github.com/hyperjump/kotae/internal/cache"
	"github.com/hyperjump/kotae/internal/convo"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/generator"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/pipeline"
	"github.com/hyperjump/kotae/internal/router"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
)

type fixedGenerator struct{ calls int }

func (g *fixedGenerator) Complete(context.Context, string) (*generator.Completion, error) {
	g.calls++
	return &generator.Completion{Answer: "Tigers mostly eat deer and wild boar.", Model: "fixed"}, nil
}

func (g *fixedGenerator) Name() string { return "fixed" }

func TestIntegration_QueryPathWithSQLiteBackend(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	embedder := embedding.NewMockEmbedder(8)
	defer embedder.Close()

	// Anchors embedded with the same embedder the pipeline uses, so the
	// anchor texts themselves classify cleanly.
	onTopic := "what do tigers eat"
	offTopic := "how do i file my taxes"
	posVec, err := embedder.Embed(ctx, onTopic)
	if err != nil {
		t.Fatal(err)
	}
	negVec, _ := embedder.Embed(ctx, offTopic)
	rt, err := router.New(&router.AnchorSet{
		Dimension: 8,
		Positive:  []router.Anchor{{Text: onTopic, Vector: posVec}},
		Negative:  []router.Anchor{{Text: offTopic, Vector: negVec}},
	}, router.DefaultThresholds)
	if err != nil {
		t.Fatal(err)
	}

	backend, err := cache.NewSQLiteBackend(filepath.Join(dir, "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer backend.Close()

	cacheIndex, err := vector.New(8)
	if err != nil {
		t.Fatal(err)
	}
	semanticCache := cache.New(cacheIndex, backend, nil, cache.Options{}, zap.NewNop())

	gen := &fixedGenerator{}
	p := pipeline.New(pipeline.Options{
		Embedder:   embedder,
		Router:     rt,
		Resolver:   anaphora.New(3),
		Sessions:   convo.NewSessionStore(5),
		Compressor: convo.NewCompressor(1500, 5),
		Cache:      semanticCache,
		Generator:  gen,
		Logger:     zap.NewNop(),
	})

	first := p.Process(ctx, models.QueryRequest{Query: onTopic, SessionID: "s1"})
	if first.Outcome != models.OutcomeGenerated {
		t.Fatalf("first outcome = %s (%+v)", first.Outcome, first)
	}
	second := p.Process(ctx, models.QueryRequest{Query: onTopic, SessionID: "s1"})
	if second.Outcome != models.OutcomeCacheHit {
		t.Fatalf("second outcome = %s", second.Outcome)
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d, want 1", gen.calls)
	}

	rejected := p.Process(ctx, models.QueryRequest{Query: offTopic, SessionID: "s1"})
	if rejected.Outcome != models.OutcomeRejected {
		t.Fatalf("off-topic outcome = %s", rejected.Outcome)
	}

	// The cached answer survives an index save/load cycle, as after a
	// server restart with a durable backend.
	if err := cacheIndex.Save(dir); err != nil {
		t.Fatal(err)
	}
	reloaded, err := vector.New(8)
	if err != nil {
		t.Fatal(err)
	}
	if err := reloaded.Load(dir); err != nil {
		t.Fatal(err)
	}
	warmCache := cache.New(reloaded, backend, nil, cache.Options{}, zap.NewNop())
	p2 := pipeline.New(pipeline.Options{
		Embedder:   embedder,
		Router:     rt,
		Resolver:   anaphora.New(3),
		Sessions:   convo.NewSessionStore(5),
		Compressor: convo.NewCompressor(1500, 5),
		Cache:      warmCache,
		Generator:  gen,
		Logger:     zap.NewNop(),
	})
	warm := p2.Process(ctx, models.QueryRequest{Query: onTopic, SessionID: "s2"})
	if warm.Outcome != models.OutcomeCacheHit {
		t.Errorf("outcome after reload = %s, want cache_hit", warm.Outcome)
	}
}
