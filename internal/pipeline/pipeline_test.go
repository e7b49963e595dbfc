package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/kotae/internal/anaphora"
	"github.com/hyperjump/kotae/internal/cache"
	"github.com/hyperjump/kotae/internal/convo"
	"github.com/hyperjump/kotae/internal/generator"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/router"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
)

// stubEmbedder maps known strings to fixed vectors; everything else gets
// an off-axis vector far from the anchors.
type stubEmbedder struct {
	vecs map[string][]float32
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := s.vecs[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 0, 1}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return 4 }
func (s *stubEmbedder) Close() error    { return nil }

// countingGenerator returns a fixed answer and counts calls.
type countingGenerator struct {
	calls  int
	answer string
	err    error
}

func (g *countingGenerator) Complete(context.Context, string) (*generator.Completion, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &generator.Completion{Answer: g.answer, Model: "test-model"}, nil
}

func (g *countingGenerator) Name() string { return "test-model" }

const (
	onTopicQuery  = "What do tigers eat?"
	offTopicQuery = "How do I fix my carburetor?"
)

func newTestPipeline(t *testing.T, gen generator.Generator) (*Pipeline, *stubEmbedder) {
	t.Helper()
	emb := &stubEmbedder{vecs: map[string][]float32{
		onTopicQuery:  {1, 0, 0, 0},
		offTopicQuery: {0, 1, 0, 0},
	}}
	set := &router.AnchorSet{
		Dimension: 4,
		Positive:  []router.Anchor{{Text: "animal questions", Vector: []float32{1, 0, 0, 0}}},
		Negative:  []router.Anchor{{Text: "car repair", Vector: []float32{0, 1, 0, 0}}},
	}
	rt, err := router.New(set, router.DefaultThresholds)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := vector.New(4)
	if err != nil {
		t.Fatal(err)
	}
	c := cache.New(idx, cache.NewMemoryBackend(), nil, cache.Options{}, zap.NewNop())
	return New(Options{
		Embedder:   emb,
		Router:     rt,
		Resolver:   anaphora.New(3),
		Sessions:   convo.NewSessionStore(5),
		Compressor: convo.NewCompressor(1500, 5),
		Cache:      c,
		Generator:  gen,
		Logger:     zap.NewNop(),
	}), emb
}

func TestProcess_Generated(t *testing.T) {
	gen := &countingGenerator{answer: "Mostly deer and wild boar."}
	p, _ := newTestPipeline(t, gen)

	res := p.Process(context.Background(), models.QueryRequest{Query: onTopicQuery, SessionID: "s1"})
	if res.Outcome != models.OutcomeGenerated {
		t.Fatalf("outcome = %s (%+v)", res.Outcome, res)
	}
	if res.Answer != gen.answer || res.Source != models.SourceLLM {
		t.Errorf("answer = %q source = %q", res.Answer, res.Source)
	}
	if res.Routing == nil || res.Routing.Label != models.RouteAccept {
		t.Errorf("routing = %+v", res.Routing)
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d, want 1", gen.calls)
	}
	if got := p.History("s1"); len(got) != 1 {
		t.Errorf("history turns = %d, want 1", len(got))
	}
}

func TestProcess_CacheHitSkipsGenerator(t *testing.T) {
	gen := &countingGenerator{answer: "Mostly deer and wild boar."}
	p, _ := newTestPipeline(t, gen)
	ctx := context.Background()

	first := p.Process(ctx, models.QueryRequest{Query: onTopicQuery, SessionID: "s1"})
	if first.Outcome != models.OutcomeGenerated {
		t.Fatalf("first outcome = %s", first.Outcome)
	}
	second := p.Process(ctx, models.QueryRequest{Query: onTopicQuery, SessionID: "s2"})
	if second.Outcome != models.OutcomeCacheHit {
		t.Fatalf("second outcome = %s (%+v)", second.Outcome, second)
	}
	if second.Source != models.SourceCache || !second.Cache.Hit {
		t.Errorf("cache info = %+v source = %q", second.Cache, second.Source)
	}
	if second.Answer != gen.answer {
		t.Errorf("cached answer = %q", second.Answer)
	}
	if gen.calls != 1 {
		t.Errorf("generator calls = %d, want 1", gen.calls)
	}
}

func TestProcess_SkipCacheForcesGeneration(t *testing.T) {
	gen := &countingGenerator{answer: "Mostly deer."}
	p, _ := newTestPipeline(t, gen)
	ctx := context.Background()

	p.Process(ctx, models.QueryRequest{Query: onTopicQuery, SessionID: "s1"})
	res := p.Process(ctx, models.QueryRequest{Query: onTopicQuery, SessionID: "s1", SkipCache: true})
	if res.Outcome != models.OutcomeGenerated {
		t.Fatalf("outcome = %s, want generated with skip_cache", res.Outcome)
	}
	if gen.calls != 2 {
		t.Errorf("generator calls = %d, want 2", gen.calls)
	}
}

func TestProcess_RejectedNeverTouchesCacheOrGenerator(t *testing.T) {
	gen := &countingGenerator{answer: "should not be called"}
	p, _ := newTestPipeline(t, gen)

	res := p.Process(context.Background(), models.QueryRequest{Query: offTopicQuery, SessionID: "s1"})
	if res.Outcome != models.OutcomeRejected {
		t.Fatalf("outcome = %s (%+v)", res.Outcome, res)
	}
	if res.Answer != RefusalMessage || res.Source != models.SourceFilter {
		t.Errorf("answer = %q source = %q", res.Answer, res.Source)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times for rejected query", gen.calls)
	}
	if got := p.History("s1"); len(got) != 0 {
		t.Errorf("rejected query recorded in history: %+v", got)
	}
}

func TestProcess_GeneratorFailureIsErroredOutcome(t *testing.T) {
	gen := &countingGenerator{err: errors.New("provider down")}
	p, _ := newTestPipeline(t, gen)

	res := p.Process(context.Background(), models.QueryRequest{Query: onTopicQuery, SessionID: "s1"})
	if res.Outcome != models.OutcomeErrored {
		t.Fatalf("outcome = %s", res.Outcome)
	}
	if res.Error == "" {
		t.Error("errored result missing error message")
	}
	if got := p.History("s1"); len(got) != 0 {
		t.Errorf("failed query recorded in history: %+v", got)
	}
}

func TestProcess_AnaphoraUsesSessionHistory(t *testing.T) {
	gen := &countingGenerator{answer: "Tigers are carnivores."}
	p, emb := newTestPipeline(t, gen)
	ctx := context.Background()

	emb.vecs["Tell me about Tiger"] = []float32{1, 0, 0, 0}
	p.Process(ctx, models.QueryRequest{Query: "Tell me about Tiger", SessionID: "s1"})
	// The raw follow-up routes on its own embedding before resolution;
	// the resolved form is close enough to the domain anchor to accept
	// but far enough from the first answer's vector to miss the cache.
	emb.vecs["What does it eat?"] = []float32{0.8, 0, 0.6, 0}
	emb.vecs["What does the tiger eat?"] = []float32{0.9, 0, 0.43589, 0}

	res := p.Process(ctx, models.QueryRequest{Query: "What does it eat?", SessionID: "s1"})
	if !res.Query.AnaphoraResolved {
		t.Fatalf("anaphora not resolved: %+v", res.Query)
	}
	if res.Query.Resolved != "What does the tiger eat?" {
		t.Errorf("resolved = %q", res.Query.Resolved)
	}
	if res.Outcome != models.OutcomeGenerated {
		t.Errorf("outcome = %s", res.Outcome)
	}
}
