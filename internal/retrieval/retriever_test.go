package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quarryhq/groundctl/internal/evidence"
)

type stubEmbedder struct {
	vector []float64
	err    error
	delay  time.Duration
}

func (s stubEmbedder) Embed(ctx context.Context, _ string) ([]float64, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

type stubReranker struct {
	scores []float64
	err    error
}

func (s stubReranker) Rerank(_ context.Context, _ string, docs []string) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.scores) >= len(docs) {
		return s.scores[:len(docs)], nil
	}
	return s.scores, nil
}

func corpusAdapter(t *testing.T) *evidence.Adapter {
	t.Helper()
	idx := evidence.NewMemoryIndex()
	seed := []struct {
		b evidence.Block
		v []float64
	}{
		{evidence.Block{ID: "a1", TenantID: "tenant-a", SourceID: "doc-1", Type: evidence.BlockAnswerText,
			Text: "the refund policy allows returns within thirty days of delivery"}, []float64{1, 0, 0}},
		{evidence.Block{ID: "a2", TenantID: "tenant-a", SourceID: "doc-1", Type: evidence.BlockAnswerText,
			Text: "shipping to overseas destinations takes ten business days"}, []float64{0, 1, 0}},
		{evidence.Block{ID: "a3", TenantID: "tenant-a", SourceID: "doc-2", Type: evidence.BlockPromptQuestion,
			Text: "what is the refund policy for damaged goods"}, []float64{0.9, 0.1, 0}},
		{evidence.Block{ID: "b1", TenantID: "tenant-b", SourceID: "doc-9", Type: evidence.BlockAnswerText,
			Text: "tenant b refund policy text"}, []float64{1, 0, 0}},
	}
	for _, s := range seed {
		if err := idx.Add(s.b, s.v); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return evidence.NewAdapter(idx, idx, nil)
}

func TestRetrieveHybridHappyPath(t *testing.T) {
	r := NewRetriever(corpusAdapter(t), stubEmbedder{vector: []float64{1, 0, 0}}, nil, DefaultConfig(), nil)
	ladder := Ladder(DefaultConfig())

	blocks, stats := r.Retrieve(context.Background(), "refund policy", evidence.Scope{TenantID: "tenant-a"}, ladder[0], false)
	if len(blocks) == 0 {
		t.Fatal("expected evidence")
	}
	if !stats.HasDense || !stats.HasSparse {
		t.Fatalf("both signals should report: %+v", stats)
	}
	if stats.DenseTop1 <= 0 || stats.SparseTop1 <= 0 {
		t.Fatalf("top1 scores should be positive: %+v", stats)
	}
	for _, b := range blocks {
		if b.TenantID != "tenant-a" {
			t.Fatalf("cross-tenant leak: %s", b.ID)
		}
	}
	if stats.BlockCounts[evidence.BlockAnswerText] == 0 {
		t.Fatal("expected answer_text blocks counted")
	}
}

func TestRetrieveEmbedderFailureDegradesToSparse(t *testing.T) {
	r := NewRetriever(corpusAdapter(t), stubEmbedder{err: errors.New("provider down")}, nil, DefaultConfig(), nil)
	ladder := Ladder(DefaultConfig())

	blocks, stats := r.Retrieve(context.Background(), "refund policy", evidence.Scope{TenantID: "tenant-a"}, ladder[0], false)
	if stats.HasDense {
		t.Fatal("dense signal should be absent after embedder failure")
	}
	if !stats.HasSparse || len(blocks) == 0 {
		t.Fatal("sparse side must still deliver evidence")
	}
}

func TestRetrieveTimeoutYieldsWeakEvidence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AttemptTimeout = 20 * time.Millisecond
	r := NewRetriever(corpusAdapter(t), stubEmbedder{vector: []float64{1, 0, 0}, delay: 200 * time.Millisecond}, nil, cfg, nil)
	ladder := Ladder(cfg)

	_, stats := r.Retrieve(context.Background(), "refund policy", evidence.Scope{TenantID: "tenant-a"}, ladder[0], false)
	if !stats.TimedOut {
		t.Fatal("attempt should record the timeout")
	}
	if stats.HasDense {
		t.Fatal("dense signal should be absent on timeout")
	}
}

func TestRetrieveStrictRunsRerank(t *testing.T) {
	rr := stubReranker{scores: []float64{0.2, 0.95, 0.4, 0.1, 0.3, 0.05, 0.5, 0.6}}
	r := NewRetriever(corpusAdapter(t), stubEmbedder{vector: []float64{1, 0, 0}}, rr, DefaultConfig(), nil)
	ladder := Ladder(DefaultConfig())

	blocks, stats := r.Retrieve(context.Background(), "refund policy", evidence.Scope{TenantID: "tenant-a"}, ladder[0], true)
	if !stats.HasRerank {
		t.Fatal("strict grounding should trigger the rerank pass")
	}
	if stats.RerankTop1 < stats.RerankTop5Avg {
		t.Fatalf("top1 cannot be below top5 average: %+v", stats)
	}
	if len(blocks) == 0 {
		t.Fatal("expected evidence")
	}
}

func TestRetrieveRerankFailureKeepsFusedOrder(t *testing.T) {
	rr := stubReranker{err: errors.New("rerank down")}
	r := NewRetriever(corpusAdapter(t), stubEmbedder{vector: []float64{1, 0, 0}}, rr, DefaultConfig(), nil)
	ladder := Ladder(DefaultConfig())

	blocks, stats := r.Retrieve(context.Background(), "refund policy", evidence.Scope{TenantID: "tenant-a"}, ladder[0], true)
	if stats.HasRerank {
		t.Fatal("failed rerank must not report a rerank signal")
	}
	if len(blocks) == 0 {
		t.Fatal("fused evidence should survive a rerank failure")
	}
}
