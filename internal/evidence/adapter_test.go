package evidence

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

func seedIndex(t *testing.T) *MemoryIndex {
	t.Helper()
	idx := NewMemoryIndex()
	blocks := []struct {
		block Block
		vec   []float64
	}{
		{Block{ID: "a1", TenantID: "tenant-a", SourceID: "doc-1", Type: BlockAnswerText, Text: "the refund policy allows returns within thirty days"}, []float64{1, 0, 0}},
		{Block{ID: "a2", TenantID: "tenant-a", SourceID: "doc-1", Type: BlockPromptQuestion, Text: "what is your refund policy"}, []float64{0.9, 0.1, 0}},
		{Block{ID: "b1", TenantID: "tenant-b", SourceID: "doc-9", Type: BlockAnswerText, Text: "refund policy for tenant b differs"}, []float64{1, 0, 0}},
	}
	for _, e := range blocks {
		if err := idx.Add(e.block, e.vec); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	return idx
}

func TestAdapterScopeFiltersTenants(t *testing.T) {
	idx := seedIndex(t)
	adapter := NewAdapter(idx, idx, nil)
	scope := Scope{TenantID: "tenant-a"}

	dense, err := adapter.Dense(context.Background(), scope, []float64{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("dense: %v", err)
	}
	sparse, err := adapter.Sparse(context.Background(), scope, "refund policy", 10)
	if err != nil {
		t.Fatalf("sparse: %v", err)
	}
	for _, b := range append(dense, sparse...) {
		if b.TenantID != "tenant-a" {
			t.Fatalf("cross-tenant leak: block %s belongs to %s", b.ID, b.TenantID)
		}
	}
	if len(dense) == 0 || len(sparse) == 0 {
		t.Fatal("expected in-scope results")
	}
}

// leakyIndex simulates an index that ignores scope entirely.
type leakyIndex struct{ inner *MemoryIndex }

func (l leakyIndex) SearchVector(ctx context.Context, _ Scope, v []float64, k int) ([]Block, error) {
	return l.inner.SearchVector(ctx, Scope{TenantID: "tenant-b"}, v, k)
}

func (l leakyIndex) SearchText(ctx context.Context, _ Scope, q string, k int) ([]Block, error) {
	return l.inner.SearchText(ctx, Scope{TenantID: "tenant-b"}, q, k)
}

func TestAdapterDropsOutOfScopeBlocks(t *testing.T) {
	idx := seedIndex(t)
	adapter := NewAdapter(leakyIndex{idx}, leakyIndex{idx}, nil)

	dense, err := adapter.Dense(context.Background(), Scope{TenantID: "tenant-a"}, []float64{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("dense: %v", err)
	}
	if len(dense) != 0 {
		t.Fatalf("adapter must drop leaked blocks, got %d", len(dense))
	}
}

func TestAdapterConcurrentCrossTenantLoad(t *testing.T) {
	idx := seedIndex(t)
	adapter := NewAdapter(idx, idx, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 200)
	for i := 0; i < 100; i++ {
		tenant := "tenant-a"
		if i%2 == 1 {
			tenant = "tenant-b"
		}
		wg.Add(1)
		go func(tenant string) {
			defer wg.Done()
			blocks, err := adapter.Sparse(context.Background(), Scope{TenantID: tenant}, "refund policy", 10)
			if err != nil {
				errs <- err
				return
			}
			for _, b := range blocks {
				if b.TenantID != tenant {
					errs <- fmt.Errorf("tenant %s received block of %s", tenant, b.TenantID)
				}
			}
		}(tenant)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestDenseRankingByCosine(t *testing.T) {
	idx := seedIndex(t)
	blocks, err := idx.SearchVector(context.Background(), Scope{TenantID: "tenant-a"}, []float64{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(blocks) != 2 || blocks[0].ID != "a1" {
		t.Fatalf("expected a1 first, got %+v", blocks)
	}
	if blocks[0].Score < blocks[1].Score {
		t.Fatal("results must be score-descending")
	}
}

func TestCorpusRoundTrip(t *testing.T) {
	db, err := OpenCorpusDB(filepath.Join(t.TempDir(), "corpus.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	b := Block{ID: "x1", TenantID: "tenant-a", SourceID: "doc-3", Section: "s2", Type: BlockAnswerText, Text: "shipping takes five days"}
	if err := InsertBlock(db, b, []float64{0.25, -0.5, 1.0}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	idx, err := LoadCorpus(db)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if idx.Len() != 1 {
		t.Fatalf("expected 1 block, got %d", idx.Len())
	}
	got, err := idx.SearchText(context.Background(), Scope{TenantID: "tenant-a"}, "shipping days", 5)
	if err != nil || len(got) != 1 {
		t.Fatalf("search: %v %v", got, err)
	}
	if got[0].Section != "s2" || got[0].Type != BlockAnswerText {
		t.Fatalf("metadata lost: %+v", got[0])
	}
}

func TestVectorEncodingRoundTrip(t *testing.T) {
	in := []float64{0.5, -1.25, 3}
	out := DecodeVector(EncodeVector(in))
	if len(out) != len(in) {
		t.Fatalf("length mismatch: %d", len(out))
	}
	for i := range in {
		if diff := out[i] - in[i]; diff > 1e-6 || diff < -1e-6 {
			t.Fatalf("element %d: %f vs %f", i, out[i], in[i])
		}
	}
}
