package retrieval

import (
	"testing"

	"github.com/quarryhq/groundctl/internal/evidence"
)

func block(id, source, section, text string, score float64) evidence.Block {
	return evidence.Block{
		ID: id, SourceID: source, Section: section, Text: text,
		Score: score, TenantID: "tenant-a", Type: evidence.BlockAnswerText,
	}
}

func TestFuseRRFPrefersAgreement(t *testing.T) {
	// "b" is mid-ranked in both signals; "a" and "c" each lead one signal only.
	dense := []evidence.Block{
		block("a", "d1", "", "alpha", 0.9),
		block("b", "d1", "", "bravo", 0.8),
	}
	sparse := []evidence.Block{
		block("c", "d2", "", "charlie", 4.0),
		block("b", "d1", "", "bravo", 3.0),
	}
	fused := fuseRRF(dense, sparse, 1, 1.0, 1.0)
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused blocks, got %d", len(fused))
	}
	if fused[0].ID != "b" {
		t.Fatalf("block ranked by both signals should fuse first, got %s", fused[0].ID)
	}
}

func TestFuseRRFWeights(t *testing.T) {
	dense := []evidence.Block{block("a", "d1", "", "alpha", 0.9)}
	sparse := []evidence.Block{block("c", "d2", "", "charlie", 9.0)}
	fused := fuseRRF(dense, sparse, 60, 1.0, 0.5)
	if fused[0].ID != "a" {
		t.Fatalf("dense leader should win under higher dense weight, got %s", fused[0].ID)
	}
}

func TestFuseRRFIgnoresRawScoreScale(t *testing.T) {
	// Sparse scores are orders of magnitude larger; rank fusion must not care.
	dense := []evidence.Block{
		block("a", "d1", "", "alpha", 0.91),
		block("b", "d1", "", "bravo", 0.90),
	}
	sparse := []evidence.Block{
		block("b", "d1", "", "bravo", 1000),
		block("a", "d1", "", "alpha", 999),
	}
	fused := fuseRRF(dense, sparse, 60, 1.0, 1.0)
	// a leads dense, b leads sparse, equal weights: tie broken by id.
	if fused[0].ID != "a" {
		t.Fatalf("expected deterministic tie-break on id, got %s", fused[0].ID)
	}
}

func TestSelectMMRPerSourceCap(t *testing.T) {
	candidates := []evidence.Block{
		block("a1", "doc-1", "", "refund policy thirty days", 1.0),
		block("a2", "doc-1", "", "refund policy details appendix", 0.9),
		block("a3", "doc-1", "", "refund escalation path", 0.8),
		block("b1", "doc-2", "", "shipping times overseas", 0.5),
	}
	selected := selectMMR(candidates, 4, 1.0, 2, 0)
	fromDoc1 := 0
	for _, b := range selected {
		if b.SourceID == "doc-1" {
			fromDoc1++
		}
	}
	if fromDoc1 > 2 {
		t.Fatalf("per-source cap violated: %d blocks from doc-1", fromDoc1)
	}
	found := false
	for _, b := range selected {
		if b.ID == "b1" {
			found = true
		}
	}
	if !found {
		t.Fatal("capping doc-1 should let doc-2 in")
	}
}

func TestSelectMMRPerSectionCap(t *testing.T) {
	candidates := []evidence.Block{
		block("a1", "doc-1", "s1", "first sentence of section one", 1.0),
		block("a2", "doc-1", "s1", "second sentence of section one", 0.9),
		block("a3", "doc-1", "s2", "section two content", 0.8),
	}
	selected := selectMMR(candidates, 3, 1.0, 0, 1)
	perSection := map[string]int{}
	for _, b := range selected {
		perSection[b.Section]++
	}
	if perSection["s1"] > 1 {
		t.Fatalf("per-section cap violated: %d from s1", perSection["s1"])
	}
}

func TestSelectMMRPenalizesRedundancy(t *testing.T) {
	candidates := []evidence.Block{
		block("a", "d1", "", "refund policy thirty days window", 1.0),
		block("dup", "d2", "", "refund policy thirty days window", 0.99),
		block("c", "d3", "", "entirely unrelated shipping schedule", 0.5),
	}
	selected := selectMMR(candidates, 2, 0.5, 0, 0)
	if len(selected) != 2 {
		t.Fatalf("expected 2, got %d", len(selected))
	}
	if selected[1].ID == "dup" {
		t.Fatal("near-duplicate should lose to the diverse candidate")
	}
}

func TestLadderBoundsRetries(t *testing.T) {
	ladder := Ladder(DefaultConfig())
	if len(ladder) != MaxRetries+1 {
		t.Fatalf("ladder must hold exactly %d attempts, got %d", MaxRetries+1, len(ladder))
	}
	for i := 1; i < len(ladder); i++ {
		prev, cur := ladder[i-1], ladder[i]
		if cur.TopK <= prev.TopK {
			t.Fatalf("attempt %d should widen the pool: %d vs %d", i, cur.TopK, prev.TopK)
		}
		if cur.PerSourceCap <= prev.PerSourceCap {
			t.Fatalf("attempt %d should relax the source cap", i)
		}
	}
}
