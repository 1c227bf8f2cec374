package retrieval

// #region imports
import (
	"sort"

	"github.com/quarryhq/groundctl/internal/evidence"
)

// #endregion

// #region fuse

// fuseRRF merges the dense and sparse rankings with weighted Reciprocal Rank
// Fusion: score(b) = Σ_signal w_signal / (k + rank_signal(b)). Fusion works
// on ranks, not raw scores: dense cosine and sparse TF-IDF live on
// incomparable scales.
func fuseRRF(dense, sparse []evidence.Block, k, wDense, wSparse float64) []evidence.Block {
	type fused struct {
		block evidence.Block
		score float64
	}
	byID := make(map[string]*fused)

	accumulate := func(blocks []evidence.Block, weight float64) {
		for rank, b := range blocks {
			f, ok := byID[b.ID]
			if !ok {
				f = &fused{block: b}
				byID[b.ID] = f
			}
			f.score += weight / (k + float64(rank+1))
		}
	}
	accumulate(dense, wDense)
	accumulate(sparse, wSparse)

	out := make([]evidence.Block, 0, len(byID))
	for _, f := range byID {
		b := f.block
		b.Score = f.score
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID // stable order for equal scores
	})
	return out
}

// #endregion fuse
