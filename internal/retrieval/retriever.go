package retrieval

// #region imports
import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/quarryhq/groundctl/internal/evidence"
)

// #endregion

// #region errors

// ErrUnavailable marks an evidence store or provider failure. It is recovered
// locally (the attempt degrades to zero evidence) and never reaches the user.
var ErrUnavailable = errors.New("retrieval unavailable")

// #endregion errors

// #region retriever

// Retriever runs the hybrid dense+sparse pipeline against the evidence
// adapter: parallel search, weighted RRF fusion, optional rerank pass, then
// MMR diversity selection.
type Retriever struct {
	adapter  *evidence.Adapter
	embedder Embedder
	reranker Reranker
	cfg      Config
	log      *log.Logger
}

// NewRetriever wires a retriever. reranker may be nil (rerank pass skipped).
func NewRetriever(adapter *evidence.Adapter, embedder Embedder, reranker Reranker, cfg Config, logger *log.Logger) *Retriever {
	if logger == nil {
		logger = log.Default()
	}
	return &Retriever{
		adapter:  adapter,
		embedder: embedder,
		reranker: reranker,
		cfg:      cfg,
		log:      logger.WithPrefix("retrieval"),
	}
}

// #endregion retriever

// #region retrieve

// Retrieve runs one attempt of the staged ladder. Dense and sparse searches
// run concurrently and are joined before fusion; this is the only intra-turn
// parallelism. A timeout or provider failure yields weak evidence, never an
// error to the caller.
func (r *Retriever) Retrieve(ctx context.Context, queryText string, scope evidence.Scope, attempt AttemptConfig, strict bool) ([]evidence.Block, Stats) {
	stats := Stats{Attempt: attempt.Attempt, BlockCounts: map[evidence.BlockType]int{}}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.AttemptTimeout)
	defer cancel()

	var dense, sparse []evidence.Block
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		blocks, err := r.denseSearch(gctx, queryText, scope, attempt.TopK)
		if err != nil {
			r.log.Warn("dense search degraded to empty", "attempt", attempt.Attempt, "error", err)
			return nil
		}
		dense = blocks
		return nil
	})
	g.Go(func() error {
		blocks, err := r.adapter.Sparse(gctx, scope, queryText, attempt.TopK)
		if err != nil {
			r.log.Warn("sparse search degraded to empty", "attempt", attempt.Attempt, "error", err)
			return nil
		}
		sparse = blocks
		return nil
	})
	_ = g.Wait() // sub-errors already degraded to empty result sets

	if ctx.Err() != nil {
		stats.TimedOut = true
	}

	stats.HasDense = len(dense) > 0
	stats.DenseTop1, stats.DenseTop5Avg = topStats(dense, clampUnit)
	stats.HasSparse = len(sparse) > 0
	stats.SparseTop1, stats.SparseTop5Avg = topStats(sparse, squash)

	fused := fuseRRF(dense, sparse, r.cfg.RRFK, r.cfg.DenseWeight, r.cfg.SparseWeight)
	if len(fused) == 0 {
		return nil, stats
	}

	if strict && r.reranker != nil {
		fused = r.rerank(ctx, queryText, fused, &stats)
	}

	selected := selectMMR(fused, r.cfg.MaxEvidence, attempt.MMRLambda, attempt.PerSourceCap, attempt.PerSectionCap)
	for _, b := range selected {
		stats.BlockCounts[b.Type]++
	}

	r.log.Debug("attempt complete",
		"attempt", attempt.Attempt, "dense", len(dense), "sparse", len(sparse),
		"fused", len(fused), "selected", len(selected), "timed_out", stats.TimedOut)
	return selected, stats
}

// #endregion retrieve

// #region dense

func (r *Retriever) denseSearch(ctx context.Context, queryText string, scope evidence.Scope, topK int) ([]evidence.Block, error) {
	vector, err := r.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}
	return r.adapter.Dense(ctx, scope, vector, topK)
}

// #endregion dense

// #region rerank

// rerank rescoring applies to the top-N fused candidates only; the tail keeps
// its fused order below every reranked block.
func (r *Retriever) rerank(ctx context.Context, queryText string, fused []evidence.Block, stats *Stats) []evidence.Block {
	n := r.cfg.RerankTopN
	if n > len(fused) {
		n = len(fused)
	}
	head := fused[:n]
	docs := make([]string, n)
	for i, b := range head {
		docs[i] = b.Text
	}

	rerankCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	scores, err := r.reranker.Rerank(rerankCtx, queryText, docs)
	if err != nil || len(scores) != n {
		r.log.Warn("rerank pass skipped", "error", err)
		return fused
	}

	reranked := make([]evidence.Block, n)
	copy(reranked, head)
	for i := range reranked {
		reranked[i].Score = scores[i]
	}
	// insertion sort keeps it stable for the small head
	for i := 1; i < len(reranked); i++ {
		for j := i; j > 0 && reranked[j].Score > reranked[j-1].Score; j-- {
			reranked[j], reranked[j-1] = reranked[j-1], reranked[j]
		}
	}

	stats.HasRerank = true
	stats.RerankTop1, stats.RerankTop5Avg = topStats(reranked, clampUnit)

	return append(reranked, fused[n:]...)
}

// #endregion rerank

// #region score-stats

// topStats returns the top-1 score and the average of the top-5 scores,
// normalized into [0,1] by norm.
func topStats(blocks []evidence.Block, norm func(float64) float64) (top1, top5Avg float64) {
	if len(blocks) == 0 {
		return 0, 0
	}
	top1 = norm(blocks[0].Score)
	n := len(blocks)
	if n > 5 {
		n = 5
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += norm(blocks[i].Score)
	}
	return top1, sum / float64(n)
}

// clampUnit clamps into [0,1] (cosine and rerank scores).
func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// squash maps an unbounded non-negative score into [0,1) (TF-IDF sums).
func squash(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return v / (1 + v)
}

// #endregion score-stats
