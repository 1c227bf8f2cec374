package retrieval

// #region imports
import (
	"context"
	"time"

	"github.com/quarryhq/groundctl/internal/evidence"
)

// #endregion

// #region config

// Config holds the tunables of the hybrid retriever. Exposed as configuration
// rather than hard-coded; defaults validated against the regression scenarios.
type Config struct {
	TopK           int           `koanf:"topk"`
	RRFK           float64       `koanf:"rrfk"`
	DenseWeight    float64       `koanf:"dense_weight"`
	SparseWeight   float64       `koanf:"sparse_weight"`
	MMRLambda      float64       `koanf:"mmr_lambda"`
	PerSourceCap   int           `koanf:"per_source_cap"`
	PerSectionCap  int           `koanf:"per_section_cap"`
	RerankTopN     int           `koanf:"rerank_topn"`
	MaxEvidence    int           `koanf:"max_evidence"`
	AttemptTimeout time.Duration `koanf:"attempt_timeout"`
}

// DefaultConfig returns defaults for hybrid retrieval.
func DefaultConfig() Config {
	return Config{
		TopK:           12,
		RRFK:           60,
		DenseWeight:    1.0,
		SparseWeight:   0.7,
		MMRLambda:      0.7,
		PerSourceCap:   3,
		PerSectionCap:  2,
		RerankTopN:     8,
		MaxEvidence:    6,
		AttemptTimeout: 8 * time.Second,
	}
}

// #endregion config

// #region stats

// Stats is the per-attempt aggregate fed to the confidence calibrator.
// Signal priority downstream is fixed: rerank > dense > sparse.
type Stats struct {
	DenseTop1     float64                    `json:"dense_top1"`
	DenseTop5Avg  float64                    `json:"dense_top5_avg"`
	SparseTop1    float64                    `json:"sparse_top1"`
	SparseTop5Avg float64                    `json:"sparse_top5_avg"`
	RerankTop1    float64                    `json:"rerank_top1"`
	RerankTop5Avg float64                    `json:"rerank_top5_avg"`
	HasDense      bool                       `json:"has_dense"`
	HasSparse     bool                       `json:"has_sparse"`
	HasRerank     bool                       `json:"has_rerank"`
	BlockCounts   map[evidence.BlockType]int `json:"evidence_block_counts"`
	Attempt       int                        `json:"attempt"`
	TimedOut      bool                       `json:"timed_out"`
}

// Empty reports whether no signal produced any score.
func (s Stats) Empty() bool {
	return !s.HasDense && !s.HasSparse && !s.HasRerank
}

// #endregion stats

// #region provider-interfaces

// Embedder turns query text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Reranker scores query/document pairs, cross-encoder style.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []string) ([]float64, error)
}

// #endregion provider-interfaces
