// Package calibrate reduces raw retrieval statistics to the single
// user-facing confidence score. Pure, non-suspending computation.
package calibrate

// #region imports
import (
	"github.com/quarryhq/groundctl/internal/policy"
	"github.com/quarryhq/groundctl/internal/retrieval"
)

// #endregion

// #region answerability

// Answerability is the planner's qualitative read of the evidence set.
type Answerability string

const (
	AnswerDirect       Answerability = "direct"
	AnswerDerivable    Answerability = "derivable"
	AnswerInsufficient Answerability = "insufficient"
)

// #endregion answerability

// #region config

// Config holds the calibrator tunables.
type Config struct {
	Floor          float64 `koanf:"floor"`           // retry floor for calibrated confidence
	Top1Weight     float64 `koanf:"top1_weight"`     // blend weight for the top-1 score
	SparseCeiling  float64 `koanf:"sparse_ceiling"`  // cap when only the sparse signal exists
	SmalltalkScore float64 `koanf:"smalltalk_score"` // fixed confidence for evidence-free turns
}

// DefaultConfig returns the calibrator defaults.
func DefaultConfig() Config {
	return Config{
		Floor:          0.45,
		Top1Weight:     0.65,
		SparseCeiling:  0.75,
		SmalltalkScore: 0.9,
	}
}

// #endregion config

// #region calibrate

// Calibrate blends the highest-priority available signal (rerank, else dense,
// else sparse) with the answerability state. Monotonic: better top1/top5
// scores for the same signal never decrease the result. Raw retrieval scores
// are never surfaced; this value is the only confidence users see.
func Calibrate(cfg Config, stats retrieval.Stats, decision policy.GroundingDecision, ans Answerability) float64 {
	if !decision.RequiresEvidence {
		return cfg.SmalltalkScore
	}

	// Zero evidence can never claim confidence.
	if stats.Empty() {
		return 0
	}

	var top1, top5 float64
	sparseOnly := false
	switch {
	case stats.HasRerank:
		top1, top5 = stats.RerankTop1, stats.RerankTop5Avg
	case stats.HasDense:
		top1, top5 = stats.DenseTop1, stats.DenseTop5Avg
	default:
		top1, top5 = stats.SparseTop1, stats.SparseTop5Avg
		sparseOnly = true
	}

	base := cfg.Top1Weight*top1 + (1-cfg.Top1Weight)*top5

	switch ans {
	case AnswerDirect:
		// no discount
	case AnswerDerivable:
		base *= 0.85
	default:
		base *= 0.4
	}

	if sparseOnly && base > cfg.SparseCeiling {
		base = cfg.SparseCeiling
	}
	return clamp(base)
}

// #endregion calibrate

// #region clamp

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion clamp
