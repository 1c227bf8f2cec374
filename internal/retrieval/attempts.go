package retrieval

// #region constants

// MaxRetries bounds the staged-retry policy: 1 initial attempt plus at most
// 3 retries, regardless of the confidence trajectory.
const MaxRetries = 3

// #endregion

// #region attempt-config

// AttemptConfig is one rung of the staged-retry ladder: a wider candidate
// pool and relaxed diversity caps on each retry.
type AttemptConfig struct {
	Attempt       int
	TopK          int
	PerSourceCap  int
	PerSectionCap int
	MMRLambda     float64
}

// #endregion attempt-config

// #region ladder

// Ladder expands the base config into the full attempt sequence. Modeling
// retries as a finite slice keeps the retry bound mechanically enforced:
// the loop that consumes this slice cannot exceed it.
func Ladder(cfg Config) []AttemptConfig {
	ladder := make([]AttemptConfig, 0, MaxRetries+1)
	for i := 0; i <= MaxRetries; i++ {
		ladder = append(ladder, AttemptConfig{
			Attempt:       i,
			TopK:          cfg.TopK + i*cfg.TopK/2,
			PerSourceCap:  cfg.PerSourceCap + i,
			PerSectionCap: cfg.PerSectionCap + i,
			// Later attempts favor relevance over diversity.
			MMRLambda: minf(cfg.MMRLambda+0.1*float64(i), 1.0),
		})
	}
	return ladder
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// #endregion ladder
