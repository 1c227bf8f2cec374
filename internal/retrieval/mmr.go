package retrieval

// #region imports
import (
	"github.com/quarryhq/groundctl/internal/evidence"
)

// #endregion

// #region mmr

// selectMMR picks a diverse evidence subset via Maximal Marginal Relevance:
// each step takes the candidate maximizing
// lambda*relevance - (1-lambda)*maxSimilarityToSelected, subject to
// per-source-document and per-section caps so one document cannot dominate.
func selectMMR(candidates []evidence.Block, limit int, lambda float64, perSourceCap, perSectionCap int) []evidence.Block {
	if limit <= 0 || len(candidates) == 0 {
		return nil
	}

	tokens := make([]map[string]struct{}, len(candidates))
	for i, c := range candidates {
		tokens[i] = tokenSet(c.Text)
	}

	selected := make([]evidence.Block, 0, limit)
	selectedIdx := make([]int, 0, limit)
	used := make([]bool, len(candidates))
	sourceCount := make(map[string]int)
	sectionCount := make(map[string]int)

	for len(selected) < limit {
		best := -1
		bestScore := 0.0
		for i, c := range candidates {
			if used[i] {
				continue
			}
			if perSourceCap > 0 && sourceCount[c.SourceID] >= perSourceCap {
				continue
			}
			if perSectionCap > 0 && c.Section != "" && sectionCount[c.SourceID+"\x00"+c.Section] >= perSectionCap {
				continue
			}
			maxSim := 0.0
			for _, j := range selectedIdx {
				if sim := jaccard(tokens[i], tokens[j]); sim > maxSim {
					maxSim = sim
				}
			}
			score := lambda*c.Score - (1-lambda)*maxSim
			if best == -1 || score > bestScore {
				best = i
				bestScore = score
			}
		}
		if best == -1 {
			break
		}
		used[best] = true
		selected = append(selected, candidates[best])
		selectedIdx = append(selectedIdx, best)
		sourceCount[candidates[best].SourceID]++
		if candidates[best].Section != "" {
			sectionCount[candidates[best].SourceID+"\x00"+candidates[best].Section]++
		}
	}
	return selected
}

// #endregion mmr

// #region similarity

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range evidence.Tokenize(text) {
		set[t] = struct{}{}
	}
	return set
}

// jaccard measures textual overlap between two token sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	inter := 0
	for t := range small {
		if _, ok := large[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// #endregion similarity
