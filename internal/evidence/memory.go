package evidence

// #region imports
import (
	"context"
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// #endregion

// #region memory-index

// MemoryIndex is an in-process corpus snapshot serving both the dense and the
// lexical side with brute-force scoring. Read-mostly; writes happen only at
// load time (the ingestion pipeline owns the persistent corpus).
type MemoryIndex struct {
	mu      sync.RWMutex
	blocks  []Block
	vectors [][]float64
	tokens  []map[string]int
	docFreq map[string]int
}

// NewMemoryIndex creates an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{docFreq: make(map[string]int)}
}

// Add inserts a block with its embedding vector.
func (m *MemoryIndex) Add(b Block, vector []float64) error {
	if b.ID == "" {
		return errors.New("evidence: block id required")
	}
	if b.TenantID == "" {
		return errors.New("evidence: block tenant required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	toks := termCounts(b.Text)
	m.blocks = append(m.blocks, b)
	m.vectors = append(m.vectors, vector)
	m.tokens = append(m.tokens, toks)
	for term := range toks {
		m.docFreq[term]++
	}
	return nil
}

// Len returns the number of indexed blocks.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blocks)
}

// #endregion memory-index

// #region dense-search

// SearchVector scores blocks by cosine similarity against the query vector.
func (m *MemoryIndex) SearchVector(_ context.Context, scope Scope, vector []float64, topK int) ([]Block, error) {
	if topK <= 0 {
		topK = 5
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var scored []Block
	for i, b := range m.blocks {
		if !scope.Admits(b) {
			continue
		}
		if len(m.vectors[i]) == 0 {
			continue
		}
		b.Score = cosine(m.vectors[i], vector)
		scored = append(scored, b)
	}
	sortByScore(scored)
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// #endregion dense-search

// #region sparse-search

// SearchText scores blocks with a TF-IDF sum over the query terms.
func (m *MemoryIndex) SearchText(_ context.Context, scope Scope, text string, topK int) ([]Block, error) {
	if topK <= 0 {
		topK = 5
	}
	queryTerms := termCounts(text)
	if len(queryTerms) == 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	total := len(m.blocks)

	var scored []Block
	for i, b := range m.blocks {
		if !scope.Admits(b) {
			continue
		}
		var score float64
		docLen := 0
		for _, c := range m.tokens[i] {
			docLen += c
		}
		if docLen == 0 {
			continue
		}
		for term := range queryTerms {
			tf := float64(m.tokens[i][term]) / float64(docLen)
			if tf == 0 {
				continue
			}
			idf := math.Log(float64(total+1) / float64(m.docFreq[term]+1))
			score += tf * idf
		}
		if score > 0 {
			b.Score = score
			scored = append(scored, b)
		}
	}
	sortByScore(scored)
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// #endregion sparse-search

// #region text-helpers

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {},
	"in": {}, "on": {}, "is": {}, "are": {}, "was": {}, "it": {}, "for": {},
	"with": {}, "as": {}, "at": {}, "by": {}, "be": {}, "this": {}, "that": {},
}

// Tokenize lowercases and splits text into content terms.
func Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func termCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, t := range Tokenize(text) {
		counts[t]++
	}
	return counts
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func sortByScore(blocks []Block) {
	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Score > blocks[j].Score })
}

// #endregion text-helpers
