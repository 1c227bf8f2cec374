package evidence

// #region imports
import (
	"context"

	"github.com/charmbracelet/log"
)

// #endregion

// #region index-interfaces

// VectorIndex answers dense queries over embedded blocks.
type VectorIndex interface {
	SearchVector(ctx context.Context, scope Scope, vector []float64, topK int) ([]Block, error)
}

// LexicalIndex answers sparse keyword queries over block text.
type LexicalIndex interface {
	SearchText(ctx context.Context, scope Scope, text string, topK int) ([]Block, error)
}

// #endregion index-interfaces

// #region adapter

// Adapter is the read-only boundary over the two indexes. It re-checks tenant
// scope on every result, independent of what the indexes claim to have done.
type Adapter struct {
	vector  VectorIndex
	lexical LexicalIndex
	log     *log.Logger
}

// NewAdapter wraps a vector and a lexical index behind the scope check.
func NewAdapter(vector VectorIndex, lexical LexicalIndex, logger *log.Logger) *Adapter {
	if logger == nil {
		logger = log.Default()
	}
	return &Adapter{vector: vector, lexical: lexical, log: logger.WithPrefix("evidence")}
}

// Dense runs a vector search within scope.
func (a *Adapter) Dense(ctx context.Context, scope Scope, vector []float64, topK int) ([]Block, error) {
	blocks, err := a.vector.SearchVector(ctx, scope, vector, topK)
	if err != nil {
		return nil, err
	}
	return a.enforceScope(scope, blocks), nil
}

// Sparse runs a lexical search within scope.
func (a *Adapter) Sparse(ctx context.Context, scope Scope, text string, topK int) ([]Block, error) {
	blocks, err := a.lexical.SearchText(ctx, scope, text, topK)
	if err != nil {
		return nil, err
	}
	return a.enforceScope(scope, blocks), nil
}

// enforceScope drops any block outside the caller's tenant/twin scope.
// A dropped block here means an index implementation leaked; that is logged
// loudly but never surfaced to the turn.
func (a *Adapter) enforceScope(scope Scope, blocks []Block) []Block {
	kept := blocks[:0]
	for _, b := range blocks {
		if !scope.Admits(b) {
			a.log.Error("index returned out-of-scope block, dropping",
				"block_id", b.ID, "block_tenant", b.TenantID, "scope_tenant", scope.TenantID)
			continue
		}
		kept = append(kept, b)
	}
	return kept
}

// #endregion adapter
