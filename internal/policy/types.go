package policy

// #region imports
import (
	"github.com/quarryhq/groundctl/internal/query"
)

// #endregion

// #region grounding-decision

// GroundingDecision governs whether retrieval is required, whether verbatim
// quoting is allowed, and how strict grounding must be for one turn.
// Pure function of classification + conversation state; reproducible.
type GroundingDecision struct {
	IsSmalltalk        bool        `json:"is_smalltalk"`
	QueryClass         query.Class `json:"query_class"`
	QuoteIntent        bool        `json:"quote_intent"`
	RequiresEvidence   bool        `json:"requires_evidence"`
	StrictGrounding    bool        `json:"strict_grounding"`
	AllowLineExtractor bool        `json:"allow_line_extractor"`
	Guardrail          bool        `json:"guardrail"`
	// EscalateOnExhaustion marks query classes that need a human when
	// evidence stays weak after every retry (instead of clarifying).
	EscalateOnExhaustion bool `json:"escalate_on_exhaustion"`
}

// #endregion grounding-decision

// #region table-key

// tableKey indexes the decision table. quote_intent is part of the key so
// parity tests can enumerate every cell.
type tableKey struct {
	Class query.Class
	Quote bool
}

// tableRow holds the per-cell outputs of the decision table.
type tableRow struct {
	RequiresEvidence     bool
	StrictGrounding      bool
	AllowLineExtractor   bool
	EscalateOnExhaustion bool
}

// #endregion table-key
