package policy

// #region imports
import (
	"github.com/quarryhq/groundctl/internal/query"
)

// #endregion

// #region decision-table

// decisionTable is the full grounding decision matrix keyed by
// (query_class, quote_intent). Data, not branching code.
//
// Invariants encoded here:
//   - smalltalk never requires evidence and never grounds strictly
//   - strict grounding holds exactly when evidence is required and the user
//     did not ask for verbatim text (synthesis path, not snippet echoing)
//   - the line extractor is quote-only
var decisionTable = map[tableKey]tableRow{
	{query.ClassSmalltalk, false}:    {RequiresEvidence: false, StrictGrounding: false, AllowLineExtractor: false},
	{query.ClassSmalltalk, true}:     {RequiresEvidence: false, StrictGrounding: false, AllowLineExtractor: false},
	{query.ClassIdentity, false}:     {RequiresEvidence: true, StrictGrounding: true, AllowLineExtractor: false},
	{query.ClassIdentity, true}:      {RequiresEvidence: true, StrictGrounding: false, AllowLineExtractor: true},
	{query.ClassProcedural, false}:   {RequiresEvidence: true, StrictGrounding: true, AllowLineExtractor: false},
	{query.ClassProcedural, true}:    {RequiresEvidence: true, StrictGrounding: false, AllowLineExtractor: true},
	{query.ClassFactual, false}:      {RequiresEvidence: true, StrictGrounding: true, AllowLineExtractor: false},
	{query.ClassFactual, true}:       {RequiresEvidence: true, StrictGrounding: false, AllowLineExtractor: true},
	{query.ClassEvaluative, false}:   {RequiresEvidence: true, StrictGrounding: true, AllowLineExtractor: false, EscalateOnExhaustion: true},
	{query.ClassEvaluative, true}:    {RequiresEvidence: true, StrictGrounding: false, AllowLineExtractor: true, EscalateOnExhaustion: true},
	{query.ClassInsufficient, false}: {RequiresEvidence: true, StrictGrounding: true, AllowLineExtractor: false},
	{query.ClassInsufficient, true}:  {RequiresEvidence: true, StrictGrounding: true, AllowLineExtractor: false},
}

// conservativeRow is the fallback for malformed classifications: require
// evidence, ground strictly, no extraction. The turn is never failed.
var conservativeRow = tableRow{RequiresEvidence: true, StrictGrounding: true, AllowLineExtractor: false}

// #endregion decision-table

// #region decide

// Decide maps a classification and conversation state to a GroundingDecision.
// Pure and total: returns a decision for every input, never errors.
func Decide(c query.Classification, state query.ConversationState) GroundingDecision {
	row, ok := decisionTable[tableKey{Class: c.Class, Quote: c.QuoteIntent}]
	if !c.Class.Known() || !ok {
		row = conservativeRow
	}

	allowExtractor := row.AllowLineExtractor
	// Verbatim extraction is an owner capability; public visitors get
	// synthesized answers only.
	if state.Mode == query.ModePublic {
		allowExtractor = false
	}

	return GroundingDecision{
		IsSmalltalk:          c.Class == query.ClassSmalltalk,
		QueryClass:           c.Class,
		QuoteIntent:          c.QuoteIntent,
		RequiresEvidence:     row.RequiresEvidence,
		StrictGrounding:      row.StrictGrounding,
		AllowLineExtractor:   allowExtractor,
		Guardrail:            c.Guardrail,
		EscalateOnExhaustion: row.EscalateOnExhaustion,
	}
}

// #endregion decide

// #region table-cells

// TableCells returns every (class, quote_intent) cell in the decision table.
// Used by parity tests to enumerate the full matrix.
func TableCells() []query.Classification {
	cells := make([]query.Classification, 0, len(decisionTable))
	for k := range decisionTable {
		cells = append(cells, query.Classification{Class: k.Class, QuoteIntent: k.Quote})
	}
	return cells
}

// #endregion table-cells
