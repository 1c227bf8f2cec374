package query

// #region query-class

// Class is the semantic category of a user utterance.
type Class string

const (
	ClassSmalltalk    Class = "smalltalk"
	ClassIdentity     Class = "identity"
	ClassProcedural   Class = "procedural"
	ClassFactual      Class = "factual"
	ClassEvaluative   Class = "evaluative"
	ClassInsufficient Class = "insufficient"
)

// Known reports whether c is one of the defined classes.
func (c Class) Known() bool {
	switch c {
	case ClassSmalltalk, ClassIdentity, ClassProcedural, ClassFactual, ClassEvaluative, ClassInsufficient:
		return true
	}
	return false
}

// #endregion query-class

// #region mode

// Mode distinguishes owner access from public access to a corpus.
type Mode string

const (
	ModeOwner  Mode = "owner"
	ModePublic Mode = "public"
)

// #endregion mode

// #region query

// Query is a single user utterance plus conversation context.
// Immutable once received.
type Query struct {
	Text           string
	ConversationID string
	GroupID        string
	TenantID       string
	TwinID         string
	Mode           Mode
	Metadata       map[string]any
}

// #endregion query

// #region classification

// Classification is the derived view of an utterance. Never persisted verbatim.
type Classification struct {
	Class            Class
	QuoteIntent      bool // user wants verbatim source text
	RequiresEvidence bool
	Guardrail        bool // matched a forbidden-topic guardrail
}

// #endregion classification

// #region conversation-state

// ConversationState carries the prior turn's classification and the access
// mode, for follow-up inheritance and policy decisions.
type ConversationState struct {
	PrevClass *Classification
	TurnCount int
	Mode      Mode
}

// #endregion conversation-state
