package evidence

// #region block-type

// BlockType distinguishes answer-bearing content from prompt/question content.
type BlockType string

const (
	BlockAnswerText     BlockType = "answer_text"
	BlockPromptQuestion BlockType = "prompt_question"
)

// #endregion block-type

// #region block

// Block is a scored unit of retrieved text.
type Block struct {
	ID       string
	Text     string
	Score    float64
	SourceID string
	Section  string
	TenantID string
	TwinID   string
	Type     BlockType
}

// #endregion block

// #region scope

// Scope restricts retrieval to one tenant's corpus (and optionally one twin).
// Enforced at the adapter boundary on every call.
type Scope struct {
	TenantID string
	TwinID   string
}

// Admits reports whether the block belongs to this scope.
func (s Scope) Admits(b Block) bool {
	if b.TenantID != s.TenantID {
		return false
	}
	if s.TwinID != "" && b.TwinID != s.TwinID {
		return false
	}
	return true
}

// #endregion scope
