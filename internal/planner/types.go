package planner

// #region imports
import (
	"fmt"
)

// #endregion

// #region action

// Action is the closed set of terminal outcomes for a turn.
type Action string

const (
	ActionAnswer   Action = "answer"
	ActionClarify  Action = "clarify"
	ActionRefuse   Action = "refuse"
	ActionEscalate Action = "escalate"
)

// #endregion action

// #region reason-codes

// Reason codes persisted with refuse/escalate decisions.
const (
	ReasonPolicyViolation   = "policy_violation"
	ReasonBudgetExceeded    = "budget_exceeded"
	ReasonEvidenceExhausted = "evidence_exhausted"
)

// #endregion reason-codes

// #region routing-decision

// RoutingDecision is the contract emitted by the planner: the single source
// of truth for what the composer renders. The composer must never invent a
// different action.
type RoutingDecision struct {
	Intent                string   `json:"intent"`
	Confidence            float64  `json:"confidence"`
	RequiredInputsMissing []string `json:"required_inputs_missing,omitempty"`
	ChosenWorkflow        string   `json:"chosen_workflow"`
	OutputSchema          string   `json:"output_schema"`
	Action                Action   `json:"action"`
	ClarifyingQuestions   []string `json:"clarifying_questions,omitempty"`
	ReasonCode            string   `json:"reason_code,omitempty"`
	QuoteBlockID          string   `json:"quote_block_id,omitempty"`
	Citations             []string `json:"citations,omitempty"`
	Annotations           []string `json:"annotations,omitempty"`
}

const outputSchemaChat = "chat_message_v1"

// #endregion routing-decision

// #region constructors

// Per-variant required fields are enforced at construction time, not by
// convention.

// NewAnswer builds an answer decision.
func NewAnswer(intent, workflow string, confidence float64, citations []string) RoutingDecision {
	return RoutingDecision{
		Intent:         intent,
		Confidence:     confidence,
		ChosenWorkflow: workflow,
		OutputSchema:   outputSchemaChat,
		Action:         ActionAnswer,
		Citations:      citations,
	}
}

// NewClarify builds a clarify decision; 1 to 3 questions are mandatory.
func NewClarify(intent string, confidence float64, missing, questions []string) (RoutingDecision, error) {
	if len(questions) == 0 || len(questions) > 3 {
		return RoutingDecision{}, fmt.Errorf("clarify requires 1-3 questions, got %d", len(questions))
	}
	return RoutingDecision{
		Intent:                intent,
		Confidence:            confidence,
		RequiredInputsMissing: missing,
		ChosenWorkflow:        "clarification",
		OutputSchema:          outputSchemaChat,
		Action:                ActionClarify,
		ClarifyingQuestions:   questions,
	}, nil
}

// NewRefuse builds a refuse decision; a reason code is mandatory.
func NewRefuse(intent, reasonCode string) (RoutingDecision, error) {
	if reasonCode == "" {
		return RoutingDecision{}, fmt.Errorf("refuse requires a reason code")
	}
	return RoutingDecision{
		Intent:         intent,
		ChosenWorkflow: "refusal",
		OutputSchema:   outputSchemaChat,
		Action:         ActionRefuse,
		ReasonCode:     reasonCode,
	}, nil
}

// NewEscalate builds an escalate decision; a reason code is mandatory.
func NewEscalate(intent, reasonCode string, confidence float64) (RoutingDecision, error) {
	if reasonCode == "" {
		return RoutingDecision{}, fmt.Errorf("escalate requires a reason code")
	}
	return RoutingDecision{
		Intent:         intent,
		Confidence:     confidence,
		ChosenWorkflow: "escalation",
		OutputSchema:   outputSchemaChat,
		Action:         ActionEscalate,
		ReasonCode:     reasonCode,
	}, nil
}

// #endregion constructors

// #region turn-states

// TurnState names the stations of the per-turn state machine.
type TurnState string

const (
	StateReceived        TurnState = "received"
	StateClassified      TurnState = "classified"
	StateSmalltalkBypass TurnState = "smalltalk_bypass"
	StateGated           TurnState = "gated"
	StateRetrieval       TurnState = "retrieval"
	StateCalibrated      TurnState = "calibrated"
	StateRouted          TurnState = "routed"
)

// transitions is the legal edge set. Retrieval may loop on itself (staged
// retries); routed is terminal.
var transitions = map[TurnState][]TurnState{
	StateReceived:        {StateClassified},
	StateClassified:      {StateSmalltalkBypass, StateGated},
	StateSmalltalkBypass: {StateRouted},
	StateGated:           {StateRetrieval, StateRouted},
	StateRetrieval:       {StateRetrieval, StateCalibrated},
	StateCalibrated:      {StateRouted},
	StateRouted:          nil,
}

// Trace tracks a turn's path through the state machine.
type Trace struct {
	states []TurnState
}

// NewTrace starts a trace in the received state.
func NewTrace() *Trace {
	return &Trace{states: []TurnState{StateReceived}}
}

// Current returns the present state.
func (t *Trace) Current() TurnState {
	return t.states[len(t.states)-1]
}

// Advance moves to next, rejecting illegal transitions.
func (t *Trace) Advance(next TurnState) error {
	cur := t.Current()
	for _, allowed := range transitions[cur] {
		if allowed == next {
			t.states = append(t.states, next)
			return nil
		}
	}
	return fmt.Errorf("illegal transition %s -> %s", cur, next)
}

// Path returns the visited states in order.
func (t *Trace) Path() []TurnState {
	out := make([]TurnState, len(t.states))
	copy(out, t.states)
	return out
}

// #endregion turn-states
