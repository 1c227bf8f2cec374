package planner

// #region imports
import (
	"fmt"

	"github.com/quarryhq/groundctl/internal/calibrate"
	"github.com/quarryhq/groundctl/internal/evidence"
)

// #endregion

// #region evaluator

// Evaluator is the secondary online check that runs after routing. It may
// annotate a decision but holds no routing authority: a direct or derivable
// non-quote answer is never replaced or downgraded by anything found here.
type Evaluator struct {
	MaxEvidenceLen int
}

// NewEvaluator creates an evaluator with default limits.
func NewEvaluator() *Evaluator {
	return &Evaluator{MaxEvidenceLen: 4000}
}

// #endregion evaluator

// #region annotation

// Annotation is the evaluator's output: notes only, no action.
type Annotation struct {
	Notes []string
}

// #endregion annotation

// #region evaluate

// Evaluate inspects a routed decision against its evidence set.
func (e *Evaluator) Evaluate(d RoutingDecision, blocks []evidence.Block, ans calibrate.Answerability) Annotation {
	var notes []string

	if d.Action == ActionAnswer && d.ChosenWorkflow != "smalltalk" && len(d.Citations) == 0 {
		notes = append(notes, "answer carries no citations")
	}
	for _, b := range blocks {
		if e.MaxEvidenceLen > 0 && len(b.Text) > e.MaxEvidenceLen {
			notes = append(notes, fmt.Sprintf("evidence block %s exceeds length limit", b.ID))
		}
	}
	if d.Action == ActionAnswer && ans == calibrate.AnswerDerivable {
		notes = append(notes, "answer derived across blocks, not stated directly")
	}
	if d.Confidence > 0 && d.Confidence < 0.3 && d.Action == ActionAnswer {
		notes = append(notes, "low-confidence answer")
	}

	return Annotation{Notes: notes}
}

// #endregion evaluate

// #region apply

// Apply attaches the annotation to the decision. The action and every other
// routing field are preserved unconditionally; annotations never reroute.
func (a Annotation) Apply(d RoutingDecision) RoutingDecision {
	d.Annotations = append(d.Annotations, a.Notes...)
	return d
}

// #endregion apply
