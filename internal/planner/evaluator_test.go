package planner

import (
	"strings"
	"testing"

	"github.com/quarryhq/groundctl/internal/calibrate"
	"github.com/quarryhq/groundctl/internal/evidence"
)

func TestEvaluatorNeverOverridesAnswer(t *testing.T) {
	e := NewEvaluator()
	// Every evidence/answerability combination the evaluator can see: the
	// action must survive untouched for direct/derivable non-quote answers.
	evidenceSets := [][]evidence.Block{
		nil,
		{answerBlock("a", 0.9)},
		{promptBlock("q")},
		{{ID: "long", Text: strings.Repeat("x", 5000), Type: evidence.BlockAnswerText}},
	}
	states := []calibrate.Answerability{calibrate.AnswerDirect, calibrate.AnswerDerivable}

	for _, blocks := range evidenceSets {
		for _, ans := range states {
			d := NewAnswer("factual_lookup", "grounded_synthesis", 0.1, nil)
			ann := e.Evaluate(d, blocks, ans)
			got := ann.Apply(d)
			if got.Action != ActionAnswer {
				t.Fatalf("evaluator overrode action to %s (ans=%s)", got.Action, ans)
			}
			if got.ChosenWorkflow != d.ChosenWorkflow || got.QuoteBlockID != d.QuoteBlockID {
				t.Fatal("evaluator mutated routing fields")
			}
		}
	}
}

func TestEvaluatorAnnotates(t *testing.T) {
	e := NewEvaluator()
	d := NewAnswer("factual_lookup", "grounded_synthesis", 0.1, nil)
	ann := e.Evaluate(d, nil, calibrate.AnswerDerivable)
	if len(ann.Notes) == 0 {
		t.Fatal("uncited low-confidence answer should gather notes")
	}
	got := ann.Apply(d)
	if len(got.Annotations) != len(ann.Notes) {
		t.Fatalf("annotations not attached: %+v", got.Annotations)
	}
}

func TestAnnotationApplyPreservesDecisionCopy(t *testing.T) {
	d := NewAnswer("factual_lookup", "grounded_synthesis", 0.9, []string{"doc-1"})
	ann := Annotation{Notes: []string{"note"}}
	_ = ann.Apply(d)
	if len(d.Annotations) != 0 {
		t.Fatal("Apply must not mutate the input decision")
	}
}
