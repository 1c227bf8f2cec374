package policy

import (
	"testing"

	"github.com/quarryhq/groundctl/internal/query"
)

func TestDecideSmalltalkShortCircuit(t *testing.T) {
	d := Decide(query.Classification{Class: query.ClassSmalltalk}, query.ConversationState{})
	if !d.IsSmalltalk {
		t.Fatal("expected smalltalk decision")
	}
	if d.RequiresEvidence || d.StrictGrounding || d.AllowLineExtractor {
		t.Fatalf("smalltalk must bypass retrieval entirely: %+v", d)
	}
}

func TestDecideIdentityNonQuoteDisallowsExtractor(t *testing.T) {
	d := Decide(query.Classification{Class: query.ClassIdentity, QuoteIntent: false}, query.ConversationState{})
	if d.AllowLineExtractor {
		t.Fatal("verbatim extraction is quote-only")
	}
	if !d.RequiresEvidence || !d.StrictGrounding {
		t.Fatalf("identity without quote intent grounds strictly: %+v", d)
	}
}

func TestDecideStrictGroundingRule(t *testing.T) {
	// strict_grounding holds exactly when evidence is required and the turn
	// is not a quote request, with insufficient as the conservative exception.
	for _, cell := range TableCells() {
		d := Decide(cell, query.ConversationState{})
		if d.RequiresEvidence && !d.QuoteIntent && !d.StrictGrounding {
			t.Fatalf("cell %+v: evidence without quote intent must ground strictly", cell)
		}
		if !d.RequiresEvidence && d.StrictGrounding {
			t.Fatalf("cell %+v: strict grounding without evidence makes no sense", cell)
		}
	}
}

func TestDecideMalformedClassificationConservative(t *testing.T) {
	d := Decide(query.Classification{Class: query.Class("garbage")}, query.ConversationState{})
	if !d.RequiresEvidence || !d.StrictGrounding {
		t.Fatalf("malformed classification must fall to the conservative row: %+v", d)
	}
	if d.AllowLineExtractor {
		t.Fatal("malformed classification must not enable extraction")
	}
}

func TestDecideDeterministic(t *testing.T) {
	state := query.ConversationState{Mode: query.ModeOwner, TurnCount: 4}
	for _, cell := range TableCells() {
		first := Decide(cell, state)
		for i := 0; i < 25; i++ {
			if got := Decide(cell, state); got != first {
				t.Fatalf("cell %+v: decision drifted: %+v vs %+v", cell, got, first)
			}
		}
	}
}

func TestDecidePublicModeDisablesExtraction(t *testing.T) {
	c := query.Classification{Class: query.ClassFactual, QuoteIntent: true}
	owner := Decide(c, query.ConversationState{Mode: query.ModeOwner})
	public := Decide(c, query.ConversationState{Mode: query.ModePublic})
	if !owner.AllowLineExtractor {
		t.Fatal("owner quote request should allow extraction")
	}
	if public.AllowLineExtractor {
		t.Fatal("public mode must not allow verbatim extraction")
	}
}

func TestDecideGuardrailPassthrough(t *testing.T) {
	d := Decide(query.Classification{Class: query.ClassFactual, Guardrail: true}, query.ConversationState{})
	if !d.Guardrail {
		t.Fatal("guardrail flag must survive the policy decision")
	}
}

func TestTableCoversEveryClass(t *testing.T) {
	classes := []query.Class{
		query.ClassSmalltalk, query.ClassIdentity, query.ClassProcedural,
		query.ClassFactual, query.ClassEvaluative, query.ClassInsufficient,
	}
	seen := make(map[query.Class]int)
	for _, cell := range TableCells() {
		seen[cell.Class]++
	}
	for _, c := range classes {
		if seen[c] != 2 {
			t.Fatalf("class %s has %d cells, want 2 (quote true/false)", c, seen[c])
		}
	}
}
