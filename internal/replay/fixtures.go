package replay

// #region imports
import (
	"github.com/quarryhq/groundctl/internal/evidence"
	"github.com/quarryhq/groundctl/internal/retrieval"
)

// #endregion

// #region canonical

// Canonical returns the built-in regression scenarios. fixture-export writes
// these to disk so routing changes show up as reviewable fixture diffs.
func Canonical() []Fixture {
	strongStats := retrieval.Stats{
		DenseTop1: 0.92, DenseTop5Avg: 0.88, HasDense: true,
		SparseTop1: 0.6, SparseTop5Avg: 0.5, HasSparse: true,
	}
	weakStats := retrieval.Stats{
		DenseTop1: 0.2, DenseTop5Avg: 0.15, HasDense: true,
	}
	strongBlocks := []evidence.Block{
		{ID: "b1", Text: "The onboarding checklist has four steps.", SourceID: "handbook", Section: "onboarding", TenantID: "t", Type: evidence.BlockAnswerText},
		{ID: "b2", Text: "Each step is signed off by the team lead.", SourceID: "handbook", Section: "onboarding", TenantID: "t", Type: evidence.BlockAnswerText},
	}

	boolPtr := func(b bool) *bool { return &b }
	floatPtr := func(f float64) *float64 { return &f }

	return []Fixture{
		{
			Name:      "smalltalk greeting answers without evidence",
			QueryText: "hello",
			Mode:      "owner",
			Expected:  Expected{Class: "smalltalk", Action: "answer", Intent: "smalltalk", MinConfidence: floatPtr(0.85)},
		},
		{
			Name:      "factual question with strong evidence answers",
			QueryText: "what is the onboarding checklist",
			Mode:      "owner",
			Stats:     strongStats,
			Evidence:  strongBlocks,
			Expected:  Expected{Class: "factual", Action: "answer", Intent: "factual_lookup", StrictGrounding: boolPtr(true), MinConfidence: floatPtr(0.6)},
		},
		{
			Name:      "factual question with weak evidence clarifies",
			QueryText: "what is the onboarding checklist",
			Mode:      "owner",
			Stats:     weakStats,
			Evidence:  nil,
			Exhausted: true,
			Expected:  Expected{Class: "factual", Action: "clarify", MaxConfidence: floatPtr(0.2)},
		},
		{
			Name:      "guardrail topic refuses",
			QueryText: "what is the home address of the founder",
			Mode:      "owner",
			Stats:     strongStats,
			Evidence:  strongBlocks,
			Expected:  Expected{Class: "factual", Action: "refuse", ReasonCode: "policy_violation"},
		},
		{
			Name:      "evaluative question exhausted escalates",
			QueryText: "do you think the old plan was better",
			Mode:      "owner",
			Stats:     weakStats,
			Exhausted: true,
			Expected:  Expected{Class: "evaluative", Action: "escalate", ReasonCode: "evidence_exhausted"},
		},
		{
			Name:      "short follow-up inherits factual class",
			QueryText: "why?",
			Mode:      "owner",
			PrevClass: "factual",
			Stats:     strongStats,
			Evidence:  strongBlocks,
			Expected:  Expected{Class: "factual", Action: "answer", Intent: "factual_lookup"},
		},
		{
			Name:      "bare fragment with no context clarifies",
			QueryText: "the thing",
			Mode:      "owner",
			Expected:  Expected{Class: "insufficient", Action: "clarify", Intent: "underspecified"},
		},
		{
			Name:      "quote request with strong answer text extracts verbatim",
			QueryText: "what is the exact wording of the onboarding checklist",
			Mode:      "owner",
			Stats:     strongStats,
			Evidence:  strongBlocks,
			Expected:  Expected{Class: "factual", Action: "answer", StrictGrounding: boolPtr(false)},
		},
	}
}

// #endregion canonical
