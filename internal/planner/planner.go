// Package planner routes a gated, calibrated turn to exactly one action.
package planner

// #region imports
import (
	"github.com/charmbracelet/log"

	"github.com/quarryhq/groundctl/internal/calibrate"
	"github.com/quarryhq/groundctl/internal/evidence"
	"github.com/quarryhq/groundctl/internal/policy"
	"github.com/quarryhq/groundctl/internal/query"
	"github.com/quarryhq/groundctl/internal/retrieval"
)

// #endregion

// #region config

// Config holds the planner thresholds.
type Config struct {
	DirectThreshold    float64 `koanf:"direct_threshold"`
	DerivableThreshold float64 `koanf:"derivable_threshold"`
	QuoteThreshold     float64 `koanf:"quote_threshold"`
}

// DefaultConfig returns the planner defaults.
func DefaultConfig() Config {
	return Config{
		DirectThreshold:    0.6,
		DerivableThreshold: 0.3,
		QuoteThreshold:     0.72,
	}
}

// #endregion config

// #region planner

// Planner turns grounding decision + evidence + confidence into one
// RoutingDecision.
type Planner struct {
	cfg Config
	log *log.Logger
}

// New creates a planner.
func New(cfg Config, logger *log.Logger) *Planner {
	if logger == nil {
		logger = log.Default()
	}
	return &Planner{cfg: cfg, log: logger.WithPrefix("planner")}
}

// #endregion planner

// #region input

// Input bundles everything the routing step consumes.
type Input struct {
	Query          query.Query
	Classification query.Classification
	Grounding      policy.GroundingDecision
	Evidence       []evidence.Block
	Stats          retrieval.Stats
	Confidence     float64
	Answerability  calibrate.Answerability
	Exhausted      bool // retry ladder fully consumed
	BudgetExceeded bool // turn wall-clock budget blown
}

// #endregion input

// #region usable-evidence

// UsableEvidence filters the evidence set for answer composition.
// prompt_question blocks never feed identity answers or quote-intent turns;
// when only questionnaire text matched, the turn has nothing answerable and
// falls through to clarify or refuse.
func UsableEvidence(blocks []evidence.Block, gd policy.GroundingDecision) []evidence.Block {
	if gd.QueryClass != query.ClassIdentity && !gd.QuoteIntent {
		return blocks
	}
	var answers []evidence.Block
	for _, b := range blocks {
		if b.Type == evidence.BlockPromptQuestion {
			continue
		}
		answers = append(answers, b)
	}
	return answers
}

// #endregion usable-evidence

// #region assess

// Assess derives the qualitative answerability state from the usable
// evidence and the strongest normalized signal. Pure.
func (p *Planner) Assess(blocks []evidence.Block, gd policy.GroundingDecision, stats retrieval.Stats) calibrate.Answerability {
	usable := UsableEvidence(blocks, gd)
	if len(usable) == 0 {
		return calibrate.AnswerInsufficient
	}
	top1 := prioritySignalTop1(stats)
	switch {
	case top1 >= p.cfg.DirectThreshold:
		return calibrate.AnswerDirect
	case top1 >= p.cfg.DerivableThreshold || len(usable) >= 2:
		return calibrate.AnswerDerivable
	default:
		return calibrate.AnswerInsufficient
	}
}

func prioritySignalTop1(stats retrieval.Stats) float64 {
	switch {
	case stats.HasRerank:
		return stats.RerankTop1
	case stats.HasDense:
		return stats.DenseTop1
	case stats.HasSparse:
		return stats.SparseTop1
	}
	return 0
}

// #endregion assess

// #region route

// Route applies the priority rules and emits exactly one action. Every input
// combination terminates in a valid decision; this function cannot fail.
func (p *Planner) Route(in Input) RoutingDecision {
	intent := intentFor(in.Grounding.QueryClass)

	// 1. Policy forbidden: deterministic refuse, never silently answered.
	if in.Grounding.Guardrail {
		d, _ := NewRefuse(intent, ReasonPolicyViolation)
		p.log.Info("routed", "action", d.Action, "reason", d.ReasonCode)
		return d
	}

	// 2. Smalltalk bypass: answer, no evidence, no questions.
	if in.Grounding.IsSmalltalk {
		d := NewAnswer(intent, "smalltalk", in.Confidence, nil)
		return d
	}

	// 3. Blown wall-clock budget forces escalation over an unbounded hang.
	if in.BudgetExceeded {
		d, _ := NewEscalate(intent, ReasonBudgetExceeded, in.Confidence)
		p.log.Warn("routed", "action", d.Action, "reason", d.ReasonCode)
		return d
	}

	usable := UsableEvidence(in.Evidence, in.Grounding)

	// 4. Answerable evidence.
	if len(usable) > 0 && (in.Answerability == calibrate.AnswerDirect || in.Answerability == calibrate.AnswerDerivable) {
		d := NewAnswer(intent, workflowFor(in), in.Confidence, citations(usable))
		if quoteID, ok := p.quoteEligible(in, usable); ok {
			d.QuoteBlockID = quoteID
			d.ChosenWorkflow = "verbatim_extract"
		}
		return d
	}

	// 5. Exhausted retries on a class that needs a human.
	if in.Exhausted && in.Grounding.EscalateOnExhaustion {
		d, _ := NewEscalate(intent, ReasonEvidenceExhausted, in.Confidence)
		p.log.Info("routed", "action", d.Action, "reason", d.ReasonCode)
		return d
	}

	// 6. Everything else asks the user. Clarification text is generated only
	// here; no other code path may emit clarifying questions.
	missing := missingInputs(in)
	questions := clarifyingQuestions(in.Grounding.QueryClass, in.Query.Text, missing)
	d, err := NewClarify(intent, in.Confidence, missing, questions)
	if err != nil {
		// Question generation is total; this is a programmer error. Degrade
		// to escalate rather than failing the turn.
		d, _ = NewEscalate(intent, ReasonEvidenceExhausted, in.Confidence)
	}
	return d
}

// #endregion route

// #region quote-eligibility

// quoteEligible permits verbatim extraction only for quote-intent turns with
// a strong answer_text block. prompt_question blocks never qualify.
func (p *Planner) quoteEligible(in Input, usable []evidence.Block) (string, bool) {
	if !in.Grounding.QuoteIntent || !in.Grounding.AllowLineExtractor {
		return "", false
	}
	if prioritySignalTop1(in.Stats) < p.cfg.QuoteThreshold {
		return "", false
	}
	for _, b := range usable {
		if b.Type == evidence.BlockAnswerText {
			return b.ID, true
		}
	}
	return "", false
}

// #endregion quote-eligibility

// #region helpers

func intentFor(class query.Class) string {
	switch class {
	case query.ClassSmalltalk:
		return "smalltalk"
	case query.ClassIdentity:
		return "identity_answer"
	case query.ClassProcedural:
		return "procedure_walkthrough"
	case query.ClassEvaluative:
		return "evaluative_judgment"
	case query.ClassInsufficient:
		return "underspecified"
	default:
		return "factual_lookup"
	}
}

func workflowFor(in Input) string {
	if in.Grounding.StrictGrounding {
		return "grounded_synthesis"
	}
	return "evidence_summary"
}

func citations(blocks []evidence.Block) []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range blocks {
		if seen[b.SourceID] {
			continue
		}
		seen[b.SourceID] = true
		out = append(out, b.SourceID)
	}
	return out
}

func missingInputs(in Input) []string {
	var missing []string
	if in.Grounding.QueryClass == query.ClassInsufficient {
		missing = append(missing, "topic")
	}
	if in.Grounding.RequiresEvidence && len(UsableEvidence(in.Evidence, in.Grounding)) == 0 {
		missing = append(missing, "supporting_evidence")
	}
	return missing
}

// #endregion helpers
