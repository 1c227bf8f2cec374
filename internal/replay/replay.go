// Package replay runs recorded routing scenarios through the decision
// pipeline offline and diffs the outcome against expectations. Retrieval is
// not re-executed; fixtures carry the canned stats and evidence of the
// original turn.
package replay

// #region imports
import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/quarryhq/groundctl/internal/calibrate"
	"github.com/quarryhq/groundctl/internal/evidence"
	"github.com/quarryhq/groundctl/internal/planner"
	"github.com/quarryhq/groundctl/internal/policy"
	"github.com/quarryhq/groundctl/internal/query"
	"github.com/quarryhq/groundctl/internal/retrieval"
)

// #endregion

// #region fixture

// Fixture is one recorded scenario.
type Fixture struct {
	Name      string           `json:"name"`
	QueryText string           `json:"query_text"`
	Mode      string           `json:"mode"`
	PrevClass string           `json:"prev_class,omitempty"`
	Stats     retrieval.Stats  `json:"stats"`
	Evidence  []evidence.Block `json:"evidence,omitempty"`
	Exhausted bool             `json:"exhausted,omitempty"`
	Expected  Expected         `json:"expected"`
}

// Expected pins the fields a scenario asserts on. Zero-valued fields are
// not checked, except Class and Action which are always required.
type Expected struct {
	Class           string   `json:"class"`
	Action          string   `json:"action"`
	Intent          string   `json:"intent,omitempty"`
	StrictGrounding *bool    `json:"strict_grounding,omitempty"`
	MinConfidence   *float64 `json:"min_confidence,omitempty"`
	MaxConfidence   *float64 `json:"max_confidence,omitempty"`
	ReasonCode      string   `json:"reason_code,omitempty"`
}

// Load reads a fixture file.
func Load(path string) ([]Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures []Fixture
	if err := json.Unmarshal(raw, &fixtures); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return fixtures, nil
}

// Save writes fixtures to path, pretty-printed for diff-friendly review.
func Save(path string, fixtures []Fixture) error {
	raw, err := json.MarshalIndent(fixtures, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixtures: %w", err)
	}
	return os.WriteFile(path, append(raw, '\n'), 0o644)
}

// #endregion fixture

// #region result

// Result is the outcome of replaying one fixture.
type Result struct {
	Name     string
	Pass     bool
	Diffs    []string
	Decision planner.RoutingDecision
}

// #endregion result

// #region runner

// Runner replays fixtures against the current decision pipeline.
type Runner struct {
	planner      *planner.Planner
	calibrateCfg calibrate.Config
}

// NewRunner builds a runner on the default thresholds.
func NewRunner(logger *log.Logger) *Runner {
	return &Runner{
		planner:      planner.New(planner.DefaultConfig(), logger),
		calibrateCfg: calibrate.DefaultConfig(),
	}
}

// Run replays one fixture.
func (r *Runner) Run(f Fixture) Result {
	res := Result{Name: f.Name}

	state := query.ConversationState{Mode: query.Mode(f.Mode)}
	if f.PrevClass != "" {
		state.PrevClass = &query.Classification{
			Class:            query.Class(f.PrevClass),
			RequiresEvidence: true,
		}
	}

	cls := query.Classify(f.QueryText, state)
	gd := policy.Decide(cls, state)
	ans := r.planner.Assess(f.Evidence, gd, f.Stats)
	confidence := calibrate.Calibrate(r.calibrateCfg, f.Stats, gd, ans)

	decision := r.planner.Route(planner.Input{
		Query:          query.Query{Text: f.QueryText, Mode: query.Mode(f.Mode)},
		Classification: cls,
		Grounding:      gd,
		Evidence:       f.Evidence,
		Stats:          f.Stats,
		Confidence:     confidence,
		Answerability:  ans,
		Exhausted:      f.Exhausted,
	})
	res.Decision = decision

	if string(cls.Class) != f.Expected.Class {
		res.Diffs = append(res.Diffs, fmt.Sprintf("class: want %s, got %s", f.Expected.Class, cls.Class))
	}
	if string(decision.Action) != f.Expected.Action {
		res.Diffs = append(res.Diffs, fmt.Sprintf("action: want %s, got %s", f.Expected.Action, decision.Action))
	}
	if f.Expected.Intent != "" && decision.Intent != f.Expected.Intent {
		res.Diffs = append(res.Diffs, fmt.Sprintf("intent: want %s, got %s", f.Expected.Intent, decision.Intent))
	}
	if f.Expected.StrictGrounding != nil && gd.StrictGrounding != *f.Expected.StrictGrounding {
		res.Diffs = append(res.Diffs, fmt.Sprintf("strict_grounding: want %v, got %v", *f.Expected.StrictGrounding, gd.StrictGrounding))
	}
	if f.Expected.MinConfidence != nil && confidence < *f.Expected.MinConfidence {
		res.Diffs = append(res.Diffs, fmt.Sprintf("confidence %.3f below %.3f", confidence, *f.Expected.MinConfidence))
	}
	if f.Expected.MaxConfidence != nil && confidence > *f.Expected.MaxConfidence {
		res.Diffs = append(res.Diffs, fmt.Sprintf("confidence %.3f above %.3f", confidence, *f.Expected.MaxConfidence))
	}
	if f.Expected.ReasonCode != "" && decision.ReasonCode != f.Expected.ReasonCode {
		res.Diffs = append(res.Diffs, fmt.Sprintf("reason: want %s, got %s", f.Expected.ReasonCode, decision.ReasonCode))
	}

	res.Pass = len(res.Diffs) == 0
	return res
}

// RunAll replays every fixture and returns the failures count.
func (r *Runner) RunAll(fixtures []Fixture) ([]Result, int) {
	results := make([]Result, 0, len(fixtures))
	failed := 0
	for _, f := range fixtures {
		res := r.Run(f)
		if !res.Pass {
			failed++
		}
		results = append(results, res)
	}
	return results, failed
}

// #endregion runner
