// Package engine drives a conversation turn end to end: classify, gate,
// staged retrieval, calibrate, route, compose, stream, audit.
package engine

// #region imports
import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/quarryhq/groundctl/internal/audit"
	"github.com/quarryhq/groundctl/internal/calibrate"
	"github.com/quarryhq/groundctl/internal/compose"
	"github.com/quarryhq/groundctl/internal/evidence"
	"github.com/quarryhq/groundctl/internal/planner"
	"github.com/quarryhq/groundctl/internal/policy"
	"github.com/quarryhq/groundctl/internal/query"
	"github.com/quarryhq/groundctl/internal/retrieval"
	"github.com/quarryhq/groundctl/internal/stream"
)

// #endregion

var errNoGenerator = errors.New("no generation provider configured")

// #region generator

// Generator streams completion tokens for a grounded prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, fn func(token string) error) error
}

// #endregion generator

// #region engine

// Config holds pipeline-level settings.
type Config struct {
	TurnBudget    time.Duration
	AssistantName string
}

// Engine owns the turn pipeline and the per-conversation memory.
type Engine struct {
	cfg          Config
	retrieverCfg retrieval.Config
	calibrateCfg calibrate.Config

	retriever *retrieval.Retriever
	planner   *planner.Planner
	evaluator *planner.Evaluator
	composer  *compose.Composer
	generator Generator
	store     *audit.Store
	locks     *stream.Locks
	log       *log.Logger

	mu     sync.Mutex
	memory map[string]*conversationMemory
}

type conversationMemory struct {
	prevClass query.Classification
	turns     int
}

// New wires an engine. generator may be nil (synthesized answers fall back
// to extractive composition); store may be nil (auditing disabled, used by
// offline tools).
func New(
	cfg Config,
	retrieverCfg retrieval.Config,
	calibrateCfg calibrate.Config,
	retriever *retrieval.Retriever,
	pl *planner.Planner,
	generator Generator,
	store *audit.Store,
	logger *log.Logger,
) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		cfg:          cfg,
		retrieverCfg: retrieverCfg,
		calibrateCfg: calibrateCfg,
		retriever:    retriever,
		planner:      pl,
		evaluator:    planner.NewEvaluator(),
		composer:     compose.New(cfg.AssistantName),
		generator:    generator,
		store:        store,
		locks:        stream.NewLocks(),
		log:          logger.WithPrefix("engine"),
		memory:       make(map[string]*conversationMemory),
	}
}

// #endregion engine

// #region turn-result

// TurnResult is what RunTurn hands back after the stream has terminated.
type TurnResult struct {
	TurnID       string
	Decision     planner.RoutingDecision
	ResponseText string
	Path         []planner.TurnState
}

// #endregion turn-result

// #region run-turn

// RunTurn processes one user message and streams the outcome through em.
// Turns on the same conversation are serialized; the stream always
// terminates with exactly one terminal event.
func (e *Engine) RunTurn(ctx context.Context, q query.Query, em *stream.Emitter) (TurnResult, error) {
	release := e.locks.Acquire(q.ConversationID)
	defer release()

	budgetCtx, cancel := context.WithTimeout(ctx, e.cfg.TurnBudget)
	defer cancel()

	turnID := uuid.NewString()
	trace := planner.NewTrace()
	state := e.conversationState(q)

	cls := query.Classify(q.Text, state)
	_ = trace.Advance(planner.StateClassified)
	gd := policy.Decide(cls, state)

	if err := em.Metadata(map[string]any{
		"turn_id":         turnID,
		"conversation_id": q.ConversationID,
		"intent":          string(gd.QueryClass),
	}); err != nil {
		return TurnResult{}, err
	}

	var (
		blocks         []evidence.Block
		stats          retrieval.Stats
		ans            calibrate.Answerability
		confidence     float64
		exhausted      bool
		budgetExceeded bool
	)

	if gd.IsSmalltalk {
		_ = trace.Advance(planner.StateSmalltalkBypass)
		confidence = calibrate.Calibrate(e.calibrateCfg, retrieval.Stats{}, gd, calibrate.AnswerDirect)
	} else {
		_ = trace.Advance(planner.StateGated)
		if gd.RequiresEvidence && !gd.Guardrail {
			blocks, stats, ans, confidence, exhausted, budgetExceeded = e.retrieveStaged(budgetCtx, q, gd, trace)
			_ = trace.Advance(planner.StateCalibrated)
		} else {
			ans = calibrate.AnswerInsufficient
			confidence = calibrate.Calibrate(e.calibrateCfg, retrieval.Stats{}, gd, ans)
		}
	}
	_ = trace.Advance(planner.StateRouted)

	in := planner.Input{
		Query:          q,
		Classification: cls,
		Grounding:      gd,
		Evidence:       blocks,
		Stats:          stats,
		Confidence:     confidence,
		Answerability:  ans,
		Exhausted:      exhausted,
		BudgetExceeded: budgetExceeded,
	}
	decision := e.planner.Route(in)
	usable := planner.UsableEvidence(blocks, gd)
	decision = e.evaluator.Evaluate(decision, usable, ans).Apply(decision)

	text, err := e.respond(budgetCtx, q, decision, usable, em)
	if err != nil {
		return TurnResult{}, err
	}

	e.remember(q.ConversationID, cls)
	e.audit(turnID, q, gd, decision, text)
	e.telemetry(turnID, gd, decision, ans, stats, usable)

	return TurnResult{
		TurnID:       turnID,
		Decision:     decision,
		ResponseText: text,
		Path:         trace.Path(),
	}, nil
}

// #endregion run-turn

// #region staged-retrieval

// retrieveStaged walks the attempt ladder until calibrated confidence clears
// the floor with usable evidence, the ladder runs out, or the turn budget
// expires.
func (e *Engine) retrieveStaged(ctx context.Context, q query.Query, gd policy.GroundingDecision, trace *planner.Trace) (
	blocks []evidence.Block, stats retrieval.Stats, ans calibrate.Answerability, confidence float64, exhausted, budgetExceeded bool,
) {
	scope := evidence.Scope{TenantID: q.TenantID, TwinID: q.TwinID}
	ladder := retrieval.Ladder(e.retrieverCfg)

	for _, attempt := range ladder {
		_ = trace.Advance(planner.StateRetrieval)

		blocks, stats = e.retriever.Retrieve(ctx, q.Text, scope, attempt, gd.StrictGrounding)
		ans = e.planner.Assess(blocks, gd, stats)
		confidence = calibrate.Calibrate(e.calibrateCfg, stats, gd, ans)

		if confidence >= e.calibrateCfg.Floor && ans != calibrate.AnswerInsufficient {
			return blocks, stats, ans, confidence, false, false
		}
		if ctx.Err() != nil {
			e.log.Warn("turn budget expired during retrieval", "attempt", attempt.Attempt)
			return blocks, stats, ans, confidence, false, true
		}
		e.log.Debug("attempt below floor, widening",
			"attempt", attempt.Attempt, "confidence", confidence, "answerability", ans)
	}
	return blocks, stats, ans, confidence, true, false
}

// #endregion staged-retrieval

// #region respond

// respond renders the decision and terminates the stream. Directly
// renderable actions emit one content event; synthesized answers stream
// generation tokens, falling back to extractive composition when the
// provider fails.
func (e *Engine) respond(ctx context.Context, q query.Query, d planner.RoutingDecision, usable []evidence.Block, em *stream.Emitter) (string, error) {
	if text, ok := e.composer.Direct(q, d, usable); ok {
		if err := em.Token(text); err != nil {
			return "", err
		}
		return text, e.terminate(d, em)
	}

	var b strings.Builder
	prompt := e.composer.Prompt(q, d, usable)
	genErr := errNoGenerator
	if e.generator != nil {
		genErr = e.generator.Generate(ctx, prompt, func(token string) error {
			b.WriteString(token)
			return em.Token(token)
		})
	}
	if genErr != nil {
		if b.Len() > 0 {
			// Tokens already reached the user; finish the stream as-is.
			e.log.Warn("generation failed mid-stream", "error", genErr)
			return b.String(), e.terminate(d, em)
		}
		e.log.Warn("generation unavailable, extractive fallback", "error", genErr)
		fallback := e.composer.Fallback(d, usable)
		if err := em.Token(fallback); err != nil {
			return "", err
		}
		return fallback, e.terminate(d, em)
	}
	return b.String(), e.terminate(d, em)
}

func (e *Engine) terminate(d planner.RoutingDecision, em *stream.Emitter) error {
	if d.Action == planner.ActionClarify {
		return em.Clarify(d.ClarifyingQuestions)
	}
	return em.Done(d.Confidence, d.Citations)
}

// #endregion respond

// #region conversation-memory

func (e *Engine) conversationState(q query.Query) query.ConversationState {
	e.mu.Lock()
	defer e.mu.Unlock()
	state := query.ConversationState{Mode: q.Mode}
	if m, ok := e.memory[q.ConversationID]; ok {
		prev := m.prevClass
		state.PrevClass = &prev
		state.TurnCount = m.turns
	}
	return state
}

func (e *Engine) remember(conversationID string, cls query.Classification) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.memory[conversationID]
	if !ok {
		m = &conversationMemory{}
		e.memory[conversationID] = m
	}
	m.prevClass = cls
	m.turns++
}

// #endregion conversation-memory

// #region audit

func (e *Engine) audit(turnID string, q query.Query, gd policy.GroundingDecision, d planner.RoutingDecision, text string) {
	if e.store == nil {
		return
	}
	groundingJSON, _ := json.Marshal(gd)
	routingJSON, _ := json.Marshal(d)
	err := e.store.RecordTurn(
		audit.TurnRecord{
			TurnID:         turnID,
			ConversationID: q.ConversationID,
			TenantID:       q.TenantID,
			QueryText:      q.Text,
			Mode:           string(q.Mode),
			GroundingJSON:  string(groundingJSON),
			RoutingJSON:    string(routingJSON),
		},
		audit.AuditRecord{
			TurnID:       turnID,
			Action:       string(d.Action),
			Intent:       d.Intent,
			Confidence:   d.Confidence,
			ReasonCode:   d.ReasonCode,
			Sources:      d.Citations,
			ResponseText: text,
		},
	)
	if err != nil {
		// The answer already streamed; losing the audit row is an
		// operational problem, not a turn failure.
		e.log.Error("audit write failed", "turn_id", turnID, "error", err)
	}
}

// #endregion audit

// #region telemetry

// telemetry logs the per-turn debug snapshot used to diagnose routing.
func (e *Engine) telemetry(turnID string, gd policy.GroundingDecision, d planner.RoutingDecision, ans calibrate.Answerability, stats retrieval.Stats, usable []evidence.Block) {
	types := map[evidence.BlockType]int{}
	for _, b := range usable {
		types[b.Type]++
	}
	e.log.Debug("turn snapshot",
		"turn_id", turnID,
		"query_class", gd.QueryClass,
		"requires_evidence", gd.RequiresEvidence,
		"quote_intent", gd.QuoteIntent,
		"answerability_state", ans,
		"planner_action", d.Action,
		"attempt", stats.Attempt,
		"dense_top1", stats.DenseTop1,
		"sparse_top1", stats.SparseTop1,
		"rerank_top1", stats.RerankTop1,
		"timed_out", stats.TimedOut,
		"evidence_block_types_selected", types,
	)
}

// #endregion telemetry
