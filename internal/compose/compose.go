// Package compose renders a RoutingDecision into user-visible text. It is a
// thin formatting layer: the action always comes from the planner, never
// from here.
package compose

// #region imports
import (
	"fmt"
	"strings"

	"github.com/quarryhq/groundctl/internal/evidence"
	"github.com/quarryhq/groundctl/internal/planner"
	"github.com/quarryhq/groundctl/internal/query"
)

// #endregion

// #region composer

// Composer holds the action templates.
type Composer struct {
	AssistantName string
}

// New creates a composer.
func New(assistantName string) *Composer {
	if assistantName == "" {
		assistantName = "this assistant"
	}
	return &Composer{AssistantName: assistantName}
}

// #endregion composer

// #region direct

// Direct renders the actions that need no generation call: clarify, refuse,
// escalate, verbatim extraction, and smalltalk. Returns ok=false when the
// decision needs the generation provider instead.
func (c *Composer) Direct(q query.Query, d planner.RoutingDecision, blocks []evidence.Block) (string, bool) {
	switch d.Action {
	case planner.ActionClarify:
		return c.renderClarify(d), true
	case planner.ActionRefuse:
		return c.renderRefuse(d), true
	case planner.ActionEscalate:
		return c.renderEscalate(d), true
	case planner.ActionAnswer:
		if d.ChosenWorkflow == "smalltalk" {
			return c.renderSmalltalk(q), true
		}
		if d.QuoteBlockID != "" {
			return c.renderQuote(d, blocks), true
		}
	}
	return "", false
}

// #endregion direct

// #region prompt

// Prompt builds the grounded generation prompt for synthesized answers. The
// instruction wording enforces strict grounding: claims must come from the
// supplied evidence.
func (c *Composer) Prompt(q query.Query, d planner.RoutingDecision, blocks []evidence.Block) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the evidence below. ")
	b.WriteString("If the evidence does not contain the answer, say so plainly. ")
	b.WriteString("Do not invent facts.\n\n")
	for i, blk := range blocks {
		fmt.Fprintf(&b, "Evidence %d (source %s):\n%s\n\n", i+1, blk.SourceID, blk.Text)
	}
	fmt.Fprintf(&b, "Question: %s\n", q.Text)
	return b.String()
}

// #endregion prompt

// #region fallback

// Fallback produces an extractive answer when the generation provider is
// unavailable: the leading evidence sentences with their citations.
func (c *Composer) Fallback(d planner.RoutingDecision, blocks []evidence.Block) string {
	if len(blocks) == 0 {
		return "I found related material but could not compose an answer just now."
	}
	var b strings.Builder
	b.WriteString("Here is what the knowledge base says:\n")
	limit := 3
	if len(blocks) < limit {
		limit = len(blocks)
	}
	for i := 0; i < limit; i++ {
		fmt.Fprintf(&b, "- %s (source: %s)\n", firstSentence(blocks[i].Text), blocks[i].SourceID)
	}
	return b.String()
}

// #endregion fallback

// #region templates

func (c *Composer) renderSmalltalk(q query.Query) string {
	lower := strings.ToLower(strings.TrimSpace(q.Text))
	switch {
	case strings.HasPrefix(lower, "thank"):
		return "You're welcome! Ask me anything about the knowledge base."
	case strings.HasPrefix(lower, "bye") || strings.HasPrefix(lower, "goodbye"):
		return "Goodbye! Come back any time."
	default:
		return fmt.Sprintf("Hello! I'm %s. Ask me anything covered by the knowledge base.", c.AssistantName)
	}
}

func (c *Composer) renderQuote(d planner.RoutingDecision, blocks []evidence.Block) string {
	for _, b := range blocks {
		if b.ID == d.QuoteBlockID {
			return fmt.Sprintf("From %s:\n\n\"%s\"", b.SourceID, strings.TrimSpace(b.Text))
		}
	}
	// The planner guaranteed the block exists; losing it between routing and
	// composition is a programmer error, degrade to a safe notice.
	return "The exact passage is no longer available."
}

func (c *Composer) renderClarify(d planner.RoutingDecision) string {
	var b strings.Builder
	b.WriteString("I want to make sure I answer the right thing.\n")
	for _, q := range d.ClarifyingQuestions {
		fmt.Fprintf(&b, "- %s\n", q)
	}
	return b.String()
}

func (c *Composer) renderRefuse(d planner.RoutingDecision) string {
	if d.ReasonCode == planner.ReasonPolicyViolation {
		return "I can't help with that request."
	}
	return "I can't answer that here."
}

func (c *Composer) renderEscalate(d planner.RoutingDecision) string {
	return "I couldn't resolve this from the knowledge base. I've flagged it for a human to follow up."
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			return text[:i+1]
		}
	}
	return text
}

// #endregion templates
