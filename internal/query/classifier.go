package query

// #region imports
import (
	"strings"
)

// #endregion

// #region keywords

var smalltalkExact = map[string]bool{
	"hi": true, "hello": true, "hey": true, "yo": true, "sup": true,
	"good morning": true, "good afternoon": true, "good evening": true,
	"how are you": true, "how's it going": true, "hows it going": true,
	"thanks": true, "thank you": true, "bye": true, "goodbye": true,
	"see you": true, "ok": true, "okay": true, "cool": true, "nice": true,
}

var smalltalkPrefixes = []string{
	"hi ", "hello ", "hey ", "thanks ", "thank you ", "good morning",
	"good afternoon", "good evening",
}

var identityKeywords = []string{
	"who are you", "what are you", "tell me about yourself",
	"introduce yourself", "your name", "who made you", "who built you",
	"what is your background", "describe yourself", "about you",
	"who am i talking to", "what do you do",
}

var proceduralPrefixes = []string{
	"how do i", "how do you", "how can i", "how to", "what steps",
	"walk me through", "show me how", "what is the process",
	"what's the process", "how would i",
}

var evaluativeKeywords = []string{
	"do you think", "what do you think", "is it better", "which is better",
	"should i", "would you recommend", "compare", "pros and cons",
	"what is your opinion", "what's your opinion", "how good is",
	"is it worth", "best way to",
}

var factualPrefixes = []string{
	"who is", "who was", "what is", "what are", "what was", "where is",
	"where was", "when did", "when was", "how many", "how much", "how old",
	"how long", "how far", "what year", "what date", "which",
	"tell me about", "what does",
}

var quoteIntentKeywords = []string{
	"quote", "verbatim", "word for word", "exact wording", "exact text",
	"exactly what", "exactly how", "the exact", "as written", "literally say",
	"copy of", "full text",
}

var guardrailKeywords = []string{
	"social security number", "credit card number", "password for",
	"medical diagnosis", "legal advice about my case", "home address of",
	"private phone number",
}

// #endregion keywords

// #region follow-up

// followUpWords are short prompts that typically continue the previous topic.
var followUpWords = []string{
	"why", "how", "what about", "and", "but", "so",
	"really", "tell me more", "go on", "explain", "elaborate",
	"what do you mean", "in what way", "like what", "more",
}

func isFollowUp(lower string) bool {
	for _, fw := range followUpWords {
		if strings.HasPrefix(lower, fw) {
			return true
		}
	}
	if strings.HasSuffix(lower, "?") && len(strings.Fields(lower)) <= 3 {
		return true
	}
	return false
}

// #endregion follow-up

// #region classify

// Classify classifies an utterance via keyword heuristics. No model call.
// state carries the previous turn's classification for context inheritance.
func Classify(text string, state ConversationState) Classification {
	lower := strings.ToLower(strings.TrimSpace(text))
	words := strings.Fields(lower)
	wordCount := len(words)

	quote := detectQuoteIntent(lower)
	guardrail := detectGuardrail(lower)

	class := classifyClass(lower, wordCount)

	// Context inheritance: short follow-up prompts continue the previous
	// turn's topic. Smalltalk never inherits into an evidence class.
	if state.PrevClass != nil && wordCount <= 8 && isFollowUp(lower) {
		prev := *state.PrevClass
		if class == ClassInsufficient && prev.Class != ClassSmalltalk {
			class = prev.Class
		}
		if prev.QuoteIntent && strings.Contains(lower, "more") {
			quote = true
		}
	}

	return Classification{
		Class:            class,
		QuoteIntent:      quote,
		RequiresEvidence: requiresEvidence(class),
		Guardrail:        guardrail,
	}
}

// #endregion classify

// #region classify-class

func classifyClass(lower string, wordCount int) Class {
	if lower == "" {
		return ClassInsufficient
	}

	if smalltalkExact[strings.TrimRight(lower, "!.?")] {
		return ClassSmalltalk
	}
	if wordCount <= 4 {
		for _, p := range smalltalkPrefixes {
			if strings.HasPrefix(lower, p) {
				return ClassSmalltalk
			}
		}
	}

	// Identity before factual: "who are you" is identity, not a lookup.
	for _, kw := range identityKeywords {
		if strings.Contains(lower, kw) {
			return ClassIdentity
		}
	}

	for _, p := range proceduralPrefixes {
		if strings.HasPrefix(lower, p) {
			return ClassProcedural
		}
	}

	for _, kw := range evaluativeKeywords {
		if strings.Contains(lower, kw) {
			return ClassEvaluative
		}
	}

	for _, p := range factualPrefixes {
		if strings.HasPrefix(lower, p) {
			return ClassFactual
		}
	}

	// Longer statements with a question mark read as factual lookups.
	if strings.Contains(lower, "?") && wordCount >= 3 {
		return ClassFactual
	}

	if wordCount <= 2 {
		return ClassInsufficient
	}

	return ClassFactual
}

// #endregion classify-class

// #region quote-intent

func detectQuoteIntent(lower string) bool {
	for _, kw := range quoteIntentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// #endregion quote-intent

// #region guardrail

func detectGuardrail(lower string) bool {
	for _, kw := range guardrailKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// #endregion guardrail

// #region requires-evidence

func requiresEvidence(class Class) bool {
	switch class {
	case ClassSmalltalk:
		return false
	case ClassIdentity, ClassProcedural, ClassFactual, ClassEvaluative, ClassInsufficient:
		return true
	}
	return true
}

// #endregion requires-evidence
