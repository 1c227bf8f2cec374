package planner

// #region imports
import (
	"fmt"
	"strings"

	"github.com/quarryhq/groundctl/internal/query"
)

// #endregion

// #region question-templates

var classQuestions = map[query.Class][]string{
	query.ClassIdentity: {
		"Are you asking about the person behind this assistant, or about the assistant itself?",
		"Which aspect are you interested in: background, experience, or current work?",
	},
	query.ClassProcedural: {
		"Which process are you asking about, and where are you currently stuck?",
		"Are you looking for the full procedure or a specific step?",
	},
	query.ClassEvaluative: {
		"What options are you weighing, and what matters most to you in the comparison?",
	},
	query.ClassFactual: {
		"Could you name the document or topic this refers to?",
		"Is there a time period or specific item you mean?",
	},
	query.ClassInsufficient: {
		"Could you say a bit more about what you want to know?",
		"Which topic from the knowledge base is this about?",
	},
}

// #endregion question-templates

// #region generate

// clarifyingQuestions produces 1-3 questions for the given class. Total:
// always returns at least one question.
func clarifyingQuestions(class query.Class, queryText string, missing []string) []string {
	questions := append([]string(nil), classQuestions[class]...)
	if len(questions) == 0 {
		questions = append(questions, classQuestions[query.ClassInsufficient]...)
	}

	// A referent question tied to the user's own words helps short queries.
	if terms := headTerms(queryText, 3); terms != "" && contains(missing, "supporting_evidence") {
		questions = append(questions,
			fmt.Sprintf("I could not find enough in the knowledge base about %q. Is there another way to phrase it?", terms))
	}

	if len(questions) > 3 {
		questions = questions[:3]
	}
	return questions
}

func headTerms(text string, n int) string {
	words := strings.Fields(strings.TrimSpace(text))
	if len(words) == 0 {
		return ""
	}
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}

// #endregion generate
