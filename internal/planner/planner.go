// Package planner improves retrieval precision for typed questions
// without a second model call: it classifies the expected answer type,
// widens the search query with type-specific keywords, and re-ranks
// retrieved chunks by answer-type relevance.
//
// The trigger-word sets and the Percentage > Count > Date > Name >
// General precedence are a deliberate disambiguation policy: percentage
// triggers are kept narrow (explicit percent/aggregate/CGPA/GPA wording
// or a standalone '%') so that "marks" and "score" classify as Count.
package planner

import (
	"regexp"
	"sort"
	"strings"

	"github.com/docqa-cloud/docqa/internal/domain"
)

// Question detectors: what kind of answer is the user asking for.
var (
	qPercentage = regexp.MustCompile(`(?i)\b(percent(?:age)?|cgpa|gpa|aggregate)\b`)
	qDate       = regexp.MustCompile(`(?i)\b(when|date|year|month|day|born|issued|expir(?:y|ed|ation)|valid(?:ity)?)\b`)
	qName       = regexp.MustCompile(`(?i)\b(who|name|author|issued\s+to|student|candidate|person|organization|college|university|institute)\b`)
	qCount      = regexp.MustCompile(`(?i)\b(how\s+many|how\s+much|count|total\s+number|number\s+of|quantity|amount|assignment|submission|complet|marks?|score|grade|result|obtained|got)\b`)

	qDenominator = regexp.MustCompile(`(?i)\b(?:from|out\s+of|in)\s+(\d+)(?:\s+marks?)?\b`)
)

// Answer-value matchers, shared with the validator.
var (
	// ExplicitPercent matches "69%" or "92.5 %".
	ExplicitPercent = regexp.MustCompile(`\d[\d.,]*\s*%`)
	// Fraction matches "45/75", "22/25", "35.63/75"; groups are numerator and denominator.
	Fraction = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*/\s*(\d+(?:\.\d+)?)`)
	// DateToken matches numeric dates and "Month YYYY" forms.
	DateToken = regexp.MustCompile(`(?i)\b\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}\b|\b\d{4}[/\-]\d{2}[/\-]\d{2}\b|\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\w*[\s,]+\d{4}\b`)
	// TitleCasePhrase matches multi-word Title Case phrases like "John Doe".
	TitleCasePhrase = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+`)
	// AllCapsPhrase matches ALL-CAPS name sequences like "RADADIYA HETVI HASMUKHBHAI".
	AllCapsPhrase = regexp.MustCompile(`\b[A-Z]{2,}(?:\s+[A-Z]{2,}){1,4}\b`)
)

// IsPercentageQuestion reports whether the question explicitly asks for a
// percent-style value: percent/aggregate/CGPA/GPA wording or a standalone
// '%' character (not one inside a fraction or word).
func IsPercentageQuestion(question string) bool {
	return qPercentage.MatchString(question) || hasBarePercent(question)
}

// IsDateQuestion reports whether the question asks for a temporal value.
func IsDateQuestion(question string) bool { return qDate.MatchString(question) }

// IsNameQuestion reports whether the question asks for a person or organization.
func IsNameQuestion(question string) bool { return qName.MatchString(question) }

// IsCountQuestion reports whether the question asks for a count or score.
func IsCountQuestion(question string) bool { return qCount.MatchString(question) }

// Denominator extracts N from "from N", "out of N", "in N marks" phrasing,
// used to locate a specific X/N fraction in context.
func Denominator(question string) (string, bool) {
	m := qDenominator.FindStringSubmatch(question)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Classify returns the single primary answer type for the question.
// Detector families are not mutually exclusive; the precedence
// Percentage > Count > Date > Name > General resolves ambiguity and must
// not be reordered ("how many marks" is Count, "what percentage" is
// Percentage).
func Classify(question string) domain.AnswerType {
	switch {
	case IsPercentageQuestion(question):
		return domain.AnswerPercentage
	case IsCountQuestion(question):
		return domain.AnswerCount
	case IsDateQuestion(question):
		return domain.AnswerDate
	case IsNameQuestion(question):
		return domain.AnswerName
	default:
		return domain.AnswerGeneral
	}
}

var expansionSets = []struct {
	detect   func(string) bool
	keywords string
}{
	{IsPercentageQuestion, "percentage % score marks grade aggregate total"},
	{IsDateQuestion, "date year month issued valid"},
	{IsNameQuestion, "name person author candidate organization"},
	{IsCountQuestion, "total number count assignments submissions"},
}

// Expand appends type-specific synonym keywords to the question to widen
// nearest-neighbor recall. Idempotent: a keyword set already present in
// the query is not appended again.
func Expand(question string) string {
	out := strings.TrimRight(question, " \t\n")
	for _, set := range expansionSets {
		if !set.detect(question) {
			continue
		}
		if strings.Contains(out, set.keywords) {
			continue
		}
		out += " " + set.keywords
	}
	return out
}

// Rerank re-scores chunks for answer-type relevance and returns the top
// topK. The sort is stable: equal scores preserve retrieval order.
func Rerank(chunks []domain.Chunk, question string, topK int) []domain.Chunk {
	if len(chunks) == 0 || topK <= 0 {
		return nil
	}

	scores := make([]float64, len(chunks))
	for i, c := range chunks {
		scores[i] = scoreChunk(c.Text, question)
	}

	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if topK > len(order) {
		topK = len(order)
	}
	out := make([]domain.Chunk, topK)
	for i := 0; i < topK; i++ {
		out[i] = chunks[order[i]]
	}
	return out
}

func scoreChunk(text, question string) float64 {
	score := 1.0

	if IsPercentageQuestion(question) {
		if ExplicitPercent.MatchString(text) {
			score += 3.0
		}
		if Fraction.MatchString(text) && !ExplicitPercent.MatchString(text) {
			score -= 1.0
		}
	}

	if IsDateQuestion(question) && DateToken.MatchString(text) {
		score += 2.0
	}

	if IsNameQuestion(question) && TitleCasePhrase.MatchString(text) {
		score += 1.5
	}

	return score
}

// hasBarePercent reports whether s contains a '%' whose neighbors are
// neither word characters nor '/', so "35%ile" and fraction notation do
// not count as percentage triggers.
func hasBarePercent(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		if i > 0 && isWordOrSlash(s[i-1]) {
			continue
		}
		if i+1 < len(s) && isWordOrSlash(s[i+1]) {
			continue
		}
		return true
	}
	return false
}

func isWordOrSlash(b byte) bool {
	return b == '/' || b == '_' ||
		(b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
