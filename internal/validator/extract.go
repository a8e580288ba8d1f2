package validator

import (
	"strconv"
	"strings"

	"github.com/docqa-cloud/docqa/internal/planner"
)

// looksLikeGarbage reports whether the answer carries no usable content:
// empty, a couple of non-digit characters, or pure punctuation. Short
// all-digit answers ("58") are kept.
func looksLikeGarbage(answer string) bool {
	if answer == "" {
		return true
	}
	if len(answer) <= 2 && !isAllDigits(answer) {
		return true
	}
	return garbageAnswer.MatchString(answer)
}

// isContextDump reports whether the text is regurgitated retrieval
// context rather than a formulated answer: too long, a long run with no
// sentence boundary, or containing document metadata boilerplate.
func isContextDump(text string) bool {
	stripped := strings.TrimSpace(text)
	if stripped == "" {
		return false
	}
	words := len(strings.Fields(stripped))
	if words > 30 {
		return true
	}
	if words > 15 && !sentenceEnd.MatchString(stripped) {
		return true
	}
	return metadataPattern.MatchString(stripped)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// mostFrequentPercent returns the explicit percentage value that occurs
// most often in text, normalized (internal whitespace removed). Ties go
// to the value seen first.
func mostFrequentPercent(text string) (string, bool) {
	matches := planner.ExplicitPercent.FindAllString(text, -1)
	if len(matches) == 0 {
		return "", false
	}
	normalized := make([]string, len(matches))
	for i, m := range matches {
		normalized[i] = strings.ReplaceAll(m, " ", "")
	}
	return mostFrequentFirstSeen(normalized), true
}

// mostFrequentStandaloneInt finds integers in [min, max] that stand on
// their own: fractions ("22/25") and decimals ("35.63") are masked out
// first so their components are not mistaken for percentages.
func mostFrequentStandaloneInt(text string, min, max int) (int, bool) {
	masked := planner.Fraction.ReplaceAllString(text, "FRACTION")
	masked = decimalNumber.ReplaceAllString(masked, "DECIMAL")

	var candidates []string
	for _, m := range bareInteger.FindAllStringSubmatch(masked, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < min || n > max {
			continue
		}
		candidates = append(candidates, m[1])
	}
	if len(candidates) == 0 {
		return 0, false
	}
	n, _ := strconv.Atoi(mostFrequentFirstSeen(candidates))
	return n, true
}

// longestRealName returns the longest ALL-CAPS phrase in text that is
// not a record code (course codes, certificate ids). First match wins
// among equal lengths.
func longestRealName(text string) (string, bool) {
	var best string
	for _, m := range planner.AllCapsPhrase.FindAllString(text, -1) {
		if metaToken.MatchString(m) {
			continue
		}
		if len(m) > len(best) {
			best = m
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

func mostFrequentFirstSeen(values []string) string {
	counts := make(map[string]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	best := values[0]
	for _, v := range values {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best
}
