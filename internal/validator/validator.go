// Package validator turns a raw generation into a trustworthy final
// answer. Generation models degrade on short factual prompts: they
// return the wrong numeric field, echo the prompt, or dump the retrieved
// context verbatim. Reconcile detects those failure modes and substitutes
// a value extracted directly from the retrieved context.
//
// Reconcile is a pure function of (rawAnswer, question, context); every
// per-type policy is independently testable.
package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/docqa-cloud/docqa/internal/domain"
	"github.com/docqa-cloud/docqa/internal/planner"
)

// Fallback messages. The validator always returns some text, never empty.
const (
	msgNoPercentage = "The percentage could not be found in the document."
	msgNoCount      = "The count could not be found in the document."
	msgNoDate       = "The date could not be found in the document."
	msgNoName       = "The name could not be found in the document."
	msgNoAnswer     = "I could not find a relevant answer in the document."
	msgNoSpecific   = "I found relevant information but could not extract a specific answer."
)

var (
	// garbageAnswer matches strings with no word characters at all.
	garbageAnswer = regexp.MustCompile(`^\s*\W*\s*$`)

	// rangeAnswer matches "2 or 3" style answers. These come from
	// recommendation text ("No. of credits recommended: 2 or 3"), not
	// from an actual count.
	rangeAnswer = regexp.MustCompile(`(?i)\b\d+\s+or\s+\d+\b`)

	// metadataPattern recognizes certificate / transcript boilerplate:
	// roll numbers, verification lines, credit recommendations and
	// course codes. Text containing these is raw context, not an answer.
	metadataPattern = regexp.MustCompile(`(?i)NPTEL\d+[A-Z0-9]+|Roll\s+No|To verify.*certificate|No\.\s*of\s*credits|recommended\s*:\s*\d|\b[A-Z]{2,}\d{4}[A-Z]{2}\d+S\w+\b`)

	// metaToken filters record codes out of ALL-CAPS name candidates.
	metaToken = regexp.MustCompile(`(?i)NPTEL\d|[A-Z]\d{4}`)

	decimalNumber = regexp.MustCompile(`\d+\.\d+`)
	bareInteger   = regexp.MustCompile(`\b(\d+)\b`)
	anyDigit      = regexp.MustCompile(`\d`)
	sentenceEnd   = regexp.MustCompile(`[.!?]`)
	firstSentence = regexp.MustCompile(`(?s)^(.*?[.!?])(?:\s|$)`)
)

// Reconcile validates and corrects the model's answer based on the
// detected question type, extracting from context when the raw answer is
// garbage, a context dump, or missing the expected value shape.
func Reconcile(rawAnswer, question, context string) domain.ExtractionResult {
	answer := strings.TrimSpace(rawAnswer)

	switch planner.Classify(question) {
	case domain.AnswerPercentage:
		return reconcilePercentage(answer, context)
	case domain.AnswerCount:
		return reconcileCount(answer, question, context)
	case domain.AnswerDate:
		return reconcileDate(answer, context)
	case domain.AnswerName:
		return reconcileName(answer, context)
	default:
		return reconcileGeneral(answer)
	}
}

// reconcilePercentage prefers, in order: a %-formatted raw answer, the
// most frequent explicit % value in context, a standalone integer in
// [30,100] that is not part of a fraction or decimal (recovers an
// aggregate like "58" from "22/25 35.63/75 58 1696"), the first fraction.
func reconcilePercentage(answer, context string) domain.ExtractionResult {
	if !looksLikeGarbage(answer) && !isContextDump(answer) && planner.ExplicitPercent.MatchString(answer) {
		return domain.ExtractionResult{Text: answer, Source: domain.SourceVerbatim}
	}

	if pct, ok := mostFrequentPercent(context); ok {
		return domain.ExtractionResult{Text: pct, Source: domain.SourceContextPercentage}
	}

	if best, ok := mostFrequentStandaloneInt(context, 30, 100); ok {
		return domain.ExtractionResult{
			Text:   fmt.Sprintf("%d%%", best),
			Source: domain.SourceContextPercentage,
		}
	}

	if m := planner.Fraction.FindStringSubmatch(context); m != nil {
		return domain.ExtractionResult{
			Text:   m[1] + "/" + m[2],
			Source: domain.SourceContextFraction,
		}
	}

	if answer != "" && !looksLikeGarbage(answer) {
		return domain.ExtractionResult{Text: answer, Source: domain.SourceVerbatim}
	}
	return domain.ExtractionResult{Text: msgNoPercentage, Source: domain.SourceFallback}
}

// reconcileCount handles marks/assignments/score questions. A
// denominator hint in the question ("from 25", "out of 75") locates the
// specific X/N fraction; otherwise a short numeric raw answer is
// trusted, except bare ranges like "2 or 3" which are rejected as
// recommendation text.
func reconcileCount(answer, question, context string) domain.ExtractionResult {
	if denom, ok := planner.Denominator(question); ok {
		specific := regexp.MustCompile(`(\d+(?:\.\d+)?)\s*/\s*` + regexp.QuoteMeta(denom) + `\b`)
		if m := specific.FindStringSubmatch(context); m != nil {
			return domain.ExtractionResult{
				Text:   m[1] + " out of " + denom,
				Source: domain.SourceContextFraction,
			}
		}
		if m := planner.Fraction.FindStringSubmatch(context); m != nil {
			return domain.ExtractionResult{
				Text:   m[1] + " out of " + m[2],
				Source: domain.SourceContextFraction,
			}
		}
	}

	// A range is not a definitive count; force context extraction.
	if rangeAnswer.MatchString(answer) {
		answer = ""
	}

	if anyDigit.MatchString(answer) && !looksLikeGarbage(answer) && !isContextDump(answer) &&
		len(strings.Fields(answer)) <= 10 {
		return domain.ExtractionResult{Text: answer, Source: domain.SourceVerbatim}
	}

	if m := planner.Fraction.FindStringSubmatch(context); m != nil {
		return domain.ExtractionResult{
			Text:   m[1] + " out of " + m[2],
			Source: domain.SourceContextFraction,
		}
	}

	if m := bareInteger.FindStringSubmatch(context); m != nil {
		return domain.ExtractionResult{Text: m[1], Source: domain.SourceContextFraction}
	}

	if answer != "" && !looksLikeGarbage(answer) {
		return domain.ExtractionResult{Text: answer, Source: domain.SourceVerbatim}
	}
	return domain.ExtractionResult{Text: msgNoCount, Source: domain.SourceFallback}
}

func reconcileDate(answer, context string) domain.ExtractionResult {
	if !looksLikeGarbage(answer) && !isContextDump(answer) && planner.DateToken.MatchString(answer) {
		return domain.ExtractionResult{Text: answer, Source: domain.SourceVerbatim}
	}

	if m := planner.DateToken.FindString(context); m != "" {
		return domain.ExtractionResult{Text: m, Source: domain.SourceContextDate}
	}

	if answer != "" && !looksLikeGarbage(answer) {
		return domain.ExtractionResult{Text: answer, Source: domain.SourceVerbatim}
	}
	return domain.ExtractionResult{Text: msgNoDate, Source: domain.SourceFallback}
}

// reconcileName prefers the longest ALL-CAPS multi-word sequence in
// context that is not a record code, then the first Title Case phrase.
func reconcileName(answer, context string) domain.ExtractionResult {
	if !looksLikeGarbage(answer) && !isContextDump(answer) &&
		(planner.TitleCasePhrase.MatchString(answer) || planner.AllCapsPhrase.MatchString(answer)) {
		return domain.ExtractionResult{Text: answer, Source: domain.SourceVerbatim}
	}

	if name, ok := longestRealName(context); ok {
		return domain.ExtractionResult{Text: name, Source: domain.SourceContextName}
	}

	if m := planner.TitleCasePhrase.FindString(context); m != "" {
		return domain.ExtractionResult{Text: m, Source: domain.SourceContextName}
	}

	if answer != "" && !looksLikeGarbage(answer) {
		return domain.ExtractionResult{Text: answer, Source: domain.SourceVerbatim}
	}
	return domain.ExtractionResult{Text: msgNoName, Source: domain.SourceFallback}
}

// reconcileGeneral guards against context dumps: salvage the first
// sentence when it is short enough, otherwise admit extraction failed.
func reconcileGeneral(answer string) domain.ExtractionResult {
	if isContextDump(answer) {
		sentence := answer
		if m := firstSentence.FindStringSubmatch(answer); m != nil {
			sentence = m[1]
		}
		if len(strings.Fields(sentence)) <= 20 {
			return domain.ExtractionResult{Text: sentence, Source: domain.SourceFallback}
		}
		return domain.ExtractionResult{Text: msgNoSpecific, Source: domain.SourceFallback}
	}

	if answer != "" {
		return domain.ExtractionResult{Text: answer, Source: domain.SourceVerbatim}
	}
	return domain.ExtractionResult{Text: msgNoAnswer, Source: domain.SourceFallback}
}
