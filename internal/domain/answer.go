package domain

// AnswerType is the semantic category a question is expected to resolve to.
// It is derived from the question text per request and never persisted.
type AnswerType int

// Answer types in classification precedence order. When several detector
// families fire on the same question, the lowest-valued type wins.
const (
	AnswerPercentage AnswerType = iota
	AnswerCount
	AnswerDate
	AnswerName
	AnswerGeneral
)

func (t AnswerType) String() string {
	switch t {
	case AnswerPercentage:
		return "percentage"
	case AnswerCount:
		return "count"
	case AnswerDate:
		return "date"
	case AnswerName:
		return "name"
	default:
		return "general"
	}
}

// AnswerSource records how the final answer text was obtained: verbatim
// from the generation, extracted from the retrieved context, or a
// fallback message.
type AnswerSource string

const (
	// SourceVerbatim means the raw generation was trusted as-is.
	SourceVerbatim AnswerSource = "verbatim"
	// SourceContextPercentage means a percent value was extracted from context.
	SourceContextPercentage AnswerSource = "context_percentage"
	// SourceContextFraction means a fraction or count was extracted from context.
	SourceContextFraction AnswerSource = "context_fraction"
	// SourceContextDate means a date token was extracted from context.
	SourceContextDate AnswerSource = "context_date"
	// SourceContextName means a name phrase was extracted from context.
	SourceContextName AnswerSource = "context_name"
	// SourceFallback means extraction failed and a fallback message was used.
	SourceFallback AnswerSource = "fallback"
)

// ExtractionResult is the validator's output: the final answer text plus
// where it came from, kept for observability and testing.
type ExtractionResult struct {
	Text   string
	Source AnswerSource
}
