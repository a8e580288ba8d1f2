package splitter

import (
	"strings"

	"github.com/docqa-cloud/docqa/internal/domain"
)

// Config controls chunking behavior. Sizes are in characters.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
}

// DefaultConfig returns the chunking defaults.
func DefaultConfig() Config {
	return Config{ChunkSize: 1000, ChunkOverlap: 100}
}

// Split breaks loader segments into overlapping chunks tagged with sourceID.
// Deterministic: identical inputs always produce identical chunks, and chunk
// order is segment order then position within the segment.
func Split(segments []domain.Segment, sourceID string, cfg Config) []domain.Chunk {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 10
	}

	var chunks []domain.Chunk
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		for _, part := range splitText(text, cfg.ChunkSize, cfg.ChunkOverlap) {
			chunks = append(chunks, domain.Chunk{
				Text:     part,
				SourceID: sourceID,
				Page:     seg.Page,
			})
		}
	}
	return chunks
}

// splitText breaks text into pieces of at most targetLen characters,
// preferring paragraph boundaries, then sentence boundaries, then a hard cut.
func splitText(text string, targetLen, overlap int) []string {
	if len(text) <= targetLen {
		return []string{text}
	}

	paragraphs := splitByParagraphs(text)

	var result []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		result = append(result, current.String())
		tail := overlapTail(current.String(), overlap)
		current.Reset()
		if tail != "" {
			current.WriteString(tail)
		}
	}

	for _, para := range paragraphs {
		// A single oversized paragraph is split by sentences.
		if len(para) > targetLen {
			flush()
			current.Reset()
			result = append(result, splitBySentences(para, targetLen, overlap)...)
			continue
		}

		if current.Len() > 0 && current.Len()+2+len(para) > targetLen {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}

	return result
}

func splitByParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func splitBySentences(text string, targetLen, overlap int) []string {
	sentences := splitSentences(text)

	var result []string
	var current strings.Builder

	for _, sent := range sentences {
		// A sentence longer than the target gets hard-cut.
		if len(sent) > targetLen {
			if current.Len() > 0 {
				result = append(result, current.String())
				current.Reset()
			}
			result = append(result, hardCut(sent, targetLen, overlap)...)
			continue
		}

		if current.Len() > 0 && current.Len()+1+len(sent) > targetLen {
			result = append(result, current.String())
			tail := overlapTail(current.String(), overlap)
			current.Reset()
			if tail != "" {
				current.WriteString(tail)
			}
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}

	return result
}

// splitSentences does basic sentence splitting on terminal punctuation.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			// Only end the sentence when followed by whitespace or EOF.
			if i+1 >= len(text) || text[i+1] == ' ' || text[i+1] == '\n' || text[i+1] == '\t' {
				s := strings.TrimSpace(current.String())
				if s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// hardCut slices text into fixed-size windows with overlap, used only when
// no natural boundary exists within the target length.
func hardCut(text string, targetLen, overlap int) []string {
	step := targetLen - overlap
	if step <= 0 {
		step = targetLen
	}
	var result []string
	for start := 0; start < len(text); start += step {
		end := start + targetLen
		if end > len(text) {
			end = len(text)
		}
		result = append(result, text[start:end])
		if end == len(text) {
			break
		}
	}
	return result
}

// overlapTail returns the last overlap characters of s, snapped forward to
// the next word boundary so chunks never start mid-word.
func overlapTail(s string, overlap int) string {
	if overlap <= 0 || len(s) <= overlap {
		return ""
	}
	tail := s[len(s)-overlap:]
	if idx := strings.IndexAny(tail, " \n"); idx >= 0 {
		tail = tail[idx+1:]
	}
	return strings.TrimSpace(tail)
}
