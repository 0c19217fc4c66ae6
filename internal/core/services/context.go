package services

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// contextSeparator joins citation-annotated chunks.
const contextSeparator = "\n\n"

// AssembleContext renders ranked chunks as "[^rank] text" blocks joined by
// a blank line, in the order given. Chunk text is kept verbatim.
func AssembleContext(chunks []domain.RetrievedChunk) string {
	if len(chunks) == 0 {
		return ""
	}
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString(contextSeparator)
		}
		b.WriteString(citation(c.Rank))
		b.WriteString(c.Chunk.Text)
	}
	return b.String()
}

func citation(rank int) string {
	return "[^" + strconv.Itoa(rank) + "] "
}

// FitContext bounds the assembled context to maxChars characters.
// Chunks are kept in rank order while they fit and the rest are dropped
// whole, so citations stay contiguous. When the first chunk alone is too
// long its text is cut at the bound. maxChars <= 0 disables the bound.
func FitContext(chunks []domain.RetrievedChunk, maxChars int) []domain.RetrievedChunk {
	if maxChars <= 0 || len(chunks) == 0 {
		return chunks
	}

	var (
		out  []domain.RetrievedChunk
		used int
	)
	for i, c := range chunks {
		size := utf8.RuneCountInString(citation(c.Rank)) + utf8.RuneCountInString(c.Chunk.Text)
		if i > 0 {
			size += len(contextSeparator)
		}
		if used+size <= maxChars {
			out = append(out, c)
			used += size
			continue
		}
		if i == 0 {
			room := maxChars - utf8.RuneCountInString(citation(c.Rank))
			if room > 0 {
				c.Chunk.Text = truncateRunes(c.Chunk.Text, room)
				out = append(out, c)
			}
		}
		break
	}
	return out
}

// truncateRunes cuts s to at most n runes without splitting a UTF-8 sequence.
func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
