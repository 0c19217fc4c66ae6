package chunker

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// Span is a half-open byte range [Start, End) into the split text.
type Span struct {
	Start int
	End   int
}

// separators are tried in order, largest boundary first. The empty
// separator splits between characters.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", " ", ""}

// Split divides text into spans of at most chunkSize characters.
//
// Text is cut recursively on the largest boundary that yields pieces no
// longer than chunkSize (paragraph, line, sentence, word, character). Pieces
// are then merged greedily into windows, and each new window starts with
// the trailing pieces of the previous one totalling at most overlap
// characters. Text no longer than chunkSize is returned as a single span.
//
// The result depends only on the arguments.
func Split(text string, chunkSize, overlap int) ([]Span, error) {
	if err := validate(chunkSize, overlap); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(text) <= chunkSize {
		return []Span{{Start: 0, End: len(text)}}, nil
	}

	pieces := splitRecursive(text, Span{0, len(text)}, separators, chunkSize)
	return merge(text, pieces, chunkSize, overlap), nil
}

func validate(chunkSize, overlap int) error {
	return domain.ChunkerSettings{ChunkSize: chunkSize, Overlap: overlap}.Validate()
}

// splitRecursive returns contiguous spans covering s, each at most size
// characters. Separators stay attached to the piece they terminate.
func splitRecursive(text string, s Span, seps []string, size int) []Span {
	if runeLen(text, s) <= size {
		return []Span{s}
	}
	if len(seps) == 0 || seps[0] == "" {
		return splitRunes(text, s)
	}

	sep := seps[0]
	segment := text[s.Start:s.End]
	if !strings.Contains(segment, sep) {
		return splitRecursive(text, s, seps[1:], size)
	}

	var out []Span
	start := s.Start
	for start < s.End {
		idx := strings.Index(text[start:s.End], sep)
		end := s.End
		if idx >= 0 {
			end = start + idx + len(sep)
		}
		part := Span{start, end}
		if runeLen(text, part) <= size {
			out = append(out, part)
		} else {
			out = append(out, splitRecursive(text, part, seps[1:], size)...)
		}
		start = end
	}
	return out
}

func splitRunes(text string, s Span) []Span {
	out := make([]Span, 0, s.End-s.Start)
	for i := s.Start; i < s.End; {
		_, w := utf8.DecodeRuneInString(text[i:s.End])
		out = append(out, Span{i, i + w})
		i += w
	}
	return out
}

// merge joins contiguous pieces into windows of at most size characters,
// carrying up to overlap characters of trailing pieces into the next window.
func merge(text string, pieces []Span, size, overlap int) []Span {
	lens := make([]int, len(pieces))
	for i, p := range pieces {
		lens[i] = runeLen(text, p)
	}

	var out []Span
	emit := func(start, end int) {
		sp, ok := trim(text, Span{start, end})
		if !ok {
			return
		}
		if n := len(out); n > 0 && out[n-1] == sp {
			return
		}
		out = append(out, sp)
	}

	first, total := 0, 0
	for j, l := range lens {
		if total+l > size && j > first {
			emit(pieces[first].Start, pieces[j-1].End)
			for first < j && (total > overlap || total+l > size) {
				total -= lens[first]
				first++
			}
		}
		total += l
	}
	if first < len(pieces) {
		emit(pieces[first].Start, pieces[len(pieces)-1].End)
	}
	return out
}

// trim narrows a span to exclude surrounding whitespace.
func trim(text string, s Span) (Span, bool) {
	for s.Start < s.End {
		r, w := utf8.DecodeRuneInString(text[s.Start:s.End])
		if !unicode.IsSpace(r) {
			break
		}
		s.Start += w
	}
	for s.End > s.Start {
		r, w := utf8.DecodeLastRuneInString(text[s.Start:s.End])
		if !unicode.IsSpace(r) {
			break
		}
		s.End -= w
	}
	return s, s.End > s.Start
}

func runeLen(text string, s Span) int {
	return utf8.RuneCountInString(text[s.Start:s.End])
}

// String renders a span for test failure messages.
func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}
