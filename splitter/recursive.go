// Package splitter provides length-bounded text splitting for atomic
// documents. Oversized text is split along a priority-ordered set of
// separators, falling back to raw length, with a configurable overlap
// between consecutive chunks.
package splitter

import (
	"strings"

	"github.com/smallnest/brandrag"
)

// Defaults match the knowledge-base chunking policy: units above the chunk
// size bury answers in noise, so they are split into overlapping sub-chunks.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 150
)

// DefaultSeparators is the priority order used to find split points:
// paragraph breaks, line breaks, sentence-ending punctuation (including CJK
// forms), semicolons, then bullet and dash markers. When none apply the
// splitter falls back to raw length.
var DefaultSeparators = []string{
	"\n\n", "\n", ".", "!", "?", "。", "！", "？", ";", "•", "—", "- ",
}

// RecursiveCharacterTextSplitter splits text recursively while keeping
// related pieces together.
type RecursiveCharacterTextSplitter struct {
	separators   []string
	chunkSize    int
	chunkOverlap int
}

var _ brandrag.TextSplitter = (*RecursiveCharacterTextSplitter)(nil)

// Option configures the splitter.
type Option func(*RecursiveCharacterTextSplitter)

// WithChunkSize sets the maximum chunk length in bytes.
func WithChunkSize(size int) Option {
	return func(s *RecursiveCharacterTextSplitter) {
		s.chunkSize = size
	}
}

// WithChunkOverlap sets the overlap carried between consecutive chunks.
func WithChunkOverlap(overlap int) Option {
	return func(s *RecursiveCharacterTextSplitter) {
		s.chunkOverlap = overlap
	}
}

// WithSeparators replaces the separator priority list.
func WithSeparators(separators []string) Option {
	return func(s *RecursiveCharacterTextSplitter) {
		s.separators = separators
	}
}

// New creates a splitter with the default chunking policy.
func New(opts ...Option) *RecursiveCharacterTextSplitter {
	s := &RecursiveCharacterTextSplitter{
		separators:   DefaultSeparators,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SplitText splits text into chunks of at most the chunk size. Text at or
// under the limit is returned unchanged as a single chunk; empty text yields
// no chunks. Separators are retained at the end of the piece they terminate,
// so the concatenation of the chunks (minus overlaps) reconstructs the input.
func (s *RecursiveCharacterTextSplitter) SplitText(text string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= s.chunkSize {
		return []string{text}
	}
	return s.merge(s.split(text, s.separators))
}

// split recursively breaks text into pieces no longer than the chunk size,
// trying each separator in priority order.
func (s *RecursiveCharacterTextSplitter) split(text string, separators []string) []string {
	if len(text) <= s.chunkSize {
		return []string{text}
	}
	if len(separators) == 0 {
		return s.splitByLength(text)
	}

	sep := separators[0]
	rest := separators[1:]

	var pieces []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if len(part) <= s.chunkSize {
			pieces = append(pieces, part)
		} else {
			pieces = append(pieces, s.split(part, rest)...)
		}
	}
	return pieces
}

// splitByLength is the last-resort split into fixed-size windows.
func (s *RecursiveCharacterTextSplitter) splitByLength(text string) []string {
	var pieces []string
	for start := 0; start < len(text); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(text) {
			end = len(text)
		}
		pieces = append(pieces, text[start:end])
	}
	return pieces
}

// merge greedily packs pieces into chunks up to the chunk size, seeding each
// new chunk with the tail of the previous one when the overlap fits.
func (s *RecursiveCharacterTextSplitter) merge(pieces []string) []string {
	var chunks []string
	current := ""

	for _, piece := range pieces {
		if current != "" && len(current)+len(piece) > s.chunkSize {
			chunks = append(chunks, current)
			tail := overlapTail(current, s.chunkOverlap)
			if len(tail)+len(piece) > s.chunkSize {
				current = ""
			} else {
				current = tail
			}
		}
		current += piece
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

func overlapTail(chunk string, overlap int) string {
	if overlap <= 0 || len(chunk) <= overlap {
		return ""
	}
	return chunk[len(chunk)-overlap:]
}
