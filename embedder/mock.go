package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Mock is a deterministic embedder for tests. Each lowercase word token is
// hashed into one dimension of the vector, so texts sharing vocabulary get
// similar embeddings and cosine similarity behaves like rough term overlap.
type Mock struct {
	Dimension int
}

// NewMock creates a mock embedder with the given dimension.
func NewMock(dimension int) *Mock {
	return &Mock{Dimension: dimension}
}

// Model identifies the mock embedding space.
func (m *Mock) Model() string {
	return "mock-bow"
}

// EmbedDocument embeds a single text.
func (m *Mock) EmbedDocument(_ context.Context, text string) ([]float32, error) {
	return m.embed(text), nil
}

// EmbedDocuments embeds a batch of texts, preserving order.
func (m *Mock) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = m.embed(text)
	}
	return vectors, nil
}

func (m *Mock) embed(text string) []float32 {
	vec := make([]float32, m.Dimension)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%uint32(m.Dimension)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		n := float32(math.Sqrt(norm))
		for i := range vec {
			vec[i] /= n
		}
	}
	return vec
}
