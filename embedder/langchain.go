package embedder

import (
	"context"
	"fmt"

	"github.com/smallnest/brandrag"
	"github.com/tmc/langchaingo/embeddings"
)

// LangChain adapts a langchaingo embedder to the brandrag.Embedder interface.
// This is the hook for providers without a dedicated implementation here,
// e.g. Google AI embeddings. langchaingo embedders do not expose their model
// identity, so the caller supplies it explicitly; it is what gets pinned on
// the collection.
type LangChain struct {
	embedder embeddings.Embedder
	model    string
}

var _ brandrag.Embedder = (*LangChain)(nil)

// NewLangChain wraps a langchaingo embedder under the given model identifier.
func NewLangChain(e embeddings.Embedder, model string) *LangChain {
	return &LangChain{embedder: e, model: model}
}

// Model returns the configured model identifier.
func (l *LangChain) Model() string {
	return l.model
}

// EmbedDocument embeds a single text.
func (l *LangChain) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	vec, err := l.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", brandrag.ErrEmbeddingUnavailable, err)
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out, nil
}

// EmbedDocuments embeds a batch of texts, preserving order.
func (l *LangChain) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := l.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", brandrag.ErrEmbeddingUnavailable, err)
	}
	out := make([][]float32, len(vecs))
	for i, vec := range vecs {
		out[i] = make([]float32, len(vec))
		for j, v := range vec {
			out[i][j] = float32(v)
		}
	}
	return out, nil
}
