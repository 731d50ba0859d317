// Package retriever turns a vector index and an embedder into a search API
// that returns diverse, deduplicated context for a query.
package retriever

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/smallnest/brandrag"
)

const (
	// DefaultFetchK is how many candidates are pulled from the index before
	// maximal marginal relevance reranking.
	DefaultFetchK = 25
	// DefaultLambda weights relevance against diversity. Low values favor
	// diverse results, which suits short knowledge bases where near-duplicate
	// chunks are common.
	DefaultLambda = 0.25
	// DefaultK is how many documents a search returns when the caller does
	// not say.
	DefaultK = 4

	// NoResultsMarker is returned by Search when nothing matched.
	NoResultsMarker = "No relevant information found."
)

// Vector retrieves documents from a brandrag.VectorIndex using maximal
// marginal relevance. The collection is pinned to the embedding model it was
// built with; querying it with a different embedder fails rather than
// returning garbage similarities.
type Vector struct {
	index      brandrag.VectorIndex
	embedder   brandrag.Embedder
	collection string
	fetchK     int
	lambda     float64
	logger     brandrag.Logger
}

// Option configures a Vector retriever.
type Option func(*Vector)

// WithFetchK sets the candidate pool size for reranking.
func WithFetchK(fetchK int) Option {
	return func(v *Vector) {
		if fetchK > 0 {
			v.fetchK = fetchK
		}
	}
}

// WithLambda sets the relevance/diversity tradeoff, clamped to [0, 1].
func WithLambda(lambda float64) Option {
	return func(v *Vector) {
		if lambda >= 0 && lambda <= 1 {
			v.lambda = lambda
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger brandrag.Logger) Option {
	return func(v *Vector) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// New creates a retriever over one collection of the index.
func New(index brandrag.VectorIndex, embedder brandrag.Embedder, collection string, opts ...Option) *Vector {
	v := &Vector{
		index:      index,
		embedder:   embedder,
		collection: collection,
		fetchK:     DefaultFetchK,
		lambda:     DefaultLambda,
		logger:     brandrag.NopLogger{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Retrieve returns up to k documents for the query, reranked for diversity
// and deduplicated by exact content. k <= 0 falls back to DefaultK.
func (v *Vector) Retrieve(ctx context.Context, query string, k int) ([]brandrag.Document, error) {
	if k <= 0 {
		k = DefaultK
	}

	meta, err := v.index.Meta(ctx, v.collection)
	if err != nil {
		return nil, err
	}
	if meta.Model != v.embedder.Model() {
		return nil, fmt.Errorf("%w: collection %q built with %q, embedder is %q",
			brandrag.ErrModelMismatch, v.collection, meta.Model, v.embedder.Model())
	}

	queryVec, err := v.embedder.EmbedDocument(ctx, query)
	if err != nil {
		return nil, err
	}

	fetchK := v.fetchK
	if fetchK < k {
		fetchK = k
	}
	candidates, err := v.index.Query(ctx, v.collection, queryVec, fetchK)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	selected := maximalMarginalRelevance(candidates, v.lambda, k)
	docs := dedupByContent(selected)
	v.logger.Debug("retrieved %d of %d candidates for query %q", len(docs), len(candidates), query)
	return docs, nil
}

// Search retrieves documents and formats them as a single context block.
// Each document is numbered from 1; an empty result set yields
// NoResultsMarker.
func (v *Vector) Search(ctx context.Context, query string, k int) (string, error) {
	docs, err := v.Retrieve(ctx, query, k)
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return NoResultsMarker, nil
	}

	parts := make([]string, 0, len(docs))
	for i, doc := range docs {
		parts = append(parts, fmt.Sprintf("Relevant Information %d:\n%s", i+1, doc.Content))
	}
	return strings.Join(parts, "\n\n"), nil
}

// maximalMarginalRelevance picks up to k candidates balancing query relevance
// against similarity to already selected documents. The candidate list must
// be sorted by relevance; the first pick is always the top candidate.
func maximalMarginalRelevance(candidates []brandrag.SearchResult, lambda float64, k int) []brandrag.Document {
	if k > len(candidates) {
		k = len(candidates)
	}

	selected := make([]brandrag.Document, 0, k)
	remaining := make([]brandrag.SearchResult, len(candidates))
	copy(remaining, candidates)

	for len(selected) < k && len(remaining) > 0 {
		best := -1
		bestScore := 0.0
		for i, cand := range remaining {
			maxSim := 0.0
			for _, sel := range selected {
				if sim := cosineSimilarity(cand.Document.Embedding, sel.Embedding); sim > maxSim {
					maxSim = sim
				}
			}
			score := lambda*cand.Score - (1-lambda)*maxSim
			if best == -1 || score > bestScore {
				best = i
				bestScore = score
			}
		}
		selected = append(selected, remaining[best].Document)
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return selected
}

// dedupByContent drops documents whose content exactly matches an earlier
// one, preserving order.
func dedupByContent(docs []brandrag.Document) []brandrag.Document {
	seen := make(map[string]struct{}, len(docs))
	out := docs[:0:0]
	for _, doc := range docs {
		if _, ok := seen[doc.Content]; ok {
			continue
		}
		seen[doc.Content] = struct{}{}
		out = append(out, doc)
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
