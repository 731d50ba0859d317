// Package index provides vector index backends keyed by collection name.
//
// Every backend implements brandrag.VectorIndex with the same contract:
// Replace installs a complete generation for a collection (no stale entries
// survive a rebuild), Query returns ranked candidates including their stored
// embeddings, and Meta exposes the collection's pinned embedding model.
//
// The in-memory, SQLite, and Redis backends rank by cosine similarity
// client-side, which is proportionate for knowledge bases of this size; the
// Postgres backend delegates ranking to pgvector.
package index

import (
	"math"
	"sort"

	"github.com/smallnest/brandrag"
)

// cosineSimilarity computes the cosine similarity of two vectors. Mismatched
// or zero-length vectors score zero.
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

// rank scores docs against the query embedding and returns the top k in
// descending score order.
func rank(docs []brandrag.Document, query []float32, k int) []brandrag.SearchResult {
	results := make([]brandrag.SearchResult, 0, len(docs))
	for _, doc := range docs {
		results = append(results, brandrag.SearchResult{
			Document: doc,
			Score:    cosineSimilarity(query, doc.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k < len(results) {
		results = results[:k]
	}
	return results
}
