package index

import (
	"context"
	"testing"
	"time"

	"github.com/smallnest/brandrag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMeta(model string, docs int) brandrag.CollectionMeta {
	return brandrag.CollectionMeta{
		Model:     model,
		Dimension: 3,
		Documents: docs,
		BuiltAt:   time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC),
	}
}

func testDocs() []brandrag.Document {
	return []brandrag.Document{
		{
			ID:        "doc-overview",
			Type:      brandrag.DocumentTypeBrandOverview,
			Content:   "Brand Knowledge Base for: Acme",
			Embedding: []float32{1, 0, 0},
		},
		{
			ID:        "doc-faq",
			Type:      brandrag.DocumentTypeFAQ,
			Content:   "Q: What is the refund window?\nA: 30 days",
			Metadata:  map[string]any{"id": float64(1)},
			Embedding: []float32{0, 1, 0},
		},
		{
			ID:        "doc-product",
			Type:      brandrag.DocumentTypeProduct,
			Content:   "Crop/Product: rice",
			Metadata:  map[string]any{"crop": "rice"},
			Embedding: []float32{0, 0.9, 0.4},
		},
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("query before build", func(t *testing.T) {
		idx := NewMemory()
		_, err := idx.Query(ctx, "kb", []float32{1, 0, 0}, 3)
		assert.ErrorIs(t, err, brandrag.ErrIndexNotBuilt)
		_, err = idx.Meta(ctx, "kb")
		assert.ErrorIs(t, err, brandrag.ErrIndexNotBuilt)
	})

	t.Run("ranked query", func(t *testing.T) {
		idx := NewMemory()
		require.NoError(t, idx.Replace(ctx, "kb", testMeta("mock-bow", 3), testDocs()))

		results, err := idx.Query(ctx, "kb", []float32{0, 1, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "doc-faq", results[0].Document.ID)
		assert.Equal(t, "doc-product", results[1].Document.ID)
		assert.Greater(t, results[0].Score, results[1].Score)
	})

	t.Run("k larger than collection", func(t *testing.T) {
		idx := NewMemory()
		require.NoError(t, idx.Replace(ctx, "kb", testMeta("mock-bow", 3), testDocs()))

		results, err := idx.Query(ctx, "kb", []float32{1, 0, 0}, 50)
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("rebuild leaves no stale documents", func(t *testing.T) {
		idx := NewMemory()
		require.NoError(t, idx.Replace(ctx, "kb", testMeta("mock-bow", 3), testDocs()))

		replacement := []brandrag.Document{{
			ID:        "doc-new",
			Type:      brandrag.DocumentTypeBrandOverview,
			Content:   "rebuilt",
			Embedding: []float32{1, 0, 0},
		}}
		require.NoError(t, idx.Replace(ctx, "kb", testMeta("mock-bow", 1), replacement))

		results, err := idx.Query(ctx, "kb", []float32{1, 0, 0}, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "doc-new", results[0].Document.ID)

		meta, err := idx.Meta(ctx, "kb")
		require.NoError(t, err)
		assert.Equal(t, 1, meta.Documents)
	})

	t.Run("collections are independent", func(t *testing.T) {
		idx := NewMemory()
		require.NoError(t, idx.Replace(ctx, "a", testMeta("mock-bow", 3), testDocs()))
		require.NoError(t, idx.Replace(ctx, "b", testMeta("other-model", 0), nil))

		meta, err := idx.Meta(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "other-model", meta.Model)

		require.NoError(t, idx.Drop(ctx, "a"))
		_, err = idx.Meta(ctx, "a")
		assert.ErrorIs(t, err, brandrag.ErrIndexNotBuilt)
		_, err = idx.Meta(ctx, "b")
		assert.NoError(t, err)
	})

	t.Run("invalid k", func(t *testing.T) {
		idx := NewMemory()
		_, err := idx.Query(ctx, "kb", []float32{1}, 0)
		assert.Error(t, err)
	})
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
