package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/smallnest/brandrag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLite(t *testing.T) {
	ctx := context.Background()

	newIndex := func(t *testing.T) (*SQLite, string) {
		path := filepath.Join(t.TempDir(), "index.db")
		idx, err := NewSQLite(path)
		require.NoError(t, err)
		t.Cleanup(func() { idx.Close() })
		return idx, path
	}

	t.Run("query before build", func(t *testing.T) {
		idx, _ := newIndex(t)
		_, err := idx.Query(ctx, "kb", []float32{1, 0, 0}, 3)
		assert.ErrorIs(t, err, brandrag.ErrIndexNotBuilt)
	})

	t.Run("round trip preserves documents", func(t *testing.T) {
		idx, _ := newIndex(t)
		require.NoError(t, idx.Replace(ctx, "kb", testMeta("mock-bow", 3), testDocs()))

		results, err := idx.Query(ctx, "kb", []float32{0, 1, 0}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)

		got := results[0].Document
		assert.Equal(t, "doc-faq", got.ID)
		assert.Equal(t, brandrag.DocumentTypeFAQ, got.Type)
		assert.Equal(t, "Q: What is the refund window?\nA: 30 days", got.Content)
		assert.Equal(t, map[string]any{"id": float64(1)}, got.Metadata)
		assert.Equal(t, []float32{0, 1, 0}, got.Embedding)
	})

	t.Run("rebuild leaves no stale documents", func(t *testing.T) {
		idx, _ := newIndex(t)
		require.NoError(t, idx.Replace(ctx, "kb", testMeta("mock-bow", 3), testDocs()))
		require.NoError(t, idx.Replace(ctx, "kb", testMeta("mock-bow", 1), []brandrag.Document{{
			ID:        "doc-new",
			Type:      brandrag.DocumentTypeBrandOverview,
			Content:   "rebuilt",
			Embedding: []float32{1, 0, 0},
		}}))

		results, err := idx.Query(ctx, "kb", []float32{1, 0, 0}, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "doc-new", results[0].Document.ID)
	})

	t.Run("collection survives reopen", func(t *testing.T) {
		idx, path := newIndex(t)
		require.NoError(t, idx.Replace(ctx, "kb", testMeta("mock-bow", 3), testDocs()))
		require.NoError(t, idx.Close())

		reopened, err := NewSQLite(path)
		require.NoError(t, err)
		defer reopened.Close()

		meta, err := reopened.Meta(ctx, "kb")
		require.NoError(t, err)
		assert.Equal(t, "mock-bow", meta.Model)
		assert.Equal(t, 3, meta.Documents)

		results, err := reopened.Query(ctx, "kb", []float32{1, 0, 0}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "doc-overview", results[0].Document.ID)
	})

	t.Run("drop", func(t *testing.T) {
		idx, _ := newIndex(t)
		require.NoError(t, idx.Replace(ctx, "kb", testMeta("mock-bow", 3), testDocs()))
		require.NoError(t, idx.Drop(ctx, "kb"))
		_, err := idx.Meta(ctx, "kb")
		assert.ErrorIs(t, err, brandrag.ErrIndexNotBuilt)
	})
}
