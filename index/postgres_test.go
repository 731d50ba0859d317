package index

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/smallnest/brandrag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresIndex(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgres(t *testing.T) {
	ctx := context.Background()

	t.Run("meta before build", func(t *testing.T) {
		idx, mock := newPostgresIndex(t)
		mock.ExpectQuery("SELECT model, dimension, documents, built_at FROM brandrag_collections").
			WithArgs("kb").
			WillReturnError(pgx.ErrNoRows)

		_, err := idx.Meta(ctx, "kb")
		assert.ErrorIs(t, err, brandrag.ErrIndexNotBuilt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("replace runs in one transaction", func(t *testing.T) {
		idx, mock := newPostgresIndex(t)
		docs := testDocs()

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM brandrag_documents").
			WithArgs("kb").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		for range docs {
			mock.ExpectExec("INSERT INTO brandrag_documents").
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
		}
		mock.ExpectExec("INSERT INTO brandrag_collections").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, idx.Replace(ctx, "kb", testMeta("mock-bow", len(docs)), docs))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed insert rolls back", func(t *testing.T) {
		idx, mock := newPostgresIndex(t)

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM brandrag_documents").
			WithArgs("kb").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectExec("INSERT INTO brandrag_documents").
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err := idx.Replace(ctx, "kb", testMeta("mock-bow", 3), testDocs())
		assert.ErrorIs(t, err, brandrag.ErrIndexUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query ranks server side", func(t *testing.T) {
		idx, mock := newPostgresIndex(t)
		builtAt := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

		mock.ExpectQuery("SELECT model, dimension, documents, built_at FROM brandrag_collections").
			WithArgs("kb").
			WillReturnRows(pgxmock.NewRows([]string{"model", "dimension", "documents", "built_at"}).
				AddRow("mock-bow", 3, 2, builtAt))
		mock.ExpectQuery("ORDER BY embedding").
			WillReturnRows(pgxmock.NewRows([]string{"id", "doc_type", "content", "metadata", "embedding", "score"}).
				AddRow("doc-faq", "faq", "Q: What is the refund window?\nA: 30 days", []byte(`{"id":1}`), "[0,1,0]", 0.97).
				AddRow("doc-product", "product", "Crop/Product: rice", []byte(`{"crop":"rice"}`), "[0,0.9,0.4]", 0.82))

		results, err := idx.Query(ctx, "kb", []float32{0, 1, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "doc-faq", results[0].Document.ID)
		assert.Equal(t, brandrag.DocumentTypeFAQ, results[0].Document.Type)
		assert.Equal(t, []float32{0, 1, 0}, results[0].Document.Embedding)
		assert.Equal(t, map[string]any{"crop": "rice"}, results[1].Document.Metadata)
		assert.Greater(t, results[0].Score, results[1].Score)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("drop", func(t *testing.T) {
		idx, mock := newPostgresIndex(t)

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM brandrag_documents").
			WithArgs("kb").
			WillReturnResult(pgxmock.NewResult("DELETE", 3))
		mock.ExpectExec("DELETE FROM brandrag_collections").
			WithArgs("kb").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectCommit()

		require.NoError(t, idx.Drop(ctx, "kb"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
