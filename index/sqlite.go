package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/smallnest/brandrag"
)

// SQLite is a file-backed vector index using go-sqlite3. Embeddings and
// metadata are stored as JSON; similarity ranking runs in Go over the
// collection's rows. Replace runs in a single transaction, so readers see
// either the old generation or the new one.
type SQLite struct {
	db *sql.DB
}

var _ brandrag.VectorIndex = (*SQLite)(nil)

// NewSQLite opens (or creates) the index database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", brandrag.ErrIndexUnavailable, path, err)
	}

	s := &SQLite{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) initSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS collections (
			name      TEXT PRIMARY KEY,
			model     TEXT NOT NULL,
			dimension INTEGER NOT NULL,
			documents INTEGER NOT NULL,
			built_at  TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			doc_type   TEXT NOT NULL,
			content    TEXT NOT NULL,
			metadata   TEXT,
			embedding  TEXT NOT NULL,
			PRIMARY KEY (collection, id)
		);
		CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents (collection);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: create schema: %v", brandrag.ErrIndexUnavailable, err)
	}
	return nil
}

// Replace atomically installs a new generation for the collection.
func (s *SQLite) Replace(ctx context.Context, collection string, meta brandrag.CollectionMeta, docs []brandrag.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", brandrag.ErrIndexUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("%w: clear collection: %v", brandrag.ErrIndexUnavailable, err)
	}

	for _, doc := range docs {
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", doc.ID, err)
		}
		embeddingJSON, err := json.Marshal(doc.Embedding)
		if err != nil {
			return fmt.Errorf("marshal embedding for %s: %w", doc.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO documents (collection, id, doc_type, content, metadata, embedding)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			collection, doc.ID, string(doc.Type), doc.Content, string(metadataJSON), string(embeddingJSON))
		if err != nil {
			return fmt.Errorf("%w: insert document: %v", brandrag.ErrIndexUnavailable, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO collections (name, model, dimension, documents, built_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			model = excluded.model,
			dimension = excluded.dimension,
			documents = excluded.documents,
			built_at = excluded.built_at`,
		collection, meta.Model, meta.Dimension, meta.Documents, meta.BuiltAt)
	if err != nil {
		return fmt.Errorf("%w: upsert collection meta: %v", brandrag.ErrIndexUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", brandrag.ErrIndexUnavailable, err)
	}
	return nil
}

// Query loads the collection's documents and ranks them by cosine similarity.
func (s *SQLite) Query(ctx context.Context, collection string, embedding []float32, k int) ([]brandrag.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if _, err := s.Meta(ctx, collection); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doc_type, content, metadata, embedding FROM documents WHERE collection = ?`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("%w: query documents: %v", brandrag.ErrIndexUnavailable, err)
	}
	defer rows.Close()

	var docs []brandrag.Document
	for rows.Next() {
		var doc brandrag.Document
		var docType, metadataJSON, embeddingJSON string
		if err := rows.Scan(&doc.ID, &docType, &doc.Content, &metadataJSON, &embeddingJSON); err != nil {
			return nil, fmt.Errorf("%w: scan document: %v", brandrag.ErrIndexUnavailable, err)
		}
		doc.Type = brandrag.DocumentType(docType)
		if metadataJSON != "" && metadataJSON != "null" {
			if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata for %s: %w", doc.ID, err)
			}
		}
		if err := json.Unmarshal([]byte(embeddingJSON), &doc.Embedding); err != nil {
			return nil, fmt.Errorf("unmarshal embedding for %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate documents: %v", brandrag.ErrIndexUnavailable, err)
	}

	return rank(docs, embedding, k), nil
}

// Meta returns the collection metadata.
func (s *SQLite) Meta(ctx context.Context, collection string) (*brandrag.CollectionMeta, error) {
	var meta brandrag.CollectionMeta
	err := s.db.QueryRowContext(ctx,
		`SELECT model, dimension, documents, built_at FROM collections WHERE name = ?`,
		collection).Scan(&meta.Model, &meta.Dimension, &meta.Documents, &meta.BuiltAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: collection %q", brandrag.ErrIndexNotBuilt, collection)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read collection meta: %v", brandrag.ErrIndexUnavailable, err)
	}
	return &meta, nil
}

// Drop removes the collection and its documents.
func (s *SQLite) Drop(ctx context.Context, collection string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", brandrag.ErrIndexUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("%w: drop documents: %v", brandrag.ErrIndexUnavailable, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, collection); err != nil {
		return fmt.Errorf("%w: drop collection: %v", brandrag.ErrIndexUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", brandrag.ErrIndexUnavailable, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
