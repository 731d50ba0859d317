package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
	"github.com/smallnest/brandrag"
)

// DBPool is the subset of pgxpool.Pool the Postgres index uses. pgxmock
// implements it, so the backend is testable without a live database.
type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Postgres is a vector index backed by Postgres with the pgvector extension.
// Unlike the other backends it ranks server-side: Query orders by the vector
// distance operator and never ships the full collection to the client.
type Postgres struct {
	pool DBPool
}

var _ brandrag.VectorIndex = (*Postgres)(nil)

// NewPostgres connects to connString and prepares the schema. The pgvector
// extension must be installable by the connecting role.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("%w: parse config: %v", brandrag.ErrIndexUnavailable, err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", brandrag.ErrIndexUnavailable, err)
	}

	p := &Postgres{pool: pool}
	if err := p.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgresWithPool wraps an existing pool without touching the schema.
// Useful for tests and for callers managing migrations themselves.
func NewPostgresWithPool(pool DBPool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) initSchema(ctx context.Context) error {
	const schema = `
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS brandrag_collections (
			name      TEXT PRIMARY KEY,
			model     TEXT NOT NULL,
			dimension INTEGER NOT NULL,
			documents INTEGER NOT NULL,
			built_at  TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS brandrag_documents (
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			doc_type   TEXT NOT NULL,
			content    TEXT NOT NULL,
			metadata   JSONB,
			embedding  vector NOT NULL,
			PRIMARY KEY (collection, id)
		);
	`
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("%w: create schema: %v", brandrag.ErrIndexUnavailable, err)
	}
	return nil
}

// Replace atomically installs a new generation for the collection.
func (p *Postgres) Replace(ctx context.Context, collection string, meta brandrag.CollectionMeta, docs []brandrag.Document) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", brandrag.ErrIndexUnavailable, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM brandrag_documents WHERE collection = $1`, collection); err != nil {
		return fmt.Errorf("%w: clear collection: %v", brandrag.ErrIndexUnavailable, err)
	}

	for _, doc := range docs {
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", doc.ID, err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO brandrag_documents (collection, id, doc_type, content, metadata, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			collection, doc.ID, string(doc.Type), doc.Content, metadataJSON, pgvector.NewVector(doc.Embedding))
		if err != nil {
			return fmt.Errorf("%w: insert document: %v", brandrag.ErrIndexUnavailable, err)
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO brandrag_collections (name, model, dimension, documents, built_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (name) DO UPDATE SET
			model = EXCLUDED.model,
			dimension = EXCLUDED.dimension,
			documents = EXCLUDED.documents,
			built_at = EXCLUDED.built_at`,
		collection, meta.Model, meta.Dimension, meta.Documents, meta.BuiltAt)
	if err != nil {
		return fmt.Errorf("%w: upsert collection meta: %v", brandrag.ErrIndexUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", brandrag.ErrIndexUnavailable, err)
	}
	return nil
}

// Query ranks server-side with the pgvector cosine distance operator and
// returns the top k documents with their stored embeddings.
func (p *Postgres) Query(ctx context.Context, collection string, embedding []float32, k int) ([]brandrag.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if _, err := p.Meta(ctx, collection); err != nil {
		return nil, err
	}

	query := pgvector.NewVector(embedding)
	rows, err := p.pool.Query(ctx,
		`SELECT id, doc_type, content, metadata, embedding, 1 - (embedding <=> $2) AS score
		 FROM brandrag_documents
		 WHERE collection = $1
		 ORDER BY embedding <=> $2
		 LIMIT $3`,
		collection, query, k)
	if err != nil {
		return nil, fmt.Errorf("%w: query documents: %v", brandrag.ErrIndexUnavailable, err)
	}
	defer rows.Close()

	var results []brandrag.SearchResult
	for rows.Next() {
		var doc brandrag.Document
		var docType string
		var metadataJSON []byte
		var vec pgvector.Vector
		var score float64
		if err := rows.Scan(&doc.ID, &docType, &doc.Content, &metadataJSON, &vec, &score); err != nil {
			return nil, fmt.Errorf("%w: scan document: %v", brandrag.ErrIndexUnavailable, err)
		}
		doc.Type = brandrag.DocumentType(docType)
		if len(metadataJSON) > 0 && string(metadataJSON) != "null" {
			if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata for %s: %w", doc.ID, err)
			}
		}
		doc.Embedding = vec.Slice()
		results = append(results, brandrag.SearchResult{Document: doc, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate documents: %v", brandrag.ErrIndexUnavailable, err)
	}
	return results, nil
}

// Meta returns the collection metadata.
func (p *Postgres) Meta(ctx context.Context, collection string) (*brandrag.CollectionMeta, error) {
	var meta brandrag.CollectionMeta
	err := p.pool.QueryRow(ctx,
		`SELECT model, dimension, documents, built_at FROM brandrag_collections WHERE name = $1`,
		collection).Scan(&meta.Model, &meta.Dimension, &meta.Documents, &meta.BuiltAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: collection %q", brandrag.ErrIndexNotBuilt, collection)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read collection meta: %v", brandrag.ErrIndexUnavailable, err)
	}
	return &meta, nil
}

// Drop removes the collection and its documents.
func (p *Postgres) Drop(ctx context.Context, collection string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", brandrag.ErrIndexUnavailable, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM brandrag_documents WHERE collection = $1`, collection); err != nil {
		return fmt.Errorf("%w: drop documents: %v", brandrag.ErrIndexUnavailable, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM brandrag_collections WHERE name = $1`, collection); err != nil {
		return fmt.Errorf("%w: drop collection: %v", brandrag.ErrIndexUnavailable, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", brandrag.ErrIndexUnavailable, err)
	}
	return nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
