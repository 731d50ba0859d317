package brandrag

import (
	"context"
	"time"
)

// DocumentType tags an atomic document with its semantic origin.
type DocumentType string

// Document types emitted by the decomposer and loaders.
const (
	DocumentTypeBrandOverview DocumentType = "brand_overview"
	DocumentTypeMechanism     DocumentType = "mechanism"
	DocumentTypeProduct       DocumentType = "product"
	DocumentTypeFAQ           DocumentType = "faq"
	DocumentTypeScraped       DocumentType = "scraped"
)

// Document is the smallest independently retrievable unit of knowledge text.
// Documents are created fresh on every index build and never mutated; after a
// build completes the vector index is the durable representation.
type Document struct {
	ID        string         `json:"id"`
	Type      DocumentType   `json:"type"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float32      `json:"embedding,omitempty"`
}

// SearchResult pairs a document with its similarity score for a query.
type SearchResult struct {
	Document Document
	Score    float64
}

// CollectionMeta describes a built collection. Model pins the embedding model
// identity the collection was built with; queries embedded with a different
// model must be rejected rather than silently returning degraded scores.
type CollectionMeta struct {
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	Documents int       `json:"documents"`
	BuiltAt   time.Time `json:"built_at"`
}

// Embedder turns text into fixed-length vectors. The same embedder must be
// used at build time and query time for a given collection.
type Embedder interface {
	// EmbedDocument embeds a single text.
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	// EmbedDocuments embeds a batch of texts, preserving order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// Model returns the embedding model identifier, used to pin collections.
	Model() string
}

// VectorIndex is a persistent similarity-searchable store of embedded
// documents, partitioned by collection name.
//
// Replace installs a complete new generation for a collection: after it
// returns, only the given documents are queryable and no entry from a
// previous build remains. Implementations must make the swap atomic at the
// generation level so concurrent readers always observe a complete build.
type VectorIndex interface {
	Replace(ctx context.Context, collection string, meta CollectionMeta, docs []Document) error
	// Query returns up to k candidates ranked by similarity to the given
	// vector, including their stored embeddings so diversification can run
	// client-side.
	Query(ctx context.Context, collection string, embedding []float32, k int) ([]SearchResult, error)
	// Meta returns the collection metadata, or ErrIndexNotBuilt if the
	// collection has never been built.
	Meta(ctx context.Context, collection string) (*CollectionMeta, error)
	// Drop removes a collection entirely. Dropping an unknown collection is
	// not an error.
	Drop(ctx context.Context, collection string) error
	Close() error
}

// TextSplitter splits oversized text into bounded chunks.
type TextSplitter interface {
	SplitText(text string) []string
}

// DocumentLoader supplies additional documents for an index build, such as
// scraped web content alongside the structured knowledge record.
type DocumentLoader interface {
	Load(ctx context.Context) ([]Document, error)
}
