// Package engine wires the knowledge loader, decomposer, embedder, vector
// index, and retriever into one system with a small operational surface:
// Rebuild, Search, Summary, and BrandInfo.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/smallnest/brandrag"
	"github.com/smallnest/brandrag/decompose"
	"github.com/smallnest/brandrag/knowledge"
	"github.com/smallnest/brandrag/retriever"
	"github.com/smallnest/brandrag/splitter"
)

// DefaultCollection is the index collection name used when none is given.
const DefaultCollection = "brand_kb"

// System is the composition root of the retrieval subsystem. It owns the
// collection lifecycle (Rebuild replaces the whole collection atomically) and
// serves searches and the cached knowledge-base summary.
type System struct {
	embedder   brandrag.Embedder
	index      brandrag.VectorIndex
	collection string
	source     string
	loaders    []brandrag.DocumentLoader
	decomposer *decompose.Decomposer
	split      brandrag.TextSplitter
	retriever  *retriever.Vector
	logger     brandrag.Logger

	mu      sync.Mutex
	record  *knowledge.Record
	summary string
	adopted bool
}

// Option configures a System.
type Option func(*config)

type config struct {
	collection string
	source     string
	loaders    []brandrag.DocumentLoader
	logger     brandrag.Logger
	fetchK     int
	lambda     float64
	hasLambda  bool
}

// WithCollection sets the index collection name.
func WithCollection(name string) Option {
	return func(c *config) {
		if name != "" {
			c.collection = name
		}
	}
}

// WithSource sets the default knowledge document location.
func WithSource(source string) Option {
	return func(c *config) {
		if source != "" {
			c.source = source
		}
	}
}

// WithLoaders adds supplemental document loaders whose output is indexed
// alongside the structured knowledge on every rebuild.
func WithLoaders(loaders ...brandrag.DocumentLoader) Option {
	return func(c *config) {
		c.loaders = append(c.loaders, loaders...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger brandrag.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFetchK sets the retriever's candidate pool size.
func WithFetchK(fetchK int) Option {
	return func(c *config) {
		c.fetchK = fetchK
	}
}

// WithLambda sets the retriever's relevance/diversity tradeoff.
func WithLambda(lambda float64) Option {
	return func(c *config) {
		c.lambda = lambda
		c.hasLambda = true
	}
}

// New creates a System over the given embedder and index.
func New(emb brandrag.Embedder, idx brandrag.VectorIndex, opts ...Option) (*System, error) {
	if emb == nil {
		return nil, errors.New("embedder is required")
	}
	if idx == nil {
		return nil, errors.New("index is required")
	}

	cfg := &config{
		collection: DefaultCollection,
		source:     knowledge.DefaultSource,
		logger:     brandrag.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	retrieverOpts := []retriever.Option{retriever.WithLogger(cfg.logger)}
	if cfg.fetchK > 0 {
		retrieverOpts = append(retrieverOpts, retriever.WithFetchK(cfg.fetchK))
	}
	if cfg.hasLambda {
		retrieverOpts = append(retrieverOpts, retriever.WithLambda(cfg.lambda))
	}

	split := splitter.New()
	return &System{
		embedder:   emb,
		index:      idx,
		collection: cfg.collection,
		source:     cfg.source,
		loaders:    cfg.loaders,
		decomposer: decompose.New(decompose.WithSplitter(split)),
		split:      split,
		retriever:  retriever.New(idx, emb, cfg.collection, retrieverOpts...),
		logger:     cfg.logger,
	}, nil
}

// Rebuild loads the knowledge document (the configured default when source is
// empty), decomposes it together with any supplemental loader output, embeds
// everything, and replaces the collection in one shot. A failed rebuild
// leaves the previous collection generation untouched.
func (s *System) Rebuild(ctx context.Context, source string) error {
	if source == "" {
		source = s.source
	}

	rec, err := knowledge.Load(source)
	if err != nil {
		return err
	}

	docs := s.decomposer.Decompose(rec)
	structured := len(docs)

	for _, loader := range s.loaders {
		loaded, err := loader.Load(ctx)
		if err != nil {
			return fmt.Errorf("load supplemental documents: %w", err)
		}
		docs = append(docs, s.splitLoaded(loaded)...)
	}

	dimension := 0
	if len(docs) > 0 {
		texts := make([]string, len(docs))
		for i, doc := range docs {
			texts[i] = doc.Content
		}
		vecs, err := s.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return err
		}
		if len(vecs) != len(docs) {
			return fmt.Errorf("%w: got %d embeddings for %d documents",
				brandrag.ErrEmbeddingUnavailable, len(vecs), len(docs))
		}
		for i := range docs {
			docs[i].Embedding = vecs[i]
		}
		dimension = len(vecs[0])
	}

	meta := brandrag.CollectionMeta{
		Model:     s.embedder.Model(),
		Dimension: dimension,
		Documents: len(docs),
		BuiltAt:   time.Now().UTC(),
	}
	if err := s.index.Replace(ctx, s.collection, meta, docs); err != nil {
		return err
	}

	s.mu.Lock()
	s.record = rec
	s.summary = rec.Summary()
	s.adopted = true
	s.mu.Unlock()

	s.logger.Info("rebuilt collection %q: %d documents (%d structured, %d scraped), model %s",
		s.collection, len(docs), structured, len(docs)-structured, meta.Model)
	return nil
}

// splitLoaded chunks supplemental documents the same way structured content
// is chunked. Chunks inherit the source document's type and metadata.
func (s *System) splitLoaded(docs []brandrag.Document) []brandrag.Document {
	var out []brandrag.Document
	for _, doc := range docs {
		chunks := s.split.SplitText(doc.Content)
		if len(chunks) <= 1 {
			out = append(out, doc)
			continue
		}
		for i, chunk := range chunks {
			md := make(map[string]any, len(doc.Metadata)+1)
			for k, v := range doc.Metadata {
				md[k] = v
			}
			md["chunk"] = i
			out = append(out, brandrag.Document{
				ID:       fmt.Sprintf("%s-%d", doc.ID, i),
				Type:     doc.Type,
				Content:  chunk,
				Metadata: md,
			})
		}
	}
	return out
}

// Search retrieves a formatted context block for the query. Before the first
// rebuild it will adopt an existing collection if one was built with the same
// embedding model, so a restart does not force a reindex.
func (s *System) Search(ctx context.Context, query string, k int) (string, error) {
	if err := s.ensureCollection(ctx); err != nil {
		return "", err
	}
	return s.retriever.Search(ctx, query, k)
}

// Retrieve returns the raw ranked documents for the query.
func (s *System) Retrieve(ctx context.Context, query string, k int) ([]brandrag.Document, error) {
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s.retriever.Retrieve(ctx, query, k)
}

func (s *System) ensureCollection(ctx context.Context) error {
	s.mu.Lock()
	adopted := s.adopted
	s.mu.Unlock()
	if adopted {
		return nil
	}

	meta, err := s.index.Meta(ctx, s.collection)
	if err != nil {
		return err
	}
	if meta.Model != s.embedder.Model() {
		return fmt.Errorf("%w: collection %q built with %q, embedder is %q",
			brandrag.ErrModelMismatch, s.collection, meta.Model, s.embedder.Model())
	}

	s.mu.Lock()
	s.adopted = true
	s.mu.Unlock()
	s.logger.Info("adopted existing collection %q (%d documents, built %s)",
		s.collection, meta.Documents, meta.BuiltAt.Format(time.RFC3339))
	return nil
}

// Summary returns the cached knowledge-base summary, loading the knowledge
// document lazily if no rebuild has happened in this process.
func (s *System) Summary(ctx context.Context) (string, error) {
	if _, err := s.loadRecord(ctx); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary, nil
}

// BrandInfo returns the brand identity fields from the knowledge document.
func (s *System) BrandInfo(ctx context.Context) (knowledge.Brand, error) {
	rec, err := s.loadRecord(ctx)
	if err != nil {
		return knowledge.Brand{}, err
	}
	return rec.Brand, nil
}

// loadRecord returns the cached knowledge record, reading it from the
// configured source on first use.
func (s *System) loadRecord(ctx context.Context) (*knowledge.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record != nil {
		return s.record, nil
	}

	rec, err := knowledge.Load(s.source)
	if err != nil {
		return nil, err
	}
	s.record = rec
	s.summary = rec.Summary()
	return rec, nil
}

// Drop removes the system's collection from the index.
func (s *System) Drop(ctx context.Context) error {
	if err := s.index.Drop(ctx, s.collection); err != nil {
		return err
	}
	s.mu.Lock()
	s.adopted = false
	s.mu.Unlock()
	return nil
}

// Close releases the underlying index.
func (s *System) Close() error {
	return s.index.Close()
}
