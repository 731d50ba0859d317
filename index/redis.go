package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallnest/brandrag"
)

// Redis is a vector index backed by Redis. Each collection keeps its
// documents in a list and its metadata in a hash; Replace rewrites both
// inside one MULTI/EXEC transaction, so a reader never observes a partially
// rebuilt collection. Ranking runs client-side.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

var _ brandrag.VectorIndex = (*Redis)(nil)

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // key prefix, default "brandrag:"
}

// NewRedis creates a Redis-backed index.
func NewRedis(opts RedisOptions) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewRedisWithClient(client, opts.Prefix)
}

// NewRedisWithClient wraps an existing client. Useful for tests.
func NewRedisWithClient(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "brandrag:"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) docsKey(collection string) string {
	return fmt.Sprintf("%s%s:docs", r.prefix, collection)
}

func (r *Redis) metaKey(collection string) string {
	return fmt.Sprintf("%s%s:meta", r.prefix, collection)
}

// Replace atomically installs a new generation for the collection.
func (r *Redis) Replace(ctx context.Context, collection string, meta brandrag.CollectionMeta, docs []brandrag.Document) error {
	encoded := make([]any, 0, len(docs))
	for _, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal document %s: %w", doc.ID, err)
		}
		encoded = append(encoded, data)
	}

	docsKey := r.docsKey(collection)
	metaKey := r.metaKey(collection)

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, docsKey, metaKey)
	if len(encoded) > 0 {
		pipe.RPush(ctx, docsKey, encoded...)
	}
	pipe.HSet(ctx, metaKey,
		"model", meta.Model,
		"dimension", meta.Dimension,
		"documents", meta.Documents,
		"built_at", meta.BuiltAt.Format(time.RFC3339Nano),
	)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: replace collection %q: %v", brandrag.ErrIndexUnavailable, collection, err)
	}
	return nil
}

// Query loads the collection's documents and ranks them by cosine similarity.
func (r *Redis) Query(ctx context.Context, collection string, embedding []float32, k int) ([]brandrag.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if _, err := r.Meta(ctx, collection); err != nil {
		return nil, err
	}

	raw, err := r.client.LRange(ctx, r.docsKey(collection), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: load collection %q: %v", brandrag.ErrIndexUnavailable, collection, err)
	}

	docs := make([]brandrag.Document, 0, len(raw))
	for _, entry := range raw {
		var doc brandrag.Document
		if err := json.Unmarshal([]byte(entry), &doc); err != nil {
			return nil, fmt.Errorf("unmarshal document entry: %w", err)
		}
		docs = append(docs, doc)
	}

	return rank(docs, embedding, k), nil
}

// Meta returns the collection metadata.
func (r *Redis) Meta(ctx context.Context, collection string) (*brandrag.CollectionMeta, error) {
	fields, err := r.client.HGetAll(ctx, r.metaKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: read collection meta: %v", brandrag.ErrIndexUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: collection %q", brandrag.ErrIndexNotBuilt, collection)
	}

	meta := &brandrag.CollectionMeta{Model: fields["model"]}
	if meta.Dimension, err = strconv.Atoi(fields["dimension"]); err != nil {
		return nil, fmt.Errorf("parse collection dimension: %w", err)
	}
	if meta.Documents, err = strconv.Atoi(fields["documents"]); err != nil {
		return nil, fmt.Errorf("parse collection document count: %w", err)
	}
	if meta.BuiltAt, err = time.Parse(time.RFC3339Nano, fields["built_at"]); err != nil {
		return nil, fmt.Errorf("parse collection build time: %w", err)
	}
	return meta, nil
}

// Drop removes the collection's keys.
func (r *Redis) Drop(ctx context.Context, collection string) error {
	if err := r.client.Del(ctx, r.docsKey(collection), r.metaKey(collection)).Err(); err != nil {
		return fmt.Errorf("%w: drop collection %q: %v", brandrag.ErrIndexUnavailable, collection, err)
	}
	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
