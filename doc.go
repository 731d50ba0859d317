// Package brandrag implements the retrieval core of a brand & product
// question-answering assistant.
//
// A structured knowledge base (brand facts, product/crop entries, mechanism
// notes, FAQs) is decomposed into atomic documents, embedded, and stored in a
// named collection of a persistent vector index. At query time the retriever
// embeds the question, runs a diversified (MMR) similarity search against the
// collection, deduplicates the selection, and returns a single formatted
// context block ready to be handed to a language model.
//
// # Components
//
//   - knowledge: loads and validates the brand knowledge document and builds
//     the cached knowledge-base summary.
//   - decompose: turns a knowledge record into atomic, typed documents,
//     splitting oversized text into overlapping chunks.
//   - splitter: recursive character splitting with priority-ordered separators.
//   - embedder: embedding capability implementations (OpenAI, any langchaingo
//     embedder, deterministic mock for tests).
//   - index: vector index backends (in-memory, SQLite, Redis, Postgres with
//     pgvector), each keyed by collection name with replace-on-rebuild
//     semantics and a pinned embedding model per collection.
//   - retriever: MMR search, deduplication, and context-block assembly.
//   - engine: the composition root wiring everything behind Rebuild, Search,
//     Summary, and BrandInfo.
//
// # Quick start
//
//	emb := embedder.NewOpenAI(apiKey)
//	idx, _ := index.NewSQLite("brand_kb.db")
//	sys, _ := engine.New(emb, idx,
//		engine.WithCollection("brand_kb"),
//		engine.WithSource("brand_data.json"),
//	)
//
//	if err := sys.Rebuild(ctx, ""); err != nil {
//		// handle build failure
//	}
//	block, err := sys.Search(ctx, "refund policy", 4)
//
// This package is a library, not a network service: the chat transport that
// refines queries and calls the language model is expected to live elsewhere
// and consume Search and Summary through plain function calls.
package brandrag // import "github.com/smallnest/brandrag"
