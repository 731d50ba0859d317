package brandrag

import "errors"

// Failure classes raised by the retrieval subsystem. Callers are expected to
// test with errors.Is; every component wraps these with contextual detail.
var (
	// ErrSourceNotFound means the knowledge document does not exist at the
	// given location. Fatal to a build, recoverable by retrying with a valid
	// source.
	ErrSourceNotFound = errors.New("knowledge source not found")

	// ErrMalformedKnowledge means the knowledge document is present but
	// unparseable or missing a required field (brand name).
	ErrMalformedKnowledge = errors.New("malformed knowledge document")

	// ErrEmbeddingUnavailable means the embedding capability could not be
	// reached or returned an unusable response.
	ErrEmbeddingUnavailable = errors.New("embedding capability unavailable")

	// ErrIndexUnavailable means the persistent vector store could not be
	// opened, written, or read.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrIndexNotBuilt means a query was attempted against a collection that
	// has never completed a successful build.
	ErrIndexNotBuilt = errors.New("vector index not built")

	// ErrModelMismatch means the collection was built with a different
	// embedding model than the one used for the query. Mixing embedding
	// spaces silently degrades similarity scores, so it is rejected outright.
	ErrModelMismatch = errors.New("embedding model mismatch")
)
