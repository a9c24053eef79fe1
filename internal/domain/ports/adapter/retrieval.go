package adapter

import "context"

// RetrievalProvider is the port for the text retrieval engine. The handle
// returned by Index is a live in-process object owned by exactly one session;
// it is opaque to callers and is never serialized.
type RetrievalProvider interface {
	// Index prepares a corpus from row chunks and returns its handle.
	Index(ctx context.Context, chunks []string) (any, error)

	// Search returns up to k snippets ranked by relevance to the query.
	Search(ctx context.Context, handle any, query string, k int) ([]string, error)
}
