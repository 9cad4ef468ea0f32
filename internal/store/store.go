package store

import (
	"context"

	"reddit-embeddings/internal/embeddings"
)

// FieldPlotEmbedding is the document field the embedding is written to.
const FieldPlotEmbedding = "plot_embedding"

// Store is the document collection the embedder writes back to.
type Store interface {
	// SetPlotEmbedding sets plot_embedding on the document with the given id and
	// returns how many documents were modified (0 or 1).
	SetPlotEmbedding(ctx context.Context, id any, vector embeddings.Vector) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}
