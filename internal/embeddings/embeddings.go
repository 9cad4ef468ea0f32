package embeddings

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
)

// Vector is the embedding exactly as the API returned it.
type Vector []float64

// Embedder defines the embedding interface.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
}

// ErrNoEmbedding is returned when a successful response carries no data[0].embedding.
var ErrNoEmbedding = errors.New("embeddings: response has no data")

// StatusCode reports the HTTP status of a request the API answered with a non-success code.
func StatusCode(err error) (int, bool) {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}
	return 0, false
}
