package embeddings

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIEmbedder calls OpenAI's embeddings API.
type OpenAIEmbedder struct {
	model  openai.EmbeddingModel
	client *openai.Client
}

// OpenAIOptions carries the optional collaborators of an OpenAIEmbedder.
type OpenAIOptions struct {
	// BaseURL overrides https://api.openai.com/v1/.
	BaseURL string
	// HTTPClient overrides the SDK's default client.
	HTTPClient *http.Client
}

// NewOpenAIEmbedder creates a new OpenAI embedder. The SDK's automatic retries are
// disabled so every Embed call issues exactly one request.
func NewOpenAIEmbedder(apiKey string, model openai.EmbeddingModel, opts OpenAIOptions) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if model == "" {
		model = openai.EmbeddingModelTextEmbeddingAda002
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	cli := openai.NewClient(reqOpts...)
	return &OpenAIEmbedder{
		model:  model,
		client: &cli,
	}, nil
}

// Embed requests the embedding of text. A non-success status comes back as an
// *openai.Error (see StatusCode); a response without a usable data[0].embedding
// yields ErrNoEmbedding.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	if e == nil || e.client == nil {
		return nil, fmt.Errorf("nil openai embedder")
	}
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Model: e.model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, ErrNoEmbedding
	}
	// The SDK decodes leniently: a missing or mistyped embedding comes back nil.
	first := resp.Data[0]
	if !first.JSON.Embedding.Valid() || len(first.Embedding) == 0 {
		return nil, fmt.Errorf("%w: invalid data[0].embedding", ErrNoEmbedding)
	}
	return Vector(first.Embedding), nil
}
