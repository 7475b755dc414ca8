package gemini

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultModel = "text-embedding-004"

var errEmptyEmbedding = errors.New("empty embedding received")

type Embedder struct {
	client *genai.Client
	model  string
}

// NewEmbedder creates a client for the given embedding model. Extra options
// are appended after the API key, which lets tests point at a local endpoint.
func NewEmbedder(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*Embedder, error) {
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Embedder{client: client, model: model}, nil
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	slog.DebugContext(ctx, "embedding content", "model", e.model, "length", len(text))
	em := e.client.EmbeddingModel(e.model)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, errEmptyEmbedding
	}
	return res.Embedding.Values, nil
}

func (e *Embedder) Model() string {
	return e.model
}

func (e *Embedder) Close() error {
	return e.client.Close()
}
