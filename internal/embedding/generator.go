package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

var ErrProvider = errors.New("embedding provider error")

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Scorer interface {
	Score(content string) float64
}

// Outcome is the per-chunk result of an embedding batch. Exactly one of
// Vector and Err is set.
type Outcome struct {
	Index   int
	Vector  []float32
	Quality float64
	Err     error
}

func (o Outcome) OK() bool {
	return o.Err == nil && len(o.Vector) > 0
}

type Options struct {
	// RateLimitDelay is the minimum spacing between backend calls. Zero disables spacing.
	RateLimitDelay time.Duration
	// Timeout bounds every single backend call.
	Timeout time.Duration
	// BatchSize sets how often progress is logged.
	BatchSize int
}

// Generator embeds chunk texts one at a time. A failing chunk never aborts
// the batch.
type Generator struct {
	embedder  Embedder
	scorer    Scorer
	limiter   *rate.Limiter
	timeout   time.Duration
	batchSize int
}

func NewGenerator(e Embedder, s Scorer, opts Options) *Generator {
	limit := rate.Inf
	if opts.RateLimitDelay > 0 {
		limit = rate.Every(opts.RateLimitDelay)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	return &Generator{
		embedder:  e,
		scorer:    s,
		limiter:   rate.NewLimiter(limit, 1),
		timeout:   opts.Timeout,
		batchSize: opts.BatchSize,
	}
}

// EmbedAll returns one Outcome per input text, in input order.
func (g *Generator) EmbedAll(ctx context.Context, texts []string) []Outcome {
	out := make([]Outcome, len(texts))
	ok := 0

	for i, text := range texts {
		out[i].Index = i

		if err := g.limiter.Wait(ctx); err != nil {
			for j := i; j < len(texts); j++ {
				out[j] = Outcome{Index: j, Err: err}
			}
			slog.WarnContext(ctx, "embedding interrupted", "remaining", len(texts)-i, "error", err)
			break
		}

		vec, err := g.embedOne(ctx, text)
		if err != nil {
			out[i].Err = err
			slog.WarnContext(ctx, "failed to embed chunk", "chunk_index", i, "error", err)
		} else {
			out[i].Vector = vec
			out[i].Quality = g.scorer.Score(text)
			ok++
		}

		if (i+1)%g.batchSize == 0 {
			slog.InfoContext(ctx, "embedding progress", "done", i+1, "total", len(texts), "embedded", ok)
		}
	}

	slog.InfoContext(ctx, "embedding finished", "total", len(texts), "embedded", ok)
	return out
}

func (g *Generator) embedOne(ctx context.Context, text string) ([]float32, error) {
	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	vec, err := g.embedder.Embed(cctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrProvider)
	}
	return vec, nil
}
