package embedding

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/markhenning/buildcomply/internal/config"
)

// ErrUpstream wraps any failure of the embedding provider. Callers decide
// whether to retry (the job queue redelivers) or mark the subject failed.
var ErrUpstream = errors.New("embedding service error")

// ErrRateLimited is returned immediately when the outbound limiter rejects a
// call. It is never retried at this layer.
var ErrRateLimited = errors.New("embedding rate limit exceeded")

// Embedder is the contract consumed by ingestion and rule loading.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

type upstream interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Client batches texts through the provider in input order. No caching and
// no retries here; retry policy belongs to the caller.
type Client struct {
	api        upstream
	model      string
	dimensions int
	batchLimit int
	limiter    *rate.Limiter
}

func NewClient(cfg config.EmbeddingConfig) *Client {
	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	batchLimit := cfg.BatchLimit
	if batchLimit <= 0 {
		batchLimit = 2048
	}
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst)
	}
	return &Client{
		api:        openai.NewClient(cfg.OpenAIKey),
		model:      model,
		dimensions: cfg.Dimensions,
		batchLimit: batchLimit,
		limiter:    limiter,
	}
}

// Embed returns one vector per input text, in input order. Inputs larger
// than the batch limit are split into sequential upstream calls and the
// results concatenated.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += c.batchLimit {
		end := i + c.batchLimit
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		if c.limiter != nil && !c.limiter.Allow() {
			return nil, ErrRateLimited
		}

		// Dimensions must agree with the vector column width; the provider
		// truncates to it for models that support shortening.
		resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:      batch,
			Model:      openai.EmbeddingModel(c.model),
			Dimensions: c.dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: batch %d: %v", ErrUpstream, i/c.batchLimit, err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("%w: batch %d: got %d vectors for %d inputs",
				ErrUpstream, i/c.batchLimit, len(resp.Data), len(batch))
		}

		for _, d := range resp.Data {
			vectors = append(vectors, d.Embedding)
		}
	}

	return vectors, nil
}

func (c *Client) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", ErrUpstream)
	}
	return vectors[0], nil
}
