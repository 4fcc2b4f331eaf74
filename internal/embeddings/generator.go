package embeddings

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/codequery/codequery/internal/logging"
)

// DefaultBatchSize bounds how many texts are embedded per backend call.
const DefaultBatchSize = 64

// Vectorizer is the embedding backend. The ollama client from langchaingo
// satisfies it.
type Vectorizer interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces fixed-dimension, unit-normalized embedding vectors.
// The backend is expensive to set up and is created lazily exactly once;
// concurrent first callers share the single initialization.
type Generator struct {
	dim       int
	batchSize int
	log       logging.Logger

	once    sync.Once
	backend Vectorizer
	initErr error
	connect func() (Vectorizer, error)
}

// New returns a Generator backed by an Ollama embedding model.
func New(baseURL, model string, dim, batchSize int, log logging.Logger) *Generator {
	g := newWithConnect(dim, batchSize, log, func() (Vectorizer, error) {
		opts := []ollama.Option{ollama.WithModel(model)}
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			opts = append(opts, ollama.WithServerURL(trimmed))
		}
		opts = append(opts, ollama.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}))
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create ollama embedding client: %w", err)
		}
		log.Info("embedding backend ready", "model", model)
		return llm, nil
	})
	return g
}

// NewWithBackend wires an explicit backend; used by tests and by callers that
// manage the client themselves.
func NewWithBackend(backend Vectorizer, dim, batchSize int, log logging.Logger) *Generator {
	return newWithConnect(dim, batchSize, log, func() (Vectorizer, error) { return backend, nil })
}

func newWithConnect(dim, batchSize int, log logging.Logger, connect func() (Vectorizer, error)) *Generator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Generator{
		dim:       dim,
		batchSize: batchSize,
		log:       log.WithName("embeddings"),
		connect:   connect,
	}
}

// Dim returns the configured embedding dimension.
func (g *Generator) Dim() int { return g.dim }

// Embed returns the unit-normalized vector for a single text.
func (g *Generator) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in fixed-size batches, preserving input order.
func (g *Generator) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	backend, err := g.get()
	if err != nil {
		return nil, err
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += g.batchSize {
		end := start + g.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := backend.CreateEmbedding(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d,%d): %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embedding backend returned %d vectors for %d texts", len(vecs), end-start)
		}
		for _, v := range vecs {
			if len(v) != g.dim {
				return nil, fmt.Errorf("embedding dimension %d does not match configured %d", len(v), g.dim)
			}
			out = append(out, normalize(v))
		}
		g.log.Debug("embedded batch", "done", end, "total", len(texts))
	}
	return out, nil
}

func (g *Generator) get() (Vectorizer, error) {
	g.once.Do(func() {
		g.backend, g.initErr = g.connect()
	})
	return g.backend, g.initErr
}

// normalize scales v to unit L2 norm so cosine similarity reduces to a dot
// product. Zero vectors are returned unchanged.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
