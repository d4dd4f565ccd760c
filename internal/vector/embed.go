// Package vector wraps the embedding model and the vector store behind a
// single provider-agnostic API. It generalizes the teacher's
// internal/embeddings (Ollama HTTP client with MRL truncation) and
// internal/vectordb (Qdrant) packages.
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jamaly87/codesearch/pkg/config"
)

// Embedder turns text into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	HealthCheck(ctx context.Context) error
}

// OllamaEmbedder talks to a local Ollama server, the same HTTP surface the
// teacher's embeddings.Client used, generalized to take a context on every
// call and to log through zerolog instead of the standard logger.
type OllamaEmbedder struct {
	cfg        config.EmbeddingsConfig
	httpClient *http.Client
	log        zerolog.Logger
}

// NewOllamaEmbedder builds an OllamaEmbedder tuned the way the teacher
// tunes its HTTP transport: generous keep-alive pooling for a local daemon
// that will receive many small requests.
func NewOllamaEmbedder(cfg config.EmbeddingsConfig, logger zerolog.Logger) *OllamaEmbedder {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		MaxConnsPerHost:     100,
		IdleConnTimeout:     90 * time.Second,
	}
	e := &OllamaEmbedder{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   60 * time.Second,
			Transport: transport,
		},
		log: logger.With().Str("component", "vector.embed").Logger(),
	}
	e.logMRLConfig()
	return e
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

const maxEmbedChars = 4000

func (e *OllamaEmbedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	if len(text) > maxEmbedChars {
		text = text[:maxEmbedChars]
	}

	reqBody, err := json.Marshal(embedRequest{Model: e.cfg.Model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	url := fmt.Sprintf("%s/api/embeddings", e.cfg.OllamaURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	var decoded embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}

	fullDim := e.cfg.FullDimension
	if fullDim == 0 {
		fullDim = 768
	}
	if len(decoded.Embedding) != fullDim {
		return nil, fmt.Errorf("expected %d dimensions from model, got %d", fullDim, len(decoded.Embedding))
	}

	vec := decoded.Embedding
	if e.cfg.UseMRL && e.cfg.Dimensions < fullDim {
		vec = applyMRL(vec, e.cfg.Dimensions)
	}
	if e.cfg.Normalize {
		vec = normalizeL2(vec)
	}
	return vec, nil
}

// Embed generates one vector per text, concurrently and capped at 10
// in-flight requests, cancelling the rest on the first error.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) == 1 {
		v, err := e.embedOne(ctx, texts[0])
		if err != nil {
			return nil, err
		}
		return [][]float32{v}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	embeddings := make([][]float32, len(texts))
	errs := make([]error, len(texts))

	const maxConcurrent = 10
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var once sync.Once

	for i, text := range texts {
		wg.Add(1)
		go func(idx int, txt string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			select {
			case <-ctx.Done():
				return
			default:
			}

			v, err := e.embedOne(ctx, txt)
			if err != nil {
				errs[idx] = fmt.Errorf("embed item %d: %w", idx, err)
				once.Do(cancel)
				return
			}
			embeddings[idx] = v
		}(i, text)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("batch embed failed at index %d: %w", i, err)
		}
	}
	return embeddings, nil
}

// HealthCheck confirms the embedding model responds.
func (e *OllamaEmbedder) HealthCheck(ctx context.Context) error {
	if _, err := e.embedOne(ctx, "healthcheck"); err != nil {
		return fmt.Errorf("ollama health check: %w", err)
	}
	return nil
}

func (e *OllamaEmbedder) logMRLConfig() {
	fullDim := e.cfg.FullDimension
	if fullDim == 0 {
		fullDim = 768
	}
	if e.cfg.UseMRL {
		reduction := float64(fullDim-e.cfg.Dimensions) / float64(fullDim) * 100
		e.log.Info().Int("full_dim", fullDim).Int("target_dim", e.cfg.Dimensions).
			Float64("reduction_pct", reduction).Msg("MRL truncation enabled")
	} else {
		e.log.Info().Int("full_dim", fullDim).Msg("MRL disabled, using full embeddings")
	}
}

func normalizeL2(vec []float32) []float32 {
	var sum float32
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return vec
	}
	magnitude := float32(1.0) / sqrt32(sum)
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v * magnitude
	}
	return out
}

func sqrt32(x float32) float32 {
	if x < 0 {
		return 0
	}
	z := float64(x)
	for i := 0; i < 10; i++ {
		z = z - (z*z-float64(x))/(2*z)
	}
	return float32(z)
}

var mrlValidDims = []int{64, 128, 256, 512, 768}

// applyMRL truncates a Matryoshka-trained embedding to targetDim, the way
// nomic-embed-text's MRL training lets callers do post-hoc without
// recomputing the forward pass.
func applyMRL(embedding []float32, targetDim int) []float32 {
	valid := false
	for _, d := range mrlValidDims {
		if d == targetDim {
			valid = true
			break
		}
	}
	if !valid {
		targetDim = closestValidDim(targetDim)
	}
	if targetDim > len(embedding) {
		targetDim = len(embedding)
	}
	out := make([]float32, targetDim)
	copy(out, embedding[:targetDim])
	return out
}

func closestValidDim(target int) int {
	if target < mrlValidDims[0] {
		return mrlValidDims[0]
	}
	if target > mrlValidDims[len(mrlValidDims)-1] {
		return mrlValidDims[len(mrlValidDims)-1]
	}
	for i := 0; i < len(mrlValidDims)-1; i++ {
		if target > mrlValidDims[i] && target < mrlValidDims[i+1] {
			if target-mrlValidDims[i] < mrlValidDims[i+1]-target {
				return mrlValidDims[i]
			}
			return mrlValidDims[i+1]
		}
	}
	return target
}
