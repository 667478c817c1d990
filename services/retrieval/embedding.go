// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package retrieval ranks catalog foods against a free-text query.
//
// # Description
//
// The scorer is hybrid: a lexical BM25 index and a semantic embedding
// index are combined by a fixed weighted sum, unless the query names a
// nutrient, in which case foods are ranked directly by that nutrient
// field. Scores in the two modes have different semantics and must not
// be compared across modes.
//
// Embeddings come from a pluggable EmbeddingProvider. Real backends
// (an HTTP embedding service, OpenAI, Ollama) are used when configured;
// a deterministic token-frequency fallback keeps the pipeline fully
// local and dependency-free when they are not, at reduced quality and
// with adjusted fusion weights.
//
// # Thread Safety
//
// A built Scorer is immutable and safe for concurrent use. Providers
// must be safe for concurrent calls.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms/ollama"
)

// EmbeddingProvider computes vector embeddings for texts. Implementations
// must return one vector per input text, all of equal dimension.
type EmbeddingProvider interface {
	// Embed returns embeddings for the given texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Name identifies the backend for logging and cache keys.
	Name() string
}

// NewProviderFromEnv selects an embedding backend from EMBEDDING_BACKEND:
// "service" (HTTP embedding service), "openai", "ollama", or anything
// else (including unset) for the local token-frequency fallback.
func NewProviderFromEnv() (EmbeddingProvider, error) {
	switch os.Getenv("EMBEDDING_BACKEND") {
	case "service":
		url := os.Getenv("EMBEDDING_SERVICE_URL")
		if url == "" {
			return nil, fmt.Errorf("EMBEDDING_BACKEND=service requires EMBEDDING_SERVICE_URL")
		}
		return NewServiceProvider(url), nil
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("EMBEDDING_BACKEND=openai requires OPENAI_API_KEY")
		}
		return NewOpenAIProvider(key), nil
	case "ollama":
		return NewOllamaProvider(os.Getenv("OLLAMA_SERVER_URL"), os.Getenv("EMBEDDING_MODEL_NAME"))
	default:
		return NewTokenFrequencyProvider(), nil
	}
}

// =============================================================================
// Token-Frequency Fallback
// =============================================================================

// tokenFrequencyDim is the fixed hashing dimension of the fallback
// provider. Collisions are acceptable: the vectors only feed a cosine
// similarity over a small catalog.
const tokenFrequencyDim = 256

// TokenFrequencyProvider is the deterministic, fully local fallback:
// tokens are hashed into a fixed-dimension count vector which is then
// L2-normalized. Cosine similarity over these vectors is a pure
// token-overlap measure, which is why the fusion weights shift toward
// the lexical score when this provider is active.
type TokenFrequencyProvider struct{}

// NewTokenFrequencyProvider returns the fallback provider.
func NewTokenFrequencyProvider() *TokenFrequencyProvider {
	return &TokenFrequencyProvider{}
}

// Name implements EmbeddingProvider.
func (p *TokenFrequencyProvider) Name() string { return "token_frequency" }

// Embed implements EmbeddingProvider. Never fails and performs no I/O.
func (p *TokenFrequencyProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, tokenFrequencyDim)
		for _, token := range tokenize(text) {
			h := fnv.New32a()
			h.Write([]byte(token))
			vec[h.Sum32()%tokenFrequencyDim]++
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm > 0 {
			scale := float32(1 / math.Sqrt(norm))
			for j := range vec {
				vec[j] *= scale
			}
		}
		out[i] = vec
	}
	return out, nil
}

// =============================================================================
// HTTP Embedding Service
// =============================================================================

// ServiceProvider calls a dedicated embedding service over HTTP, one
// POST per text: {"text": ...} -> {"vector": [...], "dim": n}.
type ServiceProvider struct {
	url    string
	client *http.Client
}

// NewServiceProvider creates a provider for the given endpoint URL.
func NewServiceProvider(url string) *ServiceProvider {
	return &ServiceProvider{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name implements EmbeddingProvider.
func (p *ServiceProvider) Name() string { return "service" }

type serviceEmbedRequest struct {
	Text string `json:"text"`
}

type serviceEmbedResponse struct {
	Vector []float32 `json:"vector"`
	Dim    int       `json:"dim"`
}

// Embed implements EmbeddingProvider.
func (p *ServiceProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		body, err := json.Marshal(serviceEmbedRequest{Text: text})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal the embedding request: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewBuffer(body))
		if err != nil {
			return nil, fmt.Errorf("failed to build the embedding request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to call the embedding service: %w", err)
		}
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("failed to read the embedding service response: %w", readErr)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("the embedding service returned %d: %s", resp.StatusCode, string(respBody))
		}
		var parsed serviceEmbedResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse the embedding service response: %w", err)
		}
		out[i] = parsed.Vector
	}
	return out, nil
}

// =============================================================================
// OpenAI
// =============================================================================

// OpenAIProvider uses the OpenAI embeddings API.
type OpenAIProvider struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIProvider creates a provider with text-embedding-3-small.
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  openai.SmallEmbedding3,
	}
}

// Name implements EmbeddingProvider.
func (p *OpenAIProvider) Name() string { return "openai" }

// Embed implements EmbeddingProvider.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: p.model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d texts", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		out[item.Index] = item.Embedding
	}
	return out, nil
}

// =============================================================================
// Ollama
// =============================================================================

// OllamaProvider embeds via a local Ollama server.
type OllamaProvider struct {
	llm   *ollama.LLM
	model string
}

// NewOllamaProvider creates a provider; serverURL and model fall back to
// Ollama defaults and "nomic-embed-text" when empty.
func NewOllamaProvider(serverURL, model string) (*OllamaProvider, error) {
	if model == "" {
		model = "nomic-embed-text"
	}
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create the ollama client: %w", err)
	}
	return &OllamaProvider{llm: llm, model: model}, nil
}

// Name implements EmbeddingProvider.
func (p *OllamaProvider) Name() string { return "ollama:" + p.model }

// Embed implements EmbeddingProvider.
func (p *OllamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := p.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama embedding request failed: %w", err)
	}
	return vecs, nil
}

// tokenize lowercases and splits on whitespace, matching the lexical
// index's view of the text.
func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
