package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sprklai/mesoclaw/internal/providers"
)

// HTTPEmbeddingProvider calls an OpenAI-compatible /embeddings endpoint.
// The gateway uses it for embedding_provider "openai" and "gemini";
// MemoryConfig.EmbeddingAPIBase can point it at any server exposing the
// same wire format (e.g. a self-hosted Ollama/vLLM instance).
type HTTPEmbeddingProvider struct {
	apiKey      string
	apiBase     string
	model       string
	client      *http.Client
	retryConfig providers.RetryConfig
}

// NewHTTPEmbeddingProvider builds a provider against apiBase (e.g.
// "https://api.openai.com/v1"), defaulting model to "text-embedding-3-small"
// when empty.
func NewHTTPEmbeddingProvider(apiKey, apiBase, model string) *HTTPEmbeddingProvider {
	if apiBase == "" {
		apiBase = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &HTTPEmbeddingProvider{
		apiKey:      apiKey,
		apiBase:     strings.TrimRight(apiBase, "/"),
		model:       model,
		client:      &http.Client{Timeout: 30 * time.Second},
		retryConfig: providers.DefaultRetryConfig(),
	}
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (p *HTTPEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: p.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("memory: marshal embedding request: %w", err)
	}

	return providers.RetryDo(ctx, p.retryConfig, func() ([]float32, error) {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", p.apiBase+"/embeddings", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("memory: create embedding request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if p.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
		}

		resp, err := p.client.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("memory: embedding request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			retryAfter := providers.ParseRetryAfter(resp.Header.Get("Retry-After"))
			return nil, &providers.HTTPError{Status: resp.StatusCode, Body: string(respBody), RetryAfter: retryAfter}
		}

		var parsed embeddingResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return nil, fmt.Errorf("memory: decode embedding response: %w", err)
		}
		if len(parsed.Data) == 0 {
			return nil, fmt.Errorf("memory: embedding response contained no data")
		}
		return parsed.Data[0].Embedding, nil
	})
}

var _ EmbeddingProvider = (*HTTPEmbeddingProvider)(nil)
