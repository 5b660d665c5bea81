package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// EmbeddingConfig holds API settings for text-embedding (OpenAI-compatible).
type EmbeddingConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Embedder converts text into a fixed-length vector via the embeddings API.
// Construction fails soft: with no API key the embedder exists but every call
// returns ErrNotInitialized.
type Embedder struct {
	client *OpenAICompatibleClient
	cfg    EmbeddingConfig
	ready  bool
}

func NewEmbedder(cfg EmbeddingConfig) *Embedder {
	e := &Embedder{
		client: NewOpenAICompatibleClient(),
		cfg:    cfg,
		ready:  strings.TrimSpace(cfg.APIKey) != "",
	}
	if !e.ready {
		log.Printf("OPENAI_API_KEY is not set, embedding calls will be unavailable")
	}
	return e
}

func (e *Embedder) Ready() bool {
	return e.ready
}

// Embed returns the embedding vector for the given text. No local length
// validation is performed; truncation limits are the remote API's concern.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if !e.ready {
		return nil, ErrNotInitialized
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("embedding input is empty")
	}
	return e.request(ctx, text)
}

// EmbedBatch embeds multiple texts in one request (array input).
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if !e.ready {
		return nil, ErrNotInitialized
	}
	trimmed := make([]string, 0, len(texts))
	for _, t := range texts {
		if s := strings.TrimSpace(t); s != "" {
			trimmed = append(trimmed, s)
		}
	}
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("no non-empty texts for embedding")
	}
	return e.requestBatch(ctx, trimmed)
}

func (e *Embedder) request(ctx context.Context, input string) ([]float32, error) {
	data, err := e.post(ctx, map[string]interface{}{
		"model": e.cfg.Model,
		"input": input,
	}, 30*time.Second)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || len(data[0]) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}
	return data[0], nil
}

func (e *Embedder) requestBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	data, err := e.post(ctx, map[string]interface{}{
		"model": e.cfg.Model,
		"input": inputs,
	}, 60*time.Second)
	if err != nil {
		return nil, err
	}
	if len(data) != len(inputs) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d got %d", len(inputs), len(data))
	}
	return data, nil
}

func (e *Embedder) post(ctx context.Context, reqBody map[string]interface{}, timeout time.Duration) ([][]float32, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request failed: %w", err)
	}

	url := strings.TrimRight(e.cfg.BaseURL, "/") + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build embedding request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	client := e.client.httpClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding json failed: %w", err)
	}
	result := make([][]float32, len(parsed.Data))
	for i := range parsed.Data {
		result[i] = parsed.Data[i].Embedding
	}
	return result, nil
}
