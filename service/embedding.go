package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"semchat/platform"
)

var logger = platform.Logger

// Text shorter than this (after trimming) is never sent to the provider.
const minEmbeddableLength = 3

// EmbeddingService issues single-shot requests against the external embedding
// endpoint. Every failure is absorbed: callers only ever observe an absent
// vector, never an error.
type EmbeddingService struct {
	cfg    *platform.EmbeddingConfig
	client *http.Client
}

func NewEmbeddingService(cfg *platform.EmbeddingConfig) *EmbeddingService {
	return &EmbeddingService{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (s *EmbeddingService) ModelName() string {
	return s.cfg.Model
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Generate returns the vector for text, or false when the text is too short
// to embed or the provider call fails. Exactly one attempt, no retry.
func (s *EmbeddingService) Generate(ctx context.Context, text string) ([]float32, bool) {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < minEmbeddableLength {
		return nil, false
	}

	body, err := json.Marshal(embeddingRequest{
		Model:  s.cfg.Model,
		Prompt: NormalizeForEmbedding(trimmed),
	})
	if err != nil {
		logger.Warnf("[embedding] marshal request error, %s", err)
		return nil, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/api/embeddings", bytes.NewBuffer(body))
	if err != nil {
		logger.Warnf("[embedding] create request error, %s", err)
		return nil, false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		logger.Warnf("[embedding] request error, %s", err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warnf("[embedding] unexpected status code: %d", resp.StatusCode)
		return nil, false
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Warnf("[embedding] read response error, %s", err)
		return nil, false
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		logger.Warnf("[embedding] unmarshal response error, %s", err)
		return nil, false
	}
	if len(parsed.Embedding) == 0 {
		logger.Warnf("[embedding] response missing embedding field")
		return nil, false
	}
	return parsed.Embedding, true
}
