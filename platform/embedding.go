package platform

import (
	"os"
	"time"
)

// EmbeddingConfig 包含外部 embedding 服务的配置信息
// Built once at startup; the embedding pipeline receives it by reference and
// never reads the environment on its own.
type EmbeddingConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

var (
	EmbeddingCfg *EmbeddingConfig
)

func InitEmbeddingConfig() {
	baseURL := os.Getenv("EMBEDDING_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		model = "nomic-embed-text"
	}

	EmbeddingCfg = &EmbeddingConfig{
		BaseURL: baseURL,
		Model:   model,
		Timeout: 30 * time.Second,
	}
}
