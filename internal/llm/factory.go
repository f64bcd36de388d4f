package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/mnemos-ai/mnemos/internal/config"
)

// NewClient builds the completion and embedding clients for the
// configured provider. The embedder may be nil (Claude has no embedding
// API); callers must treat that as a degraded but working setup.
func NewClient(ctx context.Context, cfg config.LLMConfig) (LLMClient, EmbedderClient, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		c := NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.EmbeddingModel, cfg.BaseURL)
		return c, c, nil

	case "gemini":
		c, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.EmbeddingModel)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil

	case "claude":
		c := NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
		return c, nil, nil

	case "ollama":
		// Ollama speaks the OpenAI API under /v1; reuse that client
		// rather than carrying a separate Ollama SDK.
		baseURL := strings.TrimRight(cfg.BaseURL, "/")
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL += "/v1"
		}
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama" // required by the client, ignored by the server
		}
		c := NewOpenAIClient(apiKey, cfg.Model, cfg.EmbeddingModel, baseURL)
		return c, c, nil

	default:
		return nil, nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
