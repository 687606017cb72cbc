// Package llms constructs the completion models behind the summary
// generator: the OpenAI provider wrapped in a retrying rate limiter, or a
// minimal Ollama client for local deployments, optionally behind a TTL cache.
package llms

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/agoraapp/agora/pkg/lib"
)

func NewCompletionModel(config *Config, logger *zerolog.Logger) (completionModel, error) {
	switch config.CompletionProvider {
	case "openai":
		limiter := lib.NewCompletionLimiter(logger)
		openaiModel, err := openai.New(
			openai.WithModel(config.CompletionModel),
			openai.WithHTTPClient(limiter),
		)
		if err != nil {
			return nil, fmt.Errorf("create OpenAI model: %w", err)
		}
		return openaiModel, nil
	case "ollama":
		return NewOllamaModel(config.OllamaBaseURL, config.CompletionModel, http.DefaultClient, config.OllamaContextSize), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", config.CompletionProvider)
	}
}
