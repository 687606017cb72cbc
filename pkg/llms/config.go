package llms

import "time"

type Config struct {
	CompletionProvider string `env:"LLM_COMPLETION_PROVIDER,default=openai" validate:"required,oneof=openai ollama"`
	CompletionModel    string `env:"LLM_COMPLETION_MODEL,default=gpt-5-nano-2025-08-07" validate:"required"`

	// CompletionCacheTTL controls how long identical prompts are served
	// from the in-memory completion cache.
	CompletionCacheTTL time.Duration `env:"LLM_COMPLETION_CACHE_TTL,default=1h"`

	// Provider specific configurations
	OllamaBaseURL     string `env:"OLLAMA_BASE_URL,default=http://host.docker.internal:11434"` // replace with localhost if running outside docker
	OllamaContextSize int    `env:"OLLAMA_CONTEXT_SIZE,default=32768"`                         // context window size in tokens
}
