package summarize

import "time"

type Config struct {
	// DefaultMaxLength bounds summaries (in runes) when the request
	// doesn't specify its own limit.
	DefaultMaxLength int `env:"SUMMARY_DEFAULT_MAX_LENGTH,default=280" validate:"required,gt=0"`
	// CacheTTL controls how long identical summary requests are served
	// from cache instead of the completion model.
	CacheTTL time.Duration `env:"SUMMARY_CACHE_TTL,default=1h"`
}
