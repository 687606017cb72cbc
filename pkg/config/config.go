package config

import (
	"fmt"

	"github.com/joeshaw/envdecode"

	"github.com/agoraapp/agora/pkg/community/feed"
	"github.com/agoraapp/agora/pkg/community/format"
	"github.com/agoraapp/agora/pkg/community/summarize"
	"github.com/agoraapp/agora/pkg/community/validate"
	"github.com/agoraapp/agora/pkg/lib"
	"github.com/agoraapp/agora/pkg/lib/log"
	"github.com/agoraapp/agora/pkg/llms"
	"github.com/agoraapp/agora/pkg/storage/postgres"
)

type Config struct {
	DB        postgres.Config  `env:""`
	Log       log.Config       `env:""`
	LLM       llms.Config      `env:""`
	Validate  validate.Config  `env:""`
	Format    format.Config    `env:""`
	Summarize summarize.Config `env:""`
	Feed      feed.Config      `env:""`
}

func Load() (*Config, error) {
	var cfg Config

	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := lib.ValidateStruct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
