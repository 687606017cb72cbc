// Command resanitize re-runs content validation and sanitization over stored
// community post bodies. Run it after a ruleset change (new denylist entries,
// new PII patterns) so previously persisted posts meet the current rules.
// Posts that fail validation outright are flagged for moderation in the logs;
// posts whose sanitized body differs are rewritten in place.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	appconfig "github.com/agoraapp/agora/pkg/config"
	"github.com/agoraapp/agora/pkg/community/types"
	"github.com/agoraapp/agora/pkg/community/validate"
	"github.com/agoraapp/agora/pkg/lib"
	"github.com/agoraapp/agora/pkg/lib/log"
	"github.com/agoraapp/agora/pkg/storage/postgres"
)

type Config struct {
	DryRun         bool
	BatchSize      int `validate:"required,gt=0"`
	MaxPosts       int
	MaxConcurrency int    `validate:"required,gt=0"`
	EnvFilePath    string `validate:"required"`
}

func main() {
	var config Config

	flag.BoolVar(&config.DryRun, "dry-run", false, "Show what would be rewritten without actually doing it")
	flag.IntVar(&config.BatchSize, "batch-size", 50, "Number of posts to fetch in each batch")
	flag.IntVar(&config.MaxPosts, "max-posts", 0, "Maximum number of posts to process (0 = no limit)")
	flag.IntVar(&config.MaxConcurrency, "max-concurrency", 20, "Maximum number of posts processed concurrently")
	flag.StringVar(&config.EnvFilePath, "env-file", ".env", "Path to .env file")
	flag.Parse()

	ctx := context.Background()
	if err := run(ctx, config); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, config Config) error {
	if err := lib.ValidateStruct(config); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	// Load environment
	err := godotenv.Load(config.EnvFilePath)
	if err != nil {
		fmt.Println("Warning: Could not load .env file")
	}

	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := log.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	// Connect to database
	db := postgres.NewDB(&cfg.DB)
	err = db.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	validator := validate.New(&cfg.Validate, logger)
	postRepo := postgres.NewPostRepository(db)

	logger.Info().
		Bool("dry_run", config.DryRun).
		Int("batch_size", config.BatchSize).
		Int("max_posts", config.MaxPosts).
		Int("max_concurrency", config.MaxConcurrency).
		Msg("Starting resanitize")

	// Create a pool with limited concurrency
	pool := pond.NewPool(config.MaxConcurrency)
	rewritten := atomic.Int32{}
	flagged := atomic.Int32{}
	unchanged := atomic.Int32{}
	errored := atomic.Int32{}

	before := time.Now()
	fetchCount := 0

	for {
		posts, err := postRepo.ListBefore(ctx, before, config.BatchSize)
		if err != nil {
			return fmt.Errorf("list posts: %w", err)
		}

		logger.Info().
			Int("posts_count", len(posts)).
			Time("before", before).
			Msg("Processing batch")

		if len(posts) == 0 {
			break
		}

		before = posts[len(posts)-1].CreatedAt
		fetchCount += len(posts)

		for _, post := range posts {
			pool.Submit(func() {
				processPost(ctx, post, validator, postRepo, config.DryRun, logger, &rewritten, &flagged, &unchanged, &errored)
			})
		}

		if config.MaxPosts > 0 && fetchCount >= config.MaxPosts {
			break
		}
	}

	pool.StopAndWait()

	logger.Info().
		Int32("rewritten", rewritten.Load()).
		Int32("flagged", flagged.Load()).
		Int32("unchanged", unchanged.Load()).
		Int32("errored", errored.Load()).
		Msg("Resanitize completed")

	return nil
}

func processPost(
	ctx context.Context,
	post *types.CommunityPost,
	validator *validate.Validator,
	postRepo *postgres.PostRepository,
	dryRun bool,
	logger *zerolog.Logger,
	rewritten, flagged, unchanged, errored *atomic.Int32,
) {
	validation := validator.ValidateContent(post.Body, validate.ContentKindPost)

	switch {
	case !validation.OK:
		// A post that no longer passes the ruleset is flagged for
		// moderation; only reason codes are logged.
		reasons := make([]string, len(validation.Reasons))
		for i, reason := range validation.Reasons {
			reasons[i] = string(reason)
		}
		logger.Warn().
			Str("post_id", post.ID).
			Strs("reasons", reasons).
			Msg("Post fails current ruleset, flagged for moderation")
		flagged.Add(1)

	case validation.SanitizedText == post.Body:
		unchanged.Add(1)

	case dryRun:
		logger.Warn().
			Str("post_id", post.ID).
			Msg("Post body would be rewritten (dry run)")
		rewritten.Add(1)

	default:
		if err := postRepo.UpdateBody(ctx, post.ID, validation.SanitizedText); err != nil {
			logger.Error().
				Err(err).
				Str("post_id", post.ID).
				Msg("Error rewriting post body")
			errored.Add(1)
			return
		}
		rewritten.Add(1)
	}
}
