package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	cfg  *Config
	pool *pgxpool.Pool
}

func NewDB(cfg *Config) *DB {
	return &DB{cfg: cfg}
}

func (d *DB) Pool() *pgxpool.Pool {
	if d.pool == nil {
		panic("db not connected, call DB.Connect() first")
	}
	return d.pool
}

// Connect connects to Postgres and optionally creates the schema.
func (d *DB) Connect(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, d.cfg.DSN())
	if err != nil {
		return fmt.Errorf("pgx connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	d.pool = pool

	// Optional schema creation for local/dev environments.
	if d.cfg.AutoMigrate {
		if err := d.createSchema(ctx); err != nil {
			return fmt.Errorf("create schema resources: %w", err)
		}
	}

	return nil
}

func (d *DB) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

func (d *DB) createSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS community_posts (
			id TEXT PRIMARY KEY,
			author_id TEXT NOT NULL,
			author_display_name TEXT NOT NULL,
			source_kind TEXT NOT NULL,
			body TEXT NOT NULL,
			excerpt_of TEXT NOT NULL DEFAULT '',
			virtue_tag TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS community_posts_created_at_idx
			ON community_posts (created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS post_reactions (
			post_id TEXT NOT NULL REFERENCES community_posts (id) ON DELETE CASCADE,
			viewer_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (post_id, viewer_id)
		)`,
		`CREATE TABLE IF NOT EXISTS personas (
			id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			voice_guidelines TEXT NOT NULL DEFAULT ''
		)`,
	}

	for _, stmt := range statements {
		if _, err := d.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}

	return nil
}
