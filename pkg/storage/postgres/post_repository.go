package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/agoraapp/agora/pkg/community/types"
)

// PostRepository persists community posts and their reaction counts.
// Reaction counts are aggregated on read; writes of individual reactions are
// owned by the surrounding application.
type PostRepository struct {
	db *DB
}

func NewPostRepository(db *DB) *PostRepository {
	return &PostRepository{db: db}
}

// Create persists a freshly formatted post for the given author.
func (r *PostRepository) Create(ctx context.Context, post *types.FormattedPost, authorID, authorDisplayName string) error {
	_, err := r.db.Pool().Exec(ctx, `
		INSERT INTO community_posts (id, author_id, author_display_name, source_kind, body, excerpt_of, virtue_tag, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		post.ID,
		authorID,
		authorDisplayName,
		string(post.SourceKind),
		post.Body,
		post.ExcerptOf,
		post.VirtueTag,
		post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert community post: %w", err)
	}

	return nil
}

// UpdateBody rewrites a stored post body, used by the resanitize command
// after a ruleset change.
func (r *PostRepository) UpdateBody(ctx context.Context, postID, body string) error {
	tag, err := r.db.Pool().Exec(ctx, `
		UPDATE community_posts SET body = $2 WHERE id = $1`,
		postID, body,
	)
	if err != nil {
		return fmt.Errorf("update post body: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("post %s not found", postID)
	}

	return nil
}

// Remove deletes a post and, via cascade, its reactions.
func (r *PostRepository) Remove(ctx context.Context, postID string) error {
	_, err := r.db.Pool().Exec(ctx, `DELETE FROM community_posts WHERE id = $1`, postID)
	if err != nil {
		return fmt.Errorf("delete community post: %w", err)
	}

	return nil
}

// ListCandidates returns feed candidates created after since, newest first,
// with aggregated reaction counts. A non-positive limit means no cap.
// The ranker takes it from there.
func (r *PostRepository) ListCandidates(ctx context.Context, since time.Time, limit int) ([]*types.CommunityPost, error) {
	// LIMIT NULL is Postgres for "no limit".
	var bound any
	if limit > 0 {
		bound = limit
	}

	rows, err := r.db.Pool().Query(ctx, `
		SELECT p.id, p.author_id, p.author_display_name, p.source_kind, p.body, p.excerpt_of, p.virtue_tag, p.created_at,
			COALESCE(json_object_agg(r.kind, r.count) FILTER (WHERE r.kind IS NOT NULL), '{}'::json) AS reactions
		FROM community_posts p
		LEFT JOIN (
			SELECT post_id, kind, COUNT(*) AS count
			FROM post_reactions
			GROUP BY post_id, kind
		) r ON r.post_id = p.id
		WHERE p.created_at > $1
		GROUP BY p.id
		ORDER BY p.created_at DESC
		LIMIT $2`,
		since, bound,
	)
	if err != nil {
		return nil, fmt.Errorf("query feed candidates: %w", err)
	}
	defer rows.Close()

	posts := make([]*types.CommunityPost, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}

	return posts, nil
}

// ListBefore pages through stored posts newest-first, returning posts
// created strictly before the given timestamp. Used by batch maintenance
// tooling that walks the whole table.
func (r *PostRepository) ListBefore(ctx context.Context, before time.Time, limit int) ([]*types.CommunityPost, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT p.id, p.author_id, p.author_display_name, p.source_kind, p.body, p.excerpt_of, p.virtue_tag, p.created_at,
			'{}'::json AS reactions
		FROM community_posts p
		WHERE p.created_at < $1
		ORDER BY p.created_at DESC
		LIMIT $2`,
		before, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query posts before: %w", err)
	}
	defer rows.Close()

	posts := make([]*types.CommunityPost, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}

	return posts, nil
}

// GetViewerReactions returns the viewer's own reaction per post ID, for
// assembling CommunityPostWithReaction values.
func (r *PostRepository) GetViewerReactions(ctx context.Context, viewerID string, postIDs []string) (map[string]types.ReactionKind, error) {
	if len(postIDs) == 0 {
		return map[string]types.ReactionKind{}, nil
	}

	rows, err := r.db.Pool().Query(ctx, `
		SELECT post_id, kind
		FROM post_reactions
		WHERE viewer_id = $1 AND post_id = ANY($2)`,
		viewerID, postIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("query viewer reactions: %w", err)
	}
	defer rows.Close()

	reactions := make(map[string]types.ReactionKind)
	for rows.Next() {
		var postID, kind string
		if err := rows.Scan(&postID, &kind); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		reactions[postID] = types.ReactionKind(kind)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reactions: %w", err)
	}

	return reactions, nil
}

func scanPost(rows pgx.Rows) (*types.CommunityPost, error) {
	var (
		post       types.CommunityPost
		sourceKind string
		reactions  map[string]int
	)

	err := rows.Scan(
		&post.ID,
		&post.AuthorID,
		&post.AuthorDisplayName,
		&sourceKind,
		&post.Body,
		&post.ExcerptOf,
		&post.VirtueTag,
		&post.CreatedAt,
		&reactions,
	)
	if err != nil {
		return nil, err
	}

	post.SourceKind = types.SourceKind(sourceKind)
	post.ReactionCounts = make(map[types.ReactionKind]int, len(reactions))
	for kind, count := range reactions {
		post.ReactionCounts[types.ReactionKind(kind)] = count
	}

	return &post, nil
}

// ErrPersonaNotFound is returned when a persona ID has no profile row.
var ErrPersonaNotFound = errors.New("persona not found")

// PersonaRepository looks up coach persona profiles for the summary
// generator's prompt construction.
type PersonaRepository struct {
	db *DB
}

func NewPersonaRepository(db *DB) *PersonaRepository {
	return &PersonaRepository{db: db}
}

func (r *PersonaRepository) GetPersonaProfile(ctx context.Context, personaID string) (*types.PersonaProfile, error) {
	var profile types.PersonaProfile

	err := r.db.Pool().QueryRow(ctx, `
		SELECT display_name, voice_guidelines
		FROM personas
		WHERE id = $1`,
		personaID,
	).Scan(&profile.DisplayName, &profile.VoiceGuidelines)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPersonaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query persona profile: %w", err)
	}

	return &profile, nil
}
