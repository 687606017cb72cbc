// Package community wires the content pipeline together: validation,
// formatting and persistence on the write path, candidate listing and
// ranking on the read path.
package community

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/agoraapp/agora/pkg/community/feed"
	"github.com/agoraapp/agora/pkg/community/format"
	"github.com/agoraapp/agora/pkg/community/types"
	"github.com/agoraapp/agora/pkg/community/validate"
)

type postStore interface {
	Create(ctx context.Context, post *types.FormattedPost, authorID, authorDisplayName string) error
	ListCandidates(ctx context.Context, since time.Time, limit int) ([]*types.CommunityPost, error)
	GetViewerReactions(ctx context.Context, viewerID string, postIDs []string) (map[string]types.ReactionKind, error)
}

type nameValidator interface {
	ValidateDisplayName(name string) validate.DisplayNameValidation
}

type Registry struct {
	formatter *format.Formatter
	ranker    *feed.Ranker
	store     postStore
	names     nameValidator
	logger    *zerolog.Logger
}

func NewRegistry(
	formatter *format.Formatter,
	ranker *feed.Ranker,
	store postStore,
	names nameValidator,
	logger *zerolog.Logger,
) *Registry {
	return &Registry{
		formatter: formatter,
		ranker:    ranker,
		store:     store,
		names:     names,
		logger:    logger,
	}
}

// Author identifies the submitting user on the write path. The display name
// is validated and normalized before it is attached to a post; it is the
// only author-identifying field that ever becomes shareable.
type Author struct {
	ID          string
	DisplayName string
}

type ShareReflectionRequest struct {
	Author     Author
	Reflection *types.ReflectionMetadata
}

func (r *Registry) ShareReflection(ctx context.Context, req ShareReflectionRequest) (*types.FormattedPost, error) {
	name, err := r.authorName(req.Author)
	if err != nil {
		return nil, err
	}

	post, err := r.formatter.FormatReflection(format.ReflectionInput{Reflection: req.Reflection})
	if err != nil {
		return nil, err
	}

	return r.persist(ctx, post, req.Author.ID, name)
}

type ShareChatRequest struct {
	Author Author
	Chat   *types.ChatMetadata
	// Summarize requests a persona-voiced summary instead of a raw
	// excerpt. The pipeline degrades to an excerpt when the summary
	// generator is unavailable.
	Summarize bool
}

func (r *Registry) ShareChat(ctx context.Context, req ShareChatRequest) (*types.FormattedPost, error) {
	name, err := r.authorName(req.Author)
	if err != nil {
		return nil, err
	}

	var post *types.FormattedPost
	if req.Summarize {
		post, err = r.formatter.FormatChatSummary(ctx, format.ChatInput{Chat: req.Chat})
	} else {
		post, err = r.formatter.FormatChatExcerpt(format.ChatInput{Chat: req.Chat})
	}
	if err != nil {
		return nil, err
	}

	return r.persist(ctx, post, req.Author.ID, name)
}

type SharePracticeRequest struct {
	Author   Author
	Practice *types.PracticeMetadata
}

func (r *Registry) SharePractice(ctx context.Context, req SharePracticeRequest) (*types.FormattedPost, error) {
	name, err := r.authorName(req.Author)
	if err != nil {
		return nil, err
	}

	post, err := r.formatter.FormatPractice(format.PracticeInput{Practice: req.Practice})
	if err != nil {
		return nil, err
	}

	return r.persist(ctx, post, req.Author.ID, name)
}

type FeedRequest struct {
	Viewer types.UserContext
	// Since bounds the candidate window; zero means all posts.
	Since time.Time
	// Limit caps the number of candidates; non-positive means no cap,
	// mirroring the zero Since convention.
	Limit int
}

// Feed lists candidates, resolves the viewer's own reactions when the
// caller didn't supply them, and returns the ranked feed.
func (r *Registry) Feed(ctx context.Context, req FeedRequest) ([]*types.CommunityPostWithReaction, error) {
	candidates, err := r.store.ListCandidates(ctx, req.Since, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("list feed candidates: %w", err)
	}

	viewer := req.Viewer
	if viewer.ReactionsByPostID == nil {
		ids := make([]string, 0, len(candidates))
		for _, post := range candidates {
			if post != nil {
				ids = append(ids, post.ID)
			}
		}

		reactions, err := r.store.GetViewerReactions(ctx, viewer.ViewerID, ids)
		if err != nil {
			return nil, fmt.Errorf("get viewer reactions: %w", err)
		}
		viewer.ReactionsByPostID = reactions
	}

	return r.ranker.RankFeed(ctx, candidates, viewer, time.Now()), nil
}

func (r *Registry) authorName(author Author) (string, error) {
	result := r.names.ValidateDisplayName(author.DisplayName)
	if !result.OK {
		return "", &format.ContentRejectedError{Reasons: result.Reasons}
	}
	return result.NormalizedName, nil
}

func (r *Registry) persist(ctx context.Context, post *types.FormattedPost, authorID, authorName string) (*types.FormattedPost, error) {
	if err := r.store.Create(ctx, post, authorID, authorName); err != nil {
		return nil, fmt.Errorf("persist post: %w", err)
	}

	r.logger.Info().
		Str("post_id", post.ID).
		Str("source_kind", string(post.SourceKind)).
		Str("virtue_tag", post.VirtueTag).
		Msg("Community post created")

	return post, nil
}
