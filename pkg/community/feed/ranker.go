// Package feed ranks candidate community posts for a specific viewer.
// Ranking is a pure read transform: deterministic for identical inputs,
// no mutation of candidates or viewer context, no hidden state.
package feed

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/agoraapp/agora/pkg/community/types"
	"github.com/agoraapp/agora/pkg/lib"
)

// Component names used in PostScore.Components.
const (
	ComponentRecency    = "recency"
	ComponentEngagement = "engagement"
	ComponentAffinity   = "affinity"
)

type Ranker struct {
	config *Config
	logger *zerolog.Logger
}

func NewRanker(config *Config, logger *zerolog.Logger) *Ranker {
	return &Ranker{
		config: config,
		logger: logger,
	}
}

// ScorePost computes the weighted score for a single post. Each factor is
// normalized to [0,1] before weighting; Components records the weighted
// contribution of each factor for explainability.
func (r *Ranker) ScorePost(post *types.CommunityPost, viewer types.UserContext, now time.Time) types.PostScore {
	bias := viewer.RecencyBiasSeconds
	if bias <= 0 {
		bias = r.config.DefaultRecencyBiasSeconds
	}

	// ExpDecay clamps negative elapsed time, so a post stamped slightly in
	// the future scores as brand new rather than failing.
	recency := lib.ExpDecay(now.Sub(post.CreatedAt).Seconds(), bias)
	engagement := lib.SaturatingLog(float64(post.TotalReactions()), float64(r.config.EngagementCap))
	affinity := affinityBonus(post.VirtueTag, viewer.PreferredVirtues)

	components := map[string]float64{
		ComponentRecency:    r.config.RecencyWeight * recency,
		ComponentEngagement: r.config.EngagementWeight * engagement,
		ComponentAffinity:   r.config.AffinityWeight * affinity,
	}

	// Summed in a fixed order: float addition is not associative and map
	// iteration order is randomized, so ranging over Components would make
	// the score vary by an ULP between calls.
	score := components[ComponentRecency] + components[ComponentEngagement] + components[ComponentAffinity]

	return types.PostScore{
		PostID:     post.ID,
		Score:      score,
		Components: components,
	}
}

// affinityBonus returns a [0,1] bonus when the post's virtue tag appears in
// the viewer's ordered preferences; earlier preference means a larger bonus.
func affinityBonus(tag string, preferred []string) float64 {
	if tag == "" || len(preferred) == 0 {
		return 0
	}

	for i, virtue := range preferred {
		if virtue == tag {
			return float64(len(preferred)-i) / float64(len(preferred))
		}
	}

	return 0
}

// RankFeed filters, scores and orders candidates for the viewer, attaching
// the viewer's own reaction to each surviving post.
//
// The order is total: score descending, then CreatedAt descending, then
// post ID ascending, so pagination is stable across repeated calls with
// identical inputs. Malformed candidates are skipped, never fatal.
func (r *Ranker) RankFeed(
	ctx context.Context,
	candidates []*types.CommunityPost,
	viewer types.UserContext,
	now time.Time,
) []*types.CommunityPostWithReaction {
	eligible := make([]*types.CommunityPost, 0, len(candidates))
	for _, post := range candidates {
		if post == nil || post.ID == "" {
			r.logger.Warn().
				Str("viewer_id", viewer.ViewerID).
				Msg("Skipping malformed feed candidate")
			continue
		}
		if viewer.MutedAuthorIDs[post.AuthorID] {
			continue
		}
		eligible = append(eligible, post)
	}

	scores := r.scoreAll(ctx, eligible, viewer, now)

	order := make([]int, len(eligible))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		i, j := order[a], order[b]
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		if !eligible[i].CreatedAt.Equal(eligible[j].CreatedAt) {
			return eligible[i].CreatedAt.After(eligible[j].CreatedAt)
		}
		return eligible[i].ID < eligible[j].ID
	})

	ranked := make([]*types.CommunityPostWithReaction, len(order))
	for rank, idx := range order {
		post := eligible[idx]

		var viewerReaction *types.ReactionKind
		if reaction, ok := viewer.ReactionsByPostID[post.ID]; ok {
			viewerReaction = &reaction
		}

		ranked[rank] = &types.CommunityPostWithReaction{
			Post:           post,
			ViewerReaction: viewerReaction,
		}
	}

	return ranked
}

// scoreAll scores every eligible post. Above the configured threshold the
// work is partitioned across an errgroup; each worker writes disjoint slice
// indices, so no locking is needed and the output is identical to the
// sequential path.
func (r *Ranker) scoreAll(
	ctx context.Context,
	posts []*types.CommunityPost,
	viewer types.UserContext,
	now time.Time,
) []types.PostScore {
	scores := make([]types.PostScore, len(posts))

	if len(posts) < r.config.ParallelThreshold {
		for i, post := range posts {
			scores[i] = r.ScorePost(post, viewer, now)
		}
		return scores
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(r.config.MaxParallelism)

	chunkSize := (len(posts) + r.config.MaxParallelism - 1) / r.config.MaxParallelism
	for start := 0; start < len(posts); start += chunkSize {
		end := min(start+chunkSize, len(posts))
		g.Go(func() error {
			for i := start; i < end; i++ {
				scores[i] = r.ScorePost(posts[i], viewer, now)
			}
			return nil
		})
	}

	// Workers never return errors; scoring is pure.
	_ = g.Wait()

	return scores
}
