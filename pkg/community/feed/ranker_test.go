package feed

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/agoraapp/agora/pkg/community/types"
)

func defaultConfig() *Config {
	return &Config{
		RecencyWeight:             0.5,
		EngagementWeight:          0.3,
		AffinityWeight:            0.2,
		EngagementCap:             50,
		DefaultRecencyBiasSeconds: 21600,
		ParallelThreshold:         256,
		MaxParallelism:            8,
	}
}

func newTestRanker(config *Config) *Ranker {
	logger := zerolog.Nop()
	return NewRanker(config, &logger)
}

func post(id, authorID string, createdAt time.Time, reactions int, virtue string) *types.CommunityPost {
	counts := map[types.ReactionKind]int{}
	if reactions > 0 {
		counts[types.ReactionEndorse] = reactions
	}
	return &types.CommunityPost{
		FormattedPost: types.FormattedPost{
			ID:         id,
			SourceKind: types.SourceKindReflection,
			Body:       "body",
			VirtueTag:  virtue,
			CreatedAt:  createdAt,
		},
		AuthorID:          authorID,
		AuthorDisplayName: "someone",
		ReactionCounts:    counts,
	}
}

func rankedIDs(ranked []*types.CommunityPostWithReaction) []string {
	ids := make([]string, len(ranked))
	for i, item := range ranked {
		ids[i] = item.Post.ID
	}
	return ids
}

// Golden scenario from the weight table: post A (1 hour old, 10 reactions,
// tagged "courage") versus post B (10 minutes old, untagged, no reactions)
// for a viewer preferring "courage" first. With the default weights A's
// affinity+engagement advantage beats B's recency advantage.
func TestRankFeed_GoldenScenario(t *testing.T) {
	r := newTestRanker(defaultConfig())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	a := post("post-a", "author-1", now.Add(-time.Hour), 10, "courage")
	b := post("post-b", "author-2", now.Add(-10*time.Minute), 0, "")
	viewer := types.UserContext{
		ViewerID:         "viewer-1",
		PreferredVirtues: []string{"courage", "temperance"},
	}

	ranked := r.RankFeed(context.Background(), []*types.CommunityPost{b, a}, viewer, now)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked posts, got %d", len(ranked))
	}
	if ranked[0].Post.ID != "post-a" || ranked[1].Post.ID != "post-b" {
		t.Errorf("expected order [post-a post-b], got %v", rankedIDs(ranked))
	}

	// Pin the scores themselves so a weight change fails loudly.
	scoreA := r.ScorePost(a, viewer, now)
	scoreB := r.ScorePost(b, viewer, now)
	if math.Abs(scoreA.Score-0.8062) > 0.001 {
		t.Errorf("score A = %.4f, want ~0.8062", scoreA.Score)
	}
	if math.Abs(scoreB.Score-0.4863) > 0.001 {
		t.Errorf("score B = %.4f, want ~0.4863", scoreB.Score)
	}
}

func TestRankFeed_Deterministic(t *testing.T) {
	r := newTestRanker(defaultConfig())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	candidates := make([]*types.CommunityPost, 0, 40)
	for i := range 40 {
		candidates = append(candidates, post(
			fmt.Sprintf("post-%02d", i),
			fmt.Sprintf("author-%d", i%7),
			now.Add(-time.Duration(i%13)*time.Hour),
			i%11,
			[]string{"", "courage", "wisdom", "justice"}[i%4],
		))
	}
	viewer := types.UserContext{
		ViewerID:         "viewer-1",
		PreferredVirtues: []string{"wisdom", "courage"},
	}

	first := rankedIDs(r.RankFeed(context.Background(), candidates, viewer, now))
	second := rankedIDs(r.RankFeed(context.Background(), candidates, viewer, now))

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("non-deterministic order at %d: %q != %q", i, first[i], second[i])
		}
	}
}

func TestRankFeed_ExcludesMutedAuthors(t *testing.T) {
	r := newTestRanker(defaultConfig())
	now := time.Now()

	candidates := []*types.CommunityPost{
		post("post-1", "friendly", now, 3, ""),
		post("post-2", "muted", now, 100, "courage"),
		post("post-3", "muted", now.Add(-time.Minute), 0, ""),
	}
	viewer := types.UserContext{
		ViewerID:       "viewer-1",
		MutedAuthorIDs: map[string]bool{"muted": true},
	}

	ranked := r.RankFeed(context.Background(), candidates, viewer, now)
	if len(ranked) != 1 {
		t.Fatalf("expected 1 post after mute filter, got %d", len(ranked))
	}
	if ranked[0].Post.ID != "post-1" {
		t.Errorf("unexpected surviving post %q", ranked[0].Post.ID)
	}
}

func TestRankFeed_TieBreaks(t *testing.T) {
	r := newTestRanker(defaultConfig())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Identical score and timestamp: post ID ascending.
	sameTime := now.Add(-time.Hour)
	ranked := r.RankFeed(context.Background(), []*types.CommunityPost{
		post("post-b", "a1", sameTime, 5, ""),
		post("post-a", "a2", sameTime, 5, ""),
	}, types.UserContext{ViewerID: "v"}, now)
	if got := rankedIDs(ranked); got[0] != "post-a" || got[1] != "post-b" {
		t.Errorf("expected ID-ascending tiebreak, got %v", got)
	}
}

func TestRankFeed_AttachesViewerReaction(t *testing.T) {
	r := newTestRanker(defaultConfig())
	now := time.Now()

	ranked := r.RankFeed(context.Background(), []*types.CommunityPost{
		post("post-1", "a1", now, 0, ""),
		post("post-2", "a2", now.Add(-time.Minute), 0, ""),
	}, types.UserContext{
		ViewerID:          "viewer-1",
		ReactionsByPostID: map[string]types.ReactionKind{"post-2": types.ReactionWisdom},
	}, now)

	for _, item := range ranked {
		switch item.Post.ID {
		case "post-1":
			if item.ViewerReaction != nil {
				t.Error("post-1: expected no viewer reaction")
			}
		case "post-2":
			if item.ViewerReaction == nil || *item.ViewerReaction != types.ReactionWisdom {
				t.Error("post-2: expected wisdom reaction attached")
			}
		}
	}
}

// One bad candidate must never abort ranking the rest.
func TestRankFeed_SkipsMalformedCandidates(t *testing.T) {
	r := newTestRanker(defaultConfig())
	now := time.Now()

	candidates := []*types.CommunityPost{
		post("post-1", "a1", now, 0, ""),
		nil,
		post("", "a2", now, 0, ""),
		post("post-2", "a3", now.Add(-time.Minute), 0, ""),
	}

	ranked := r.RankFeed(context.Background(), candidates, types.UserContext{ViewerID: "v"}, now)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked posts, got %d", len(ranked))
	}
}

// Holding everything else fixed, a more recent post never scores lower.
func TestScorePost_RecencyMonotonic(t *testing.T) {
	r := newTestRanker(defaultConfig())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	viewer := types.UserContext{ViewerID: "v"}

	prev := -1.0
	for hours := 48; hours >= 0; hours-- {
		p := post("post-x", "a1", now.Add(-time.Duration(hours)*time.Hour), 5, "")
		score := r.ScorePost(p, viewer, now).Score
		if score < prev {
			t.Fatalf("score decreased for a newer post at %dh: %.6f < %.6f", hours, score, prev)
		}
		prev = score
	}
}

func TestScorePost_FutureTimestampClamped(t *testing.T) {
	r := newTestRanker(defaultConfig())
	now := time.Now()

	p := post("post-x", "a1", now.Add(time.Hour), 0, "")
	score := r.ScorePost(p, types.UserContext{ViewerID: "v"}, now)
	if math.Abs(score.Components[ComponentRecency]-0.5) > 1e-9 {
		t.Errorf("future post should score as brand new, recency component = %.6f", score.Components[ComponentRecency])
	}
}

// The score is a pure function of (post, viewer, now): repeated calls must
// produce the same float64 bit for bit, not just within a tolerance.
func TestScorePost_BitIdenticalAcrossCalls(t *testing.T) {
	r := newTestRanker(defaultConfig())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	p := post("post-x", "a1", now.Add(-time.Hour), 3, "honesty")
	viewer := types.UserContext{
		ViewerID: "v",
		PreferredVirtues: []string{
			"courage", "wisdom", "justice", "honesty", "temperance", "patience", "humility",
		},
	}

	want := math.Float64bits(r.ScorePost(p, viewer, now).Score)
	for range 300 {
		got := math.Float64bits(r.ScorePost(p, viewer, now).Score)
		if got != want {
			t.Fatalf("score bits differ across calls for identical inputs: %#x != %#x", got, want)
		}
	}
}

func TestScorePost_ComponentsSumToScore(t *testing.T) {
	r := newTestRanker(defaultConfig())
	now := time.Now()

	p := post("post-x", "a1", now.Add(-2*time.Hour), 7, "courage")
	score := r.ScorePost(p, types.UserContext{
		ViewerID:         "v",
		PreferredVirtues: []string{"temperance", "courage"},
	}, now)

	sum := 0.0
	for _, contribution := range score.Components {
		sum += contribution
	}
	if math.Abs(sum-score.Score) > 1e-12 {
		t.Errorf("components sum %.12f != score %.12f", sum, score.Score)
	}
	if len(score.Components) != 3 {
		t.Errorf("expected 3 components, got %v", score.Components)
	}
}

func TestAffinityBonus_PreferenceRank(t *testing.T) {
	prefs := []string{"courage", "wisdom", "justice"}

	first := affinityBonus("courage", prefs)
	second := affinityBonus("wisdom", prefs)
	third := affinityBonus("justice", prefs)

	if !(first > second && second > third && third > 0) {
		t.Errorf("expected decreasing bonus by rank, got %.3f %.3f %.3f", first, second, third)
	}
	if first != 1 {
		t.Errorf("top preference bonus = %.3f, want 1", first)
	}
	if affinityBonus("patience", prefs) != 0 {
		t.Error("unlisted tag should get no bonus")
	}
	if affinityBonus("", prefs) != 0 {
		t.Error("untagged post should get no bonus")
	}
}

// Parallel scoring is an optimization only: the ranked order must be
// identical to the sequential path.
func TestRankFeed_ParallelMatchesSequential(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	candidates := make([]*types.CommunityPost, 0, 600)
	for i := range 600 {
		candidates = append(candidates, post(
			fmt.Sprintf("post-%03d", i),
			fmt.Sprintf("author-%d", i%17),
			now.Add(-time.Duration(i%97)*time.Minute),
			i%23,
			[]string{"", "courage", "wisdom"}[i%3],
		))
	}
	viewer := types.UserContext{
		ViewerID:         "viewer-1",
		PreferredVirtues: []string{"courage"},
	}

	parallel := defaultConfig()
	sequential := defaultConfig()
	sequential.ParallelThreshold = 10000

	got := rankedIDs(newTestRanker(parallel).RankFeed(context.Background(), candidates, viewer, now))
	want := rankedIDs(newTestRanker(sequential).RankFeed(context.Background(), candidates, viewer, now))

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("parallel order diverges at %d: %q != %q", i, got[i], want[i])
		}
	}
}
