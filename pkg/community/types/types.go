// Package types holds the shared data model of the community content
// pipeline: the private source records the pipeline reads, the anonymized
// posts it produces, and the viewer context the feed ranker consumes.
package types

import "time"

// SourceKind identifies the private source shape a community post was
// derived from. The set is closed: each kind has exactly one formatter.
type SourceKind string

const (
	SourceKindReflection  SourceKind = "reflection"
	SourceKindChatExcerpt SourceKind = "chat_excerpt"
	SourceKindChatSummary SourceKind = "chat_summary"
	SourceKindPractice    SourceKind = "practice"
)

// ReactionKind identifies the kind of reaction a viewer left on a post.
type ReactionKind string

const (
	ReactionEndorse  ReactionKind = "endorse"
	ReactionStrength ReactionKind = "strength"
	ReactionWisdom   ReactionKind = "wisdom"
)

// ReflectionMetadata is a private journal reflection fetched by the data
// layer. The pipeline borrows it read-only for the duration of formatting.
type ReflectionMetadata struct {
	ID        string
	UserID    string
	UserEmail string
	Virtue    string
	Text      string
	CreatedAt time.Time
}

// ChatRole distinguishes the two participants in a coach transcript.
type ChatRole string

const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleCoach ChatRole = "coach"
)

// ChatMessage is a single message within a coach chat transcript.
// AuthorName is the participant's real display name and must never be
// copied into shareable output.
type ChatMessage struct {
	Role       ChatRole
	AuthorName string
	Text       string
	SentAt     time.Time
}

// ChatMetadata is a private coach chat transcript.
type ChatMetadata struct {
	ID        string
	UserID    string
	UserEmail string
	PersonaID string
	Virtue    string
	Messages  []ChatMessage
	CreatedAt time.Time
}

// PracticeMetadata is a private practice-session log entry.
type PracticeMetadata struct {
	ID              string
	UserID          string
	UserEmail       string
	Virtue          string
	Notes           string
	DurationMinutes int
	CompletedAt     time.Time
}

// FormattedPost is the anonymized, shareable transform of a private source
// record, ready for persistence by the storage layer.
type FormattedPost struct {
	// ID is minted when the post is formatted.
	ID         string
	SourceKind SourceKind
	Body       string
	// ExcerptOf is a weak reference to the source record, kept for
	// moderation traceability only. It is never exposed to other users.
	ExcerptOf string
	VirtueTag string
	CreatedAt time.Time
}

// CommunityPost is the persisted, feed-eligible entity. The storage layer
// owns its lifecycle; this pipeline only produces and consumes it.
type CommunityPost struct {
	FormattedPost

	AuthorID          string
	AuthorDisplayName string
	ReactionCounts    map[ReactionKind]int
}

// TotalReactions sums all reaction counts on the post.
func (p *CommunityPost) TotalReactions() int {
	total := 0
	for _, n := range p.ReactionCounts {
		total += n
	}
	return total
}

// CommunityPostWithReaction pairs a post with the viewer's own reaction.
// Assembled per feed request, never persisted.
type CommunityPostWithReaction struct {
	Post *CommunityPost
	// ViewerReaction is nil when the viewer has not reacted to the post.
	ViewerReaction *ReactionKind
}

// UserContext carries the viewer-specific ranking inputs for one feed
// request. Constructed fresh per request and never mutated by the ranker.
type UserContext struct {
	ViewerID       string
	MutedAuthorIDs map[string]bool
	// PreferredVirtues is ordered: earlier entries yield a larger
	// affinity bonus.
	PreferredVirtues []string
	// RecencyBiasSeconds tunes the recency decay per viewer.
	// Non-positive values fall back to the configured default.
	RecencyBiasSeconds float64
	// ReactionsByPostID maps post ID to the viewer's own reaction.
	ReactionsByPostID map[string]ReactionKind
}

// PostScore is the explainable scoring result for a single post.
// Components records each factor's weighted contribution so ranking
// decisions can be inspected and pinned by golden tests.
type PostScore struct {
	PostID     string
	Score      float64
	Components map[string]float64
}

// SummaryRequest asks the summary generator for a persona-voiced
// condensation of a chat transcript excerpt.
type SummaryRequest struct {
	PersonaID         string
	TranscriptExcerpt string
	// MaxLength bounds the summary length in runes. Non-positive values
	// fall back to the generator's configured default.
	MaxLength int
}

// SummaryResponse is the generator's result. SummaryText is always at most
// MaxLength runes; Truncated signals that lossy compression occurred.
type SummaryResponse struct {
	SummaryText string
	TokensUsed  int
	Truncated   bool
}

// PersonaProfile describes a coach persona's public identity and voice,
// looked up from the persona collaborator when building summary prompts.
type PersonaProfile struct {
	DisplayName     string
	VoiceGuidelines string
}
