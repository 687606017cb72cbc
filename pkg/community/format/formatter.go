// Package format converts private source records (reflections, coach chat
// transcripts, practice logs) into anonymized FormattedPosts ready for
// persistence. Formatters only touch the fields a user explicitly chose to
// share; author-identifying fields never reach the post body.
package format

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agoraapp/agora/pkg/community/types"
	"github.com/agoraapp/agora/pkg/community/validate"
)

// ErrStructuralInput indicates a malformed source record (nil record, missing
// ID, empty transcript). Fatal to the single formatting call only.
var ErrStructuralInput = errors.New("malformed source record")

// ContentRejectedError is returned when the extracted shareable text fails
// content validation. No post is produced; the reasons are surfaced to the
// submitting user.
type ContentRejectedError struct {
	Reasons []validate.Issue
}

func (e *ContentRejectedError) Error() string {
	codes := make([]string, len(e.Reasons))
	for i, reason := range e.Reasons {
		codes[i] = string(reason)
	}
	return fmt.Sprintf("content rejected: %s", strings.Join(codes, ", "))
}

type contentValidator interface {
	ValidateContent(text string, kind validate.ContentKind) validate.ContentValidation
}

type summarizer interface {
	Summarize(ctx context.Context, req types.SummaryRequest) (*types.SummaryResponse, error)
}

// Formatter holds no cross-request state; formatting calls for different
// records are independent and safe to run concurrently.
type Formatter struct {
	validator  contentValidator
	summarizer summarizer
	config     *Config
	logger     *zerolog.Logger
}

func New(validator contentValidator, summarizer summarizer, config *Config, logger *zerolog.Logger) *Formatter {
	return &Formatter{
		validator:  validator,
		summarizer: summarizer,
		config:     config,
		logger:     logger,
	}
}

type ReflectionInput struct {
	Reflection *types.ReflectionMetadata
}

type ChatInput struct {
	Chat *types.ChatMetadata
}

type PracticeInput struct {
	Practice *types.PracticeMetadata
}

// FormatReflection shares a journal reflection in full. The reflection text
// is the only field read from the private record besides the virtue tag and
// the record ID kept for moderation traceability.
func (f *Formatter) FormatReflection(input ReflectionInput) (*types.FormattedPost, error) {
	r := input.Reflection
	if r == nil || r.ID == "" {
		return nil, ErrStructuralInput
	}

	validation := f.validator.ValidateContent(r.Text, validate.ContentKindPost)
	if !validation.OK {
		return nil, &ContentRejectedError{Reasons: validation.Reasons}
	}

	return f.newPost(types.SourceKindReflection, validation.SanitizedText, r.ID, r.Virtue), nil
}

// FormatChatExcerpt shares a raw, truncated excerpt of a coach conversation.
// Participant names are replaced with their roles before anything leaves the
// private record.
func (f *Formatter) FormatChatExcerpt(input ChatInput) (*types.FormattedPost, error) {
	chat := input.Chat
	if chat == nil || chat.ID == "" || len(chat.Messages) == 0 {
		return nil, ErrStructuralInput
	}

	// Truncate before validating: only the shareable portion is subject to
	// the ruleset, and a long transcript is not a reason to reject an
	// excerpt-sized share. Sanitize is idempotent, so sanitizing again
	// inside ValidateContent is harmless.
	excerpt := f.truncate(validate.Sanitize(renderTranscript(chat)))

	validation := f.validator.ValidateContent(excerpt, validate.ContentKindPost)
	if !validation.OK {
		return nil, &ContentRejectedError{Reasons: validation.Reasons}
	}

	return f.newPost(types.SourceKindChatExcerpt, validation.SanitizedText, chat.ID, chat.Virtue), nil
}

// FormatChatSummary shares a persona-voiced summary of a coach conversation.
// On any summarizer failure (unavailable model, rejected transcript, caller
// cancellation) it degrades to FormatChatExcerpt semantics instead of failing
// the submission.
func (f *Formatter) FormatChatSummary(ctx context.Context, input ChatInput) (*types.FormattedPost, error) {
	chat := input.Chat
	if chat == nil || chat.ID == "" || len(chat.Messages) == 0 {
		return nil, ErrStructuralInput
	}

	response, err := f.summarizer.Summarize(ctx, types.SummaryRequest{
		PersonaID:         chat.PersonaID,
		TranscriptExcerpt: transcriptExcerpt(chat),
		MaxLength:         f.config.ExcerptMaxRunes,
	})
	if err != nil {
		f.logger.Warn().
			Err(err).
			Str("chat_id", chat.ID).
			Str("persona_id", chat.PersonaID).
			Msg("Summary unavailable, falling back to chat excerpt")
		return f.FormatChatExcerpt(input)
	}

	// The summary comes from a model, so it passes through the same
	// validation gate as user text before it becomes shareable.
	validation := f.validator.ValidateContent(response.SummaryText, validate.ContentKindPost)
	if !validation.OK {
		f.logger.Warn().
			Str("chat_id", chat.ID).
			Str("persona_id", chat.PersonaID).
			Msg("Generated summary failed validation, falling back to chat excerpt")
		return f.FormatChatExcerpt(input)
	}

	body := f.truncate(validation.SanitizedText)

	return f.newPost(types.SourceKindChatSummary, body, chat.ID, chat.Virtue), nil
}

// FormatPractice shares a practice-session log: a composed headline plus the
// user's optional notes, truncated.
func (f *Formatter) FormatPractice(input PracticeInput) (*types.FormattedPost, error) {
	p := input.Practice
	if p == nil || p.ID == "" || p.DurationMinutes < 0 {
		return nil, ErrStructuralInput
	}

	body := practiceHeadline(p)
	if strings.TrimSpace(p.Notes) != "" {
		notes := f.truncate(validate.Sanitize(p.Notes))
		validation := f.validator.ValidateContent(notes, validate.ContentKindPost)
		if !validation.OK {
			return nil, &ContentRejectedError{Reasons: validation.Reasons}
		}
		body += "\n" + validation.SanitizedText
	}

	return f.newPost(types.SourceKindPractice, body, p.ID, p.Virtue), nil
}

func (f *Formatter) newPost(kind types.SourceKind, body, excerptOf, virtue string) *types.FormattedPost {
	return &types.FormattedPost{
		ID:         uuid.New().String(),
		SourceKind: kind,
		Body:       body,
		ExcerptOf:  excerptOf,
		VirtueTag:  virtue,
		CreatedAt:  time.Now(),
	}
}

// renderTranscript flattens a chat into role-labeled lines. Participant
// display names are deliberately dropped: the excerpt identifies speakers by
// role only.
func renderTranscript(chat *types.ChatMetadata) string {
	lines := make([]string, 0, len(chat.Messages))
	for _, msg := range chat.Messages {
		label := "You"
		if msg.Role == types.ChatRoleCoach {
			label = "Coach"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", label, msg.Text))
	}
	return strings.Join(lines, "\n")
}

// summaryTranscriptMaxRunes bounds the transcript excerpt handed to the
// summary generator, matching the validator's post length rule so a long
// conversation still summarizes instead of being rejected outright.
const summaryTranscriptMaxRunes = 2000

func transcriptExcerpt(chat *types.ChatMetadata) string {
	transcript := validate.Sanitize(renderTranscript(chat))
	runes := []rune(transcript)
	if len(runes) <= summaryTranscriptMaxRunes {
		return transcript
	}
	return strings.TrimSpace(string(runes[:summaryTranscriptMaxRunes]))
}

func practiceHeadline(p *types.PracticeMetadata) string {
	if p.Virtue == "" {
		return fmt.Sprintf("Logged a %d minute practice session.", p.DurationMinutes)
	}
	return fmt.Sprintf("Practiced %s for %d minutes.", p.Virtue, p.DurationMinutes)
}

// truncate cuts text to the configured excerpt bound, appending the
// truncation marker within the bound when a cut happens.
func (f *Formatter) truncate(text string) string {
	limit := f.config.ExcerptMaxRunes
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	marker := f.config.TruncationMarker
	keep := limit - utf8.RuneCountInString(marker)
	if keep < 0 {
		keep = 0
	}

	return strings.TrimSpace(string([]rune(text)[:keep])) + marker
}
