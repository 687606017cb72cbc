// Package summarize produces persona-voiced condensations of private coach
// chat transcripts. The transcript is treated as sensitive throughout: it is
// validated before it leaves the process, never persisted, and never logged.
package summarize

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/outputparser"
	"github.com/tmc/langchaingo/prompts"

	"github.com/agoraapp/agora/pkg/community/types"
	"github.com/agoraapp/agora/pkg/community/validate"
)

//go:embed summarize-transcript.md
var summarizeTranscriptPrompt string

// ErrSummaryUnavailable indicates the persona lookup or the completion model
// failed. Callers are expected to degrade gracefully (the formatter falls
// back to a raw excerpt).
var ErrSummaryUnavailable = errors.New("summary generator unavailable")

// ErrSummaryRejected indicates the transcript itself failed content
// validation and was never sent to the model.
var ErrSummaryRejected = errors.New("transcript rejected by content validation")

type completionModel interface {
	Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error)
}

type personaStore interface {
	GetPersonaProfile(ctx context.Context, personaID string) (*types.PersonaProfile, error)
}

type contentValidator interface {
	ValidateContent(text string, kind validate.ContentKind) validate.ContentValidation
}

// PersonaSummarizer generates summaries by rendering a persona-voiced prompt
// and calling a completion model. The model call is the pipeline's single
// outbound I/O point and honors the caller's context for cancellation.
type PersonaSummarizer struct {
	model     completionModel
	personas  personaStore
	validator contentValidator
	config    *Config
	logger    *zerolog.Logger
}

func NewPersonaSummarizer(
	model completionModel,
	personas personaStore,
	validator contentValidator,
	config *Config,
	logger *zerolog.Logger,
) *PersonaSummarizer {
	return &PersonaSummarizer{
		model:     model,
		personas:  personas,
		validator: validator,
		config:    config,
		logger:    logger,
	}
}

type summaryOutput struct {
	Summary string `json:"summary" describe:"A 1-3 sentence persona-voiced summary of the conversation"`
}

func (s *PersonaSummarizer) Summarize(ctx context.Context, req types.SummaryRequest) (*types.SummaryResponse, error) {
	validation := s.validator.ValidateContent(req.TranscriptExcerpt, validate.ContentKindPost)
	if !validation.OK {
		return nil, fmt.Errorf("%w: %s", ErrSummaryRejected, joinIssues(validation.Reasons))
	}

	maxLength := req.MaxLength
	if maxLength <= 0 {
		maxLength = s.config.DefaultMaxLength
	}

	profile, err := s.personas.GetPersonaProfile(ctx, req.PersonaID)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("persona_id", req.PersonaID).
			Msg("Persona profile lookup failed")
		return nil, fmt.Errorf("get persona profile: %w", ErrSummaryUnavailable)
	}

	parser, err := outputparser.NewDefined(summaryOutput{})
	if err != nil {
		return nil, fmt.Errorf("creating parser: %w", err)
	}

	template := prompts.NewPromptTemplate(summarizeTranscriptPrompt, []string{
		"persona_name",
		"voice_guidelines",
		"transcript",
		"output_format_instructions",
	})

	prompt, err := template.Format(map[string]any{
		"persona_name":               profile.DisplayName,
		"voice_guidelines":           profile.VoiceGuidelines,
		"transcript":                 validation.SanitizedText,
		"output_format_instructions": parser.GetFormatInstructions(),
	})
	if err != nil {
		return nil, fmt.Errorf("format prompt: %w", err)
	}

	out, err := s.model.Call(
		ctx,
		prompt,
		// Note: Fixed temperature of 1 must be applied for gpt-5-mini
		llms.WithTemperature(1.0),
	)
	if err != nil {
		// The prompt embeds the transcript, so only metadata is logged here.
		s.logger.Error().
			Err(err).
			Str("persona_id", req.PersonaID).
			Int("prompt_bytes", len(prompt)).
			Msg("Error generating summary completion")
		return nil, fmt.Errorf("generate completion: %w", ErrSummaryUnavailable)
	}

	response, err := parseResponse(parser, out)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("persona_id", req.PersonaID).
			Int("output_bytes", len(out)).
			Msg("Error parsing summary response")
		return nil, fmt.Errorf("parse response: %w", ErrSummaryUnavailable)
	}

	summaryText := strings.TrimSpace(response.Summary)
	truncated := false
	if utf8.RuneCountInString(summaryText) > maxLength {
		summaryText = string([]rune(summaryText)[:maxLength])
		truncated = true
	}

	return &types.SummaryResponse{
		SummaryText: summaryText,
		// The single-prompt helper exposes no usage metadata, so this is
		// a chars/4 estimate.
		TokensUsed: (len(prompt) + len(out)) / 4,
		Truncated:  truncated,
	}, nil
}

func parseResponse[T any](parser outputparser.Defined[T], response string) (*T, error) {
	// Parser expects backsticks but the output usually doesn't contain them
	wrappedRes := response
	if !strings.HasPrefix(response, "```json") {
		wrappedRes = fmt.Sprintf("```json\n%s\n```", response)
	}
	out, err := parser.Parse(wrappedRes)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	return &out, nil
}

func joinIssues(issues []validate.Issue) string {
	codes := make([]string, len(issues))
	for i, issue := range issues {
		codes[i] = string(issue)
	}
	return strings.Join(codes, ", ")
}
