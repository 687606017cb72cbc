// Package validate guards all inbound community text (post bodies, display
// names) against length, PII-pattern and denylist rules before anything is
// formatted or persisted. Validation is a pure function of the input and the
// configured ruleset; the injected logger only ever sees redacted reason
// codes, never the content itself.
package validate

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rs/zerolog"
)

// Issue identifies the class of rule a piece of content violated.
// Issues never carry the matched substring, so they are safe to log and to
// return to clients without re-leaking sensitive data.
type Issue string

const (
	IssueMalformed    Issue = "malformed"
	IssueTooShort     Issue = "too_short"
	IssueTooLong      Issue = "too_long"
	IssueEmailPattern Issue = "email_pattern"
	IssuePhonePattern Issue = "phone_pattern"
	IssueProfanity    Issue = "profanity"
)

// ContentKind selects the length rules applied to free text.
type ContentKind string

const (
	ContentKindPost    ContentKind = "post"
	ContentKindComment ContentKind = "comment"
)

// ContentValidation is the result of validating free text.
// SanitizedText is only set when OK is true.
type ContentValidation struct {
	OK            bool
	Reasons       []Issue
	SanitizedText string
}

// DisplayNameValidation is the result of validating a proposed display name.
// NormalizedName is case-folded and whitespace-collapsed, so two names that
// differ only by case or spacing normalize identically.
type DisplayNameValidation struct {
	OK             bool
	Reasons        []Issue
	NormalizedName string
}

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s().\-]{6,}\d`)
)

// defaultDenylist is the built-in profanity list, extended per deployment
// via Config.ExtraDenylist.
var defaultDenylist = []string{
	"fuck",
	"shit",
	"bitch",
	"bastard",
	"asshole",
	"cunt",
}

type Validator struct {
	config   *Config
	logger   *zerolog.Logger
	denylist []string
}

func New(config *Config, logger *zerolog.Logger) *Validator {
	denylist := make([]string, 0, len(defaultDenylist)+len(config.ExtraDenylist))
	denylist = append(denylist, defaultDenylist...)
	for _, w := range config.ExtraDenylist {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			denylist = append(denylist, w)
		}
	}

	return &Validator{
		config:   config,
		logger:   logger,
		denylist: denylist,
	}
}

// ValidateContent applies the ordered ruleset to free text: structural,
// length, PII patterns, denylist. A structural failure short-circuits;
// the remaining rules collect every applicable reason so callers can report
// all of them at once.
func (v *Validator) ValidateContent(text string, kind ContentKind) ContentValidation {
	if !utf8.ValidString(text) {
		v.logRejection("content", kind, []Issue{IssueMalformed})
		return ContentValidation{OK: false, Reasons: []Issue{IssueMalformed}}
	}

	sanitized := Sanitize(text)

	maxLength := v.config.MaxPostLength
	if kind == ContentKindComment {
		maxLength = v.config.MaxCommentLength
	}

	var reasons []Issue
	length := utf8.RuneCountInString(sanitized)
	if length < 1 {
		reasons = append(reasons, IssueTooShort)
	}
	if length > maxLength {
		reasons = append(reasons, IssueTooLong)
	}

	reasons = append(reasons, v.scanPatterns(sanitized)...)

	if len(reasons) > 0 {
		v.logRejection("content", kind, reasons)
		return ContentValidation{OK: false, Reasons: reasons}
	}

	return ContentValidation{OK: true, SanitizedText: sanitized}
}

// ValidateDisplayName validates and normalizes a proposed display name.
// Uniqueness of names is a collaborator concern, not handled here.
func (v *Validator) ValidateDisplayName(name string) DisplayNameValidation {
	if !utf8.ValidString(name) {
		v.logRejection("display_name", "", []Issue{IssueMalformed})
		return DisplayNameValidation{OK: false, Reasons: []Issue{IssueMalformed}}
	}

	normalized := NormalizeDisplayName(name)

	var reasons []Issue
	length := utf8.RuneCountInString(normalized)
	if length < v.config.MinNameLength {
		reasons = append(reasons, IssueTooShort)
	}
	if length > v.config.MaxNameLength {
		reasons = append(reasons, IssueTooLong)
	}

	reasons = append(reasons, v.scanPatterns(normalized)...)

	if len(reasons) > 0 {
		v.logRejection("display_name", "", reasons)
		return DisplayNameValidation{OK: false, Reasons: reasons}
	}

	return DisplayNameValidation{OK: true, NormalizedName: normalized}
}

// scanPatterns reports the pattern classes found in text, in rule order.
// Only the class is reported, never the matched substring.
func (v *Validator) scanPatterns(text string) []Issue {
	var reasons []Issue

	if emailPattern.MatchString(text) {
		reasons = append(reasons, IssueEmailPattern)
	}

	if m := phonePattern.FindString(text); m != "" && digitCount(m) >= 8 {
		reasons = append(reasons, IssuePhonePattern)
	}

	if v.containsDenylisted(text) {
		reasons = append(reasons, IssueProfanity)
	}

	return reasons
}

// containsDenylisted tokenizes text and matches tokens against the denylist,
// tolerating an edit distance of one on longer words so trivial misspellings
// still match.
func (v *Validator) containsDenylisted(text string) bool {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, token := range tokens {
		for _, word := range v.denylist {
			if token == word || strings.HasPrefix(token, word) {
				return true
			}
			// Edit-distance matching is limited to longer words to keep
			// false positives down (e.g. "pitch" vs a 5-letter entry).
			if len(word) >= 6 && fuzzy.LevenshteinDistance(token, word) <= 1 {
				return true
			}
		}
	}

	return false
}

// Sanitize makes text safe to render as plain text: HTML/script-sensitive
// characters and control characters are stripped, line endings normalized,
// and surrounding whitespace trimmed. Sanitize is idempotent:
// Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '<' || r == '>':
			// Stripped rather than escaped so repeated sanitization
			// cannot double-encode.
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(b.String())
}

// NormalizeDisplayName case-folds and whitespace-collapses a display name.
func NormalizeDisplayName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(Sanitize(name)), " "))
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

func (v *Validator) logRejection(target string, kind ContentKind, reasons []Issue) {
	codes := make([]string, len(reasons))
	for i, reason := range reasons {
		codes[i] = string(reason)
	}

	event := v.logger.Debug().
		Str("target", target).
		Strs("reasons", codes)
	if kind != "" {
		event = event.Str("kind", string(kind))
	}
	event.Msg("Content rejected by validation")
}
