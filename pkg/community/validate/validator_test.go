package validate

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestValidator() *Validator {
	logger := zerolog.Nop()
	return New(&Config{
		MaxPostLength:    2000,
		MaxCommentLength: 500,
		MinNameLength:    2,
		MaxNameLength:    40,
	}, &logger)
}

func TestValidateContent_Valid(t *testing.T) {
	v := newTestValidator()

	result := v.ValidateContent("Today I practiced patience during a difficult meeting.", ContentKindPost)
	if !result.OK {
		t.Fatalf("expected OK, got reasons %v", result.Reasons)
	}
	if result.SanitizedText == "" {
		t.Error("expected sanitized text to be set on success")
	}
}

func TestValidateContent_Rules(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name string
		text string
		kind ContentKind
		want Issue
	}{
		{
			name: "empty after trimming",
			text: "   \n\t  ",
			kind: ContentKindPost,
			want: IssueTooShort,
		},
		{
			name: "post over length limit",
			text: strings.Repeat("a", 2001),
			kind: ContentKindPost,
			want: IssueTooLong,
		},
		{
			name: "comment over length limit",
			text: strings.Repeat("a", 501),
			kind: ContentKindComment,
			want: IssueTooLong,
		},
		{
			name: "email address",
			text: "reach me at marcus@example.com for details",
			kind: ContentKindPost,
			want: IssueEmailPattern,
		},
		{
			name: "phone number",
			text: "call +1 (555) 123-4567 tonight",
			kind: ContentKindPost,
			want: IssuePhonePattern,
		},
		{
			name: "profanity",
			text: "this is all shit honestly",
			kind: ContentKindPost,
			want: IssueProfanity,
		},
		{
			name: "profanity with one-letter evasion",
			text: "what an assh0le he was",
			kind: ContentKindPost,
			want: IssueProfanity,
		},
		{
			name: "invalid utf-8",
			text: string([]byte{0xff, 0xfe, 0xfd}),
			kind: ContentKindPost,
			want: IssueMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.ValidateContent(tt.text, tt.kind)
			if result.OK {
				t.Fatal("expected validation failure")
			}
			if result.SanitizedText != "" {
				t.Error("sanitized text must be empty on failure")
			}

			found := false
			for _, reason := range result.Reasons {
				if reason == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("expected reason %q, got %v", tt.want, result.Reasons)
			}
		})
	}
}

// Reasons identify the pattern class only; the matched substring must never
// be echoed back where it could end up in logs or API responses.
func TestValidateContent_ReasonsNeverContainMatch(t *testing.T) {
	v := newTestValidator()

	result := v.ValidateContent("mail me: secret.address@example.com", ContentKindPost)
	if result.OK {
		t.Fatal("expected validation failure")
	}
	for _, reason := range result.Reasons {
		if strings.Contains(string(reason), "secret.address") {
			t.Errorf("reason %q leaks matched content", reason)
		}
	}
}

func TestValidateContent_CollectsAllReasons(t *testing.T) {
	v := newTestValidator()

	text := "contact shit@example.com or +1 555 123 4567 " + strings.Repeat("x", 2000)
	result := v.ValidateContent(text, ContentKindPost)
	if result.OK {
		t.Fatal("expected validation failure")
	}
	if len(result.Reasons) < 3 {
		t.Errorf("expected all applicable reasons collected, got %v", result.Reasons)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"plain text",
		"  <script>alert('x')</script> hello  ",
		"line one\r\nline two",
		"tabs\tand\nnewlines survive",
		"control\x00chars\x1bstripped",
	}

	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		if once != twice {
			t.Errorf("Sanitize not idempotent for %q: %q != %q", in, once, twice)
		}
		if strings.ContainsAny(once, "<>") {
			t.Errorf("Sanitize(%q) left angle brackets: %q", in, once)
		}
	}
}

func TestValidateDisplayName_Normalization(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trailing whitespace", "  Marcus ", "marcus"},
		{"already normalized", "marcus", "marcus"},
		{"mixed case", "MaRcUs", "marcus"},
		{"internal whitespace collapsed", "Marcus   Aurelius", "marcus aurelius"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.ValidateDisplayName(tt.in)
			if !result.OK {
				t.Fatalf("expected OK, got reasons %v", result.Reasons)
			}
			if result.NormalizedName != tt.want {
				t.Errorf("NormalizedName = %q, want %q", result.NormalizedName, tt.want)
			}
		})
	}
}

func TestValidateDisplayName_Rules(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name string
		in   string
		want Issue
	}{
		{"too short", "m", IssueTooShort},
		{"too long", strings.Repeat("m", 41), IssueTooLong},
		{"email in name", "marcus@example.com", IssueEmailPattern},
		{"profane name", "shitposter", IssueProfanity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.ValidateDisplayName(tt.in)
			if result.OK {
				t.Fatal("expected validation failure")
			}

			found := false
			for _, reason := range result.Reasons {
				if reason == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("expected reason %q, got %v", tt.want, result.Reasons)
			}
		})
	}
}
