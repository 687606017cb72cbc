package format

type Config struct {
	// ExcerptMaxRunes bounds excerpt-style bodies (chat excerpts,
	// practice notes). Full reflections are bounded by the validator's
	// post length rule instead.
	ExcerptMaxRunes  int    `env:"FORMAT_EXCERPT_MAX_RUNES,default=280" validate:"required,gt=0"`
	TruncationMarker string `env:"FORMAT_TRUNCATION_MARKER,default=…"`
}
