package validate

type Config struct {
	MaxPostLength    int `env:"VALIDATE_MAX_POST_LENGTH,default=2000" validate:"required,gt=0"`
	MaxCommentLength int `env:"VALIDATE_MAX_COMMENT_LENGTH,default=500" validate:"required,gt=0"`
	MinNameLength    int `env:"VALIDATE_MIN_NAME_LENGTH,default=2" validate:"required,gt=0"`
	MaxNameLength    int `env:"VALIDATE_MAX_NAME_LENGTH,default=40" validate:"required,gt=0"`
	// ExtraDenylist extends the built-in denylist (semicolon separated).
	ExtraDenylist []string `env:"VALIDATE_EXTRA_DENYLIST,default="`
}
