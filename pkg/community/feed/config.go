package feed

// Config carries the fixed ranking weights. Defaults are deliberate
// constants pinned by golden tests in ranker_test.go; changing them changes
// every user's feed order.
type Config struct {
	RecencyWeight    float64 `env:"FEED_RECENCY_WEIGHT,default=0.5" validate:"required,gt=0"`
	EngagementWeight float64 `env:"FEED_ENGAGEMENT_WEIGHT,default=0.3" validate:"required,gt=0"`
	AffinityWeight   float64 `env:"FEED_AFFINITY_WEIGHT,default=0.2" validate:"required,gt=0"`
	// EngagementCap is the reaction count at which the engagement factor
	// saturates at 1.
	EngagementCap int `env:"FEED_ENGAGEMENT_CAP,default=50" validate:"required,gt=0"`
	// DefaultRecencyBiasSeconds applies when the viewer context carries no
	// recency bias of its own (6 hours).
	DefaultRecencyBiasSeconds float64 `env:"FEED_DEFAULT_RECENCY_BIAS_SECONDS,default=21600" validate:"required,gt=0"`
	// ParallelThreshold is the candidate count above which scoring is
	// partitioned across workers. Purely an optimization; results are
	// identical either way.
	ParallelThreshold int `env:"FEED_PARALLEL_THRESHOLD,default=256" validate:"required,gt=0"`
	MaxParallelism    int `env:"FEED_MAX_PARALLELISM,default=8" validate:"required,gt=0"`
}
