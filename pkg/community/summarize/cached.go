package summarize

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/agoraapp/agora/pkg/community/types"
	"github.com/agoraapp/agora/pkg/lib"
)

// CachedSummarizer deduplicates identical summary requests so resubmissions
// of the same transcript don't trigger repeated model calls.
// Only successful responses are cached; failures always retry.
type CachedSummarizer struct {
	summarizer summarizer
	cache      *lib.Cache
	logger     *zerolog.Logger
}

type summarizer interface {
	Summarize(ctx context.Context, req types.SummaryRequest) (*types.SummaryResponse, error)
}

func NewCachedSummarizer(summarizer summarizer, ttl time.Duration, logger *zerolog.Logger) *CachedSummarizer {
	return &CachedSummarizer{
		summarizer: summarizer,
		cache:      lib.NewCache(ttl, logger),
		logger:     logger,
	}
}

func (cs *CachedSummarizer) Summarize(ctx context.Context, req types.SummaryRequest) (*types.SummaryResponse, error) {
	// Keys are hashed so transcript text never appears in cache keys.
	key := fmt.Sprintf("summary:%s", lib.HashParams(req.PersonaID, req.TranscriptExcerpt, strconv.Itoa(req.MaxLength)))

	if cached, found := cs.cache.Get(key); found {
		if response, ok := cached.(*types.SummaryResponse); ok {
			cs.logger.Debug().
				Str("persona_id", req.PersonaID).
				Msg("summary cache hit")
			return response, nil
		}
	}

	response, err := cs.summarizer.Summarize(ctx, req)
	if err != nil {
		return nil, err
	}

	cs.cache.Set(key, response)

	return response, nil
}
