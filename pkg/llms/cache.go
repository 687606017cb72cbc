package llms

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/agoraapp/agora/pkg/lib"
)

type CachedCompletionModel struct {
	model completionModel
	cache *lib.Cache
}

type completionModel interface {
	Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error)
}

func NewCachedCompletionModel(model completionModel, cache *lib.Cache) *CachedCompletionModel {
	return &CachedCompletionModel{
		model: model,
		cache: cache,
	}
}

func (cm *CachedCompletionModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	key := completionCacheKey(prompt)

	if response, found := cm.cache.Get(key); found {
		value, ok := response.(string)
		if ok {
			return value, nil
		}
	}

	response, err := cm.model.Call(ctx, prompt, options...)
	if err != nil {
		return "", err
	}

	cm.cache.Set(key, response)
	return response, nil
}

func completionCacheKey(prompt string) string {
	// TODO: We should include the model ID (and any other params) as well,
	// 	although there won't be a need to switch between different models for now
	return fmt.Sprintf("completion:%s", lib.HashParams(prompt))
}
