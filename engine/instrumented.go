package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/stokcerdas/forecastkit-go/cache"
	"github.com/stokcerdas/forecastkit-go/forecastkit"
	"github.com/stokcerdas/forecastkit-go/observability"
	"github.com/stokcerdas/forecastkit-go/tuning"
)

// instrumentedEvaluator wraps an evaluator with cache memoization and
// metric counters. Cache errors degrade to a miss; an unreachable cache
// never fails an iteration.
type instrumentedEvaluator struct {
	inner   tuning.Evaluator
	cache   cache.Cache
	metrics *observability.Metrics
	logger  *slog.Logger
}

func (ie *instrumentedEvaluator) Evaluate(ctx context.Context, family forecastkit.ModelFamily, config forecastkit.Configuration) (*forecastkit.Evaluation, error) {
	var key string
	if ie.cache != nil {
		key = cache.Key(family, config)
		cached, hit, err := ie.cache.Get(ctx, key)
		if err != nil {
			ie.logger.Warn("evaluation cache get failed", "key", key, "error", err)
		} else if hit {
			if ie.metrics != nil {
				ie.metrics.RecordCacheHit(ctx, string(family))
			}
			return cached, nil
		}
	}

	start := time.Now()
	eval, err := ie.inner.Evaluate(ctx, family, config)
	elapsed := time.Since(start)

	if err != nil {
		if ie.metrics != nil {
			ie.metrics.RecordFailure(ctx, string(family))
		}
		return nil, err
	}

	if ie.metrics != nil {
		ie.metrics.RecordEvaluation(ctx, string(family), float64(elapsed.Milliseconds()))
	}
	if ie.cache != nil {
		if putErr := ie.cache.Put(ctx, key, eval); putErr != nil {
			ie.logger.Warn("evaluation cache put failed", "key", key, "error", putErr)
		}
	}
	return eval, nil
}
