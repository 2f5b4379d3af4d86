package services

import (
	"context"
	"time"

	"github.com/rohhann12/keeping-track-of-it/internal/metrics"
	"github.com/rohhann12/keeping-track-of-it/pkg/logger"
)

const sideEffectTimeout = 2 * time.Second

// SideEffect is the outcome of one post-commit action. A failed effect never
// changes the result of the mutation that triggered it.
type SideEffect struct {
	Name   string
	Target string
	Err    error
}

func (e SideEffect) OK() bool { return e.Err == nil }

func bestEffort(name, target string, fn func() error) SideEffect {
	err := fn()
	if err != nil {
		logger.Warn().Err(err).Str("effect", name).Str("target", target).Msg("best-effort side effect failed")
		metrics.RecordBestEffortFailure(name)
	}
	return SideEffect{Name: name, Target: target, Err: err}
}

// ChangeNotifier runs the side effects every committed project or task
// mutation owes: drop cached project lists, then emit one event.
type ChangeNotifier struct {
	cache     *ResponseCache
	publisher EventPublisher
}

func NewChangeNotifier(cache *ResponseCache, publisher EventPublisher) *ChangeNotifier {
	return &ChangeNotifier{cache: cache, publisher: publisher}
}

// Changed must be called after the store commit. The request context's
// cancellation is ignored so a client disconnect cannot skip invalidation.
func (n *ChangeNotifier) Changed(ctx context.Context, event Event) []SideEffect {
	if n == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	effects := make([]SideEffect, 0, 3)
	for _, pattern := range []string{ProjectsPattern, AdminProjectsPattern} {
		effects = append(effects, bestEffort("cache.invalidate", pattern, func() error {
			_, err := n.cache.Invalidate(ctx, pattern)
			return err
		}))
	}

	if n.publisher != nil {
		effects = append(effects, bestEffort("event.publish", event.Topic, func() error {
			err := n.publisher.Publish(ctx, event)
			metrics.RecordEventPublished(event.Topic, err == nil)
			return err
		}))
	}

	return effects
}
