package topic

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// WarmWorker periodically reloads the topic list so the cache stays populated
// and seeding happens at boot rather than on the first request.
type WarmWorker struct {
	svc      *Service
	logger   zerolog.Logger
	interval time.Duration
}

func NewWarmWorker(svc *Service, interval time.Duration, logger zerolog.Logger) *WarmWorker {
	if interval <= 0 {
		interval = 4 * time.Minute
	}
	return &WarmWorker{
		svc:      svc,
		logger:   logger.With().Str("component", "topic_warm_worker").Logger(),
		interval: interval,
	}
}

// Run blocks until context cancellation.
func (w *WarmWorker) Run(ctx context.Context) error {
	if w.svc == nil {
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// run immediately
	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *WarmWorker) tick(ctx context.Context) {
	topics, err := w.svc.Refresh(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Msg("topic warm failed")
		return
	}
	w.logger.Debug().Int("topics", len(topics)).Msg("topic cache warmed")
}
