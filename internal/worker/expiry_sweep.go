package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/credchain-api/pkg/logger"
)

// Sweeper flips expired credentials; implemented by the credential
// service.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// ExpirySweep runs the credential expiry sweep on a fixed interval.
// The sweep is idempotent so overlapping deployments are harmless.
type ExpirySweep struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *logger.Logger
}

func NewExpirySweep(sweeper Sweeper, interval time.Duration, log *logger.Logger) *ExpirySweep {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ExpirySweep{sweeper: sweeper, interval: interval, logger: log}
}

func (w *ExpirySweep) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("starting expiry sweep", "interval", w.interval.String())

	// run once at startup so a long interval does not delay the first pass
	w.run(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("shutting down expiry sweep")
			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

func (w *ExpirySweep) run(ctx context.Context) {
	count, err := w.sweeper.SweepExpired(ctx)
	if err != nil {
		w.logger.Error(err, "expiry sweep failed")
		return
	}
	if count > 0 {
		w.logger.Info("expiry sweep completed", "expired", count)
	}
}
