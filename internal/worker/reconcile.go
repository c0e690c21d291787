package worker

import (
	"context"
	"time"

	apperrors "github.com/jwalitptl/credchain-api/pkg/errors"
	"github.com/jwalitptl/credchain-api/pkg/logger"
)

// Reconciler cross-checks ledger entries against backing rows;
// implemented by the credential service.
type Reconciler interface {
	Reconcile(ctx context.Context) ([]string, error)
	ValidateLedger() bool
}

// Reconcile periodically validates the chain and reports orphaned
// entries. It only raises alarms; repair is a human decision.
type Reconcile struct {
	reconciler Reconciler
	interval   time.Duration
	logger     *logger.Logger
}

func NewReconcile(reconciler Reconciler, interval time.Duration, log *logger.Logger) *Reconcile {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Reconcile{reconciler: reconciler, interval: interval, logger: log}
}

func (w *Reconcile) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("starting ledger reconciliation", "interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("shutting down ledger reconciliation")
			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

func (w *Reconcile) run(ctx context.Context) {
	if !w.reconciler.ValidateLedger() {
		w.logger.Error(apperrors.ErrChainTampered, "scheduled chain validation failed")
	}

	orphans, err := w.reconciler.Reconcile(ctx)
	if err != nil {
		w.logger.Error(err, "ledger reconciliation failed")
		return
	}
	if len(orphans) > 0 {
		w.logger.Error(apperrors.ErrOrphanedLedgerEntry, "reconciliation found orphaned entries",
			"count", len(orphans), "hashes", orphans)
	}
}
