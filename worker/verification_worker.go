package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"freesend/provider"
	"freesend/utils"
)

// VerificationWorker periodically re-checks every pending domain against the
// delivery provider so domains flip to verified without a user action.
type VerificationWorker struct {
	checker  *utils.DomainChecker
	interval time.Duration
	logger   *logrus.Logger
}

func NewVerificationWorker(db *gorm.DB, mailer provider.DeliveryProvider, interval time.Duration, logger *logrus.Logger) *VerificationWorker {
	return &VerificationWorker{
		checker:  utils.NewDomainChecker(db, mailer, logger),
		interval: interval,
		logger:   logger,
	}
}

func (w *VerificationWorker) Start(ctx context.Context) {
	w.logger.WithField("interval", w.interval).Info("verification worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("verification worker stopped")
			return
		case <-ticker.C:
			w.checker.SweepPending(ctx)
		}
	}
}
