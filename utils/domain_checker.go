package utils

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"freesend/models"
	"freesend/provider"
)

// sweepDelay spaces out per-domain provider calls during a sweep.
const sweepDelay = 2 * time.Second

// DomainChecker pulls the current verification state from the delivery
// provider and persists status changes. Used on demand by the verify endpoint
// and periodically by the verification worker.
type DomainChecker struct {
	db     *gorm.DB
	mailer provider.DeliveryProvider
	logger *logrus.Logger
}

func NewDomainChecker(db *gorm.DB, mailer provider.DeliveryProvider, logger *logrus.Logger) *DomainChecker {
	return &DomainChecker{db: db, mailer: mailer, logger: logger}
}

// CheckDomain refreshes one domain's status. The row is written only when the
// status actually changed; the (possibly unchanged) status is returned.
func (dc *DomainChecker) CheckDomain(ctx context.Context, domain *models.Domain) (string, error) {
	status, err := dc.mailer.VerificationStatus(ctx, domain.Name)
	if err != nil {
		return domain.Status, err
	}

	if status != domain.Status {
		if err := dc.db.Model(domain).Update("status", status).Error; err != nil {
			return domain.Status, err
		}
		domain.Status = status
		dc.logger.WithFields(logrus.Fields{
			"domain": domain.Name,
			"status": status,
		}).Info("domain verification status changed")
	}
	return status, nil
}

// SweepPending checks every pending domain sequentially. One domain's failure
// never aborts the rest of the sweep.
func (dc *DomainChecker) SweepPending(ctx context.Context) {
	var pending []models.Domain
	if err := dc.db.Where("status = ?", models.DomainStatusPending).Find(&pending).Error; err != nil {
		dc.logger.WithError(err).Error("failed to load pending domains for sweep")
		return
	}

	for i := range pending {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if _, err := dc.CheckDomain(ctx, &pending[i]); err != nil {
			dc.logger.WithError(err).WithField("domain", pending[i].Name).Warn("verification check failed, continuing sweep")
		}
		time.Sleep(sweepDelay)
	}
}
