package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// RunResult combines a delivery pass with the missed-feeding scan that follows it.
type RunResult struct {
	Delivery  DeliveryReport `json:"delivery"`
	Missed    MissedReport   `json:"missed"`
	MissedErr error          `json:"-"`
}

// DeliveryRunner is what a trigger (cron or HTTP) invokes.
type DeliveryRunner struct {
	delivery *DeliveryService
	missed   *MissedFeedingService
	log      logrus.FieldLogger
}

func NewDeliveryRunner(delivery *DeliveryService, missed *MissedFeedingService, log logrus.FieldLogger) *DeliveryRunner {
	return &DeliveryRunner{delivery: delivery, missed: missed, log: log}
}

// Run delivers due reminders, then scans for missed feedings. The scan runs
// in its own transactions; its failure is logged and reported in MissedErr
// but never undoes or fails the delivery that already committed.
func (r *DeliveryRunner) Run(ctx context.Context, now time.Time) (RunResult, error) {
	var result RunResult

	report, err := r.delivery.DeliverDue(ctx, now)
	if err != nil {
		return result, err
	}
	result.Delivery = report

	missed, err := r.missed.Detect(ctx, now)
	if err != nil {
		r.log.WithError(err).Warn("missed feeding scan failed after delivery")
		result.MissedErr = err
		return result, nil
	}
	result.Missed = missed
	return result, nil
}
