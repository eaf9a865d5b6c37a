package worker

import (
	"context"
	"time"

	"github.com/suminyol/ayursutra-api/internal/repository"
	"github.com/suminyol/ayursutra-api/pkg/logger"
	"github.com/suminyol/ayursutra-api/pkg/metrics"
)

// AppointmentSweepWorker closes out scheduled appointments whose date has
// passed. Confirmed, cancelled and rescheduled appointments are left alone,
// so running the sweep twice changes nothing the second time.
type AppointmentSweepWorker struct {
	repo     repository.AppointmentRepository
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

func NewAppointmentSweepWorker(
	repo repository.AppointmentRepository,
	interval time.Duration,
	metrics *metrics.Metrics,
	logger *logger.Logger,
) *AppointmentSweepWorker {
	return &AppointmentSweepWorker{
		repo:     repo,
		interval: interval,
		metrics:  metrics,
		logger:   logger,
	}
}

func (w *AppointmentSweepWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				w.logger.Error(err, "appointment sweep failed")
			}
		}
	}
}

func (w *AppointmentSweepWorker) sweep(ctx context.Context) error {
	count, err := w.repo.CompletePastScheduled(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	if count > 0 {
		w.metrics.SweepCompletions.Add(float64(count))
		w.logger.Info("completed past appointments", "count", count)
	}
	return nil
}
