package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DriveShare-Marketplace/service-rental/internal/application"
)

// LifecycleWorker periodically drives time-based booking transitions:
// activation at start date, completion at end date, expiry of bookings that
// never activated.
type LifecycleWorker struct {
	bookings *application.BookingService
	interval time.Duration
	logger   *zap.Logger
}

// NewLifecycleWorker creates a LifecycleWorker sweeping at the given interval.
func NewLifecycleWorker(bookings *application.BookingService, interval time.Duration, logger *zap.Logger) *LifecycleWorker {
	return &LifecycleWorker{
		bookings: bookings,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps until the context is cancelled. A sweep failure is logged and
// retried on the next tick.
func (w *LifecycleWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("lifecycle worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *LifecycleWorker) sweep(ctx context.Context) {
	now := time.Now().UTC()

	activated, err := w.bookings.ActivateDueBookings(ctx, now)
	if err != nil {
		w.logger.Error("activation sweep failed", zap.Error(err))
	}

	completed, err := w.bookings.CompleteDueBookings(ctx, now)
	if err != nil {
		w.logger.Error("completion sweep failed", zap.Error(err))
	}

	expired, err := w.bookings.ExpireStaleBookings(ctx, now)
	if err != nil {
		w.logger.Error("expiry sweep failed", zap.Error(err))
	}

	if activated+completed+expired > 0 {
		w.logger.Info("lifecycle sweep",
			zap.Int("activated", activated),
			zap.Int("completed", completed),
			zap.Int("expired", expired),
		)
	}
}
