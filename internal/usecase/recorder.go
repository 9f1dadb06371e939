package usecase

import (
	"context"
	"time"

	"LoanServe/internal/domain/models"
	drepo "LoanServe/internal/domain/repository"
	xlogger "LoanServe/pkg/logger"
)

// FeedNotifier pushes a prediction event to live subscribers.
type FeedNotifier interface {
	Notify(rec *models.PredictionRecord)
}

// Recorder fans a served prediction out to the configured sinks: audit store,
// event topic and live feed. Every sink is optional and best-effort; a sink
// failure never fails the request that produced the prediction.
type Recorder struct {
	store   drepo.AuditStore
	pub     drepo.Publisher
	feed    FeedNotifier
	metrics drepo.Metrics
	logger  *xlogger.Logger
}

// NewRecorder creates a prediction recorder. Any sink may be nil.
func NewRecorder(store drepo.AuditStore, pub drepo.Publisher, feed FeedNotifier, metrics drepo.Metrics, logger *xlogger.Logger) *Recorder {
	return &Recorder{
		store:   store,
		pub:     pub,
		feed:    feed,
		metrics: metrics,
		logger:  logger,
	}
}

// Record dispatches the prediction to all configured sinks.
func (r *Recorder) Record(ctx context.Context, rec *models.PredictionRecord) {
	if rec == nil {
		return
	}

	start := time.Now()

	if r.store != nil {
		if err := r.store.Record(ctx, rec); err != nil {
			r.metrics.RecordError("audit")
			r.logger.Warn("audit store write failed", xlogger.Error(err))
		}
	}

	if r.pub != nil {
		if err := r.pub.Publish(ctx, rec); err != nil {
			r.metrics.RecordError("publish")
			r.logger.Warn("prediction event publish failed", xlogger.Error(err))
		}
	}

	if r.feed != nil {
		r.feed.Notify(rec)
	}

	r.metrics.RecordLatency("record", time.Since(start).Seconds())
}
