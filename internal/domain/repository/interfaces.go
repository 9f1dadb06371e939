package repository

import (
	"context"

	"LoanServe/internal/domain/models"
)

// Classifier is the loaded model handle. Implementations are read-only after
// load and safe for concurrent use.
type Classifier interface {
	PredictProba(features []float64) ([]float64, error)
	Classes() []string
	Name() string
	Version() string
}

// AuditStore persists served predictions for later inspection.
type AuditStore interface {
	Init(ctx context.Context) error
	Record(ctx context.Context, rec *models.PredictionRecord) error
	Recent(ctx context.Context, limit int, label string) ([]*models.PredictionRecord, error)
	Health(ctx context.Context) error
	Close() error
}

// Publisher ships prediction events to a message backend.
type Publisher interface {
	Publish(ctx context.Context, rec *models.PredictionRecord) error
	Close() error
}

// Metrics records service-level observability signals.
type Metrics interface {
	RecordPrediction(label string, probability float64)
	RecordError(kind string)
	RecordCacheLookup(hit bool)
	RecordLatency(op string, seconds float64)
}
