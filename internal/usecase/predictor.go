package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"LoanServe/internal/domain/models"
	drepo "LoanServe/internal/domain/repository"
	"LoanServe/pkg/cache"
	xlogger "LoanServe/pkg/logger"
)

// Predictor normalizes request bodies, invokes the classifier and shapes the
// result. It holds the only model reference in the process; the reference is
// set once at construction and never written afterwards, so concurrent
// requests need no locking.
type Predictor struct {
	clf     drepo.Classifier
	cache   cache.Service // nil when caching is disabled
	ttl     time.Duration
	metrics drepo.Metrics
	logger  *xlogger.Logger

	modelName    string
	modelVersion string
	positiveIdx  int
}

// NewPredictor creates a predictor over a loaded classifier. The positive
// probability column is resolved once: the class literally named "approved",
// or the first column when the artifact uses other class names. The fallback
// is deliberate tolerance for differently-labeled artifacts and is logged.
func NewPredictor(clf drepo.Classifier, cacheSvc cache.Service, ttl time.Duration, metrics drepo.Metrics, logger *xlogger.Logger) *Predictor {
	positiveIdx := -1
	for i, class := range clf.Classes() {
		if class == models.PositiveClass {
			positiveIdx = i
			break
		}
	}
	if positiveIdx < 0 {
		positiveIdx = 0
		logger.Warn("positive class not found in model classes, using first probability column",
			xlogger.String("positive_class", models.PositiveClass),
			xlogger.Strings("classes", clf.Classes()),
		)
	}

	return &Predictor{
		clf:          clf,
		cache:        cacheSvc,
		ttl:          ttl,
		metrics:      metrics,
		logger:       logger,
		modelName:    clf.Name(),
		modelVersion: clf.Version(),
		positiveIdx:  positiveIdx,
	}
}

// ModelName returns the served model's name.
func (p *Predictor) ModelName() string { return p.modelName }

// ModelVersion returns the served model's version.
func (p *Predictor) ModelVersion() string { return p.modelVersion }

// Predict normalizes the decoded request body and serves one prediction.
// Returned errors are always *Error; the caller shapes them for the wire.
func (p *Predictor) Predict(ctx context.Context, body map[string]interface{}) (*models.Prediction, bool, error) {
	fv, nerr := normalize(body)
	if nerr != nil {
		p.metrics.RecordError(string(nerr.Kind))
		return nil, false, nerr
	}

	key := featureKey(fv)
	if p.cache != nil {
		var cached models.Prediction
		if err := p.cache.Get(ctx, key, &cached); err == nil {
			p.metrics.RecordCacheLookup(true)
			p.metrics.RecordPrediction(cached.Prediction, cached.Probability)
			return &cached, true, nil
		}
		p.metrics.RecordCacheLookup(false)
	}

	start := time.Now()
	probs, err := p.clf.PredictProba(fv.Values())
	if err != nil {
		p.metrics.RecordError(string(KindPredictionFailure))
		return nil, false, predictionFailure(err)
	}
	p.metrics.RecordLatency("predict", time.Since(start).Seconds())

	if p.positiveIdx >= len(probs) {
		p.metrics.RecordError(string(KindPredictionFailure))
		return nil, false, predictionFailure(fmt.Errorf("probability column %d out of range", p.positiveIdx))
	}
	prob := probs[p.positiveIdx]

	label := models.LabelDenied
	if prob > 0.5 {
		label = models.LabelApproved
	}

	pred := &models.Prediction{
		Prediction:  label,
		Probability: prob,
		Confidence:  math.Abs(prob-0.5) * 2,
		Input:       fv.Map(),
	}

	p.metrics.RecordPrediction(label, prob)

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, pred, p.ttl); err != nil {
			p.logger.Warn("prediction cache set failed", xlogger.Error(err))
		}
	}

	p.logger.Info("prediction served",
		xlogger.String("label", label),
		xlogger.Float64("probability", prob),
	)

	return pred, false, nil
}

// featureKey derives a deterministic cache key from the feature values.
func featureKey(fv models.FeatureVector) string {
	raw := fmt.Sprintf("predict:%v", fv.Values())
	return cache.GenerateKey("prediction", cache.HashKey(raw))
}
