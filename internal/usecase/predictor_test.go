package usecase

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"LoanServe/internal/domain/models"
	"LoanServe/pkg/cache"
	xlogger "LoanServe/pkg/logger"
)

type fakeClassifier struct {
	classes []string
	probs   []float64
	err     error
	calls   int
}

func (f *fakeClassifier) PredictProba(features []float64) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.probs, nil
}

func (f *fakeClassifier) Classes() []string { return f.classes }
func (f *fakeClassifier) Name() string      { return "loan-approval-classifier" }
func (f *fakeClassifier) Version() string   { return "1" }

type noopMetrics struct{}

func (noopMetrics) RecordPrediction(string, float64) {}
func (noopMetrics) RecordError(string)               {}
func (noopMetrics) RecordCacheLookup(bool)           {}
func (noopMetrics) RecordLatency(string, float64)    {}

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func newTestPredictor(t *testing.T, clf *fakeClassifier, cacheSvc cache.Service) *Predictor {
	t.Helper()
	return NewPredictor(clf, cacheSvc, time.Minute, noopMetrics{}, testLogger(t))
}

func directBody() map[string]interface{} {
	return map[string]interface{}{
		"age":          35.0,
		"income":       75000.0,
		"education":    3.0,
		"experience":   10.0,
		"credit_score": 720.0,
	}
}

func TestPredictShapesAgree(t *testing.T) {
	bodies := map[string]map[string]interface{}{
		"direct": directBody(),
		"instances": {
			"instances": []interface{}{directBody()},
		},
		"ndarray": {
			"data": map[string]interface{}{
				"ndarray": []interface{}{
					[]interface{}{35.0, 75000.0, 3.0, 10.0, 720.0},
				},
			},
		},
		"flat": {
			"data": []interface{}{35.0, 75000.0, 3.0, 10.0, 720.0},
		},
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			clf := &fakeClassifier{classes: []string{"denied", "approved"}, probs: []float64{0.2, 0.8}}
			p := newTestPredictor(t, clf, nil)

			pred, cached, err := p.Predict(context.Background(), body)
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			if cached {
				t.Fatal("expected an uncached prediction")
			}
			if pred.Prediction != models.LabelApproved {
				t.Errorf("prediction = %q, want %q", pred.Prediction, models.LabelApproved)
			}
			if pred.Probability != 0.8 {
				t.Errorf("probability = %v, want 0.8", pred.Probability)
			}
			if pred.Input["credit_score"] != 720.0 {
				t.Errorf("input echo credit_score = %v, want 720", pred.Input["credit_score"])
			}
		})
	}
}

func TestPredictMissingFeaturesNamed(t *testing.T) {
	body := map[string]interface{}{
		"age":        30.0,
		"education":  2.0,
		"experience": 5.0,
	}
	clf := &fakeClassifier{classes: []string{"denied", "approved"}, probs: []float64{0.5, 0.5}}
	p := newTestPredictor(t, clf, nil)

	_, _, err := p.Predict(context.Background(), body)
	var uerr *Error
	if !errors.As(err, &uerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if uerr.Kind != KindMissingFeatures {
		t.Errorf("kind = %q, want %q", uerr.Kind, KindMissingFeatures)
	}
	for _, want := range []string{"income", "credit_score"} {
		if !strings.Contains(uerr.Message, want) {
			t.Errorf("message %q does not name %q", uerr.Message, want)
		}
	}
	if strings.Contains(uerr.Message, "age") {
		t.Errorf("message %q names a feature that was present", uerr.Message)
	}
	if clf.calls != 0 {
		t.Errorf("classifier invoked %d times for an invalid body", clf.calls)
	}
}

func TestPredictShortRowNamesTail(t *testing.T) {
	body := map[string]interface{}{
		"data": []interface{}{30.0, 50000.0, 2.0},
	}
	clf := &fakeClassifier{classes: []string{"denied", "approved"}, probs: []float64{0.5, 0.5}}
	p := newTestPredictor(t, clf, nil)

	_, _, err := p.Predict(context.Background(), body)
	var uerr *Error
	if !errors.As(err, &uerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if uerr.Kind != KindMissingFeatures {
		t.Errorf("kind = %q, want %q", uerr.Kind, KindMissingFeatures)
	}
	for _, want := range []string{"experience", "credit_score"} {
		if !strings.Contains(uerr.Message, want) {
			t.Errorf("message %q does not name %q", uerr.Message, want)
		}
	}
}

func TestPredictCoercionFailure(t *testing.T) {
	body := directBody()
	body["income"] = "plenty"

	clf := &fakeClassifier{classes: []string{"denied", "approved"}, probs: []float64{0.5, 0.5}}
	p := newTestPredictor(t, clf, nil)

	_, _, err := p.Predict(context.Background(), body)
	var uerr *Error
	if !errors.As(err, &uerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if uerr.Kind != KindCoercionFailure {
		t.Errorf("kind = %q, want %q", uerr.Kind, KindCoercionFailure)
	}
	if !strings.Contains(uerr.Message, "income") {
		t.Errorf("message %q does not name the bad feature", uerr.Message)
	}
	if clf.calls != 0 {
		t.Errorf("classifier invoked %d times for an invalid body", clf.calls)
	}
}

func TestPredictInvalidFormat(t *testing.T) {
	body := map[string]interface{}{
		"data": map[string]interface{}{"tensor": []interface{}{1.0}},
	}
	clf := &fakeClassifier{classes: []string{"denied", "approved"}, probs: []float64{0.5, 0.5}}
	p := newTestPredictor(t, clf, nil)

	_, _, err := p.Predict(context.Background(), body)
	var uerr *Error
	if !errors.As(err, &uerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if uerr.Kind != KindInvalidFormat {
		t.Errorf("kind = %q, want %q", uerr.Kind, KindInvalidFormat)
	}
}

func TestPredictConfidence(t *testing.T) {
	cases := []struct {
		prob       float64
		label      string
		confidence float64
	}{
		{0.5, models.LabelDenied, 0.0},
		{0.75, models.LabelApproved, 0.5},
		{0.1, models.LabelDenied, 0.8},
		{1.0, models.LabelApproved, 1.0},
	}

	for _, tc := range cases {
		clf := &fakeClassifier{classes: []string{"denied", "approved"}, probs: []float64{1 - tc.prob, tc.prob}}
		p := newTestPredictor(t, clf, nil)

		pred, _, err := p.Predict(context.Background(), directBody())
		if err != nil {
			t.Fatalf("Predict(prob=%v): %v", tc.prob, err)
		}
		if pred.Prediction != tc.label {
			t.Errorf("prob=%v: label = %q, want %q", tc.prob, pred.Prediction, tc.label)
		}
		if math.Abs(pred.Confidence-tc.confidence) > 1e-12 {
			t.Errorf("prob=%v: confidence = %v, want %v", tc.prob, pred.Confidence, tc.confidence)
		}
	}
}

func TestPredictPositiveColumnFallback(t *testing.T) {
	// Classes without an "approved" entry: the first column is the positive
	// probability.
	clf := &fakeClassifier{classes: []string{"good", "bad"}, probs: []float64{0.9, 0.1}}
	p := newTestPredictor(t, clf, nil)

	pred, _, err := p.Predict(context.Background(), directBody())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if pred.Probability != 0.9 {
		t.Errorf("probability = %v, want first column 0.9", pred.Probability)
	}
	if pred.Prediction != models.LabelApproved {
		t.Errorf("prediction = %q, want %q", pred.Prediction, models.LabelApproved)
	}
}

func TestPredictClassifierFailure(t *testing.T) {
	clf := &fakeClassifier{classes: []string{"denied", "approved"}, err: errors.New("boom")}
	p := newTestPredictor(t, clf, nil)

	_, _, err := p.Predict(context.Background(), directBody())
	var uerr *Error
	if !errors.As(err, &uerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if uerr.Kind != KindPredictionFailure {
		t.Errorf("kind = %q, want %q", uerr.Kind, KindPredictionFailure)
	}
}

func TestPredictCacheHitSkipsClassifier(t *testing.T) {
	clf := &fakeClassifier{classes: []string{"denied", "approved"}, probs: []float64{0.3, 0.7}}
	mem := cache.NewMemoryCache()
	defer mem.Close()
	p := newTestPredictor(t, clf, mem)

	first, cached, err := p.Predict(context.Background(), directBody())
	if err != nil {
		t.Fatalf("first Predict: %v", err)
	}
	if cached {
		t.Fatal("first prediction reported as cached")
	}

	second, cached, err := p.Predict(context.Background(), directBody())
	if err != nil {
		t.Fatalf("second Predict: %v", err)
	}
	if !cached {
		t.Fatal("second prediction not served from cache")
	}
	if clf.calls != 1 {
		t.Errorf("classifier invoked %d times, want 1", clf.calls)
	}
	if second.Prediction != first.Prediction || second.Probability != first.Probability {
		t.Errorf("cached prediction %+v differs from original %+v", second, first)
	}
}
