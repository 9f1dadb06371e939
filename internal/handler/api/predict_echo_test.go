package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	models "LoanServe/internal/domain/models"
	"LoanServe/internal/usecase"
	xlogger "LoanServe/pkg/logger"
)

type stubClassifier struct {
	classes []string
	probs   []float64
}

func (s *stubClassifier) PredictProba([]float64) ([]float64, error) { return s.probs, nil }
func (s *stubClassifier) Classes() []string                         { return s.classes }
func (s *stubClassifier) Name() string                              { return "loan-approval-classifier" }
func (s *stubClassifier) Version() string                           { return "2" }

type stubMetrics struct{}

func (stubMetrics) RecordPrediction(string, float64) {}
func (stubMetrics) RecordError(string)               {}
func (stubMetrics) RecordCacheLookup(bool)           {}
func (stubMetrics) RecordLatency(string, float64)    {}

type stubLister struct {
	rows []*models.PredictionRecord
}

func (s *stubLister) Recent(_ context.Context, limit int, label string) ([]*models.PredictionRecord, error) {
	out := make([]*models.PredictionRecord, 0, len(s.rows))
	for _, r := range s.rows {
		if label != "" && r.Label != label {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func newTestHandler(t *testing.T, probs []float64) *PredictEchoHandler {
	t.Helper()
	logger, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	clf := &stubClassifier{classes: []string{"denied", "approved"}, probs: probs}
	predictor := usecase.NewPredictor(clf, nil, time.Minute, stubMetrics{}, logger)
	return NewPredictEchoHandler(logger, predictor, nil, nil, nil)
}

func doRequest(h *PredictEchoHandler, method, path, body string) *httptest.ResponseRecorder {
	e := echo.New()
	h.RegisterRoutes(e)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, []float64{0.5, 0.5})
	rec := doRequest(h, http.MethodGet, "/health", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp models.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "healthy" || !resp.ModelLoaded {
		t.Errorf("unexpected health body: %+v", resp)
	}
	if _, err := time.Parse(time.RFC3339, resp.Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", resp.Timestamp, err)
	}
}

func TestHealthWithoutModel(t *testing.T) {
	logger, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	h := NewPredictEchoHandler(logger, nil, nil, nil, nil)

	rec := doRequest(h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, health must always answer 200", rec.Code)
	}
	var resp models.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "unhealthy" {
		t.Errorf("status = %q, want unhealthy without a model handle", resp.Status)
	}
	if resp.ModelLoaded {
		t.Error("model_loaded = true without a model handle")
	}
}

func TestMetadata(t *testing.T) {
	h := newTestHandler(t, []float64{0.5, 0.5})
	rec := doRequest(h, http.MethodGet, "/metadata", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp models.MetadataResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Name != "loan-approval-classifier" {
		t.Errorf("name = %q", resp.Name)
	}
	if len(resp.Inputs) != len(models.FeatureNames) {
		t.Fatalf("inputs = %d, want %d", len(resp.Inputs), len(models.FeatureNames))
	}
	for i, name := range models.FeatureNames {
		if resp.Inputs[i].Name != name {
			t.Errorf("inputs[%d] = %q, want %q", i, resp.Inputs[i].Name, name)
		}
	}
	wantOutputs := []string{"prediction", "probability", "confidence"}
	if len(resp.Outputs) != len(wantOutputs) {
		t.Fatalf("outputs = %d, want %d", len(resp.Outputs), len(wantOutputs))
	}
	for i, name := range wantOutputs {
		if resp.Outputs[i].Name != name {
			t.Errorf("outputs[%d] = %q, want %q", i, resp.Outputs[i].Name, name)
		}
	}
}

func TestPredictShapesAgreeOverHTTP(t *testing.T) {
	bodies := map[string]string{
		"direct":    `{"age":35,"income":75000,"education":3,"experience":10,"credit_score":720}`,
		"instances": `{"instances":[{"age":35,"income":75000,"education":3,"experience":10,"credit_score":720}]}`,
		"ndarray":   `{"data":{"ndarray":[[35,75000,3,10,720]]}}`,
		"flat":      `{"data":[35,75000,3,10,720]}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			h := newTestHandler(t, []float64{0.25, 0.75})
			rec := doRequest(h, http.MethodPost, "/predict", body)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			var resp models.PredictResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(resp.Predictions) != 1 {
				t.Fatalf("predictions = %d, want 1", len(resp.Predictions))
			}
			p := resp.Predictions[0]
			if p.Prediction != "approved" || p.Probability != 0.75 {
				t.Errorf("got %q/%v, want approved/0.75", p.Prediction, p.Probability)
			}
			if p.Confidence != 0.5 {
				t.Errorf("confidence = %v, want 0.5", p.Confidence)
			}
			if p.Input["income"] != 75000 {
				t.Errorf("input echo income = %v", p.Input["income"])
			}
			if resp.ModelName != "loan-approval-classifier" || resp.ModelVersion != "2" {
				t.Errorf("model meta = %q/%q", resp.ModelName, resp.ModelVersion)
			}
		})
	}
}

func TestPredictErrorsInBand(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		wantKind string
		wantIn   []string
	}{
		{
			name:     "missing features",
			body:     `{"age":30,"education":2,"experience":5}`,
			wantKind: "missing_features",
			wantIn:   []string{"income", "credit_score"},
		},
		{
			name:     "coercion failure",
			body:     `{"age":30,"income":"plenty","education":2,"experience":5,"credit_score":700}`,
			wantKind: "coercion_failure",
			wantIn:   []string{"income"},
		},
		{
			name:     "data object without ndarray",
			body:     `{"data":{"tensor":[1,2,3]}}`,
			wantKind: "invalid_format",
		},
		{
			name:     "malformed json",
			body:     `{"age":`,
			wantKind: "invalid_format",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(t, []float64{0.5, 0.5})
			rec := doRequest(h, http.MethodPost, "/predict", tc.body)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200 with in-band error", rec.Code)
			}
			var resp models.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != "error" {
				t.Errorf("status field = %q, want error", resp.Status)
			}
			if resp.Kind != tc.wantKind {
				t.Errorf("kind = %q, want %q", resp.Kind, tc.wantKind)
			}
			for _, want := range tc.wantIn {
				if !strings.Contains(resp.Error, want) {
					t.Errorf("error %q does not name %q", resp.Error, want)
				}
			}
		})
	}
}

func TestTensorPredictMatchesPredict(t *testing.T) {
	body := `{"data":{"ndarray":[[35,75000,3,10,720]]}}`
	h := newTestHandler(t, []float64{0.1, 0.9})

	rec := doRequest(h, http.MethodPost, "/api/v1.0/predictions", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp models.TensorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data.Names) != 2 || resp.Data.Names[0] != "prediction" || resp.Data.Names[1] != "probability" {
		t.Errorf("names = %v", resp.Data.Names)
	}
	if len(resp.Data.NdArray) != 1 || len(resp.Data.NdArray[0]) != 2 {
		t.Fatalf("ndarray = %v", resp.Data.NdArray)
	}
	if resp.Data.NdArray[0][0] != "approved" {
		t.Errorf("label = %v, want approved", resp.Data.NdArray[0][0])
	}
	if prob, ok := resp.Data.NdArray[0][1].(float64); !ok || prob != 0.9 {
		t.Errorf("probability = %v, want 0.9", resp.Data.NdArray[0][1])
	}
	if resp.Meta.ModelName != "loan-approval-classifier" || resp.Meta.ModelVersion != "2" {
		t.Errorf("meta = %+v", resp.Meta)
	}
}

func TestTensorPredictErrorsInBand(t *testing.T) {
	h := newTestHandler(t, []float64{0.5, 0.5})
	rec := doRequest(h, http.MethodPost, "/api/v1.0/predictions", `{"data":[35,75000]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp models.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "error" || resp.Kind != "missing_features" {
		t.Errorf("unexpected error body: %+v", resp)
	}
}

func TestRecentPredictions(t *testing.T) {
	logger, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	clf := &stubClassifier{classes: []string{"denied", "approved"}, probs: []float64{0.5, 0.5}}
	predictor := usecase.NewPredictor(clf, nil, time.Minute, stubMetrics{}, logger)
	lister := &stubLister{rows: []*models.PredictionRecord{
		{Label: "approved", Probability: 0.8},
		{Label: "denied", Probability: 0.2},
		{Label: "approved", Probability: 0.9},
	}}
	h := NewPredictEchoHandler(logger, predictor, nil, lister, nil)

	rec := doRequest(h, http.MethodGet, "/predictions/recent?limit=2&label=approved", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var envelope struct {
		Status int `json:"status"`
		Data   struct {
			Rows  []models.PredictionRecord `json:"rows"`
			Total int64                     `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Status != http.StatusOK {
		t.Errorf("envelope status = %d, want 200", envelope.Status)
	}
	if len(envelope.Data.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(envelope.Data.Rows))
	}
	for _, r := range envelope.Data.Rows {
		if r.Label != "approved" {
			t.Errorf("label = %q, want approved", r.Label)
		}
	}
}

func TestRecentPredictionsValidation(t *testing.T) {
	logger, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	clf := &stubClassifier{classes: []string{"denied", "approved"}, probs: []float64{0.5, 0.5}}
	predictor := usecase.NewPredictor(clf, nil, time.Minute, stubMetrics{}, logger)
	h := NewPredictEchoHandler(logger, predictor, nil, &stubLister{}, nil)

	rec := doRequest(h, http.MethodGet, "/predictions/recent?label=maybe", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 envelope", rec.Code)
	}
	var envelope struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Status != http.StatusBadRequest {
		t.Errorf("envelope status = %d, want 400", envelope.Status)
	}
}
