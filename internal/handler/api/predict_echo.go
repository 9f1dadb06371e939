package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	models "LoanServe/internal/domain/models"
	"LoanServe/internal/handler/ws"
	"LoanServe/internal/usecase"
	xhttp "LoanServe/pkg/http"
	xlogger "LoanServe/pkg/logger"
)

const recordTimeout = 5 * time.Second

// PredictEchoHandler wires the prediction endpoints. Request failures on the
// scoring endpoints are answered in-band: the HTTP status stays 200 and the
// body's status field carries the outcome, which keeps existing clients of
// the original serving protocol working unchanged.
type PredictEchoHandler struct {
	logger    *xlogger.Logger
	predictor *usecase.Predictor
	recorder  *usecase.Recorder
	store     RecentLister
	feed      *ws.Feed
}

// RecentLister is the slice of the audit store the handler needs.
type RecentLister interface {
	Recent(ctx context.Context, limit int, label string) ([]*models.PredictionRecord, error)
}

func NewPredictEchoHandler(logger *xlogger.Logger, predictor *usecase.Predictor, recorder *usecase.Recorder, store RecentLister, feed *ws.Feed) *PredictEchoHandler {
	return &PredictEchoHandler{
		logger:    logger,
		predictor: predictor,
		recorder:  recorder,
		store:     store,
		feed:      feed,
	}
}

func (h *PredictEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Index)
	e.GET("/health", h.Health)
	e.GET("/metadata", h.Metadata)
	e.POST("/predict", h.Predict)
	e.POST("/api/v1.0/predictions", h.TensorPredict)
	if h.store != nil {
		e.GET("/predictions/recent", h.RecentPredictions)
	}
	if h.feed != nil {
		e.GET("/ws/predictions", h.feed.Serve)
	}
}

// Index describes the service and its routes.
func (h *PredictEchoHandler) Index(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"service": "loan approval prediction service",
		"model":   h.predictor.ModelName(),
		"version": h.predictor.ModelVersion(),
		"endpoints": map[string]string{
			"health":   "GET /health",
			"metadata": "GET /metadata",
			"predict":  "POST /predict",
			"tensor":   "POST /api/v1.0/predictions",
		},
	})
}

// Health reports liveness. It always answers 200; the status and
// model_loaded fields carry the model state.
func (h *PredictEchoHandler) Health(c echo.Context) error {
	loaded := h.predictor != nil
	status := "unhealthy"
	if loaded {
		status = "healthy"
	}
	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:      status,
		ModelLoaded: loaded,
		Timestamp:   nowRFC3339(),
	})
}

// Metadata describes the model input and output schema.
func (h *PredictEchoHandler) Metadata(c echo.Context) error {
	inputs := make([]models.MetadataField, 0, len(models.FeatureNames))
	for _, name := range models.FeatureNames {
		inputs = append(inputs, models.MetadataField{Name: name, Datatype: "FP64", Shape: []int{1}})
	}
	return c.JSON(http.StatusOK, models.MetadataResponse{
		Name:     h.predictor.ModelName(),
		Versions: []string{h.predictor.ModelVersion()},
		Platform: "loanserve",
		Inputs:   inputs,
		Outputs: []models.MetadataField{
			{Name: "prediction", Datatype: "BYTES", Shape: []int{1}},
			{Name: "probability", Datatype: "FP64", Shape: []int{1}},
			{Name: "confidence", Datatype: "FP64", Shape: []int{1}},
		},
	})
}

// Predict serves the primary scoring endpoint.
func (h *PredictEchoHandler) Predict(c echo.Context) error {
	pred, err := h.predict(c)
	if err != nil {
		return h.errorBody(c, err)
	}

	return c.JSON(http.StatusOK, models.PredictResponse{
		Predictions:  []models.Prediction{*pred},
		ModelName:    h.predictor.ModelName(),
		ModelVersion: h.predictor.ModelVersion(),
		Timestamp:    nowRFC3339(),
	})
}

// TensorPredict serves the tensor-protocol alias. The scoring pipeline is the
// same as /predict; only the response shape differs.
func (h *PredictEchoHandler) TensorPredict(c echo.Context) error {
	pred, err := h.predict(c)
	if err != nil {
		return h.errorBody(c, err)
	}

	return c.JSON(http.StatusOK, models.TensorResponse{
		Data: models.TensorData{
			Names:   []string{"prediction", "probability"},
			NdArray: [][]interface{}{{pred.Prediction, pred.Probability}},
		},
		Meta: models.TensorMeta{
			ModelName:    h.predictor.ModelName(),
			ModelVersion: h.predictor.ModelVersion(),
		},
	})
}

// RecentPredictions lists audited predictions, newest first.
func (h *PredictEchoHandler) RecentPredictions(c echo.Context) error {
	req := &models.RecentPredictionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.store.Recent(c.Request().Context(), req.Limit, req.Label)
	if err != nil {
		h.logger.Error("recent predictions query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// predict decodes the body, scores it and fans the result out to the sinks.
func (h *PredictEchoHandler) predict(c echo.Context) (*models.Prediction, error) {
	var body map[string]interface{}
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return nil, &usecase.Error{Kind: usecase.KindInvalidFormat, Message: "request body is not valid JSON", Err: err}
	}

	start := time.Now()
	pred, cached, err := h.predictor.Predict(c.Request().Context(), body)
	if err != nil {
		return nil, err
	}
	latency := time.Since(start)

	if h.recorder != nil {
		rec := &models.PredictionRecord{
			Timestamp:   time.Now().UTC(),
			Label:       pred.Prediction,
			Probability: pred.Probability,
			Confidence:  pred.Confidence,
			Features:    pred.Input,
			ModelName:   h.predictor.ModelName(),
			LatencyMs:   float64(latency.Microseconds()) / 1000.0,
			Cached:      cached,
		}
		// Sinks must not add latency to the response path.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
			defer cancel()
			h.recorder.Record(ctx, rec)
		}()
	}

	return pred, nil
}

// errorBody shapes a scoring failure for the wire. Expected request errors
// carry their kind; anything else is reported as a prediction failure.
func (h *PredictEchoHandler) errorBody(c echo.Context, err error) error {
	kind := string(usecase.KindPredictionFailure)
	msg := "prediction failed"

	var uerr *usecase.Error
	if errors.As(err, &uerr) {
		kind = string(uerr.Kind)
		msg = uerr.Message
	} else {
		h.logger.Error("unexpected prediction error", xlogger.Error(err))
	}

	return c.JSON(http.StatusOK, models.ErrorResponse{
		Error:     msg,
		Kind:      kind,
		Status:    "error",
		Timestamp: nowRFC3339(),
	})
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
