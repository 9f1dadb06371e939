package models

import "time"

const (
	LabelApproved = "approved"
	LabelDenied   = "denied"

	// PositiveClass is the probability column the service reports. When the
	// artifact's classes carry other names the first column is used instead.
	PositiveClass = LabelApproved
)

// Prediction is a single served prediction with the input echoed back.
type Prediction struct {
	Prediction  string             `json:"prediction"`
	Probability float64            `json:"probability"`
	Confidence  float64            `json:"confidence"`
	Input       map[string]float64 `json:"input"`
}

// PredictResponse is the /predict success body.
type PredictResponse struct {
	Predictions  []Prediction `json:"predictions"`
	ModelName    string       `json:"model_name"`
	ModelVersion string       `json:"model_version"`
	Timestamp    string       `json:"timestamp"`
}

// TensorData is the ndarray payload of the tensor-serving response shape.
type TensorData struct {
	Names   []string        `json:"names"`
	NdArray [][]interface{} `json:"ndarray"`
}

// TensorMeta identifies the model in the tensor-serving response shape.
type TensorMeta struct {
	ModelName    string `json:"model_name"`
	ModelVersion string `json:"model_version"`
}

// TensorResponse is the /api/v1.0/predictions success body.
type TensorResponse struct {
	Data TensorData `json:"data"`
	Meta TensorMeta `json:"meta"`
}

// ErrorResponse signals request failures in-band; the HTTP status stays 200
// and the status field distinguishes success from error.
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Timestamp   string `json:"timestamp"`
}

// MetadataField describes one input or output field of the model schema.
type MetadataField struct {
	Name     string `json:"name"`
	Datatype string `json:"datatype"`
	Shape    []int  `json:"shape"`
}

// MetadataResponse is the /metadata body.
type MetadataResponse struct {
	Name     string          `json:"name"`
	Versions []string        `json:"versions"`
	Platform string          `json:"platform"`
	Inputs   []MetadataField `json:"inputs"`
	Outputs  []MetadataField `json:"outputs"`
}

// PredictionRecord is the audit/event form of a served prediction.
type PredictionRecord struct {
	Timestamp   time.Time          `json:"timestamp"`
	Label       string             `json:"label"`
	Probability float64            `json:"probability"`
	Confidence  float64            `json:"confidence"`
	Features    map[string]float64 `json:"features"`
	ModelName   string             `json:"model_name"`
	LatencyMs   float64            `json:"latency_ms"`
	Cached      bool               `json:"cached"`
}
