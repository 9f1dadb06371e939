// Package tracking is a thin client for an MLflow-compatible tracking and
// model registry server. The service itself never trains; the client exists
// so deployments can log serving metadata and promote registered model
// versions from the promote command.
package tracking

import (
	"context"
	"fmt"
	"strings"
	"time"

	xhttp "LoanServe/pkg/http"
)

const apiPrefix = "/api/2.0/mlflow"

// Client talks to one tracking server.
type Client struct {
	baseURL string
	http    *xhttp.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// Experiment is a tracking experiment.
type Experiment struct {
	ExperimentID string `json:"experiment_id"`
	Name         string `json:"name"`
	Stage        string `json:"lifecycle_stage,omitempty"`
}

// Run is a tracking run.
type Run struct {
	Info RunInfo `json:"info"`
}

// RunInfo is the identifying part of a run.
type RunInfo struct {
	RunID        string `json:"run_id"`
	ExperimentID string `json:"experiment_id"`
	Status       string `json:"status,omitempty"`
	RunName      string `json:"run_name,omitempty"`
}

// Metric is one logged metric point.
type Metric struct {
	Key       string  `json:"key"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
	Step      int64   `json:"step,omitempty"`
}

// Param is one logged parameter.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RunTag is one run tag.
type RunTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ModelVersion is a registered model version.
type ModelVersion struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Stage   string `json:"current_stage,omitempty"`
	Source  string `json:"source,omitempty"`
	RunID   string `json:"run_id,omitempty"`
}

func (c *Client) url(path string) string {
	return c.baseURL + apiPrefix + path
}

// CreateExperiment registers a new experiment and returns its id.
func (c *Client) CreateExperiment(ctx context.Context, name string) (string, error) {
	var out struct {
		ExperimentID string `json:"experiment_id"`
	}
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.url("/experiments/create"),
		Body:   map[string]string{"name": name},
	}, &out)
	if err != nil {
		return "", fmt.Errorf("create experiment %q: %w", name, err)
	}
	return out.ExperimentID, nil
}

// GetExperimentByName looks an experiment up by name.
func (c *Client) GetExperimentByName(ctx context.Context, name string) (*Experiment, error) {
	var out struct {
		Experiment Experiment `json:"experiment"`
	}
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.url("/experiments/get-by-name"),
		QueryParams: map[string][]string{"experiment_name": {name}},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("get experiment %q: %w", name, err)
	}
	return &out.Experiment, nil
}

// CreateRun starts a run under an experiment.
func (c *Client) CreateRun(ctx context.Context, experimentID, runName string) (*Run, error) {
	var out struct {
		Run Run `json:"run"`
	}
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.url("/runs/create"),
		Body: map[string]interface{}{
			"experiment_id": experimentID,
			"run_name":      runName,
			"start_time":    time.Now().UnixMilli(),
		},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return &out.Run, nil
}

// LogParam records one parameter on a run.
func (c *Client) LogParam(ctx context.Context, runID, key, value string) error {
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.url("/runs/log-parameter"),
		Body:   map[string]string{"run_id": runID, "key": key, "value": value},
	}, nil)
	if err != nil {
		return fmt.Errorf("log param %q: %w", key, err)
	}
	return nil
}

// LogMetric records one metric point on a run.
func (c *Client) LogMetric(ctx context.Context, runID, key string, value float64) error {
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.url("/runs/log-metric"),
		Body: map[string]interface{}{
			"run_id":    runID,
			"key":       key,
			"value":     value,
			"timestamp": time.Now().UnixMilli(),
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("log metric %q: %w", key, err)
	}
	return nil
}

// LogBatch records params, metrics and tags in one call.
func (c *Client) LogBatch(ctx context.Context, runID string, params []Param, metrics []Metric, tags []RunTag) error {
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.url("/runs/log-batch"),
		Body: map[string]interface{}{
			"run_id":  runID,
			"params":  params,
			"metrics": metrics,
			"tags":    tags,
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("log batch: %w", err)
	}
	return nil
}

// SetTag sets one tag on a run.
func (c *Client) SetTag(ctx context.Context, runID, key, value string) error {
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.url("/runs/set-tag"),
		Body:   map[string]string{"run_id": runID, "key": key, "value": value},
	}, nil)
	if err != nil {
		return fmt.Errorf("set tag %q: %w", key, err)
	}
	return nil
}

// SearchRuns lists runs of the given experiments matching a filter expression.
func (c *Client) SearchRuns(ctx context.Context, experimentIDs []string, filter string, maxResults int) ([]Run, error) {
	if maxResults <= 0 {
		maxResults = 100
	}
	var out struct {
		Runs []Run `json:"runs"`
	}
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.url("/runs/search"),
		Body: map[string]interface{}{
			"experiment_ids": experimentIDs,
			"filter":         filter,
			"max_results":    maxResults,
		},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("search runs: %w", err)
	}
	return out.Runs, nil
}

// UpdateRun sets a run's terminal status.
func (c *Client) UpdateRun(ctx context.Context, runID, status string) error {
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.url("/runs/update"),
		Body: map[string]interface{}{
			"run_id":   runID,
			"status":   status,
			"end_time": time.Now().UnixMilli(),
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// CreateRegisteredModel registers a model name. Servers answer an error when
// the name already exists; callers that tolerate that should check with
// IsAlreadyExists.
func (c *Client) CreateRegisteredModel(ctx context.Context, name string) error {
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.url("/registered-models/create"),
		Body:   map[string]string{"name": name},
	}, nil)
	if err != nil {
		return fmt.Errorf("create registered model %q: %w", name, err)
	}
	return nil
}

// CreateModelVersion registers a new version of a model from a source URI.
func (c *Client) CreateModelVersion(ctx context.Context, name, source, runID string) (*ModelVersion, error) {
	var out struct {
		ModelVersion ModelVersion `json:"model_version"`
	}
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.url("/model-versions/create"),
		Body:   map[string]string{"name": name, "source": source, "run_id": runID},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("create model version: %w", err)
	}
	return &out.ModelVersion, nil
}

// TransitionStage moves a model version to a new stage.
func (c *Client) TransitionStage(ctx context.Context, name, version, stage string) (*ModelVersion, error) {
	var out struct {
		ModelVersion ModelVersion `json:"model_version"`
	}
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.url("/model-versions/transition-stage"),
		Body: map[string]interface{}{
			"name":                      name,
			"version":                   version,
			"stage":                     stage,
			"archive_existing_versions": true,
		},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("transition %s/%s to %s: %w", name, version, stage, err)
	}
	return &out.ModelVersion, nil
}

// IsAlreadyExists reports whether err is the registry's duplicate-name error.
func IsAlreadyExists(err error) bool {
	return err != nil && strings.Contains(err.Error(), "RESOURCE_ALREADY_EXISTS")
}
