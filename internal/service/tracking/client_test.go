package tracking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var paths []string

	mux := http.NewServeMux()
	mux.HandleFunc("/api/2.0/mlflow/experiments/create", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"experiment_id": "7"})
	})
	mux.HandleFunc("/api/2.0/mlflow/experiments/get-by-name", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Query().Get("experiment_name") != "loan-approval" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error_code": "RESOURCE_DOES_NOT_EXIST"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"experiment": map[string]string{"experiment_id": "7", "name": "loan-approval"},
		})
	})
	mux.HandleFunc("/api/2.0/mlflow/runs/create", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["experiment_id"] != "7" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"run": map[string]interface{}{
				"info": map[string]string{"run_id": "abc123", "experiment_id": "7"},
			},
		})
	})
	mux.HandleFunc("/api/2.0/mlflow/runs/log-parameter", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{})
	})
	mux.HandleFunc("/api/2.0/mlflow/runs/log-metric", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["key"] == "" || body["timestamp"] == nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{})
	})
	mux.HandleFunc("/api/2.0/mlflow/runs/log-batch", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		var body struct {
			RunID   string   `json:"run_id"`
			Params  []Param  `json:"params"`
			Metrics []Metric `json:"metrics"`
			Tags    []RunTag `json:"tags"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.RunID == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{})
	})
	mux.HandleFunc("/api/2.0/mlflow/runs/search", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		var body struct {
			ExperimentIDs []string `json:"experiment_ids"`
			MaxResults    int      `json:"max_results"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.ExperimentIDs) == 0 || body.MaxResults <= 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"runs": []map[string]interface{}{
				{"info": map[string]string{"run_id": "abc123", "experiment_id": body.ExperimentIDs[0], "status": "FINISHED"}},
			},
		})
	})
	mux.HandleFunc("/api/2.0/mlflow/runs/update", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{})
	})
	mux.HandleFunc("/api/2.0/mlflow/registered-models/create", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error_code": "RESOURCE_ALREADY_EXISTS"})
	})
	mux.HandleFunc("/api/2.0/mlflow/model-versions/transition-stage", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"model_version": map[string]string{
				"name":          body["name"].(string),
				"version":       body["version"].(string),
				"current_stage": body["stage"].(string),
			},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &paths
}

func TestExperimentAndRunLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewClient(srv.URL, 5*time.Second)
	ctx := context.Background()

	id, err := c.CreateExperiment(ctx, "loan-approval")
	if err != nil {
		t.Fatalf("CreateExperiment: %v", err)
	}
	if id != "7" {
		t.Errorf("experiment id = %q, want 7", id)
	}

	exp, err := c.GetExperimentByName(ctx, "loan-approval")
	if err != nil {
		t.Fatalf("GetExperimentByName: %v", err)
	}
	if exp.ExperimentID != "7" {
		t.Errorf("experiment id = %q, want 7", exp.ExperimentID)
	}

	run, err := c.CreateRun(ctx, exp.ExperimentID, "promotion")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if run.Info.RunID != "abc123" {
		t.Errorf("run id = %q, want abc123", run.Info.RunID)
	}

	if err := c.LogParam(ctx, run.Info.RunID, "model_path", "model.json"); err != nil {
		t.Fatalf("LogParam: %v", err)
	}
	if err := c.LogMetric(ctx, run.Info.RunID, "accuracy", 0.93); err != nil {
		t.Fatalf("LogMetric: %v", err)
	}
	if err := c.UpdateRun(ctx, run.Info.RunID, "FINISHED"); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}
}

func TestLogBatch(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewClient(srv.URL, 5*time.Second)

	err := c.LogBatch(context.Background(), "abc123",
		[]Param{{Key: "source", Value: "model.json"}},
		[]Metric{{Key: "accuracy", Value: 0.93, Timestamp: time.Now().UnixMilli()}},
		[]RunTag{{Key: "stage", Value: "Staging"}},
	)
	if err != nil {
		t.Fatalf("LogBatch: %v", err)
	}
}

func TestSearchRuns(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewClient(srv.URL, 5*time.Second)

	runs, err := c.SearchRuns(context.Background(), []string{"7"}, `tags.stage = "Staging"`, 10)
	if err != nil {
		t.Fatalf("SearchRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	if runs[0].Info.RunID != "abc123" || runs[0].Info.ExperimentID != "7" {
		t.Errorf("unexpected run: %+v", runs[0].Info)
	}
}

func TestGetExperimentNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewClient(srv.URL, 5*time.Second)

	if _, err := c.GetExperimentByName(context.Background(), "nope"); err == nil {
		t.Fatal("expected an error for an unknown experiment")
	}
}

func TestCreateRegisteredModelAlreadyExists(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewClient(srv.URL, 5*time.Second)

	err := c.CreateRegisteredModel(context.Background(), "loan-approval-classifier")
	if err == nil {
		t.Fatal("expected duplicate-name error")
	}
	if !IsAlreadyExists(err) {
		t.Errorf("IsAlreadyExists(%v) = false, want true", err)
	}
}

func TestTransitionStage(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewClient(srv.URL, 5*time.Second)

	mv, err := c.TransitionStage(context.Background(), "loan-approval-classifier", "3", "Production")
	if err != nil {
		t.Fatalf("TransitionStage: %v", err)
	}
	if mv.Stage != "Production" || mv.Version != "3" {
		t.Errorf("unexpected model version: %+v", mv)
	}
}
