// Command promote registers a model artifact with the tracking server and
// moves it to a target stage. It is the operational counterpart of the
// serving process: training happens elsewhere, promotion happens here.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"LoanServe/internal/service/tracking"
	"LoanServe/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	name := flag.String("name", "loan-approval-classifier", "registered model name")
	source := flag.String("source", "", "model artifact source URI")
	stage := flag.String("stage", "Staging", "target stage (Staging, Production)")
	runName := flag.String("run-name", "promotion", "tracking run name")
	flag.Parse()

	if *source == "" {
		log.Fatal("-source is required")
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if cfg.Tracking.URL == "" {
		log.Fatal("tracking.url is not configured")
	}

	timeout := cfg.Tracking.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := tracking.NewClient(cfg.Tracking.URL, timeout)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	exp, err := client.GetExperimentByName(ctx, *name)
	var expID string
	if err != nil {
		expID, err = client.CreateExperiment(ctx, *name)
		if err != nil {
			log.Fatalf("create experiment: %v", err)
		}
	} else {
		expID = exp.ExperimentID
	}

	run, err := client.CreateRun(ctx, expID, *runName)
	if err != nil {
		log.Fatalf("create run: %v", err)
	}

	if err := client.LogParam(ctx, run.Info.RunID, "source", *source); err != nil {
		log.Fatalf("log param: %v", err)
	}
	if err := client.SetTag(ctx, run.Info.RunID, "promoted_by", "promote"); err != nil {
		log.Fatalf("set tag: %v", err)
	}
	if err := client.UpdateRun(ctx, run.Info.RunID, "FINISHED"); err != nil {
		log.Fatalf("update run: %v", err)
	}

	if err := client.CreateRegisteredModel(ctx, *name); err != nil && !tracking.IsAlreadyExists(err) {
		log.Fatalf("create registered model: %v", err)
	}

	mv, err := client.CreateModelVersion(ctx, *name, *source, run.Info.RunID)
	if err != nil {
		log.Fatalf("create model version: %v", err)
	}

	promoted, err := client.TransitionStage(ctx, *name, mv.Version, *stage)
	if err != nil {
		log.Fatalf("transition stage: %v", err)
	}

	log.Printf("promoted %s version %s to %s", promoted.Name, promoted.Version, promoted.Stage)
}
