package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"strings"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/campusride/internal/adapters/catalog"
	"github.com/samirrijal/campusride/internal/adapters/mapbox"
	"github.com/samirrijal/campusride/internal/pkg/config"
	"github.com/samirrijal/campusride/internal/pkg/logging"
	"github.com/samirrijal/campusride/internal/workflows"
)

func main() {
	start := flag.Bool("start", false, "start a RouteGeometryWorkflow run after the worker is up")
	routes := flag.String("routes", "", "comma-separated route ids for -start (default: all routes)")
	flag.Parse()

	cfg, err := config.Load("campusride-geosync")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, "service", cfg.Telemetry.ServiceName)

	if cfg.Mapbox.Token == "" {
		log.Fatal("mapbox.token is required to fetch route geometry")
	}

	ctx := context.Background()
	src, err := catalog.Open(ctx, cfg.Catalog, cfg.Database)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	defer src.Close()
	if src.DB == nil {
		slog.Warn("static catalog: fetched shapes live only as long as this worker")
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	queue := cfg.Temporal.TaskQueue
	if queue == "" {
		queue = workflows.TaskQueue
	}
	w := worker.New(c, queue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.RouteGeometryWorkflow)
	w.RegisterActivity(&workflows.GeometryActivities{
		Routes:     src.Routes,
		Directions: mapbox.New(cfg.Mapbox.BaseURL, cfg.Mapbox.Token, cfg.Mapbox.Timeout),
		Shapes:     src.Shapes,
	})

	if err := w.Start(); err != nil {
		log.Fatalf("worker: %v", err)
	}
	defer w.Stop()
	slog.Info("geosync worker started", "task_queue", queue, "catalog", cfg.Catalog.Source)

	if *start {
		input := workflows.GeometryInput{}
		if *routes != "" {
			input.RouteIDs = strings.Split(*routes, ",")
		}
		run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:        "route-geometry-" + time.Now().UTC().Format("20060102T150405"),
			TaskQueue: queue,
		}, workflows.RouteGeometryWorkflow, input)
		if err != nil {
			log.Fatalf("start workflow: %v", err)
		}
		var result workflows.GeometryResult
		if err := run.Get(ctx, &result); err != nil {
			log.Fatalf("workflow: %v", err)
		}
		slog.Info("route geometry synced", "updated", result.Updated, "failed", result.Failed)
		return
	}

	<-worker.InterruptCh()
	slog.Info("geosync worker stopped")
}
