package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/oceanclean/oceanclean/internal/adapters/docstore"
	"github.com/oceanclean/oceanclean/internal/bootstrap"
	"github.com/oceanclean/oceanclean/internal/core/usecases"
	"github.com/oceanclean/oceanclean/internal/pkg/config"
	"github.com/oceanclean/oceanclean/internal/pkg/logging"
	"github.com/oceanclean/oceanclean/internal/workflows"
)

func main() {
	cfg, err := config.Load("oceanclean-controller")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	// Ramp steps write to the same store the API reads
	res, err := bootstrap.Open(ctx, cfg, "oceanclean-controller")
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer res.Close()

	control := usecases.NewControlService(
		docstore.NewControlRepo(res.Store),
		docstore.NewMapRepo(res.Store),
		res.Publisher,
		usecases.VideoURLs{Raw: cfg.Video.RawURL, AI: cfg.Video.AIURL},
	)

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
		queue = workflows.RampTaskQueue
	}
	w := worker.New(c, queue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.RampWorkflow)
	w.RegisterActivity(&workflows.RampActivities{Stepper: control})

	slog.Info("controller worker started", "queue", queue, "store", cfg.Store.Driver)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
