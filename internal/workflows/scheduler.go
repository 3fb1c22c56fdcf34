package workflows

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/oceanclean/oceanclean/internal/core/domain"
)

// Scheduler implements ports.RampScheduler by starting RampWorkflow
// executions. Starting a ramp cancels the previous one.
type Scheduler struct {
	client client.Client
	queue  string

	mu   sync.Mutex
	last string
}

// NewScheduler creates a Scheduler on the given task queue.
func NewScheduler(c client.Client, queue string) *Scheduler {
	if queue == "" {
		queue = RampTaskQueue
	}
	return &Scheduler{client: c, queue: queue}
}

// StartRamp starts a workflow for ramp and returns its workflow id.
func (s *Scheduler) StartRamp(ctx context.Context, ramp domain.Ramp) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last != "" {
		if err := s.client.CancelWorkflow(ctx, s.last, ""); err != nil {
			slog.Debug("cancel previous ramp", "workflow", s.last, "error", err)
		}
	}

	id := "drive-ramp-" + uuid.NewString()
	run, err := s.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: s.queue,
	}, RampWorkflow, RampInputFrom(ramp))
	if err != nil {
		return "", fmt.Errorf("%w: start ramp workflow: %v", domain.ErrStoreUnavailable, err)
	}
	s.last = run.GetID()
	return s.last, nil
}
