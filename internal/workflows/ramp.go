package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/oceanclean/oceanclean/internal/core/domain"
)

// RampTaskQueue is the task queue served by the controller worker.
const RampTaskQueue = "drive-ramp-queue"

// RampInput is the input for the ramp workflow.
type RampInput struct {
	Direction  domain.Direction
	From       int
	To         int
	Step       int
	IntervalMs int64
}

// RampInputFrom converts a domain ramp into workflow input.
func RampInputFrom(r domain.Ramp) RampInput {
	return RampInput{
		Direction:  r.Direction,
		From:       r.From,
		To:         r.To,
		Step:       r.Step,
		IntervalMs: r.Interval.Milliseconds(),
	}
}

// Ramp converts the input back into a domain ramp.
func (in RampInput) Ramp() domain.Ramp {
	return domain.Ramp{
		Direction: in.Direction,
		From:      in.From,
		To:        in.To,
		Step:      in.Step,
		Interval:  time.Duration(in.IntervalMs) * time.Millisecond,
	}
}

// RampWorkflow walks the drive speed from From to To, sleeping one interval
// before each step. It returns the final speed. A failed step ends the ramp;
// a cancelled workflow leaves the last applied speed in place.
func RampWorkflow(ctx workflow.Context, input RampInput) (int, error) {
	logger := workflow.GetLogger(ctx)
	ramp := input.Ramp()
	logger.Info("Starting ramp", "direction", ramp.Direction, "from", ramp.From, "to", ramp.To)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 2,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	speed := ramp.From
	for _, next := range ramp.Steps() {
		if err := workflow.Sleep(ctx, ramp.Interval); err != nil {
			return speed, err
		}
		if err := workflow.ExecuteActivity(ctx, "ApplyRampStep", ramp.Direction, next).Get(ctx, nil); err != nil {
			logger.Warn("ramp step failed", "speed", next, "error", err)
			return speed, err
		}
		speed = next
	}

	logger.Info("Ramp finished", "speed", speed)
	return speed, nil
}
