package workflows

import (
	"context"
	"fmt"

	"github.com/oceanclean/oceanclean/internal/core/domain"
	"github.com/oceanclean/oceanclean/internal/core/usecases"
)

// RampActivities holds the activity implementations for the ramp workflow.
type RampActivities struct {
	Stepper usecases.RampStepper
}

// ApplyRampStep writes one drive command at the given speed.
func (a *RampActivities) ApplyRampStep(ctx context.Context, dir domain.Direction, speed int) error {
	if err := a.Stepper.ApplyRampStep(ctx, dir, speed); err != nil {
		return fmt.Errorf("apply ramp step %d: %w", speed, err)
	}
	return nil
}
