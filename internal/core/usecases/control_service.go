package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oceanclean/oceanclean/internal/core/domain"
	"github.com/oceanclean/oceanclean/internal/core/ports"
	"github.com/oceanclean/oceanclean/internal/pkg/metrics"
)

// Manual control limits, matching the dashboard sliders.
const (
	MaxSpeed     = 100
	SpeedStep    = 5
	MaxDepth     = 20.0
	DefaultDepth = 5.0
)

// VideoURLs are the two stream references the video toggle chooses between.
type VideoURLs struct {
	Raw string
	AI  string
}

// ControlService turns operator actions into robot command documents and
// queue messages. The robot agent consumes both.
type ControlService struct {
	control   ports.ControlRepository
	maps      ports.MapRepository
	publisher ports.CommandPublisher
	ramps     ports.RampScheduler
	video     VideoURLs
	now       func() time.Time

	mu sync.Mutex // serialises read-modify-write of robot_control
}

// NewControlService creates a new ControlService. publisher may be nil, in
// which case only the documents are written.
func NewControlService(control ports.ControlRepository, maps ports.MapRepository, publisher ports.CommandPublisher, video VideoURLs) *ControlService {
	return &ControlService{control: control, maps: maps, publisher: publisher, video: video, now: time.Now}
}

// UseRamps sets the scheduler that executes speed ramps.
func (s *ControlService) UseRamps(r ports.RampScheduler) { s.ramps = r }

// Drive sets direction and speed.
func (s *ControlService) Drive(ctx context.Context, by string, dir domain.Direction, speed int) (*domain.DriveCommand, error) {
	if !dir.Valid() {
		return nil, fmt.Errorf("%w: unknown direction %q", domain.ErrValidation, dir)
	}
	if err := validateSpeed(speed); err != nil {
		return nil, err
	}
	return s.update(ctx, "drive", by, func(cmd *domain.DriveCommand) error {
		if cmd.Paused && dir != domain.DirStop {
			return fmt.Errorf("%w: manual control is paused", domain.ErrInvalidState)
		}
		cmd.Direction = dir
		cmd.Speed = speed
		if dir == domain.DirStop {
			cmd.Speed = 0
		}
		return nil
	})
}

// Stop halts the robot. It is accepted while paused.
func (s *ControlService) Stop(ctx context.Context, by string) (*domain.DriveCommand, error) {
	return s.update(ctx, "stop", by, func(cmd *domain.DriveCommand) error {
		cmd.Direction = domain.DirStop
		cmd.Speed = 0
		return nil
	})
}

// SetDepth sets the working depth in meters, in half-meter steps.
func (s *ControlService) SetDepth(ctx context.Context, by string, depth float64) (*domain.DriveCommand, error) {
	if depth < 0 || depth > MaxDepth {
		return nil, fmt.Errorf("%w: depth must be between 0 and %g meters", domain.ErrValidation, MaxDepth)
	}
	if depth*2 != float64(int(depth*2)) {
		return nil, fmt.Errorf("%w: depth must be a multiple of 0.5 meters", domain.ErrValidation)
	}
	return s.update(ctx, "depth", by, func(cmd *domain.DriveCommand) error {
		cmd.Depth = depth
		return nil
	})
}

// SetPaused pauses or resumes manual control. Pausing also stops the robot.
func (s *ControlService) SetPaused(ctx context.Context, by string, paused bool) (*domain.DriveCommand, error) {
	return s.update(ctx, "pause", by, func(cmd *domain.DriveCommand) error {
		cmd.Paused = paused
		if paused {
			cmd.Direction = domain.DirStop
			cmd.Speed = 0
		}
		return nil
	})
}

// Current returns the last drive command, or the idle default.
func (s *ControlService) Current(ctx context.Context) (*domain.DriveCommand, error) {
	cmd, err := s.control.ReadDrive(ctx)
	if err != nil {
		return nil, err
	}
	if cmd == nil {
		cmd = &domain.DriveCommand{Direction: domain.DirStop, Depth: DefaultDepth}
	}
	return cmd, nil
}

// SetMode switches between manual and autonomous operation. Autonomous mode
// may name the map whose areas the robot should cover; it must exist.
func (s *ControlService) SetMode(ctx context.Context, mode domain.OperatingMode, mapID string) (*domain.ModeCommand, error) {
	switch mode {
	case domain.OpManual:
		mapID = ""
	case domain.OpAutonomous:
		if mapID != "" {
			m, err := s.maps.GetMap(ctx, mapID)
			if err != nil {
				return nil, err
			}
			if m == nil {
				return nil, fmt.Errorf("%w: map %s", domain.ErrNotFound, mapID)
			}
		}
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", domain.ErrValidation, mode)
	}

	cmd := &domain.ModeCommand{Mode: mode, MapID: mapID, Timestamp: domain.EpochMillis(s.now())}
	if err := s.control.WriteMode(ctx, cmd); err != nil {
		metrics.ControlCommands.WithLabelValues("mode", "error").Inc()
		return nil, err
	}
	if s.publisher != nil {
		if err := s.publisher.PublishMode(ctx, cmd); err != nil {
			slog.Warn("publish mode command failed", "error", err)
		}
	}
	metrics.ControlCommands.WithLabelValues("mode", "ok").Inc()
	return cmd, nil
}

// StartRamp moves the speed towards target in SpeedStep increments, one step
// per interval. It returns the ramp id.
func (s *ControlService) StartRamp(ctx context.Context, dir domain.Direction, target int, interval time.Duration) (string, error) {
	if s.ramps == nil {
		return "", fmt.Errorf("%w: ramps are not configured", domain.ErrInvalidState)
	}
	if !dir.Valid() || dir == domain.DirStop {
		return "", fmt.Errorf("%w: ramp needs a moving direction", domain.ErrValidation)
	}
	if err := validateSpeed(target); err != nil {
		return "", err
	}
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	cur, err := s.Current(ctx)
	if err != nil {
		return "", err
	}
	if cur.Paused {
		return "", fmt.Errorf("%w: manual control is paused", domain.ErrInvalidState)
	}
	from := cur.Speed
	if cur.Direction != dir {
		from = 0
	}
	return s.ramps.StartRamp(ctx, domain.Ramp{Direction: dir, From: from, To: target, Step: SpeedStep, Interval: interval})
}

// ApplyRampStep is invoked by the ramp scheduler for every step.
func (s *ControlService) ApplyRampStep(ctx context.Context, dir domain.Direction, speed int) error {
	_, err := s.Drive(ctx, "ramp", dir, speed)
	return err
}

// Position returns the robot's last reported position.
func (s *ControlService) Position(ctx context.Context) (*domain.LatLng, error) {
	p, err := s.control.RobotPosition(ctx)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: robot position not reported", domain.ErrNotFound)
	}
	return p, nil
}

// Video returns the stream URL selected by the AI toggle.
func (s *ControlService) Video(ctx context.Context) (*domain.VideoSource, error) {
	ai, err := s.control.VideoAIEnabled(ctx)
	if err != nil {
		return nil, err
	}
	return s.videoSource(ai), nil
}

// SetVideoAI flips the AI overlay toggle.
func (s *ControlService) SetVideoAI(ctx context.Context, enabled bool) (*domain.VideoSource, error) {
	if err := s.control.SetVideoAIEnabled(ctx, enabled); err != nil {
		return nil, err
	}
	return s.videoSource(enabled), nil
}

func (s *ControlService) videoSource(ai bool) *domain.VideoSource {
	if ai && s.video.AI != "" {
		return &domain.VideoSource{URL: s.video.AI, AIEnabled: true}
	}
	return &domain.VideoSource{URL: s.video.Raw, AIEnabled: ai}
}

func (s *ControlService) update(ctx context.Context, kind, by string, mutate func(*domain.DriveCommand) error) (*domain.DriveCommand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd, err := s.Current(ctx)
	if err != nil {
		metrics.ControlCommands.WithLabelValues(kind, "error").Inc()
		return nil, err
	}
	if err := mutate(cmd); err != nil {
		metrics.ControlCommands.WithLabelValues(kind, "rejected").Inc()
		return nil, err
	}
	cmd.IssuedBy = by
	cmd.Timestamp = domain.EpochMillis(s.now())

	if err := s.control.WriteDrive(ctx, cmd); err != nil {
		metrics.ControlCommands.WithLabelValues(kind, "error").Inc()
		return nil, err
	}
	if s.publisher != nil {
		if err := s.publisher.PublishDrive(ctx, cmd); err != nil {
			slog.Warn("publish drive command failed", "kind", kind, "error", err)
		}
	}
	metrics.ControlCommands.WithLabelValues(kind, "ok").Inc()
	return cmd, nil
}

func validateSpeed(speed int) error {
	if speed < 0 || speed > MaxSpeed {
		return fmt.Errorf("%w: speed must be between 0 and %d", domain.ErrValidation, MaxSpeed)
	}
	return nil
}

// RampStepper applies one ramp step.
type RampStepper interface {
	ApplyRampStep(ctx context.Context, dir domain.Direction, speed int) error
}

// LocalRampScheduler runs ramps in-process on a ticker. Starting a ramp
// cancels the one in progress.
type LocalRampScheduler struct {
	stepper RampStepper

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLocalRampScheduler creates a scheduler that drives stepper.
func NewLocalRampScheduler(stepper RampStepper) *LocalRampScheduler {
	return &LocalRampScheduler{stepper: stepper}
}

// StartRamp implements ports.RampScheduler. The ramp outlives ctx; it stops
// when finished, superseded or on Stop.
func (l *LocalRampScheduler) StartRamp(ctx context.Context, ramp domain.Ramp) (string, error) {
	id := "local-" + uuid.NewString()
	rctx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.cancel = cancel
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer cancel()
		ticker := time.NewTicker(ramp.Interval)
		defer ticker.Stop()
		for _, speed := range ramp.Steps() {
			select {
			case <-rctx.Done():
				return
			case <-ticker.C:
			}
			if err := l.stepper.ApplyRampStep(rctx, ramp.Direction, speed); err != nil {
				slog.Warn("ramp step failed; ramp aborted", "ramp", id, "speed", speed, "error", err)
				return
			}
		}
	}()
	return id, nil
}

// Stop cancels the running ramp and waits for it to exit.
func (l *LocalRampScheduler) Stop() {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.mu.Unlock()
	l.wg.Wait()
}
