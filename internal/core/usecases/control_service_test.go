package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oceanclean/oceanclean/internal/adapters/docstore"
	"github.com/oceanclean/oceanclean/internal/core/domain"
	"github.com/oceanclean/oceanclean/internal/core/usecases"
)

// --- Mock CommandPublisher ---

type recordingPublisher struct {
	mu     sync.Mutex
	drives []domain.DriveCommand
	modes  []domain.ModeCommand
	err    error
}

func (p *recordingPublisher) PublishDrive(ctx context.Context, cmd *domain.DriveCommand) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drives = append(p.drives, *cmd)
	return p.err
}

func (p *recordingPublisher) PublishMode(ctx context.Context, cmd *domain.ModeCommand) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modes = append(p.modes, *cmd)
	return p.err
}

func (p *recordingPublisher) speeds() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, len(p.drives))
	for i, d := range p.drives {
		out[i] = d.Speed
	}
	return out
}

// --- Mock RampScheduler ---

type capturedRamps struct {
	ramps []domain.Ramp
}

func (c *capturedRamps) StartRamp(ctx context.Context, r domain.Ramp) (string, error) {
	c.ramps = append(c.ramps, r)
	return "ramp-1", nil
}

// --- Tests ---

func newControl(t *testing.T, pub *recordingPublisher, maps ...domain.Map) (*usecases.ControlService, *docstore.ControlRepo) {
	t.Helper()
	store := docstore.NewMemory()
	t.Cleanup(store.Close)
	repo := docstore.NewControlRepo(store)
	var svc *usecases.ControlService
	if pub != nil {
		svc = usecases.NewControlService(repo, newFakeMapRepo(maps...), pub, usecases.VideoURLs{Raw: "rtsp://raw", AI: "rtsp://ai"})
	} else {
		svc = usecases.NewControlService(repo, newFakeMapRepo(maps...), nil, usecases.VideoURLs{Raw: "rtsp://raw", AI: "rtsp://ai"})
	}
	return svc, repo
}

func TestControlService_DefaultState(t *testing.T) {
	svc, _ := newControl(t, nil)
	cmd, err := svc.Current(context.Background())
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if cmd.Direction != domain.DirStop || cmd.Speed != 0 || cmd.Depth != usecases.DefaultDepth {
		t.Errorf("unexpected idle default %+v", cmd)
	}
}

func TestControlService_DriveWritesAndPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	svc, repo := newControl(t, pub)
	ctx := context.Background()

	cmd, err := svc.Drive(ctx, "ops", domain.DirForward, 40)
	if err != nil {
		t.Fatalf("drive: %v", err)
	}
	if cmd.IssuedBy != "ops" || cmd.Timestamp == 0 {
		t.Errorf("expected issuer and timestamp, got %+v", cmd)
	}
	stored, _ := repo.ReadDrive(ctx)
	if stored.Direction != domain.DirForward || stored.Speed != 40 {
		t.Errorf("unexpected stored command %+v", stored)
	}
	if len(pub.drives) != 1 {
		t.Errorf("expected one published command, got %d", len(pub.drives))
	}

	cmd, _ = svc.Drive(ctx, "ops", domain.DirStop, 80)
	if cmd.Speed != 0 {
		t.Errorf("stop must zero the speed, got %d", cmd.Speed)
	}
}

func TestControlService_PublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("no responders")}
	svc, repo := newControl(t, pub)

	if _, err := svc.Drive(context.Background(), "ops", domain.DirLeft, 10); err != nil {
		t.Fatalf("drive: %v", err)
	}
	stored, _ := repo.ReadDrive(context.Background())
	if stored == nil || stored.Direction != domain.DirLeft {
		t.Error("expected the document written despite the publish failure")
	}
}

func TestControlService_DriveValidation(t *testing.T) {
	svc, _ := newControl(t, nil)
	ctx := context.Background()

	if _, err := svc.Drive(ctx, "ops", "sideways", 10); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("direction: expected validation error, got %v", err)
	}
	if _, err := svc.Drive(ctx, "ops", domain.DirForward, 101); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("speed: expected validation error, got %v", err)
	}
	if _, err := svc.SetDepth(ctx, "ops", 21); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("depth range: expected validation error, got %v", err)
	}
	if _, err := svc.SetDepth(ctx, "ops", 2.3); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("depth step: expected validation error, got %v", err)
	}
	cmd, err := svc.SetDepth(ctx, "ops", 7.5)
	if err != nil || cmd.Depth != 7.5 {
		t.Errorf("expected depth 7.5, got %+v (%v)", cmd, err)
	}
}

func TestControlService_PauseBlocksDriving(t *testing.T) {
	svc, _ := newControl(t, nil)
	ctx := context.Background()

	_, _ = svc.Drive(ctx, "ops", domain.DirForward, 50)
	cmd, err := svc.SetPaused(ctx, "ops", true)
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if !cmd.Paused || cmd.Speed != 0 || cmd.Direction != domain.DirStop {
		t.Errorf("pausing must stop the robot, got %+v", cmd)
	}

	if _, err := svc.Drive(ctx, "ops", domain.DirForward, 10); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected invalid state while paused, got %v", err)
	}
	if _, err := svc.Stop(ctx, "ops"); err != nil {
		t.Errorf("stop must be accepted while paused: %v", err)
	}

	_, _ = svc.SetPaused(ctx, "ops", false)
	if _, err := svc.Drive(ctx, "ops", domain.DirForward, 10); err != nil {
		t.Errorf("drive after resume: %v", err)
	}
}

func TestControlService_SetMode(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newControl(t, pub, mapA())
	ctx := context.Background()

	cmd, err := svc.SetMode(ctx, domain.OpAutonomous, "1")
	if err != nil {
		t.Fatalf("mode: %v", err)
	}
	if cmd.MapID != "1" || len(pub.modes) != 1 {
		t.Errorf("unexpected mode command %+v", cmd)
	}

	if _, err := svc.SetMode(ctx, domain.OpAutonomous, "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := svc.SetMode(ctx, "drifting", ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}

	cmd, _ = svc.SetMode(ctx, domain.OpManual, "1")
	if cmd.MapID != "" {
		t.Errorf("manual mode must not carry a map, got %q", cmd.MapID)
	}
}

func TestControlService_StartRamp(t *testing.T) {
	svc, _ := newControl(t, nil)
	ctx := context.Background()

	if _, err := svc.StartRamp(ctx, domain.DirForward, 50, 0); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("expected invalid state without a scheduler, got %v", err)
	}

	ramps := &capturedRamps{}
	svc.UseRamps(ramps)
	_, _ = svc.Drive(ctx, "ops", domain.DirForward, 20)

	id, err := svc.StartRamp(ctx, domain.DirForward, 50, 0)
	if err != nil {
		t.Fatalf("ramp: %v", err)
	}
	if id != "ramp-1" || len(ramps.ramps) != 1 {
		t.Fatalf("expected one ramp scheduled, got %v", ramps.ramps)
	}
	r := ramps.ramps[0]
	if r.From != 20 || r.To != 50 || r.Step != usecases.SpeedStep || r.Interval <= 0 {
		t.Errorf("unexpected ramp %+v", r)
	}

	// changing direction ramps up from standstill
	_, _ = svc.StartRamp(ctx, domain.DirBackward, 30, time.Second)
	if ramps.ramps[1].From != 0 {
		t.Errorf("expected ramp from 0, got %d", ramps.ramps[1].From)
	}

	if _, err := svc.StartRamp(ctx, domain.DirStop, 30, 0); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for stop, got %v", err)
	}
}

func TestControlService_PositionAndVideo(t *testing.T) {
	svc, _ := newControl(t, nil)
	ctx := context.Background()

	if _, err := svc.Position(ctx); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found before the robot reports, got %v", err)
	}

	v, err := svc.Video(ctx)
	if err != nil || v.URL != "rtsp://raw" || v.AIEnabled {
		t.Errorf("expected raw stream by default, got %+v (%v)", v, err)
	}
	v, err = svc.SetVideoAI(ctx, true)
	if err != nil || v.URL != "rtsp://ai" || !v.AIEnabled {
		t.Errorf("expected AI stream, got %+v (%v)", v, err)
	}
	v, _ = svc.Video(ctx)
	if !v.AIEnabled {
		t.Error("expected the toggle persisted")
	}
}

func TestRamp_Steps(t *testing.T) {
	tests := []struct {
		ramp domain.Ramp
		want []int
	}{
		{domain.Ramp{From: 0, To: 20, Step: 5}, []int{5, 10, 15, 20}},
		{domain.Ramp{From: 20, To: 8, Step: 5}, []int{15, 10, 8}},
		{domain.Ramp{From: 30, To: 30, Step: 5}, []int{30}},
	}
	for _, tt := range tests {
		got := tt.ramp.Steps()
		if len(got) != len(tt.want) {
			t.Errorf("%+v: expected %v, got %v", tt.ramp, tt.want, got)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%+v: expected %v, got %v", tt.ramp, tt.want, got)
				break
			}
		}
	}
}

func TestLocalRampScheduler_DrivesEveryStep(t *testing.T) {
	pub := &recordingPublisher{}
	svc, repo := newControl(t, pub)
	local := usecases.NewLocalRampScheduler(svc)
	svc.UseRamps(local)
	ctx := context.Background()

	if _, err := svc.StartRamp(ctx, domain.DirForward, 15, time.Millisecond); err != nil {
		t.Fatalf("ramp: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		cmd, _ := repo.ReadDrive(ctx)
		if cmd != nil && cmd.Speed == 15 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("ramp did not reach the target speed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	local.Stop()

	got := pub.speeds()
	want := []int{5, 10, 15}
	if len(got) != len(want) {
		t.Fatalf("expected steps %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected steps %v, got %v", want, got)
		}
	}
}

func TestLocalRampScheduler_StopCancels(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newControl(t, pub)
	local := usecases.NewLocalRampScheduler(svc)

	_, err := local.StartRamp(context.Background(), domain.Ramp{Direction: domain.DirForward, From: 0, To: 100, Step: 5, Interval: time.Hour})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	local.Stop()
	if len(pub.speeds()) != 0 {
		t.Errorf("expected no steps applied, got %v", pub.speeds())
	}
}
