package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oceanclean/oceanclean/internal/core/domain"
	"github.com/oceanclean/oceanclean/internal/core/ports"
)

const (
	robotControlPath  = "robot_control"
	modePath          = "mode"
	robotPositionPath = "robotPosition"
	videoSettingsPath = "settings/video"
)

// ControlRepo implements ports.ControlRepository.
type ControlRepo struct {
	store ports.DocumentStore
}

func NewControlRepo(store ports.DocumentStore) *ControlRepo {
	return &ControlRepo{store: store}
}

func (r *ControlRepo) WriteDrive(ctx context.Context, cmd *domain.DriveCommand) error {
	return r.write(ctx, robotControlPath, cmd)
}

func (r *ControlRepo) ReadDrive(ctx context.Context) (*domain.DriveCommand, error) {
	var cmd domain.DriveCommand
	ok, err := r.read(ctx, robotControlPath, &cmd)
	if err != nil || !ok {
		return nil, err
	}
	return &cmd, nil
}

func (r *ControlRepo) WriteMode(ctx context.Context, cmd *domain.ModeCommand) error {
	return r.write(ctx, modePath, cmd)
}

func (r *ControlRepo) RobotPosition(ctx context.Context) (*domain.LatLng, error) {
	var p domain.LatLng
	ok, err := r.read(ctx, robotPositionPath, &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

func (r *ControlRepo) VideoAIEnabled(ctx context.Context) (bool, error) {
	var v struct {
		AIEnabled bool `json:"aiEnabled"`
	}
	if _, err := r.read(ctx, videoSettingsPath, &v); err != nil {
		return false, err
	}
	return v.AIEnabled, nil
}

func (r *ControlRepo) SetVideoAIEnabled(ctx context.Context, enabled bool) error {
	return r.write(ctx, videoSettingsPath, map[string]bool{"aiEnabled": enabled})
}

func (r *ControlRepo) write(ctx context.Context, path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, path, data)
}

func (r *ControlRepo) read(ctx context.Context, path string, v any) (bool, error) {
	raw, ok, err := r.store.Get(ctx, path)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}
