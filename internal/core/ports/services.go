package ports

import (
	"context"
	"encoding/json"

	"github.com/oceanclean/oceanclean/internal/core/domain"
)

// DocumentStore is a key-path addressable, tree shaped, subscribable database.
type DocumentStore interface {
	// Get reads the subtree at path. exists is false when nothing is stored there.
	Get(ctx context.Context, path string) (raw json.RawMessage, exists bool, err error)
	// Set replaces the whole subtree at path.
	Set(ctx context.Context, path string, raw json.RawMessage) error
	// Delete removes the subtree at path.
	Delete(ctx context.Context, path string) error
	// Subscribe delivers the current snapshot of path, then a fresh one after
	// every write that touches it.
	Subscribe(ctx context.Context, path string, fn func(raw json.RawMessage, exists bool)) (Subscription, error)
}

// Subscription is a registered store listener.
type Subscription interface {
	Close()
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Close() { f() }

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// CommandPublisher forwards robot commands to the robot agent's queue.
type CommandPublisher interface {
	PublishDrive(ctx context.Context, cmd *domain.DriveCommand) error
	PublishMode(ctx context.Context, cmd *domain.ModeCommand) error
}

// RampScheduler runs a speed ramp, calling back into the control service for each step.
type RampScheduler interface {
	StartRamp(ctx context.Context, ramp domain.Ramp) (string, error)
}

// TokenIssuer signs and validates session tokens.
type TokenIssuer interface {
	Issue(s domain.Session) (string, error)
	Validate(token string) (*domain.Session, error)
}

// DrawingSurface is the drawing toolset bound to one map canvas.
type DrawingSurface interface {
	Handle(ctx context.Context, g domain.DrawGesture) error
	// OnPolygonFinalized registers fn and returns a function that removes it.
	// fn returns the id of the area created for the polygon.
	OnPolygonFinalized(fn func(ctx context.Context, ev domain.PolygonFinalized) (string, error)) func()
	OnAreaRemoved(fn func(ctx context.Context, areaID string) error) func()
	Bind(layerID int64, areaID string)
	// Unbind drops the layers bound to areaID.
	Unbind(areaID string)
	Close()
}
