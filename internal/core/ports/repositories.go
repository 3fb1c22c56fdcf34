package ports

import (
	"context"

	"github.com/oceanclean/oceanclean/internal/core/domain"
)

// MapRepository persists Map documents under the maps collection.
type MapRepository interface {
	ListMaps(ctx context.Context) ([]domain.Map, error)
	// GetMap returns nil and no error when the map does not exist.
	GetMap(ctx context.Context, id string) (*domain.Map, error)
	// SaveMap overwrites the whole document; it never merges.
	SaveMap(ctx context.Context, m *domain.Map) error
	DeleteMap(ctx context.Context, id string) error
	// WatchMaps calls fn with the full collection now and after every change.
	WatchMaps(ctx context.Context, fn func(maps []domain.Map)) (Subscription, error)
}

// UserRepository reads and writes dashboard accounts.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Save(ctx context.Context, u *domain.User) error
}

// StatisticsRepository reads the telemetry feeds written by the robot.
type StatisticsRepository interface {
	DailyReadings(ctx context.Context) ([]domain.SensorReading, error)
	WeeklyReadings(ctx context.Context) ([]domain.SensorReading, error)
	WasteTypes(ctx context.Context) ([]domain.WasteType, error)
	HistoricalReadings(ctx context.Context) ([]domain.SensorReading, error)
	// ReplaceSeries overwrites one statistics document with keyed readings.
	ReplaceSeries(ctx context.Context, name string, v any) error
	WatchStatistics(ctx context.Context, fn func()) (Subscription, error)
}

// ControlRepository writes the command documents read by the robot agent.
type ControlRepository interface {
	WriteDrive(ctx context.Context, cmd *domain.DriveCommand) error
	ReadDrive(ctx context.Context) (*domain.DriveCommand, error)
	WriteMode(ctx context.Context, cmd *domain.ModeCommand) error
	RobotPosition(ctx context.Context) (*domain.LatLng, error)
	VideoAIEnabled(ctx context.Context) (bool, error)
	SetVideoAIEnabled(ctx context.Context, enabled bool) error
}
