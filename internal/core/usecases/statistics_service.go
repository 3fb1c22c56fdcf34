package usecases

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/oceanclean/oceanclean/internal/core/domain"
	"github.com/oceanclean/oceanclean/internal/core/ports"
	"github.com/oceanclean/oceanclean/internal/pkg/metrics"
)

// DailyWindow is how many daily readings the statistics page shows.
const DailyWindow = 24

const statsCacheTTL = 30 // seconds

// Series names accepted by StatisticsService.Seed.
const (
	SeriesDaily      = "dailyReadings"
	SeriesWeekly     = "weeklyReadings"
	SeriesWasteTypes = "wasteTypes"
)

var weekdayOrder = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// StatisticsService serves the telemetry feeds of the statistics page.
type StatisticsService struct {
	stats ports.StatisticsRepository
	cache ports.CacheService
	now   func() time.Time
}

// NewStatisticsService creates a new StatisticsService. cache may be nil.
func NewStatisticsService(stats ports.StatisticsRepository, cache ports.CacheService) *StatisticsService {
	return &StatisticsService{stats: stats, cache: cache, now: time.Now}
}

// Daily returns the last DailyWindow readings in timestamp order.
func (s *StatisticsService) Daily(ctx context.Context) ([]domain.SensorReading, error) {
	return cached(ctx, s, "stats:daily", func(ctx context.Context) ([]domain.SensorReading, error) {
		readings, err := s.stats.DailyReadings(ctx)
		if err != nil {
			return nil, err
		}
		sortByTimestamp(readings)
		if len(readings) > DailyWindow {
			readings = readings[len(readings)-DailyWindow:]
		}
		return readings, nil
	})
}

// Weekly returns the weekly readings ordered Monday first. Readings with an
// unknown day sort before Monday.
func (s *StatisticsService) Weekly(ctx context.Context) ([]domain.SensorReading, error) {
	return cached(ctx, s, "stats:weekly", func(ctx context.Context) ([]domain.SensorReading, error) {
		readings, err := s.stats.WeeklyReadings(ctx)
		if err != nil {
			return nil, err
		}
		slices.SortStableFunc(readings, func(a, b domain.SensorReading) int {
			return cmp.Or(
				cmp.Compare(slices.Index(weekdayOrder, a.Day), slices.Index(weekdayOrder, b.Day)),
				cmp.Compare(a.Timestamp, b.Timestamp),
			)
		})
		return readings, nil
	})
}

// WasteTypes returns the collected-waste breakdown ordered by name.
func (s *StatisticsService) WasteTypes(ctx context.Context) ([]domain.WasteType, error) {
	return cached(ctx, s, "stats:waste", func(ctx context.Context) ([]domain.WasteType, error) {
		types, err := s.stats.WasteTypes(ctx)
		if err != nil {
			return nil, err
		}
		slices.SortFunc(types, func(a, b domain.WasteType) int { return cmp.Compare(a.Name, b.Name) })
		return types, nil
	})
}

// Summary bundles the three live feeds.
func (s *StatisticsService) Summary(ctx context.Context) (*domain.Statistics, error) {
	daily, err := s.Daily(ctx)
	if err != nil {
		return nil, err
	}
	weekly, err := s.Weekly(ctx)
	if err != nil {
		return nil, err
	}
	waste, err := s.WasteTypes(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.Statistics{Daily: daily, Weekly: weekly, WasteTypes: waste}, nil
}

// Historical returns the archived readings whose timestamp lies in [from, to].
func (s *StatisticsService) Historical(ctx context.Context, from, to time.Time) ([]domain.SensorReading, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end before start", domain.ErrValidation)
	}
	all, err := s.stats.HistoricalReadings(ctx)
	if err != nil {
		return nil, err
	}
	lo, hi := from.UnixMilli(), to.UnixMilli()
	out := make([]domain.SensorReading, 0, len(all))
	for _, r := range all {
		if r.Timestamp >= lo && r.Timestamp <= hi {
			out = append(out, r)
		}
	}
	sortByTimestamp(out)
	return out, nil
}

// Watch calls fn after every change to the statistics collection and drops
// the cached feeds first.
func (s *StatisticsService) Watch(ctx context.Context, fn func()) (ports.Subscription, error) {
	return s.stats.WatchStatistics(ctx, func() {
		s.invalidate(context.WithoutCancel(ctx))
		if fn != nil {
			fn()
		}
	})
}

// Seed overwrites the named series (all three when names is empty) with
// generated sample data and returns what was written.
func (s *StatisticsService) Seed(ctx context.Context, rng *rand.Rand, names ...string) (map[string]any, error) {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(s.now().UnixNano()), 0))
	}
	if len(names) == 0 {
		names = []string{SeriesDaily, SeriesWeekly, SeriesWasteTypes}
	}
	written := make(map[string]any, len(names))
	for _, name := range names {
		var data any
		switch name {
		case SeriesDaily:
			data = GenerateDaily(s.now(), rng)
		case SeriesWeekly:
			data = GenerateWeekly(s.now(), rng)
		case SeriesWasteTypes:
			data = GenerateWasteTypes()
		default:
			return written, fmt.Errorf("%w: unknown series %q", domain.ErrValidation, name)
		}
		if err := s.stats.ReplaceSeries(ctx, name, data); err != nil {
			return written, fmt.Errorf("seed %s: %w", name, err)
		}
		written[name] = data
		slog.Info("seeded statistics series", "series", name)
	}
	s.invalidate(ctx)
	return written, nil
}

func (s *StatisticsService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	for _, key := range []string{"stats:daily", "stats:weekly", "stats:waste"} {
		_ = s.cache.Delete(ctx, key)
	}
}

func cached[T any](ctx context.Context, s *StatisticsService, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var out []T
			if err := json.Unmarshal(data, &out); err == nil {
				metrics.CacheHits.WithLabelValues("statistics").Inc()
				return out, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("statistics").Inc()
	}

	out, err := load(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(out); err == nil {
			_ = s.cache.Set(ctx, key, data, statsCacheTTL)
		}
	}
	return out, nil
}

func sortByTimestamp(readings []domain.SensorReading) {
	slices.SortStableFunc(readings, func(a, b domain.SensorReading) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
}

// GenerateDaily builds seven four-hourly readings for the day of now, keyed
// reading0..reading6. The second and third battery packs only report from the
// fourth reading on.
func GenerateDaily(now time.Time, rng *rand.Rand) map[string]domain.SensorReading {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	out := make(map[string]domain.SensorReading, 7)
	for i := range 7 {
		r := domain.SensorReading{
			Time:           fmt.Sprintf("%02d:00", i*4),
			Temperature:    18 + rng.Float64()*2,
			WaterQuality:   85 + rng.Float64()*10,
			BatteryLevel:   float64(85 - i*5),
			WasteCollected: float64(i*2) + rng.Float64()*2,
			Timestamp:      day.Add(time.Duration(i*4) * time.Hour).UnixMilli(),
		}
		if i > 2 {
			b2, b3 := float64(87-i*5), float64(88-i*5)
			r.BatteryLevel2, r.BatteryLevel3 = &b2, &b3
		}
		out[fmt.Sprintf("reading%d", i)] = r
	}
	return out
}

// GenerateWeekly builds one reading per weekday of the week containing now,
// keyed day0..day6 with day0 on Monday.
func GenerateWeekly(now time.Time, rng *rand.Rand) map[string]domain.SensorReading {
	offset := (int(now.Weekday()) + 6) % 7 // days since Monday
	monday := now.AddDate(0, 0, -offset)
	out := make(map[string]domain.SensorReading, 7)
	for i, day := range weekdayOrder {
		out[fmt.Sprintf("day%d", i)] = domain.SensorReading{
			Day:            day,
			Temperature:    18 + rng.Float64()*2,
			WaterQuality:   88 + rng.Float64()*5,
			WasteCollected: 10 + rng.Float64()*6,
			Timestamp:      monday.AddDate(0, 0, i).UnixMilli(),
		}
	}
	return out
}

// GenerateWasteTypes returns the fixed sample breakdown.
func GenerateWasteTypes() map[string]domain.WasteType {
	return map[string]domain.WasteType{
		"plastics": {Name: "Plastics", Value: 45},
		"metals":   {Name: "Metals", Value: 15},
		"organics": {Name: "Organics", Value: 25},
		"other":    {Name: "Other", Value: 15},
	}
}
