package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oceanclean/oceanclean/internal/core/domain"
	"github.com/oceanclean/oceanclean/internal/core/ports"
	"github.com/oceanclean/oceanclean/internal/pkg/doctree"
)

const statisticsCollection = "statistics"

// Statistics series names under the statistics collection.
const (
	SeriesDaily      = "dailyReadings"
	SeriesWeekly     = "weeklyReadings"
	SeriesWasteTypes = "wasteTypes"
	SeriesHistorical = "historicalData"
)

// StatisticsRepo implements ports.StatisticsRepository. Every series is a
// keyed object whose values are the readings; keys carry no order.
type StatisticsRepo struct {
	store ports.DocumentStore
}

func NewStatisticsRepo(store ports.DocumentStore) *StatisticsRepo {
	return &StatisticsRepo{store: store}
}

func (r *StatisticsRepo) DailyReadings(ctx context.Context) ([]domain.SensorReading, error) {
	return readSeries[domain.SensorReading](ctx, r.store, SeriesDaily)
}

func (r *StatisticsRepo) WeeklyReadings(ctx context.Context) ([]domain.SensorReading, error) {
	return readSeries[domain.SensorReading](ctx, r.store, SeriesWeekly)
}

func (r *StatisticsRepo) WasteTypes(ctx context.Context) ([]domain.WasteType, error) {
	return readSeries[domain.WasteType](ctx, r.store, SeriesWasteTypes)
}

func (r *StatisticsRepo) HistoricalReadings(ctx context.Context) ([]domain.SensorReading, error) {
	return readSeries[domain.SensorReading](ctx, r.store, SeriesHistorical)
}

func (r *StatisticsRepo) ReplaceSeries(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, doctree.Join(statisticsCollection, name), data)
}

func (r *StatisticsRepo) WatchStatistics(ctx context.Context, fn func()) (ports.Subscription, error) {
	return r.store.Subscribe(ctx, statisticsCollection, func(json.RawMessage, bool) { fn() })
}

func readSeries[T any](ctx context.Context, store ports.DocumentStore, name string) ([]T, error) {
	raw, ok, err := store.Get(ctx, doctree.Join(statisticsCollection, name))
	if err != nil {
		return nil, err
	}
	if !ok {
		return []T{}, nil
	}
	var keyed map[string]T
	if err := json.Unmarshal(raw, &keyed); err != nil {
		// Older writers stored plain arrays.
		var list []T
		if lerr := json.Unmarshal(raw, &list); lerr != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return list, nil
	}
	out := make([]T, 0, len(keyed))
	for _, v := range keyed {
		out = append(out, v)
	}
	return out, nil
}
