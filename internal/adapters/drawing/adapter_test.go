package drawing_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanclean/oceanclean/internal/adapters/drawing"
	"github.com/oceanclean/oceanclean/internal/core/domain"
)

const triangle = `[{"lat":43.26,"lng":-2.93},{"lat":43.27,"lng":-2.93},{"lat":43.27,"lng":-2.92}]`

func created(layerID int64, latlngs string) drawing.Gesture {
	return drawing.Gesture{Type: drawing.EventCreated, LayerType: "polygon", LayerID: layerID, LatLngs: json.RawMessage(latlngs)}
}

func TestAdapter_PolygonFinalized(t *testing.T) {
	a := drawing.New(drawing.Options{})
	defer a.Close()

	var got []domain.PolygonFinalized
	a.OnPolygonFinalized(func(ctx context.Context, ev domain.PolygonFinalized) (string, error) {
		got = append(got, ev)
		return "area-1", nil
	})

	require.NoError(t, a.Handle(context.Background(), created(7, triangle)))
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].LayerID)
	assert.Equal(t, []domain.LatLng{{Lat: 43.26, Lng: -2.93}, {Lat: 43.27, Lng: -2.93}, {Lat: 43.27, Lng: -2.92}}, got[0].Ring)

	id, ok := a.AreaForLayer(7)
	assert.True(t, ok)
	assert.Equal(t, "area-1", id)
}

func TestAdapter_FinalizedOncePerLayer(t *testing.T) {
	a := drawing.New(drawing.Options{})
	defer a.Close()

	calls := 0
	a.OnPolygonFinalized(func(context.Context, domain.PolygonFinalized) (string, error) {
		calls++
		return "", nil
	})

	require.NoError(t, a.Handle(context.Background(), created(3, triangle)))
	require.NoError(t, a.Handle(context.Background(), created(3, triangle)))
	assert.Equal(t, 1, calls)
}

func TestAdapter_RingShapes(t *testing.T) {
	tests := []struct {
		name    string
		latlngs string
		want    int
	}{
		{"objects", triangle, 3},
		{"pairs", `[[1,1],[1,2],[2,2],[2,1]]`, 4},
		{"nested rings", `[[{"lat":1,"lng":1},{"lat":1,"lng":2},{"lat":2,"lng":2}]]`, 3},
		{"nested pairs", `[[[1,1],[1,2],[2,2]]]`, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ring, err := drawing.ParseRing(json.RawMessage(tt.latlngs))
			require.NoError(t, err)
			assert.Len(t, ring, tt.want)
		})
	}
}

func TestAdapter_RejectsInvalidPolygons(t *testing.T) {
	a := drawing.New(drawing.Options{})
	defer a.Close()

	calls := 0
	a.OnPolygonFinalized(func(context.Context, domain.PolygonFinalized) (string, error) {
		calls++
		return "", nil
	})

	ctx := context.Background()
	err := a.Handle(ctx, created(1, `[[1,1],[1,2]]`))
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = a.Handle(ctx, created(2, `[[91,1],[1,2],[2,2]]`))
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = a.Handle(ctx, drawing.Gesture{Type: drawing.EventCreated, LayerType: "circle", LatLngs: json.RawMessage(triangle)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = a.Handle(ctx, drawing.Gesture{Type: drawing.EventCreated})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = a.Handle(ctx, drawing.Gesture{Type: "draw:edited"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Zero(t, calls)
}

func TestAdapter_MinVerticesOption(t *testing.T) {
	a := drawing.New(drawing.Options{MinVertices: 4})
	defer a.Close()
	err := a.Handle(context.Background(), created(1, triangle))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAdapter_SyntheticLayerIDs(t *testing.T) {
	a := drawing.New(drawing.Options{})
	defer a.Close()

	var layers []int64
	a.OnPolygonFinalized(func(ctx context.Context, ev domain.PolygonFinalized) (string, error) {
		layers = append(layers, ev.LayerID)
		return "", nil
	})
	require.NoError(t, a.Handle(context.Background(), created(0, triangle)))
	require.NoError(t, a.Handle(context.Background(), created(0, triangle)))
	require.Len(t, layers, 2)
	assert.NotEqual(t, layers[0], layers[1])
}

func TestAdapter_HandlerErrorsAreJoined(t *testing.T) {
	a := drawing.New(drawing.Options{})
	defer a.Close()

	boom := errors.New("boom")
	a.OnPolygonFinalized(func(context.Context, domain.PolygonFinalized) (string, error) { return "", boom })
	err := a.Handle(context.Background(), created(1, triangle))
	assert.ErrorIs(t, err, boom)
}

func TestAdapter_Deleted(t *testing.T) {
	a := drawing.New(drawing.Options{})
	defer a.Close()

	var removed []string
	a.OnAreaRemoved(func(ctx context.Context, areaID string) error {
		removed = append(removed, areaID)
		return nil
	})

	ctx := context.Background()
	a.Bind(10, "a1")
	require.NoError(t, a.Handle(ctx, drawing.Gesture{Type: drawing.EventBound, LayerID: 11, AreaID: "a2"}))

	// unknown layers are ignored
	require.NoError(t, a.Handle(ctx, drawing.Gesture{Type: drawing.EventDeleted, LayerIDs: []int64{10, 11, 99}}))
	assert.ElementsMatch(t, []string{"a1", "a2"}, removed)

	_, ok := a.AreaForLayer(10)
	assert.False(t, ok)
}

func TestAdapter_BoundNeedsIDs(t *testing.T) {
	a := drawing.New(drawing.Options{})
	defer a.Close()
	err := a.Handle(context.Background(), drawing.Gesture{Type: drawing.EventBound, LayerID: 1})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAdapter_Deregister(t *testing.T) {
	a := drawing.New(drawing.Options{})
	defer a.Close()

	calls := 0
	off := a.OnPolygonFinalized(func(context.Context, domain.PolygonFinalized) (string, error) {
		calls++
		return "", nil
	})
	a.OnAreaRemoved(func(context.Context, string) error { return nil })
	assert.Equal(t, 2, a.Listeners())

	off()
	assert.Equal(t, 1, a.Listeners())
	require.NoError(t, a.Handle(context.Background(), created(1, triangle)))
	assert.Zero(t, calls)
}

func TestAdapter_Close(t *testing.T) {
	a := drawing.New(drawing.Options{})
	calls := 0
	a.OnPolygonFinalized(func(context.Context, domain.PolygonFinalized) (string, error) {
		calls++
		return "", nil
	})
	a.Bind(1, "a1")

	a.Close()
	a.Close()

	assert.Zero(t, a.Listeners())
	_, ok := a.AreaForLayer(1)
	assert.False(t, ok)

	err := a.Handle(context.Background(), created(2, triangle))
	assert.ErrorIs(t, err, drawing.ErrAdapterClosed)
	err = a.Handle(context.Background(), drawing.Gesture{Type: drawing.EventDeleted, LayerID: 1})
	assert.ErrorIs(t, err, drawing.ErrAdapterClosed)
	assert.Zero(t, calls)

	// registering after close is a no-op
	off := a.OnPolygonFinalized(func(context.Context, domain.PolygonFinalized) (string, error) { return "", nil })
	off()
	assert.Zero(t, a.Listeners())
}

func TestAdapter_RetryAfterHandlerFailure(t *testing.T) {
	a := drawing.New(drawing.Options{})
	defer a.Close()

	down := errors.New("store unavailable")
	calls := 0
	a.OnPolygonFinalized(func(context.Context, domain.PolygonFinalized) (string, error) {
		calls++
		if calls == 1 {
			return "", down
		}
		return "area-9", nil
	})

	err := a.Handle(context.Background(), created(9, triangle))
	require.ErrorIs(t, err, down)
	_, ok := a.AreaForLayer(9)
	assert.False(t, ok)

	require.NoError(t, a.Handle(context.Background(), created(9, triangle)))
	assert.Equal(t, 2, calls)
	id, ok := a.AreaForLayer(9)
	assert.True(t, ok)
	assert.Equal(t, "area-9", id)

	// once accepted, further resends are duplicates
	require.NoError(t, a.Handle(context.Background(), created(9, triangle)))
	assert.Equal(t, 2, calls)
}

func TestAdapter_Unbind(t *testing.T) {
	a := drawing.New(drawing.Options{})
	defer a.Close()

	var removed []string
	a.OnAreaRemoved(func(_ context.Context, areaID string) error {
		removed = append(removed, areaID)
		return nil
	})
	a.Bind(5, "area-5")
	a.Bind(6, "area-6")

	a.Unbind("area-5")
	_, ok := a.AreaForLayer(5)
	assert.False(t, ok)

	require.NoError(t, a.Handle(context.Background(), drawing.Gesture{Type: drawing.EventDeleted, LayerIDs: []int64{5, 6}}))
	assert.Equal(t, []string{"area-6"}, removed)
}
