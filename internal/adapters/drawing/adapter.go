// Package drawing translates polygon-drawing gestures sent by the dashboard's
// map canvas into typed, validated events.
package drawing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/oceanclean/oceanclean/internal/core/domain"
)

// ErrAdapterClosed is returned for gestures delivered after teardown.
var ErrAdapterClosed = errors.New("drawing adapter closed")

// Gesture event types emitted by the drawing toolset.
const (
	EventCreated = "draw:created"
	EventDeleted = "draw:deleted"
	// EventBound announces a layer the canvas rendered for an existing area.
	EventBound = "draw:bound"
)

// Gesture is the raw event payload forwarded by the browser.
type Gesture = domain.DrawGesture

// Options configures one adapter instance.
type Options struct {
	// LayerTypes lists the accepted toolset layer types. Empty means polygon only.
	LayerTypes  []string
	MinVertices int
}

// PolygonHandler receives a finalized polygon and returns the id of the area
// it created, so later deletions of the layer can be resolved.
type PolygonHandler = func(ctx context.Context, ev domain.PolygonFinalized) (areaID string, err error)

// RemovalHandler receives the id of an area whose layer was deleted.
type RemovalHandler = func(ctx context.Context, areaID string) error

// Adapter is bound to one canvas and implements ports.DrawingSurface. It must
// be closed when the canvas goes away.
type Adapter struct {
	opts Options

	mu        sync.Mutex
	closed    bool
	nextID    int
	synthetic int64
	onPolygon map[int]PolygonHandler
	onRemove  map[int]RemovalHandler
	layers    map[int64]string // layer id -> area id
	finalized map[int64]struct{}
}

// New returns an adapter configured with opts.
func New(opts Options) *Adapter {
	if len(opts.LayerTypes) == 0 {
		opts.LayerTypes = []string{"polygon"}
	}
	if opts.MinVertices < domain.MinRingVertices {
		opts.MinVertices = domain.MinRingVertices
	}
	return &Adapter{
		opts:      opts,
		onPolygon: make(map[int]PolygonHandler),
		onRemove:  make(map[int]RemovalHandler),
		layers:    make(map[int64]string),
		finalized: make(map[int64]struct{}),
	}
}

// OnPolygonFinalized registers fn. The returned function deregisters it.
func (a *Adapter) OnPolygonFinalized(fn PolygonHandler) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return func() {}
	}
	id := a.nextID
	a.nextID++
	a.onPolygon[id] = fn
	return func() {
		a.mu.Lock()
		delete(a.onPolygon, id)
		a.mu.Unlock()
	}
}

// OnAreaRemoved registers fn. The returned function deregisters it.
func (a *Adapter) OnAreaRemoved(fn RemovalHandler) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return func() {}
	}
	id := a.nextID
	a.nextID++
	a.onRemove[id] = fn
	return func() {
		a.mu.Lock()
		delete(a.onRemove, id)
		a.mu.Unlock()
	}
}

// Bind associates an existing layer with an area, e.g. when the canvas
// renders the areas of a loaded map.
func (a *Adapter) Bind(layerID int64, areaID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.layers[layerID] = areaID
	a.finalized[layerID] = struct{}{}
}

// Unbind forgets every layer bound to areaID, e.g. after the area was
// removed without a canvas gesture.
func (a *Adapter) Unbind(areaID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for layerID, id := range a.layers {
		if id == areaID {
			delete(a.layers, layerID)
			delete(a.finalized, layerID)
		}
	}
}

// AreaForLayer resolves a layer id.
func (a *Adapter) AreaForLayer(layerID int64) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.layers[layerID]
	return id, ok
}

// Listeners reports how many callbacks are registered.
func (a *Adapter) Listeners() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.onPolygon) + len(a.onRemove)
}

// Handle processes one raw gesture.
func (a *Adapter) Handle(ctx context.Context, g Gesture) error {
	switch g.Type {
	case EventCreated:
		return a.created(ctx, g)
	case EventDeleted:
		return a.deleted(ctx, g)
	case EventBound:
		if g.LayerID == 0 || g.AreaID == "" {
			return fmt.Errorf("%w: draw:bound needs layerId and areaId", domain.ErrValidation)
		}
		a.mu.Lock()
		closed := a.closed
		a.mu.Unlock()
		if closed {
			return ErrAdapterClosed
		}
		a.Bind(g.LayerID, g.AreaID)
		return nil
	default:
		return fmt.Errorf("%w: unknown gesture type %q", domain.ErrValidation, g.Type)
	}
}

func (a *Adapter) created(ctx context.Context, g Gesture) error {
	layerType := g.LayerType
	if layerType == "" {
		layerType = "polygon"
	}
	if !slices.Contains(a.opts.LayerTypes, layerType) {
		return fmt.Errorf("%w: layer type %q not accepted", domain.ErrValidation, layerType)
	}

	ring, err := ParseRing(g.LatLngs)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if len(ring) < a.opts.MinVertices {
		return fmt.Errorf("%w: polygon needs at least %d vertices, got %d", domain.ErrValidation, a.opts.MinVertices, len(ring))
	}
	if err := domain.ValidateRing(ring); err != nil {
		return err
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrAdapterClosed
	}
	layerID := g.LayerID
	if layerID == 0 {
		a.synthetic--
		layerID = a.synthetic
	}
	if _, dup := a.finalized[layerID]; dup {
		a.mu.Unlock()
		return nil
	}
	a.finalized[layerID] = struct{}{}
	handlers := make([]PolygonHandler, 0, len(a.onPolygon))
	for _, fn := range a.onPolygon {
		handlers = append(handlers, fn)
	}
	a.mu.Unlock()

	ev := domain.PolygonFinalized{LayerID: layerID, Ring: ring}
	var errs []error
	accepted := len(handlers) == 0
	for _, fn := range handlers {
		areaID, err := fn(ctx, ev)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		accepted = true
		if areaID != "" {
			a.Bind(layerID, areaID)
		}
	}
	if !accepted {
		// nobody took the polygon; a resend of the layer must be processed again
		a.mu.Lock()
		delete(a.finalized, layerID)
		a.mu.Unlock()
	}
	return errors.Join(errs...)
}

func (a *Adapter) deleted(ctx context.Context, g Gesture) error {
	ids := g.LayerIDs
	if len(ids) == 0 && g.LayerID != 0 {
		ids = []int64{g.LayerID}
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrAdapterClosed
	}
	var areas []string
	for _, id := range ids {
		if areaID, ok := a.layers[id]; ok {
			areas = append(areas, areaID)
			delete(a.layers, id)
		}
	}
	handlers := make([]RemovalHandler, 0, len(a.onRemove))
	for _, fn := range a.onRemove {
		handlers = append(handlers, fn)
	}
	a.mu.Unlock()

	var errs []error
	for _, areaID := range areas {
		for _, fn := range handlers {
			if err := fn(ctx, areaID); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close deregisters every callback and forgets all layers. It is idempotent.
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	clear(a.onPolygon)
	clear(a.onRemove)
	clear(a.layers)
	clear(a.finalized)
}

// ParseRing extracts the outer ring from a latlngs payload. It accepts a flat
// list of points or a list of rings, with points as {lat,lng} objects or
// [lat,lng] pairs. Vertex order is preserved and nothing is deduplicated.
func ParseRing(raw json.RawMessage) ([]domain.LatLng, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing latlngs")
	}
	var flat []domain.LatLng
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat, nil
	}
	var rings [][]domain.LatLng
	if err := json.Unmarshal(raw, &rings); err != nil {
		return nil, fmt.Errorf("latlngs: %w", err)
	}
	if len(rings) == 0 {
		return nil, fmt.Errorf("latlngs has no rings")
	}
	return rings[0], nil
}
