package usecases

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/oceanclean/oceanclean/internal/core/domain"
	"github.com/oceanclean/oceanclean/internal/core/ports"
	"github.com/oceanclean/oceanclean/internal/pkg/metrics"
)

// ErrEditorClosed is returned by every operation on a closed editor. Results of
// store calls that complete after Close are discarded.
var ErrEditorClosed = errors.New("map editor closed")

// EditorOption customises a MapEditor.
type EditorOption func(*MapEditor)

// WithClock overrides the time source used for createdAt stamps.
func WithClock(now func() time.Time) EditorOption {
	return func(e *MapEditor) { e.now = now }
}

// WithIDGenerator overrides the generator used for map and area ids.
func WithIDGenerator(gen func() string) EditorOption {
	return func(e *MapEditor) { e.newID = gen }
}

// MapEditor is the map editing view-model: a roster of maps, at most one
// selected map, and a Browsing/Editing mode with a draft name.
//
// New maps stay local until their first persisting operation (SaveMap or a
// drawn area). Areas are persisted as soon as they are drawn; name edits only
// on SaveMap. A failed store call leaves the editor exactly as it was.
type MapEditor struct {
	repo  ports.MapRepository
	now   func() time.Time
	newID func() string

	closed atomic.Bool

	mu       sync.Mutex
	mode     domain.EditorMode
	roster   []domain.Map
	selected string
	current  *domain.Map
	draft    string
	unsaved  map[string]struct{}
	// selection to restore when an unsaved new map is cancelled
	beforeCreate string
}

// NewMapEditor creates an editor in Browsing mode with an empty roster.
func NewMapEditor(repo ports.MapRepository, opts ...EditorOption) *MapEditor {
	e := &MapEditor{
		repo:    repo,
		now:     time.Now,
		newID:   uuid.NewString,
		mode:    domain.ModeBrowsing,
		roster:  []domain.Map{},
		unsaved: make(map[string]struct{}),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Load replaces the roster with the maps in the store. Unsaved local maps are
// kept. In Browsing mode the selection falls back to the first map when the
// selected one is gone.
func (e *MapEditor) Load(ctx context.Context) (domain.EditorState, error) {
	if e.closed.Load() {
		return domain.EditorState{}, ErrEditorClosed
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	maps, err := e.repo.ListMaps(ctx)
	if err != nil {
		return e.fail("load", err)
	}
	if e.closed.Load() {
		return domain.EditorState{}, ErrEditorClosed
	}
	e.merge(maps)
	return e.done("load"), nil
}

// ApplyRemote merges a pushed snapshot of the maps collection. While editing,
// the map being edited is left alone so the draft is not clobbered.
func (e *MapEditor) ApplyRemote(maps []domain.Map) domain.EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed.Load() {
		return domain.EditorState{}
	}
	e.merge(maps)
	return e.snapshot()
}

func (e *MapEditor) merge(maps []domain.Map) {
	roster := make([]domain.Map, 0, len(maps)+len(e.unsaved))
	seen := make(map[string]struct{}, len(maps))
	for _, m := range maps {
		roster = append(roster, m.Clone())
		seen[m.ID] = struct{}{}
	}
	sortMaps(roster)
	for _, m := range e.roster {
		if _, local := e.unsaved[m.ID]; !local {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			delete(e.unsaved, m.ID)
			continue
		}
		roster = append(roster, m)
	}
	e.roster = roster

	if e.mode == domain.ModeEditing {
		return
	}
	if i := e.index(e.selected); i >= 0 {
		m := e.roster[i].Clone()
		e.current = &m
		return
	}
	e.selectFirst()
}

// SelectMap makes id the current map. Only valid while browsing; unknown ids
// are ignored.
func (e *MapEditor) SelectMap(id string) (domain.EditorState, error) {
	if e.closed.Load() {
		return domain.EditorState{}, ErrEditorClosed
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode != domain.ModeBrowsing {
		return e.invalid("select")
	}
	i := e.index(id)
	if i < 0 {
		return e.snapshot(), nil
	}
	e.selectAt(i)
	return e.done("select"), nil
}

// CreateMap adds a new empty map to the roster, selects it and starts editing
// it. Nothing is written to the store.
func (e *MapEditor) CreateMap() (domain.EditorState, error) {
	if e.closed.Load() {
		return domain.EditorState{}, ErrEditorClosed
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode != domain.ModeBrowsing {
		return e.invalid("create")
	}
	m := domain.Map{
		ID:        e.newID(),
		Name:      domain.DefaultMapName,
		Areas:     []domain.Area{},
		CreatedAt: domain.EpochMillis(e.now()),
	}
	e.beforeCreate = e.selected
	e.roster = append(e.roster, m)
	e.unsaved[m.ID] = struct{}{}
	e.selectAt(len(e.roster) - 1)
	e.mode = domain.ModeEditing
	e.draft = m.Name
	return e.done("create"), nil
}

// EditMap selects id and starts editing it. Only valid while browsing.
func (e *MapEditor) EditMap(id string) (domain.EditorState, error) {
	if e.closed.Load() {
		return domain.EditorState{}, ErrEditorClosed
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode != domain.ModeBrowsing {
		return e.invalid("edit")
	}
	i := e.index(id)
	if i < 0 {
		return e.snapshot(), nil
	}
	e.selectAt(i)
	e.mode = domain.ModeEditing
	e.draft = e.current.Name
	e.beforeCreate = ""
	return e.done("edit"), nil
}

// RenameDraft changes the draft name without persisting it.
func (e *MapEditor) RenameDraft(name string) (domain.EditorState, error) {
	if e.closed.Load() {
		return domain.EditorState{}, ErrEditorClosed
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode != domain.ModeEditing {
		return e.invalid("rename")
	}
	e.draft = name
	return e.done("rename"), nil
}

// SaveMap persists the current map under the trimmed draft name and returns to
// browsing. A blank draft name fails with domain.ErrValidation before any
// store call.
func (e *MapEditor) SaveMap(ctx context.Context) (domain.EditorState, error) {
	if e.closed.Load() {
		return domain.EditorState{}, ErrEditorClosed
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode != domain.ModeEditing || e.current == nil {
		return e.invalid("save")
	}
	name := strings.TrimSpace(e.draft)
	if name == "" {
		metrics.EditorOperations.WithLabelValues("save", "invalid").Inc()
		return e.snapshot(), fmt.Errorf("%w: map name must not be empty", domain.ErrValidation)
	}

	m := e.current.Clone()
	m.Name = name
	if err := e.repo.SaveMap(ctx, &m); err != nil {
		return e.fail("save", err)
	}
	if e.closed.Load() {
		return domain.EditorState{}, ErrEditorClosed
	}

	e.commit(m)
	e.mode = domain.ModeBrowsing
	e.draft = ""
	e.beforeCreate = ""
	return e.done("save"), nil
}

// CancelEdit discards the draft name and returns to browsing. A new map that
// was never persisted is dropped from the roster.
func (e *MapEditor) CancelEdit() (domain.EditorState, error) {
	if e.closed.Load() {
		return domain.EditorState{}, ErrEditorClosed
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode != domain.ModeEditing {
		return e.invalid("cancel")
	}
	e.mode = domain.ModeBrowsing
	e.draft = ""

	id := e.selected
	if _, local := e.unsaved[id]; local {
		e.remove(id)
		if i := e.index(e.beforeCreate); i >= 0 {
			e.selectAt(i)
		} else {
			e.selectFirst()
		}
	} else if i := e.index(id); i >= 0 {
		e.selectAt(i)
	}
	e.beforeCreate = ""
	return e.done("cancel"), nil
}

// DeleteMap removes id from the store and the roster. When the deleted map was
// selected, the first remaining map becomes current. Unknown ids are ignored.
func (e *MapEditor) DeleteMap(ctx context.Context, id string) (domain.EditorState, error) {
	if e.closed.Load() {
		return domain.EditorState{}, ErrEditorClosed
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.index(id) < 0 {
		return e.snapshot(), nil
	}
	if _, local := e.unsaved[id]; !local {
		if err := e.repo.DeleteMap(ctx, id); err != nil {
			return e.fail("delete", err)
		}
		if e.closed.Load() {
			return domain.EditorState{}, ErrEditorClosed
		}
	}

	e.remove(id)
	if e.selected == id {
		e.mode = domain.ModeBrowsing
		e.draft = ""
		e.beforeCreate = ""
		e.selectFirst()
	}
	return e.done("delete"), nil
}

// AreaCreated appends a drawn polygon to the current map as a new area and
// persists the map immediately. It returns the new area's id.
func (e *MapEditor) AreaCreated(ctx context.Context, ev domain.PolygonFinalized) (string, error) {
	if e.closed.Load() {
		return "", ErrEditorClosed
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode != domain.ModeEditing || e.current == nil {
		metrics.EditorOperations.WithLabelValues("area_created", "invalid_state").Inc()
		return "", fmt.Errorf("%w: areas can only be drawn while editing", domain.ErrInvalidState)
	}
	if err := domain.ValidateRing(ev.Ring); err != nil {
		metrics.EditorOperations.WithLabelValues("area_created", "invalid").Inc()
		return "", err
	}

	m := e.current.Clone()
	area := domain.Area{
		ID:          e.newID(),
		Name:        domain.DefaultAreaName(len(m.Areas)),
		Coordinates: slices.Clone(ev.Ring),
		CreatedAt:   domain.EpochMillis(e.now()),
	}
	m.Areas = append(m.Areas, area)
	if err := e.repo.SaveMap(ctx, &m); err != nil {
		_, err = e.fail("area_created", err)
		return "", err
	}
	if e.closed.Load() {
		return "", ErrEditorClosed
	}

	e.commit(m)
	e.done("area_created")
	return area.ID, nil
}

// AreaDeleted removes an area from the current map and persists the map.
// Unknown area ids are ignored.
func (e *MapEditor) AreaDeleted(ctx context.Context, areaID string) (domain.EditorState, error) {
	if e.closed.Load() {
		return domain.EditorState{}, ErrEditorClosed
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.mode != domain.ModeEditing || e.current == nil {
		return e.invalid("area_deleted")
	}
	i := e.current.AreaIndex(areaID)
	if i < 0 {
		return e.snapshot(), nil
	}

	m := e.current.Clone()
	m.Areas = slices.Delete(m.Areas, i, i+1)
	if err := e.repo.SaveMap(ctx, &m); err != nil {
		return e.fail("area_deleted", err)
	}
	if e.closed.Load() {
		return domain.EditorState{}, ErrEditorClosed
	}

	e.commit(m)
	return e.done("area_deleted"), nil
}

// State returns a snapshot of the editor.
func (e *MapEditor) State() domain.EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// Close marks the editor closed. It does not wait for in-flight store calls;
// their results are dropped.
func (e *MapEditor) Close() {
	e.closed.Store(true)
}

// commit records a successfully persisted map in the roster and as current.
func (e *MapEditor) commit(m domain.Map) {
	delete(e.unsaved, m.ID)
	if i := e.index(m.ID); i >= 0 {
		e.roster[i] = m.Clone()
	} else {
		e.roster = append(e.roster, m.Clone())
	}
	e.selected = m.ID
	e.current = &m
}

func (e *MapEditor) index(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(e.roster, func(m domain.Map) bool { return m.ID == id })
}

func (e *MapEditor) remove(id string) {
	if i := e.index(id); i >= 0 {
		e.roster = slices.Delete(e.roster, i, i+1)
	}
	delete(e.unsaved, id)
}

func (e *MapEditor) selectAt(i int) {
	m := e.roster[i].Clone()
	e.selected = m.ID
	e.current = &m
}

func (e *MapEditor) selectFirst() {
	if len(e.roster) == 0 {
		e.selected = ""
		e.current = nil
		return
	}
	e.selectAt(0)
}

func (e *MapEditor) snapshot() domain.EditorState {
	st := domain.EditorState{
		Mode:       e.mode,
		Maps:       make([]domain.Map, len(e.roster)),
		SelectedID: e.selected,
		DraftName:  e.draft,
	}
	for i, m := range e.roster {
		st.Maps[i] = m.Clone()
	}
	if e.current != nil {
		c := e.current.Clone()
		st.Current = &c
	}
	return st
}

func (e *MapEditor) done(op string) domain.EditorState {
	metrics.EditorOperations.WithLabelValues(op, "ok").Inc()
	return e.snapshot()
}

func (e *MapEditor) invalid(op string) (domain.EditorState, error) {
	metrics.EditorOperations.WithLabelValues(op, "invalid_state").Inc()
	return e.snapshot(), fmt.Errorf("%w: %s not allowed while %s", domain.ErrInvalidState, op, e.mode)
}

func (e *MapEditor) fail(op string, err error) (domain.EditorState, error) {
	metrics.EditorOperations.WithLabelValues(op, "error").Inc()
	slog.Warn("map editor store call failed", "op", op, "error", err)
	if !errors.Is(err, domain.ErrStoreUnavailable) && !errors.Is(err, domain.ErrValidation) {
		err = fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return e.snapshot(), err
}

func sortMaps(maps []domain.Map) {
	slices.SortFunc(maps, func(a, b domain.Map) int {
		return cmp.Or(cmp.Compare(a.CreatedAt, b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
}
