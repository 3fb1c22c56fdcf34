package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/oceanclean/oceanclean/internal/core/domain"
	"github.com/oceanclean/oceanclean/internal/core/ports"
	"github.com/oceanclean/oceanclean/internal/pkg/metrics"
)

// EditorSession pairs a map editor with the drawing surface of one dashboard
// client. Listeners receive every state change, including remote pushes.
type EditorSession struct {
	ID      string
	Owner   string
	editor  *MapEditor
	surface ports.DrawingSurface

	stop     context.CancelFunc
	watch    ports.Subscription
	cancels  []func()
	lastSeen atomic.Int64

	lmu       sync.Mutex
	listeners map[int]func(domain.EditorState)
	nextL     int
}

// Editor returns the session's view-model.
func (s *EditorSession) Editor() *MapEditor { return s.editor }

// Gesture forwards a raw drawing gesture to the session's drawing surface and
// returns the resulting editor state.
func (s *EditorSession) Gesture(ctx context.Context, g domain.DrawGesture) (domain.EditorState, error) {
	err := s.surface.Handle(ctx, g)
	return s.editor.State(), err
}

// DeleteArea removes an area of the map being edited and releases the canvas
// layer that was bound to it.
func (s *EditorSession) DeleteArea(ctx context.Context, areaID string) (domain.EditorState, error) {
	st, err := s.editor.AreaDeleted(ctx, areaID)
	if err != nil {
		return st, err
	}
	s.surface.Unbind(areaID)
	return st, nil
}

// Listen registers fn for state pushes. The returned function removes it.
func (s *EditorSession) Listen(fn func(domain.EditorState)) func() {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	id := s.nextL
	s.nextL++
	s.listeners[id] = fn
	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

// Publish pushes st to every listener.
func (s *EditorSession) Publish(st domain.EditorState) {
	s.lmu.Lock()
	fns := make([]func(domain.EditorState), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

func (s *EditorSession) touch(now time.Time) { s.lastSeen.Store(now.UnixNano()) }

func (s *EditorSession) close() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.surface.Close()
	if s.watch != nil {
		s.watch.Close()
	}
	s.stop()
	s.editor.Close()
	s.lmu.Lock()
	clear(s.listeners)
	s.lmu.Unlock()
}

// SessionService owns the editor sessions of connected clients.
type SessionService struct {
	maps       ports.MapRepository
	newSurface func() ports.DrawingSurface
	idle       time.Duration
	now        func() time.Time
	editorOpts []EditorOption

	mu       sync.Mutex
	sessions map[string]*EditorSession
}

// NewSessionService creates a SessionService. Sessions untouched for longer
// than idle are closed by Run; zero disables expiry.
func NewSessionService(maps ports.MapRepository, newSurface func() ports.DrawingSurface, idle time.Duration, opts ...EditorOption) *SessionService {
	return &SessionService{
		maps:       maps,
		newSurface: newSurface,
		idle:       idle,
		now:        time.Now,
		editorOpts: opts,
		sessions:   make(map[string]*EditorSession),
	}
}

// Open creates a session, loads the roster and subscribes to the maps
// collection so remote changes reach the session's listeners.
func (s *SessionService) Open(ctx context.Context, owner string) (*EditorSession, domain.EditorState, error) {
	watchCtx, stop := context.WithCancel(context.Background())
	sess := &EditorSession{
		ID:        uuid.NewString(),
		Owner:     owner,
		editor:    NewMapEditor(s.maps, s.editorOpts...),
		surface:   s.newSurface(),
		stop:      stop,
		listeners: make(map[int]func(domain.EditorState)),
	}
	sess.touch(s.now())

	sess.cancels = append(sess.cancels,
		sess.surface.OnPolygonFinalized(func(ctx context.Context, ev domain.PolygonFinalized) (string, error) {
			id, err := sess.editor.AreaCreated(ctx, ev)
			if err == nil {
				sess.Publish(sess.editor.State())
			}
			return id, err
		}),
		sess.surface.OnAreaRemoved(func(ctx context.Context, areaID string) error {
			st, err := sess.editor.AreaDeleted(ctx, areaID)
			if err == nil {
				sess.Publish(st)
			}
			return err
		}),
	)

	st, err := sess.editor.Load(ctx)
	if err != nil {
		sess.close()
		return nil, domain.EditorState{}, err
	}

	watch, err := s.maps.WatchMaps(watchCtx, func(maps []domain.Map) {
		if next := sess.editor.ApplyRemote(maps); next.Mode != "" {
			sess.Publish(next)
		}
	})
	if err != nil {
		sess.close()
		return nil, domain.EditorState{}, fmt.Errorf("watch maps: %w", err)
	}
	sess.watch = watch

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	n := len(s.sessions)
	s.mu.Unlock()
	metrics.ActiveSessions.Set(float64(n))

	slog.Info("editor session opened", "session", sess.ID, "owner", owner)
	return sess, st, nil
}

// Get returns a live session and refreshes its idle timer.
func (s *SessionService) Get(id string) (*EditorSession, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	sess.touch(s.now())
	return sess, nil
}

// Close tears the session down: drawing callbacks, store subscription and
// editor. Closing an unknown session is a no-op.
func (s *SessionService) Close(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return
	}
	sess.close()
	metrics.ActiveSessions.Set(float64(n))
	slog.Info("editor session closed", "session", id)
}

// Count reports the number of open sessions.
func (s *SessionService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Expire closes every session idle since before now-idle and returns how many
// were closed.
func (s *SessionService) Expire(now time.Time) int {
	if s.idle <= 0 {
		return 0
	}
	cutoff := now.Add(-s.idle).UnixNano()
	var stale []string
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.lastSeen.Load() < cutoff {
			stale = append(stale, id)
		}
	}
	s.mu.Unlock()
	for _, id := range stale {
		s.Close(id)
	}
	return len(stale)
}

// Run expires idle sessions until ctx is done, then closes the rest.
func (s *SessionService) Run(ctx context.Context) {
	interval := s.idle / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Shutdown()
			return
		case <-ticker.C:
			if n := s.Expire(s.now()); n > 0 {
				slog.Info("expired idle editor sessions", "count", n)
			}
		}
	}
}

// Shutdown closes every session.
func (s *SessionService) Shutdown() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.Close(id)
	}
}
