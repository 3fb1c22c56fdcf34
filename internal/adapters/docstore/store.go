// Package docstore implements the realtime document store client on top of a
// pluggable persistence backend and change notifier, plus the repositories
// that map dashboard entities onto store paths.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/oceanclean/oceanclean/internal/core/domain"
	"github.com/oceanclean/oceanclean/internal/core/ports"
	"github.com/oceanclean/oceanclean/internal/pkg/doctree"
	"github.com/oceanclean/oceanclean/internal/pkg/metrics"
	"github.com/oceanclean/oceanclean/internal/pkg/telemetry"
)

// Backend persists documents keyed by path. A document may hold a whole
// subtree; the Store keeps at most one document on any root-to-leaf line.
type Backend interface {
	// Get reads the document stored exactly at path.
	Get(ctx context.Context, path string) ([]byte, bool, error)
	// Entries returns every document stored at path or beneath it.
	Entries(ctx context.Context, path string) ([]doctree.Entry, error)
	Put(ctx context.Context, path string, raw []byte) error
	// DeleteTree removes the document at path and all documents beneath it.
	DeleteTree(ctx context.Context, path string) error
	Ping(ctx context.Context) error
}

// Op is the kind of write carried by a Change.
type Op string

const (
	OpSet    Op = "set"
	OpDelete Op = "delete"
)

// Change announces a completed write. Origin identifies the writing Store.
type Change struct {
	Path   string
	Op     Op
	At     time.Time
	Origin string
}

// Notifier fans change announcements out to every Store sharing the backend.
type Notifier interface {
	Publish(ctx context.Context, c Change) error
	// Listen registers fn for every published change and returns its cancel function.
	Listen(fn func(Change)) (func(), error)
}

// Store implements ports.DocumentStore.
type Store struct {
	id         string
	backend    Backend
	notifier   Notifier
	stopListen func()

	// serialises read-modify-write of ancestor documents within this process
	mu sync.Mutex

	subsMu sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64
}

var _ ports.DocumentStore = (*Store)(nil)

// New wires a Store to its backend and notifier.
func New(backend Backend, notifier Notifier) (*Store, error) {
	s := &Store{
		id:       uuid.NewString(),
		backend:  backend,
		notifier: notifier,
		subs:     make(map[uint64]*subscription),
	}
	stop, err := notifier.Listen(s.receive)
	if err != nil {
		return nil, fmt.Errorf("listen for changes: %w", err)
	}
	s.stopListen = stop
	return s, nil
}

// NewMemory returns a Store backed by process memory, for tests and local runs.
func NewMemory() *Store {
	s, _ := New(NewMemoryBackend(), NewLocalNotifier())
	return s
}

// Get implements ports.DocumentStore.
func (s *Store) Get(ctx context.Context, path string) (json.RawMessage, bool, error) {
	path = doctree.Clean(path)
	ctx, span := telemetry.Start(ctx, telemetry.SpanStoreGet, attribute.String(telemetry.AttrPath, path))
	defer span.End()

	if err := doctree.Validate(path); err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	for _, anc := range doctree.Ancestors(path) {
		raw, ok, err := s.backend.Get(ctx, anc)
		if err != nil {
			return nil, false, s.fail("get", path, err)
		}
		if !ok {
			continue
		}
		v, found, err := extract(raw, doctree.Rel(path, anc))
		if err != nil {
			return nil, false, err
		}
		metrics.StoreOperations.WithLabelValues("get", "ok").Inc()
		return v, found, nil
	}

	entries, err := s.backend.Entries(ctx, path)
	if err != nil {
		return nil, false, s.fail("get", path, err)
	}
	raw, ok, err := doctree.Compose(path, entries)
	if err != nil {
		return nil, false, err
	}
	metrics.StoreOperations.WithLabelValues("get", "ok").Inc()
	return raw, ok, nil
}

// Set implements ports.DocumentStore.
func (s *Store) Set(ctx context.Context, path string, raw json.RawMessage) error {
	path = doctree.Clean(path)
	if path == "" {
		return fmt.Errorf("%w: cannot replace the store root", domain.ErrValidation)
	}
	if err := doctree.Validate(path); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%w: document is not JSON: %v", domain.ErrValidation, err)
	}
	v = doctree.Prune(v)
	if v == nil {
		return s.Delete(ctx, path)
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return err
	}

	ctx, span := telemetry.Start(ctx, telemetry.SpanStoreSet, attribute.String(telemetry.AttrPath, path))
	defer span.End()

	s.mu.Lock()
	err = s.set(ctx, path, v, encoded)
	s.mu.Unlock()
	if err != nil {
		return s.fail("set", path, err)
	}

	metrics.StoreOperations.WithLabelValues("set", "ok").Inc()
	s.announce(ctx, Change{Path: path, Op: OpSet, At: time.Now()})
	return nil
}

func (s *Store) set(ctx context.Context, path string, v any, encoded []byte) error {
	for _, anc := range doctree.Ancestors(path) {
		doc, ok, err := s.backend.Get(ctx, anc)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		var tree any
		if err := json.Unmarshal(doc, &tree); err != nil {
			return fmt.Errorf("decode %s: %w", anc, err)
		}
		tree = doctree.SetAt(tree, doctree.Rel(path, anc), v)
		out, err := json.Marshal(tree)
		if err != nil {
			return err
		}
		return s.backend.Put(ctx, anc, out)
	}

	if err := s.backend.DeleteTree(ctx, path); err != nil {
		return err
	}
	return s.backend.Put(ctx, path, encoded)
}

// Delete implements ports.DocumentStore.
func (s *Store) Delete(ctx context.Context, path string) error {
	path = doctree.Clean(path)
	if path == "" {
		return fmt.Errorf("%w: cannot delete the store root", domain.ErrValidation)
	}
	if err := doctree.Validate(path); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	ctx, span := telemetry.Start(ctx, telemetry.SpanStoreDelete, attribute.String(telemetry.AttrPath, path))
	defer span.End()

	s.mu.Lock()
	err := s.delete(ctx, path)
	s.mu.Unlock()
	if err != nil {
		return s.fail("delete", path, err)
	}

	metrics.StoreOperations.WithLabelValues("delete", "ok").Inc()
	s.announce(ctx, Change{Path: path, Op: OpDelete, At: time.Now()})
	return nil
}

func (s *Store) delete(ctx context.Context, path string) error {
	for _, anc := range doctree.Ancestors(path) {
		doc, ok, err := s.backend.Get(ctx, anc)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		var tree any
		if err := json.Unmarshal(doc, &tree); err != nil {
			return fmt.Errorf("decode %s: %w", anc, err)
		}
		tree = doctree.DeleteAt(tree, doctree.Rel(path, anc))
		if tree == nil {
			return s.backend.DeleteTree(ctx, anc)
		}
		out, err := json.Marshal(tree)
		if err != nil {
			return err
		}
		return s.backend.Put(ctx, anc, out)
	}
	return s.backend.DeleteTree(ctx, path)
}

// Ping checks backend connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// Close stops listening for changes and drops every subscription.
func (s *Store) Close() {
	if s.stopListen != nil {
		s.stopListen()
	}
	s.subsMu.Lock()
	subs := s.subs
	s.subs = make(map[uint64]*subscription)
	s.subsMu.Unlock()
	for _, sub := range subs {
		sub.cancel()
	}
}

func (s *Store) announce(ctx context.Context, c Change) {
	c.Origin = s.id
	s.dispatch(c)
	if err := s.notifier.Publish(ctx, c); err != nil {
		// The write itself succeeded; remote subscribers catch up on the next change.
		slog.Warn("publish store change", "path", c.Path, "error", err)
	}
}

// receive handles changes from the notifier; our own were dispatched already.
func (s *Store) receive(c Change) {
	if c.Origin == s.id {
		return
	}
	metrics.StoreChangesReceived.Inc()
	s.dispatch(c)
}

func (s *Store) fail(op, path string, err error) error {
	metrics.StoreOperations.WithLabelValues(op, "error").Inc()
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s %s: %v", domain.ErrStoreUnavailable, op, path, err)
}

func extract(raw []byte, rel []string) (json.RawMessage, bool, error) {
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, false, err
	}
	for _, seg := range rel {
		obj, ok := tree.(map[string]any)
		if !ok {
			return nil, false, nil
		}
		if tree, ok = obj[seg]; !ok {
			return nil, false, nil
		}
	}
	out, err := json.Marshal(tree)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}
