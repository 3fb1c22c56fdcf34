package docstore

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/oceanclean/oceanclean/internal/core/ports"
	"github.com/oceanclean/oceanclean/internal/pkg/doctree"
)

type subscription struct {
	path   string
	fn     func(raw json.RawMessage, exists bool)
	dirty  chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// Subscribe implements ports.DocumentStore. Each subscription re-reads its
// path after a related change; bursts of changes coalesce into one read.
func (s *Store) Subscribe(ctx context.Context, path string, fn func(raw json.RawMessage, exists bool)) (ports.Subscription, error) {
	path = doctree.Clean(path)
	if err := doctree.Validate(path); err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		path:   path,
		fn:     fn,
		dirty:  make(chan struct{}, 1),
		ctx:    subCtx,
		cancel: cancel,
	}

	s.subsMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = sub
	s.subsMu.Unlock()

	sub.dirty <- struct{}{}
	go s.run(id, sub)

	return ports.SubscriptionFunc(func() {
		cancel()
	}), nil
}

func (s *Store) run(id uint64, sub *subscription) {
	defer func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}()

	for {
		select {
		case <-sub.ctx.Done():
			return
		case <-sub.dirty:
			raw, ok, err := s.Get(sub.ctx, sub.path)
			if err != nil {
				if sub.ctx.Err() != nil {
					return
				}
				slog.Warn("subscription read failed", "path", sub.path, "error", err)
				continue
			}
			if sub.ctx.Err() != nil {
				return
			}
			sub.fn(raw, ok)
		}
	}
}

func (s *Store) dispatch(c Change) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, sub := range s.subs {
		if !doctree.Related(c.Path, sub.path) {
			continue
		}
		select {
		case sub.dirty <- struct{}{}:
		default:
		}
	}
}
