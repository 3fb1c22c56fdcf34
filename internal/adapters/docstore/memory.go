package docstore

import (
	"context"
	"sync"

	"github.com/oceanclean/oceanclean/internal/pkg/doctree"
)

// MemoryBackend keeps documents in a map. It is safe for concurrent use.
type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string][]byte)}
}

func (b *MemoryBackend) Get(ctx context.Context, path string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	raw, ok := b.docs[path]
	return raw, ok, nil
}

func (b *MemoryBackend) Entries(ctx context.Context, path string) ([]doctree.Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []doctree.Entry
	for p, raw := range b.docs {
		if doctree.Within(p, path) {
			out = append(out, doctree.Entry{Path: p, Raw: raw})
		}
	}
	return out, nil
}

func (b *MemoryBackend) Put(ctx context.Context, path string, raw []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs[path] = append([]byte(nil), raw...)
	return nil
}

func (b *MemoryBackend) DeleteTree(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for p := range b.docs {
		if doctree.Within(p, path) {
			delete(b.docs, p)
		}
	}
	return nil
}

func (b *MemoryBackend) Ping(ctx context.Context) error { return nil }

// LocalNotifier delivers changes to listeners in the same process.
type LocalNotifier struct {
	mu        sync.RWMutex
	listeners map[int]func(Change)
	next      int
}

// NewLocalNotifier returns a LocalNotifier with no listeners.
func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{listeners: make(map[int]func(Change))}
}

func (n *LocalNotifier) Publish(ctx context.Context, c Change) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, fn := range n.listeners {
		fn(c)
	}
	return nil
}

func (n *LocalNotifier) Listen(fn func(Change)) (func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	n.listeners[id] = fn
	return func() {
		n.mu.Lock()
		delete(n.listeners, id)
		n.mu.Unlock()
	}, nil
}
