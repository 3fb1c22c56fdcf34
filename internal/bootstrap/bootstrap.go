// Package bootstrap connects the document store and its supporting
// infrastructure from configuration. It is shared by every command.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/oceanclean/oceanclean/internal/adapters/docstore"
	natsadapter "github.com/oceanclean/oceanclean/internal/adapters/nats"
	"github.com/oceanclean/oceanclean/internal/adapters/postgres"
	"github.com/oceanclean/oceanclean/internal/adapters/valkey"
	"github.com/oceanclean/oceanclean/internal/core/ports"
	"github.com/oceanclean/oceanclean/internal/pkg/config"
)

// Resources are the connections opened for one process. Optional ones are nil
// when not configured or unreachable.
type Resources struct {
	Store     *docstore.Store
	DB        *postgres.DB
	Cache     *valkey.Cache
	NATS      *nats.Conn
	Publisher ports.CommandPublisher

	closers []func()
}

// Open connects everything cfg asks for. name identifies the process to NATS.
func Open(ctx context.Context, cfg *config.Config, name string) (*Resources, error) {
	r := &Resources{}
	if err := r.open(ctx, cfg, name); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Resources) open(ctx context.Context, cfg *config.Config, name string) error {
	// NATS: change fan-out between nodes and the robot command stream
	nc, err := natsadapter.RawConn(cfg.NATS.URL, name)
	if err != nil {
		if cfg.Store.Notifier == "nats" {
			return fmt.Errorf("nats: %w", err)
		}
		slog.Warn("nats unavailable", "error", err)
	} else {
		r.NATS = nc
		r.closers = append(r.closers, nc.Close)
		if pub, err := natsadapter.NewPublisher(nc); err != nil {
			slog.Warn("robot command stream unavailable", "error", err)
		} else {
			r.Publisher = pub
		}
	}

	// Cache
	cache, err := valkey.New(cfg.Valkey.Addr, cfg.Store.KeyPrefix)
	if err != nil {
		if cfg.Store.Driver == config.DriverValkey {
			return fmt.Errorf("valkey: %w", err)
		}
		slog.Warn("valkey unavailable", "error", err)
	} else {
		r.Cache = cache
		r.closers = append(r.closers, cache.Close)
	}

	var backend docstore.Backend
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		r.DB = db
		r.closers = append(r.closers, db.Close)
		backend = postgres.NewBackend(db)
	case config.DriverValkey:
		backend = cache.Documents()
	default:
		slog.Warn("using in-memory document store, data is lost on exit")
		backend = docstore.NewMemoryBackend()
	}

	var notifier docstore.Notifier = docstore.NewLocalNotifier()
	if cfg.Store.Notifier == "nats" {
		notifier = natsadapter.NewNotifier(nc)
	}

	store, err := docstore.New(backend, notifier)
	if err != nil {
		return fmt.Errorf("document store: %w", err)
	}
	r.Store = store
	r.closers = append(r.closers, store.Close)

	if err := store.Ping(ctx); err != nil {
		return errors.Join(errors.New("document store unreachable"), err)
	}
	slog.Info("document store ready", "driver", cfg.Store.Driver, "notifier", cfg.Store.Notifier)
	return nil
}

// Close releases every connection in reverse order of opening.
func (r *Resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

// CacheService returns the cache as a port, or nil when valkey is not connected.
func (r *Resources) CacheService() ports.CacheService {
	if r.Cache == nil {
		return nil
	}
	return r.Cache
}
