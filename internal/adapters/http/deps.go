package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/oceanclean/oceanclean/internal/adapters/postgres"
	"github.com/oceanclean/oceanclean/internal/adapters/valkey"
	"github.com/oceanclean/oceanclean/internal/core/ports"
	"github.com/oceanclean/oceanclean/internal/core/usecases"
)

// DocumentStore is the store as seen by the WebSocket relay and readiness check.
type DocumentStore interface {
	ports.DocumentStore
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Maps       *usecases.MapService
	Sessions   *usecases.SessionService
	Statistics *usecases.StatisticsService
	Auth       *usecases.AuthService
	Control    *usecases.ControlService
	Store      DocumentStore
	NATS       *nats.Conn
	DB         *postgres.DB
	Cache      *valkey.Cache
}
