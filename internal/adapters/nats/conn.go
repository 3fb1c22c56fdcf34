package natsadapter

import (
	"time"

	"github.com/nats-io/nats.go"
)

// RawConn creates a plain NATS connection that keeps reconnecting.
func RawConn(url, name string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
