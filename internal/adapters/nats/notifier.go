package natsadapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oceanclean/oceanclean/internal/adapters/docstore"
)

// ChangeSubject carries document store change announcements between nodes.
const ChangeSubject = "oceanclean.docs.changed"

// Notifier implements docstore.Notifier over core NATS. Payloads are
// protobuf-encoded google.protobuf.Struct values.
type Notifier struct {
	conn    *nats.Conn
	subject string
}

func NewNotifier(conn *nats.Conn) *Notifier {
	return &Notifier{conn: conn, subject: ChangeSubject}
}

func (n *Notifier) Publish(ctx context.Context, c docstore.Change) error {
	data, err := EncodeChange(c)
	if err != nil {
		return err
	}
	return n.conn.Publish(n.subject, data)
}

func (n *Notifier) Listen(fn func(docstore.Change)) (func(), error) {
	sub, err := n.conn.Subscribe(n.subject, func(msg *nats.Msg) {
		c, err := DecodeChange(msg.Data)
		if err != nil {
			slog.Warn("drop malformed change event", "error", err)
			return
		}
		fn(c)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", n.subject, err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

// EncodeChange serialises a change event.
func EncodeChange(c docstore.Change) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"path":   c.Path,
		"op":     string(c.Op),
		"at":     float64(c.At.UnixMilli()),
		"origin": c.Origin,
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

// DecodeChange parses a change event produced by EncodeChange.
func DecodeChange(data []byte) (docstore.Change, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return docstore.Change{}, err
	}
	f := s.GetFields()
	path, ok := f["path"]
	if !ok {
		return docstore.Change{}, fmt.Errorf("change event without path")
	}
	return docstore.Change{
		Path:   path.GetStringValue(),
		Op:     docstore.Op(f["op"].GetStringValue()),
		At:     time.UnixMilli(int64(f["at"].GetNumberValue())),
		Origin: f["origin"].GetStringValue(),
	}, nil
}
