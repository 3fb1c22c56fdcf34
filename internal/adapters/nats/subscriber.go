package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/oceanclean/oceanclean/internal/core/domain"
)

// Subscriber reads robot commands back from the command stream.
type Subscriber struct {
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

func NewSubscriber(conn *nats.Conn) (*Subscriber, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{js: js}, nil
}

// SubscribeDrive delivers drive commands with an ephemeral ordered consumer,
// starting from the newest message.
func (s *Subscriber) SubscribeDrive(ctx context.Context, handler func(ctx context.Context, cmd *domain.DriveCommand) error) error {
	sub, err := s.js.Subscribe(driveSubject, func(msg *nats.Msg) {
		var cmd domain.DriveCommand
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			return
		}
		_ = handler(ctx, &cmd)
	},
		nats.OrderedConsumer(),
		nats.DeliverLast(),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// SubscribeMode delivers mode changes the same way.
func (s *Subscriber) SubscribeMode(ctx context.Context, handler func(ctx context.Context, cmd *domain.ModeCommand) error) error {
	sub, err := s.js.Subscribe(modeSubject, func(msg *nats.Msg) {
		var cmd domain.ModeCommand
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			return
		}
		_ = handler(ctx, &cmd)
	},
		nats.OrderedConsumer(),
		nats.DeliverLast(),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes everything.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
}
