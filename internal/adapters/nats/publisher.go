package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/attribute"

	"github.com/oceanclean/oceanclean/internal/core/domain"
	"github.com/oceanclean/oceanclean/internal/pkg/telemetry"
)

const (
	commandStream   = "ROBOT_COMMANDS"
	driveSubject    = "robot.control.drive"
	modeSubject     = "robot.control.mode"
	commandSubjects = "robot.control.>"
)

// Publisher implements ports.CommandPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher enables JetStream on conn and ensures the command stream exists.
func NewPublisher(conn *nats.Conn) (*Publisher, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:              commandStream,
		Subjects:          []string{commandSubjects},
		Retention:         nats.LimitsPolicy,
		MaxAge:            1 * time.Hour,
		MaxMsgsPerSubject: 100,
		Storage:           nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) PublishDrive(ctx context.Context, cmd *domain.DriveCommand) error {
	return p.publish(ctx, driveSubject, cmd)
}

func (p *Publisher) PublishMode(ctx context.Context, cmd *domain.ModeCommand) error {
	return p.publish(ctx, modeSubject, cmd)
}

func (p *Publisher) publish(ctx context.Context, subject string, v any) error {
	ctx, span := telemetry.Start(ctx, telemetry.SpanPublishCommand, attribute.String(telemetry.AttrSubject, subject))
	defer span.End()

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}
