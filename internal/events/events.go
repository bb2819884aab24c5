// Package events publishes domain events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Envelope wraps every published payload.
type Envelope struct {
	ID         string    `json:"id"`
	Subject    string    `json:"subject"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// NewEnvelope stamps a payload with a fresh id and the current time.
func NewEnvelope(subject string, payload any) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		Subject:    subject,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string
	SubjectPrefix string // Prepended to every subject, e.g. "incidents."
	ClientName    string
}

// NATSPublisher publishes JSON envelopes on a NATS connection.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	logger *slog.Logger
}

// ConnectNATS opens a NATS connection that reconnects indefinitely.
func ConnectNATS(cfg NATSConfig, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.ClientName
	if name == "" {
		name = "incident-api"
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", slog.Any("error", err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &NATSPublisher{nc: nc, prefix: cfg.SubjectPrefix, logger: logger}, nil
}

// Publish sends payload wrapped in an Envelope.
func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full := p.prefix + subject
	data, err := json.Marshal(NewEnvelope(full, payload))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.nc.Publish(full, data); err != nil {
		return fmt.Errorf("publish %s: %w", full, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}
