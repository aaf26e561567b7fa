// Package nats publishes audit events to NATS JetStream.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/actions-bridge/internal/port/audit"
)

const streamName = "BRIDGE_AUDIT"

// Publisher implements audit.Sink on a JetStream stream.
type Publisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	subject string
}

// Connect establishes a connection to NATS and ensures the audit stream
// captures everything under subject.
func Connect(ctx context.Context, url, subject string) (*Publisher, error) {
	nc, err := nats.Connect(url, nats.Name("actions-bridge"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{subject + ".>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName, "subject", subject)
	return &Publisher{nc: nc, js: js, subject: subject}, nil
}

// Subject returns the subject an action is published on.
func Subject(prefix, action string) string {
	action = strings.NewReplacer(" ", "_", "*", "_", ">", "_").Replace(action)
	if action == "" {
		action = "unknown"
	}
	return prefix + "." + action
}

// Record publishes ev as JSON. The event ID doubles as the JetStream message
// ID so redelivered publishes are deduplicated.
func (p *Publisher) Record(ctx context.Context, ev audit.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	subject := Subject(p.subject, ev.Action)
	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(ev.ID)); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Close drains pending publishes and closes the connection.
func (p *Publisher) Close() error {
	return p.nc.Drain()
}

// JetStream returns the JetStream context shared with other adapters on
// the same connection.
func (p *Publisher) JetStream() jetstream.JetStream {
	return p.js
}
