// Package notify publishes rebuild events so that running front-ends can
// reload changed artifacts.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	lderrors "git.home.luguber.info/inful/langdocs/internal/errors"
	"git.home.luguber.info/inful/langdocs/internal/logfields"
)

// Event describes one finished build.
type Event struct {
	BuildID   string    `json:"build_id"`
	Trigger   string    `json:"trigger"`
	Languages []string  `json:"languages"`
	Changed   []string  `json:"changed"`
	Removed   []string  `json:"removed,omitempty"`
	Warnings  int       `json:"warnings"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers rebuild events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// conn is the subset of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSPublisher publishes events as JSON on a NATS subject.
type NATSPublisher struct {
	conn    conn
	subject string
}

// NewNATSPublisher connects to url and publishes on subject.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("langdocs"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, lderrors.WrapError(err, lderrors.CategoryNotify, "failed to connect to NATS").
			WithContext("url", url).Build()
	}
	slog.Info("NATS publisher connected", slog.String("url", url), slog.String("subject", subject))
	return &NATSPublisher{conn: nc, subject: subject}, nil
}

// Publish sends event and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return lderrors.WrapError(err, lderrors.CategoryNotify, "failed to publish rebuild event").
			WithContext("subject", p.subject).Build()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return lderrors.WrapError(err, lderrors.CategoryNotify, "failed to flush rebuild event").
			WithContext("subject", p.subject).Build()
	}
	slog.Debug("Published rebuild event", logfields.BuildID(event.BuildID), logfields.Count(len(event.Changed)))
	return nil
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}

// New returns a NATS publisher when url is set and Noop otherwise.
func New(url, subject string) (Publisher, error) {
	if url == "" {
		return Noop{}, nil
	}
	return NewNATSPublisher(url, subject)
}
