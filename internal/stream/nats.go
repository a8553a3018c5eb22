package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// ConnectNATS dials url with reconnect-forever options and slog handlers.
func ConnectNATS(url, name string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(1 * time.Second),
		nats.ReconnectJitter(500*time.Millisecond, 2*time.Second),
		nats.ReconnectBufSize(8 * 1024 * 1024),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			slog.Info("nats connection closed")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			slog.Error("nats error", "error", err)
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	slog.Info("connected to nats", "url", nc.ConnectedUrl())
	return nc, nil
}

// NATSBroker publishes events on per-team subjects and feeds every event
// seen on the wildcard subject into the local hub, so subscribers on any
// instance receive messages sent through any other.
type NATSBroker struct {
	nc     *nats.Conn
	hub    *Hub
	prefix string

	ready     chan struct{}
	readyOnce sync.Once
}

func NewNATSBroker(nc *nats.Conn, hub *Hub, prefix string) *NATSBroker {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		prefix = "huddle"
	}
	return &NATSBroker{nc: nc, hub: hub, prefix: prefix, ready: make(chan struct{})}
}

// Subject returns the subject messages for teamID are published on.
func (b *NATSBroker) Subject(teamID string) string {
	return fmt.Sprintf("%s.teams.%s.messages", b.prefix, teamID)
}

func (b *NATSBroker) wildcard() string {
	return b.prefix + ".teams.*.messages"
}

func (b *NATSBroker) Publish(_ context.Context, evt MessageEvent) error {
	data, err := Encode(evt)
	if err != nil {
		return err
	}
	if err := b.nc.Publish(b.Subject(evt.TeamID), data); err != nil {
		return fmt.Errorf("publishing to %s: %w", b.Subject(evt.TeamID), err)
	}
	return nil
}

// Ready is closed once Run's subscription is registered with the server.
func (b *NATSBroker) Ready() <-chan struct{} {
	return b.ready
}

// Run subscribes to all team subjects and delivers into the hub until ctx
// is done.
func (b *NATSBroker) Run(ctx context.Context) error {
	sub, err := b.nc.Subscribe(b.wildcard(), func(m *nats.Msg) {
		evt, err := Decode(m.Data)
		if err != nil {
			slog.Warn("dropping undecodable stream event", "subject", m.Subject, "error", err)
			return
		}
		b.hub.Deliver(evt)
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", b.wildcard(), err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	if err := b.nc.Flush(); err != nil {
		return fmt.Errorf("flushing subscription: %w", err)
	}
	b.readyOnce.Do(func() { close(b.ready) })
	slog.Info("stream subscriber started", "subject", b.wildcard())

	<-ctx.Done()
	return nil
}

// Close drains and closes the NATS connection.
func (b *NATSBroker) Close() error {
	return b.nc.Drain()
}
