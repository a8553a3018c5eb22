package stream

import "context"

// Publisher accepts message events for delivery to subscribers.
type Publisher interface {
	Publish(ctx context.Context, evt MessageEvent) error
}

// Broker is a Publisher with a lifecycle, run alongside the HTTP server.
type Broker interface {
	Publisher
	Run(ctx context.Context) error
	Close() error
}

// LocalBroker delivers straight into an in-process hub.
type LocalBroker struct {
	hub *Hub
}

func NewLocalBroker(hub *Hub) *LocalBroker {
	return &LocalBroker{hub: hub}
}

func (b *LocalBroker) Publish(_ context.Context, evt MessageEvent) error {
	b.hub.Deliver(evt)
	return nil
}

// Run blocks until ctx is done.
func (b *LocalBroker) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (b *LocalBroker) Close() error { return nil }
