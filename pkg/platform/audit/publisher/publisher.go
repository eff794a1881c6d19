package publisher

import (
	"context"
	"sync"

	audit "namemint/pkg/platform/audit"
)

// Publisher fans audit events out to a store, either synchronously or through
// a bounded buffer drained by a background goroutine. When the buffer is full
// the event is dropped rather than blocking the request path; audit loss is
// preferable to latency on the registration path.
type Publisher struct {
	store audit.Store

	buffer chan audit.Event
	wg     sync.WaitGroup
	once   sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to async mode with the given buffer
// capacity.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.buffer = make(chan audit.Event, size)
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records an event. In async mode a full buffer drops the event.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Category == "" {
		event.Category = audit.Action(event.Action).Category()
	}
	if p.buffer == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.buffer <- event:
	default:
	}
	return nil
}

// List exposes the most recent events from the underlying store.
func (p *Publisher) List(ctx context.Context, limit int) ([]audit.Event, error) {
	return p.store.ListRecent(ctx, limit)
}

// Close drains any buffered events and stops the background goroutine.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.buffer != nil {
			close(p.buffer)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		_ = p.store.Append(context.Background(), event)
	}
}
