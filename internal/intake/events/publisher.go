package events

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"solarintake/pkg/platform/sentinel"
	"solarintake/pkg/requestcontext"
)

// Publisher fans events out to sinks. In async mode Emit enqueues and a
// single worker drains the buffer; a full buffer drops the event with a
// warning rather than blocking a resolver goroutine.
type Publisher struct {
	sinks  []Sink
	logger *slog.Logger

	inbox  chan Event
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

type Option func(*Publisher)

// WithAsyncBuffer enables async mode with a buffer of n events.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.inbox = make(chan Event, n)
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// WithSink adds another destination.
func WithSink(s Sink) Option {
	return func(p *Publisher) {
		if s != nil {
			p.sinks = append(p.sinks, s)
		}
	}
}

func NewPublisher(primary Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sinks:  []Sink{primary},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit stamps missing ID, time, and request ID, then delivers or enqueues e.
func (p *Publisher) Emit(ctx context.Context, e Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = requestcontext.Now(ctx)
	}
	if e.RequestID == "" {
		e.RequestID = requestcontext.RequestID(ctx)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return sentinel.ErrClosed
	}

	if p.inbox == nil {
		return p.deliver(ctx, e)
	}
	select {
	case p.inbox <- e:
	default:
		p.logger.WarnContext(ctx, "event buffer full, dropping event",
			"type", e.Type, "session_id", e.SessionID, "generation", e.Generation)
	}
	return nil
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for e := range p.inbox {
		if err := p.deliver(context.Background(), e); err != nil {
			p.logger.Error("event delivery failed", "type", e.Type, "session_id", e.SessionID, "error", err)
		}
	}
}

// deliver appends to every sink and returns the first error.
func (p *Publisher) deliver(ctx context.Context, e Event) error {
	var firstErr error
	for _, s := range p.sinks {
		if err := s.Append(ctx, e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close stops accepting events and drains the async buffer.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.inbox != nil {
		close(p.inbox)
	}
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}
