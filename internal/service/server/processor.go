package server

import (
	"context"
	"sync"

	"github.com/oshokin/alarm-dispatch/internal/domain/chat"
	"github.com/oshokin/alarm-dispatch/internal/logger"
)

// Handler produces the reply for one inbound event.
type Handler interface {
	Handle(ctx context.Context, event chat.InboundEvent) chat.Response
}

// Sink delivers replies and presence indicators to a sender.
type Sink interface {
	Deliver(ctx context.Context, recipientID string, response chat.Response) error
	MarkSeen(ctx context.Context, recipientID string) error
	TypingOn(ctx context.Context, recipientID string) error
	TypingOff(ctx context.Context, recipientID string) error
}

// Processor runs inbound events through the dialogue and delivers the replies.
// Delivery is best effort: sink failures are logged and dropped.
type Processor struct {
	handler Handler
	sink    Sink

	// inflight tracks events dispatched in the background.
	inflight sync.WaitGroup

	// mu guards queues. A key is present while its worker runs.
	mu     sync.Mutex
	queues map[string][]queuedEvent
}

// queuedEvent is an event waiting for its key's worker.
type queuedEvent struct {
	ctx   context.Context //nolint:containedctx // Carries the logger of the delivery.
	event chat.InboundEvent
}

// NewProcessor creates a processor.
func NewProcessor(handler Handler, sink Sink) *Processor {
	return &Processor{
		handler: handler,
		sink:    sink,
		queues:  make(map[string][]queuedEvent),
	}
}

// Dispatch queues event for background processing and returns immediately.
// Events of one key are processed one at a time in the order they were
// dispatched; different keys run in parallel. The processing outlives the
// cancellation of ctx but keeps its logger.
func (p *Processor) Dispatch(ctx context.Context, event chat.InboundEvent) {
	item := queuedEvent{ctx: context.WithoutCancel(ctx), event: event}
	key := event.CorrelationKey

	p.inflight.Add(1)

	p.mu.Lock()
	pending, running := p.queues[key]
	p.queues[key] = append(pending, item)
	p.mu.Unlock()

	if !running {
		go p.drain(key)
	}
}

// drain processes the queue of key until it is empty, then retires the worker.
func (p *Processor) drain(key string) {
	for {
		p.mu.Lock()

		pending := p.queues[key]
		if len(pending) == 0 {
			delete(p.queues, key)
			p.mu.Unlock()

			return
		}

		item := pending[0]
		p.queues[key] = pending[1:]
		p.mu.Unlock()

		p.Process(item.ctx, item.event)
		p.inflight.Done()
	}
}

// Process handles event synchronously, bracketing the dialogue with the
// typing indicator. A panic is logged and confined to this event.
func (p *Processor) Process(ctx context.Context, event chat.InboundEvent) {
	key := event.CorrelationKey
	ctx = logger.WithKV(ctx, "correlation_key", key)

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorKV(ctx, "Event processing panicked", "kind", event.Kind.String(), "panic", r)
		}
	}()

	logger.InfoKV(ctx, "Event received", "kind", event.Kind.String())

	p.bestEffort(ctx, "mark_seen", p.sink.MarkSeen(ctx, key))
	p.bestEffort(ctx, "typing_on", p.sink.TypingOn(ctx, key))

	defer func() {
		p.bestEffort(ctx, "typing_off", p.sink.TypingOff(ctx, key))
	}()

	response := p.handler.Handle(ctx, event)

	p.bestEffort(ctx, "deliver", p.sink.Deliver(ctx, key, response))
}

// Notify sends a reply that was not triggered by an inbound event.
func (p *Processor) Notify(ctx context.Context, recipientID string, response chat.Response) {
	ctx = logger.WithKV(ctx, "correlation_key", recipientID)

	p.bestEffort(ctx, "notify", p.sink.Deliver(ctx, recipientID, response))
}

// Wait blocks until background events finish or ctx is done.
func (p *Processor) Wait(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		p.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Processor) bestEffort(ctx context.Context, step string, err error) {
	if err != nil {
		logger.WarnKV(ctx, "Messenger call failed", "step", step, "error", err)
	}
}
