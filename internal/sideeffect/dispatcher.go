package sideeffect

//go:generate mockgen -source=dispatcher.go -destination=mocks/mocks.go -package=mocks Sink,Publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cpcaisse/internal/platform/kafka/producer"
	"cpcaisse/pkg/requestcontext"
)

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 256
	DefaultTimeout   = 15 * time.Second
)

// Sink delivers one event, either in process or through a broker.
type Sink interface {
	Deliver(ctx context.Context, event Event) error
}

// Publisher is the slice of the Kafka producer the sink needs.
type Publisher interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// Dispatcher queues events for a worker pool. Dispatch never blocks the
// committing request: a full queue drops the event.
type Dispatcher struct {
	sink    Sink
	queue   chan Event
	workers int
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

type Option func(*Dispatcher)

func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Event, n)
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func NewDispatcher(sink Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sink:    sink,
		queue:   make(chan Event, DefaultQueueSize),
		workers: DefaultWorkers,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the workers. They run until Stop drains the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	base := context.WithoutCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for event := range d.queue {
				d.deliver(base, event)
			}
		}()
	}
}

// Dispatch enqueues event and reports whether it was accepted.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) bool {
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(ctx, event, "dispatcher stopped")
		return false
	}
	select {
	case d.queue <- event:
		return true
	default:
		d.drop(ctx, event, "queue full")
		return false
	}
}

// Stop refuses new events and waits for queued ones to finish or ctx to end.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	started := d.started
	d.mu.Unlock()

	if !started {
		return nil
	}
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) deliver(base context.Context, event Event) {
	ctx, cancel := context.WithTimeout(requestcontext.WithRequestID(base, event.RequestID), d.timeout)
	defer cancel()

	if err := d.sink.Deliver(ctx, event); err != nil {
		failuresTotal.WithLabelValues(string(event.Kind)).Inc()
		d.logger.ErrorContext(ctx, "side effect failed",
			"kind", event.Kind,
			"declaration_id", event.Key(),
			"error", err,
			"request_id", event.RequestID,
		)
	}
}

func (d *Dispatcher) drop(ctx context.Context, event Event, reason string) {
	droppedTotal.WithLabelValues(string(event.Kind)).Inc()
	d.logger.WarnContext(ctx, "side effect dropped",
		"kind", event.Kind,
		"declaration_id", event.Key(),
		"reason", reason,
		"request_id", event.RequestID,
	)
}
