package sideeffect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Handler performs one side effect.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Router delivers events in process to the handlers registered for their
// kind. It is the local sink and the target of the Kafka consumer.
type Router struct {
	handlers map[Kind][]Handler
	logger   *slog.Logger
}

func NewRouter(logger *slog.Logger) *Router {
	return &Router{
		handlers: make(map[Kind][]Handler),
		logger:   logger,
	}
}

// Register adds a handler for kind. Registration happens at wiring time, before
// any delivery.
func (r *Router) Register(kind Kind, handler Handler) {
	r.handlers[kind] = append(r.handlers[kind], handler)
}

// Deliver runs every handler for the event's kind. One failing handler does not
// stop the others.
func (r *Router) Deliver(ctx context.Context, event Event) error {
	handlers, ok := r.handlers[event.Kind]
	if !ok {
		r.logger.WarnContext(ctx, "no side-effect handler for kind, skipping",
			"kind", event.Kind,
			"request_id", event.RequestID,
		)
		return nil
	}
	var errs []error
	for _, h := range handlers {
		if err := h.Handle(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("side effect %s: %w", event.Kind, errors.Join(errs...))
	}
	return nil
}
