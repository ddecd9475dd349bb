// Package handler routes accepted deliveries to per-event-kind handlers.
package handler

import (
	"context"
	"fmt"
	"time"

	"ahagon/internal/config"
	"ahagon/internal/events"
	"ahagon/internal/notifier"
)

// Delivery is an authenticated, decoded and classified callback.
type Delivery struct {
	ID         string
	Source     notifier.Source
	Kind       events.Kind
	Repo       *config.Repo
	Payload    *notifier.Payload
	ReceivedAt time.Time
}

// Handler acts on a delivery.
type Handler interface {
	Handle(ctx context.Context, d *Delivery) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, d *Delivery) error

// Handle calls f(ctx, d).
func (f HandlerFunc) Handle(ctx context.Context, d *Delivery) error {
	return f(ctx, d)
}

// Binding attaches a handler to an event kind. Handlers bound to
// events.WildCard see every delivery.
type Binding struct {
	Kind    events.Kind
	Handler Handler
}

// Bind is shorthand for a Binding literal.
func Bind(kind events.Kind, h Handler) Binding {
	return Binding{Kind: kind, Handler: h}
}

// Registry maps event kinds to handlers. It is immutable once built.
type Registry struct {
	handlers map[events.Kind][]Handler
	waiters  []interface{ Wait() }
}

// NewRegistry builds a registry from bindings, keeping their order. It
// panics on a binding whose kind is not a recognized event kind.
func NewRegistry(bindings ...Binding) *Registry {
	r := &Registry{handlers: make(map[events.Kind][]Handler)}
	for _, b := range bindings {
		if !b.Kind.Valid() {
			panic(fmt.Sprintf("handler: binding for unknown event kind %q", b.Kind))
		}
		r.handlers[b.Kind] = append(r.handlers[b.Kind], b.Handler)
		if w, ok := b.Handler.(interface{ Wait() }); ok {
			r.waiters = append(r.waiters, w)
		}
	}
	return r
}

// For returns the handlers a delivery of kind would reach: wildcard handlers
// first, then kind-specific ones.
func (r *Registry) For(kind events.Kind) []Handler {
	wild := r.handlers[events.WildCard]
	if kind == events.WildCard {
		return wild
	}
	specific := r.handlers[kind]
	out := make([]Handler, 0, len(wild)+len(specific))
	out = append(out, wild...)
	return append(out, specific...)
}

// Dispatch runs the handlers for d.Kind in order and stops at the first error.
func (r *Registry) Dispatch(ctx context.Context, d *Delivery) error {
	for i, h := range r.For(d.Kind) {
		if err := h.Handle(ctx, d); err != nil {
			return fmt.Errorf("handler %d for %s: %w", i, d.Kind, err)
		}
	}
	return nil
}

// Wait blocks until background work started by handlers has finished.
func (r *Registry) Wait() {
	for _, w := range r.waiters {
		w.Wait()
	}
}
