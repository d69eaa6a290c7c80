package bus

import (
	"context"
	"fmt"
	"log"
)

// HandlerFunc processes one envelope whose target matched this consumer.
type HandlerFunc func(ctx context.Context, env Envelope) error

// Dispatcher routes envelopes to handlers by kind. Envelopes addressed to a
// target this consumer does not answer to are skipped silently; an envelope
// with an accepted target but an unregistered kind aborts the process, since
// it means the two sides of the bus are running incompatible versions.
type Dispatcher struct {
	handlers map[Kind]HandlerFunc
	accepts  map[string]bool
	fatalF   func(format string, args ...any)
}

// NewDispatcher creates a dispatcher that accepts envelopes addressed to any
// of the given targets (typically the consumer's own name plus a broadcast
// target).
func NewDispatcher(targets ...string) *Dispatcher {
	accepts := make(map[string]bool, len(targets))
	for _, t := range targets {
		accepts[t] = true
	}
	return &Dispatcher{
		handlers: make(map[Kind]HandlerFunc),
		accepts:  accepts,
		fatalF:   log.Fatalf,
	}
}

// Handle registers the handler for a kind. Registering the same kind twice is
// a programming error.
func (d *Dispatcher) Handle(kind Kind, fn HandlerFunc) {
	if _, ok := d.handlers[kind]; ok {
		panic(fmt.Sprintf("bus: handler for %s already registered", kind))
	}
	d.handlers[kind] = fn
}

// Dispatch routes one envelope. Returns nil for envelopes addressed elsewhere.
func (d *Dispatcher) Dispatch(ctx context.Context, env Envelope) error {
	if !d.accepts[env.Target] {
		return nil
	}
	fn, ok := d.handlers[env.Kind]
	if !ok {
		d.fatalF("bus: no handler for message kind %s from %s", env.Kind, env.Source)
		return nil
	}
	return fn(ctx, env)
}
