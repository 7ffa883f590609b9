package ledger

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dvloznov/household-ledger/internal/store"
)

// Observer is notified after each accepted mutation. Observers run while
// the dispatcher holds its lock, in commit order, and must not block or
// dispatch.
type Observer interface {
	Committed(ctx context.Context, s store.Snapshot, m Mutation)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, s store.Snapshot, m Mutation)

func (f ObserverFunc) Committed(ctx context.Context, s store.Snapshot, m Mutation) { f(ctx, s, m) }

// Dispatcher is the single point through which the ledger changes. It
// serializes mutations, swaps in the resulting snapshot and tells observers.
type Dispatcher struct {
	mu        sync.RWMutex
	current   store.Snapshot
	observers []Observer
	log       zerolog.Logger
}

// NewDispatcher creates a dispatcher starting from initial.
func NewDispatcher(initial store.Snapshot, log zerolog.Logger, observers ...Observer) *Dispatcher {
	return &Dispatcher{current: initial, observers: observers, log: log}
}

// Subscribe registers an additional observer.
func (d *Dispatcher) Subscribe(o Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, o)
}

// Snapshot returns the current snapshot. The result is never modified.
func (d *Dispatcher) Snapshot() store.Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// Dispatch applies m to the current snapshot. On error the snapshot is left
// as it was and no observer is called.
func (d *Dispatcher) Dispatch(ctx context.Context, m Mutation) (store.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	next, err := Apply(d.current, m)
	if err != nil {
		kind := "unknown"
		if m != nil {
			kind = m.Kind()
		}
		d.log.Warn().Err(err).Str("mutation", kind).Int64("revision", d.current.Revision).Msg("Mutation rejected")
		return d.current, err
	}

	next.Revision = d.current.Revision + 1
	d.current = next
	d.log.Debug().Str("mutation", m.Kind()).Int64("revision", next.Revision).Msg("Mutation applied")

	for _, o := range d.observers {
		o.Committed(ctx, next, m)
	}
	return next, nil
}
