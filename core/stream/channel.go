package stream

import (
	"context"
	"sync"

	"github.com/talentradar/activity-core/core/events"
)

// Channel is one turn's event source. Events returns a single-use iterator
// that yields decoded events in delivery order; a non-nil error that is not
// skippable (see IsSkippable) means the transport failed and the stream is
// over. Close aborts the stream; a closed channel stops yielding.
type Channel interface {
	Events(ctx context.Context) func(func(events.Event, error) bool)
	Close() error
}

// Replayer is an in-memory Channel fed from a recorded event slice. It backs
// deterministic replays of captured turns and keeps engine tests independent
// of any transport.
type Replayer struct {
	mu     sync.Mutex
	events []events.Event
	closed chan struct{}
}

func NewReplayer(recorded ...events.Event) *Replayer {
	return &Replayer{
		events: append([]events.Event(nil), recorded...),
		closed: make(chan struct{}),
	}
}

// Append queues more events. Appending after Close is a no-op.
func (r *Replayer) Append(recorded ...events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	select {
	case <-r.closed:
		return
	default:
	}
	r.events = append(r.events, recorded...)
}

func (r *Replayer) Events(ctx context.Context) func(func(events.Event, error) bool) {
	return func(yield func(events.Event, error) bool) {
		for i := 0; ; i++ {
			r.mu.Lock()
			if i >= len(r.events) {
				r.mu.Unlock()
				return
			}
			event := r.events[i]
			r.mu.Unlock()

			select {
			case <-r.closed:
				return
			case <-ctx.Done():
				return
			default:
			}

			if !yield(event, nil) {
				return
			}
		}
	}
}

func (r *Replayer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	select {
	case <-r.closed:
	default:
		close(r.closed)
	}
	return nil
}
