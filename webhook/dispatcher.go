package webhook

import (
	"context"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/rs/zerolog"
)

// DefaultWorkers bounds concurrent handler calls when none is configured.
const DefaultWorkers = 8

// Handler processes one event. Errors are logged by the dispatcher.
type Handler func(ctx context.Context, ev *Event) error

// Dispatcher routes events to the handlers registered for their type and
// runs them on a bounded worker pool.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	pool     pond.Pool
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher with at most workers concurrent handler
// calls. A nil logger disables logging.
func NewDispatcher(workers int, logger *zerolog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	return &Dispatcher{
		handlers: make(map[EventType][]Handler),
		pool:     pond.NewPool(workers),
		logger:   l.With().Str("component", "webhook").Logger(),
	}
}

// On registers h for events of type t. Every handler registered for a type
// is called once per matching event.
func (d *Dispatcher) On(t EventType, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[t] = append(d.handlers[t], h)
}

func (d *Dispatcher) handlersFor(t EventType) []Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Handler(nil), d.handlers[t]...)
}

// Dispatch runs the handlers of every event and waits for them. It returns
// the first handler error; the other handlers still run.
func (d *Dispatcher) Dispatch(ctx context.Context, events []*Event) error {
	group := d.pool.NewGroup()
	submitted := 0
	for _, ev := range events {
		for _, h := range d.handlersFor(ev.Type) {
			group.SubmitErr(func() error {
				return d.call(ctx, h, ev)
			})
			submitted++
		}
	}
	if submitted == 0 {
		return nil
	}
	return group.Wait()
}

// Enqueue schedules the handlers of every event without waiting.
func (d *Dispatcher) Enqueue(ctx context.Context, events []*Event) {
	for _, ev := range events {
		handlers := d.handlersFor(ev.Type)
		if len(handlers) == 0 {
			d.logger.Debug().Str("event", string(ev.Type)).Msg("no handler registered")
			continue
		}
		for _, h := range handlers {
			if err := d.pool.Go(func() { _ = d.call(ctx, h, ev) }); err != nil {
				d.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("dropping event")
			}
		}
	}
}

func (d *Dispatcher) call(ctx context.Context, h Handler, ev *Event) error {
	err := h(ctx, ev)
	if err != nil {
		d.logger.Error().Err(err).Str("event", string(ev.Type)).Str("for_user_id", ev.ForUserID).Msg("event handler failed")
	}
	return err
}

// Close waits for running handlers and stops the pool.
func (d *Dispatcher) Close() {
	d.pool.StopAndWait()
}
