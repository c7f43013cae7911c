package scanevents

import (
	"log/slog"
	"sync"
)

// Handler receives one event. Handlers must not block for long: Emit
// calls them synchronously on the emitting goroutine, matching the
// teacher dispatcher's synchronous (non-async) hook path.
type Handler func(Event)

// Bus routes events to per-type registered handlers. It is safe for
// concurrent use; a panicking handler is recovered and logged rather
// than propagated, so one broken listener can never corrupt scan state
// (§4.H).
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	logger   *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets a custom structured logger for handler-panic
// reporting, following pkg/core/executor.go's WithLogger convention.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// NewBus creates an empty event bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		handlers: make(map[EventType][]Handler),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// On registers a handler for one event variant. Handlers for the same
// type run in registration order.
func (b *Bus) On(t EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// Emit dispatches event synchronously to every handler registered for
// its type.
func (b *Bus) Emit(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.Type()]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.callSafely(h, event)
	}
}

func (b *Bus) callSafely(h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("scanevents: handler panicked, discarding",
				slog.String("event_type", string(event.Type())),
				slog.Any("recovered", r))
		}
	}()
	h(event)
}
