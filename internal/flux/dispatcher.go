package flux

import (
	"log/slog"
	"sync"
)

// Handler receives every dispatched action. Handlers run synchronously on the
// dispatching goroutine; any slow work must be started on a goroutine of its own.
type Handler func(Action)

// Token identifies one registration with a Dispatcher.
type Token uint64

type registration struct {
	token   Token
	handler Handler
}

// Dispatcher broadcasts actions to registered handlers in registration order.
//
// WHAT DOES A DISPATCHER DO?
// It is the one entry point for every state change. Nothing edits the state
// directly; callers describe what happened as an Action and hand it to
// Dispatch. Every registered handler sees every action, and each decides for
// itself whether it cares:
//
//	d := flux.NewDispatcher(logger)
//	d.Register(func(a flux.Action) {
//	    if nav, ok := a.(flux.Navigate); ok {
//	        fmt.Println("going to", nav.Path)
//	    }
//	})
//	d.Dispatch(flux.Navigate{Path: "/tasks"}) // prints "going to /tasks"
//
// In this module the only handler is usually a Store, but tests register
// recorders next to it to watch the action stream.
//
// The handler list is copied before each broadcast, so a handler may dispatch
// further actions, register or unregister without deadlocking. Handlers added
// during a broadcast only see later actions.
type Dispatcher struct {
	mu       sync.Mutex
	next     Token
	handlers []registration
	logger   *slog.Logger
}

// NewDispatcher creates an empty Dispatcher. A nil logger discards output.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{logger: logger}
}

// Register appends h to the handler list and returns a token for Unregister.
// Registering the same function twice makes it run twice per dispatch.
func (d *Dispatcher) Register(h Handler) Token {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.next++
	d.handlers = append(d.handlers, registration{token: d.next, handler: h})
	return d.next
}

// Unregister removes the handler registered under t. It reports whether a
// handler was removed; calling it again with the same token is a no-op.
func (d *Dispatcher) Unregister(t Token) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, r := range d.handlers {
		if r.token == t {
			d.handlers = append(d.handlers[:i:i], d.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered handlers.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handlers)
}

// Dispatch invokes every registered handler with a, in registration order,
// and returns once all of them have returned. It does not wait for any
// asynchronous work the handlers start.
//
// A handler that panics is logged and skipped; the remaining handlers still
// receive the action.
func (d *Dispatcher) Dispatch(a Action) {
	if a == nil {
		d.logger.Warn("dispatch: dropping nil action")
		return
	}

	// Snapshot under the lock, call outside it: a handler that dispatches
	// again would otherwise block on d.mu forever.
	d.mu.Lock()
	handlers := make([]registration, len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.Unlock()

	for _, r := range handlers {
		d.invoke(r, a)
	}
}

func (d *Dispatcher) invoke(r registration, a Action) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("dispatch: handler panicked",
				slog.String("action", string(a.Type())),
				slog.Uint64("handler", uint64(r.token)),
				slog.Any("panic", p),
			)
		}
	}()
	r.handler(a)
}
