package provider

import "sync"

type registration struct {
	id ListenerID
	fn Listener
}

// Emitter fans events out to listeners. Events are dispatched one at a time
// on a single goroutine in the order they were emitted, so a listener never
// runs concurrently with another listener of the same emitter. Listeners may
// register or remove listeners from inside a callback.
type Emitter struct {
	mu        sync.Mutex
	idle      *sync.Cond
	nextID    ListenerID
	listeners map[EventKind][]registration
	queue     []Event
	running   bool
	closed    bool
}

// NewEmitter creates an emitter.
func NewEmitter() *Emitter {
	e := &Emitter{listeners: map[EventKind][]registration{}}
	e.idle = sync.NewCond(&e.mu)
	return e
}

// On implements EventSource.
func (e *Emitter) On(kind EventKind, l Listener) ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	e.listeners[kind] = append(e.listeners[kind], registration{id: e.nextID, fn: l})
	return e.nextID
}

// RemoveListener implements EventSource. Unknown IDs are ignored.
func (e *Emitter) RemoveListener(kind EventKind, id ListenerID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	regs := e.listeners[kind]
	for i, r := range regs {
		if r.id == id {
			e.listeners[kind] = append(regs[:i:i], regs[i+1:]...)
			return
		}
	}
}

// ListenerCount returns how many listeners are registered for kind.
func (e *Emitter) ListenerCount(kind EventKind) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[kind])
}

// Emit queues ev for dispatch and returns immediately.
func (e *Emitter) Emit(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.queue = append(e.queue, ev)
	if !e.running {
		e.running = true
		go e.dispatch()
	}
}

// Drain blocks until every event emitted so far has been delivered.
func (e *Emitter) Drain() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.running {
		e.idle.Wait()
	}
}

// Close drops queued events and stops further emission.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.queue = nil
}

func (e *Emitter) dispatch() {
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.running = false
			e.idle.Broadcast()
			e.mu.Unlock()
			return
		}
		ev := e.queue[0]
		e.queue = e.queue[1:]
		regs := append([]registration(nil), e.listeners[ev.Kind]...)
		e.mu.Unlock()

		for _, r := range regs {
			r.fn(ev)
		}
	}
}
