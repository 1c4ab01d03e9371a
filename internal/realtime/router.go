package realtime

import "sync"

// Handler receives one event
type Handler func(Event)

// Poster runs closures on a UI update context. *dispatch.Loop implements it.
type Poster interface {
	Post(fn func()) bool
}

// Router fans events out to handlers bound by event name
type Router struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	poster   Poster
}

// NewRouter creates a router. When poster is non-nil every handler call is marshalled
// onto it; otherwise handlers run on the delivering goroutine.
func NewRouter(poster Poster) *Router {
	return &Router{
		handlers: make(map[string][]Handler),
		poster:   poster,
	}
}

// Bind registers h for events named event
func (r *Router) Bind(event string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[event] = append(r.handlers[event], h)
}

// Unbind removes every handler for event
func (r *Router) Unbind(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, event)
}

// Dispatch delivers ev and reports how many handlers it was handed to
func (r *Router) Dispatch(ev Event) int {
	r.mu.RLock()
	hs := append([]Handler(nil), r.handlers[ev.Name]...)
	r.mu.RUnlock()

	for _, h := range hs {
		if r.poster == nil {
			h(ev)
			continue
		}
		r.poster.Post(func() { h(ev) })
	}
	return len(hs)
}
