package cli

import (
	"sync"

	"github.com/vyayamzone/vyayam-api/internal/guard"
)

const homePath = "/"

// page is a view addressed by path. Pages with a nil policy are public.
type page struct {
	title  string
	policy *guard.Policy
	view   guard.View
}

// Router tracks which view the terminal is on. Navigation only records the
// destination; the app renders after each command.
type Router struct {
	mu      sync.Mutex
	current string
	history []string
}

func NewRouter(start string) *Router {
	return &Router{current: start}
}

func (r *Router) CurrentPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Router) Navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if path == "" || path == r.current {
		return
	}
	r.history = append(r.history, r.current)
	r.current = path
}

// Back returns to the previous view, if there is one.
func (r *Router) Back() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.history); n > 0 {
		r.current = r.history[n-1]
		r.history = r.history[:n-1]
	}
}
