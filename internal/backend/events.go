package backend

import (
	"sync"

	"github.com/vyayamzone/vyayam-api/internal/models"
)

// Listeners fans auth events out to subscribers in emission order.
// The zero value is ready to use.
type Listeners struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]AuthListener
	order  []int
}

// Add registers fn and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (l *Listeners) Add(fn AuthListener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.subs == nil {
		l.subs = make(map[int]AuthListener)
	}
	id := l.nextID
	l.nextID++
	l.subs[id] = fn
	l.order = append(l.order, id)

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs, id)
		for i, v := range l.order {
			if v == id {
				l.order = append(l.order[:i], l.order[i+1:]...)
				break
			}
		}
	}
}

// Emit calls every subscriber synchronously, oldest first. Subscribers may
// unsubscribe from inside the callback.
func (l *Listeners) Emit(event AuthEvent, session *models.Session) {
	l.mu.Lock()
	fns := make([]AuthListener, 0, len(l.order))
	for _, id := range l.order {
		fns = append(fns, l.subs[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(event, session)
	}
}
