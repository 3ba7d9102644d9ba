package auth

import "github.com/jrsteele09/carebook-portal/sessions"

// State is where the session lifecycle currently stands
type State int

const (
	StateLoading State = iota // Restore has not completed
	StateUnauthenticated
	StateAuthenticated
	StateRefreshPending // a refresh call is in flight; the old session still serves requests
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshPending:
		return "refresh-pending"
	default:
		return "unauthenticated"
	}
}

// Listener is told about state changes together with a copy of the
// session (nil when signed out). Listeners run on the goroutine that
// caused the change and must not block.
type Listener func(state State, session *sessions.Session)

// Subscribe registers listener and returns a func that removes it
func (m *Manager) Subscribe(listener Listener) (unsubscribe func()) {
	m.lock.Lock()
	defer m.lock.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = listener
	return func() {
		m.lock.Lock()
		defer m.lock.Unlock()
		delete(m.listeners, id)
	}
}

// State returns the current lifecycle state
func (m *Manager) State() State {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state
}

// setState records state. Callers that change the session hold
// commitLock so recorded states follow commit order.
func (m *Manager) setState(state State) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.state = state
}

// notify tells every listener the latest state and session. Concurrent
// changes may be coalesced but the last notification always carries the
// settled state.
func (m *Manager) notify() {
	m.lock.Lock()
	state := m.state
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.lock.Unlock()

	if len(listeners) == 0 {
		return
	}
	current := m.store.Current()
	for _, l := range listeners {
		l(state, current.Clone())
	}
}
