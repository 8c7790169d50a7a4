package route

import "sync"

// Location is a navigation target. Replace and Reload mark a full
// navigation that discards the current view state, as done after a forced
// logout.
type Location struct {
	Path    string
	Replace bool
	Reload  bool
}

// Navigator tracks the current view and notifies listeners of every
// navigation.
type Navigator struct {
	guard *Guard

	mu        sync.Mutex
	current   Location
	listeners []func(Location)
}

// NewNavigator creates a navigator starting at HomePath.
func NewNavigator(guard *Guard) *Navigator {
	return &Navigator{guard: guard, current: Location{Path: HomePath}}
}

// OnNavigate registers fn to be called after every navigation.
func (n *Navigator) OnNavigate(fn func(Location)) {
	n.mu.Lock()
	n.listeners = append(n.listeners, fn)
	n.mu.Unlock()
}

// Current returns the last navigated location.
func (n *Navigator) Current() Location {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Visit navigates to p after consulting the guard. When the guard refuses,
// the navigator moves to the redirect target instead and returns a
// *DeniedError.
func (n *Navigator) Visit(p string) error {
	p = Clean(p)
	d := n.guard.Check(p)
	if !d.Allowed {
		n.navigate(Location{Path: d.Redirect, Replace: true})
		return &DeniedError{Path: p, Redirect: d.Redirect, Reason: d.Reason}
	}
	n.navigate(Location{Path: p})
	return nil
}

// Redirect performs a full navigation to p without consulting the guard.
func (n *Navigator) Redirect(p string) {
	n.navigate(Location{Path: Clean(p), Replace: true, Reload: true})
}

func (n *Navigator) navigate(loc Location) {
	n.mu.Lock()
	n.current = loc
	listeners := make([]func(Location), len(n.listeners))
	copy(listeners, n.listeners)
	n.mu.Unlock()

	for _, fn := range listeners {
		fn(loc)
	}
}
