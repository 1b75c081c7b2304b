// Package controller holds the per-view data controllers. All of them share
// one fetch cycle and differ only in the API calls they make. Results that
// arrive after the view went away are dropped.
package controller

import (
	"context"
	"fmt"
	"log"
	"sync"

	"taskboard/internal/api"
)

// State is a position in the fetch cycle.
type State int

const (
	Idle State = iota
	Loading
	Ready
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText lets snapshots render state names in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func isAllowedTransition(from, to State) bool {
	switch from {
	case Idle:
		return to == Loading
	case Loading:
		return to == Ready || to == Error || to == Loading || to == Idle
	case Ready, Error:
		return to == Loading || to == Idle
	default:
		return false
	}
}

// Session is what a controller needs from the session store.
type Session interface {
	Current() *api.Identity
	Logout(ctx context.Context) error
}

// Snapshot is a point-in-time copy of a controller's state.
type Snapshot[T any] struct {
	State   State `json:"state"`
	Data    T     `json:"data"`
	HasData bool  `json:"hasData"`
	Err     error `json:"-"`
}

// FetchFunc loads everything a view displays.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Cycle is the fetch state machine shared by every controller.
type Cycle[T any] struct {
	view  string
	sess  Session
	fetch FetchFunc[T]

	mu        sync.Mutex
	state     State
	data      T
	hasData   bool
	err       error
	mounted   bool
	gen       uint64
	nextObs   int
	observers map[int]func(Snapshot[T])
}

// NewCycle creates an idle, unmounted cycle for view.
func NewCycle[T any](view string, sess Session, fetch FetchFunc[T]) *Cycle[T] {
	return &Cycle[T]{
		view:      view,
		sess:      sess,
		fetch:     fetch,
		observers: make(map[int]func(Snapshot[T])),
	}
}

// View names the view this cycle serves.
func (c *Cycle[T]) View() string {
	return c.view
}

// Mount attaches the view and starts the first load.
func (c *Cycle[T]) Mount(ctx context.Context) error {
	c.mu.Lock()
	c.mounted = true
	c.mu.Unlock()
	return c.load(ctx)
}

// Refresh re-runs the fetch for a mounted view.
func (c *Cycle[T]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	mounted := c.mounted
	c.mu.Unlock()
	if !mounted {
		return ErrNotMounted
	}
	return c.load(ctx)
}

// Unmount detaches the view. Data is dropped and any fetch still in flight
// will be discarded when it returns.
func (c *Cycle[T]) Unmount() {
	c.mu.Lock()
	c.mounted = false
	c.gen++
	changed := c.state != Idle
	if changed {
		c.setLocked(Idle)
	}
	var zero T
	c.data = zero
	c.hasData = false
	c.err = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if changed {
		c.publish(snap)
	}
}

// Snapshot returns the current state.
func (c *Cycle[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn for every transition. The returned func removes it.
func (c *Cycle[T]) Subscribe(fn func(Snapshot[T])) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Mutate runs op. On failure the displayed data is left alone and a
// *MutationError is returned. On success the view re-fetches, strictly
// after op returned.
func (c *Cycle[T]) Mutate(ctx context.Context, name string, op func(ctx context.Context) error) error {
	if err := op(ctx); err != nil {
		return &MutationError{View: c.view, Op: name, Err: c.classify(ctx, err)}
	}

	c.mu.Lock()
	mounted := c.mounted
	c.mu.Unlock()
	if !mounted {
		return nil
	}
	return c.load(ctx)
}

func (c *Cycle[T]) load(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.setLocked(Loading)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)

	data, err := c.fetch(ctx)
	if err != nil {
		err = &FetchError{View: c.view, Err: c.classify(ctx, err)}
	}

	c.mu.Lock()
	if gen != c.gen || !c.mounted {
		c.mu.Unlock()
		return ErrStale
	}
	if err != nil {
		c.setLocked(Error)
		c.err = err
	} else {
		c.setLocked(Ready)
		c.data = data
		c.hasData = true
		c.err = nil
	}
	snap = c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)

	return err
}

// classify turns a 401 from the service into ErrSessionExpired and signs
// the user out.
func (c *Cycle[T]) classify(ctx context.Context, err error) error {
	if !api.IsUnauthorized(err) {
		return err
	}
	if c.sess != nil {
		if logoutErr := c.sess.Logout(ctx); logoutErr != nil {
			log.Printf("failed to clear expired session: %v", logoutErr)
		}
	}
	return fmt.Errorf("%w: %w", ErrSessionExpired, err)
}

// setLocked expects c.mu held. Disallowed transitions indicate a bug in
// this file, so they are logged and skipped rather than returned.
func (c *Cycle[T]) setLocked(to State) {
	if !isAllowedTransition(c.state, to) {
		log.Printf("disallowed %s transition: %s -> %s", c.view, c.state, to)
		return
	}
	c.state = to
}

func (c *Cycle[T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{State: c.state, Data: c.data, HasData: c.hasData, Err: c.err}
}

func (c *Cycle[T]) publish(snap Snapshot[T]) {
	c.mu.Lock()
	fns := make([]func(Snapshot[T]), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// current returns the signed-in identity or ErrNoSession.
func current(sess Session) (*api.Identity, error) {
	if sess == nil {
		return nil, ErrNoSession
	}
	id := sess.Current()
	if id == nil {
		return nil, ErrNoSession
	}
	return id, nil
}
