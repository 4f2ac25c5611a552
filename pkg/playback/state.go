// ABOUTME: Playback state values and the shared state cell
// ABOUTME: Mutex-guarded state with change broadcast for the producer goroutine
package playback

import (
	"fmt"
	"sync"
)

// State is the playback state of a controller
type State int32

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// IsActive reports whether a session is attached (playing or paused)
func (s State) IsActive() bool {
	return s == Playing || s == Paused
}

// stateCell is the single authoritative state of one controller. Waiters
// take a snapshot with Watch and block on the returned channel, which is
// closed on the next change. onChange runs under the cell lock and must
// not block.
type stateCell struct {
	mu       sync.Mutex
	cur      State
	prev     State
	changed  chan struct{}
	onChange func(State)
}

func newStateCell(onChange func(State)) *stateCell {
	return &stateCell{
		changed:  make(chan struct{}),
		onChange: onChange,
	}
}

// Get returns the current state
func (c *stateCell) Get() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

// Previous returns the state before the last change
func (c *stateCell) Previous() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prev
}

// Watch returns the current state and a channel closed on the next change
func (c *stateCell) Watch() (State, <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur, c.changed
}

// Set stores s and reports the old value
func (c *stateCell) Set(s State) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.cur
	if old != s {
		c.prev = old
		c.cur = s
		c.changedLocked()
	}
	return old
}

// CompareAndSet moves from one state to another only if from is current
func (c *stateCell) CompareAndSet(from, to State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur != from {
		return false
	}
	if from != to {
		c.prev = from
		c.cur = to
		c.changedLocked()
	}
	return true
}

// Broadcast wakes watchers without changing the state
func (c *stateCell) Broadcast() {
	c.mu.Lock()
	c.wakeLocked()
	c.mu.Unlock()
}

func (c *stateCell) changedLocked() {
	c.wakeLocked()
	if c.onChange != nil {
		c.onChange(c.cur)
	}
}

func (c *stateCell) wakeLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}
