// Package goals sequences the mission's destinations.
package goals

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/globalplanner/internal/geom"
)

// DefaultDwell is how long the vehicle waits at a reached destination.
const DefaultDwell = 2 * time.Second

var (
	// ErrInvalidDestinationFile is returned for an empty or malformed
	// destination list.
	ErrInvalidDestinationFile = errors.New("invalid destination file")

	// ErrIndexOutOfRange is returned when jumping to a destination that does
	// not exist.
	ErrIndexOutOfRange = errors.New("destination index out of range")
)

// Destination is one mission target.
type Destination struct {
	Index int       `msgpack:"index" json:"index"`
	Pose  geom.Pose `msgpack:"pose" json:"pose"`
	// Dwell, when set, replaces the default dwell for this destination.
	// An explicit zero means no wait.
	Dwell *time.Duration `msgpack:"dwell,omitempty" json:"dwell,omitempty"`
	Label string        `msgpack:"label,omitempty" json:"label,omitempty"`
}

// Options configures a Manager.
type Options struct {
	CyclicRepeat bool
	DefaultDwell time.Duration
	// DwellOverrides maps destination index to dwell time and takes
	// precedence over a destination's own dwell.
	DwellOverrides map[int]time.Duration
}

// Manager owns the ordered destination list and the current target index.
// It is safe for concurrent use; the supervisor is its only writer.
type Manager struct {
	mu        sync.RWMutex
	opts      Options
	list      []Destination
	index     int
	completed bool
}

// NewManager creates an empty manager.
func NewManager(opts Options) *Manager {
	if opts.DefaultDwell <= 0 {
		opts.DefaultDwell = DefaultDwell
	}
	return &Manager{opts: opts}
}

// LoadDestinations replaces the destination list. The start index is clamped
// into range. An empty list is rejected and leaves the previous list intact.
func (m *Manager) LoadDestinations(list []Destination, startIndex int) error {
	if len(list) == 0 {
		return fmt.Errorf("%w: no destinations", ErrInvalidDestinationFile)
	}
	cp := make([]Destination, len(list))
	for i, d := range list {
		d.Index = i
		cp[i] = d
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = cp
	m.index = clamp(startIndex, 0, len(cp)-1)
	m.completed = false
	return nil
}

// Loaded reports whether a destination list is present.
func (m *Manager) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.list) > 0
}

// CurrentGoal returns the current destination. It reports false when no list
// is loaded or the final destination has been completed.
func (m *Manager) CurrentGoal() (Destination, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.list) == 0 || m.completed {
		return Destination{}, false
	}
	return m.list[m.index], true
}

// Index returns the current destination index.
func (m *Manager) Index() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index
}

// AdvanceGoal moves to the next destination after the current one has been
// reached. At the end of the list it wraps to 0 when cyclic repeat is enabled;
// otherwise it marks the mission completed, holds the index, and reports
// false.
func (m *Manager) AdvanceGoal() (Destination, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.list) == 0 || m.completed {
		return Destination{}, false
	}
	next := m.index + 1
	if next >= len(m.list) {
		if !m.opts.CyclicRepeat {
			m.completed = true
			return Destination{}, false
		}
		next = 0
	}
	m.index = next
	return m.list[m.index], true
}

// Completed reports whether the final destination has been reached without
// cyclic repeat.
func (m *Manager) Completed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.completed
}

// SetIndex jumps to the given destination and clears the completed state.
func (m *Manager) SetIndex(i int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.list) {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, i, len(m.list))
	}
	m.index = i
	m.completed = false
	return nil
}

// Append adds a destination to the end of the list and returns its index.
func (m *Manager) Append(d Destination) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.Index = len(m.list)
	m.list = append(m.list, d)
	return d.Index
}

// Destinations returns a copy of the list.
func (m *Manager) Destinations() []Destination {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Destination(nil), m.list...)
}

// DwellFor resolves the dwell time for a destination.
func (m *Manager) DwellFor(d Destination) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.opts.DwellOverrides[d.Index]; ok && v >= 0 {
		return v
	}
	if d.Dwell != nil && *d.Dwell >= 0 {
		return *d.Dwell
	}
	return m.opts.DefaultDwell
}

// DwellOf returns a dwell setting for Destination.Dwell.
func DwellOf(v time.Duration) *time.Duration { return &v }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
