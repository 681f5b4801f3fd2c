package worker

import "sync"

// Mailbox is a single-slot, latest-wins result holder. Put overwrites any
// result not yet taken.
type Mailbox[Res any] struct {
	mu     sync.Mutex
	slot   *Result[Res]
	notify chan struct{}
}

// NewMailbox creates an empty mailbox.
func NewMailbox[Res any]() *Mailbox[Res] {
	return &Mailbox[Res]{notify: make(chan struct{}, 1)}
}

// Put stores r, replacing any unconsumed result.
func (m *Mailbox[Res]) Put(r Result[Res]) {
	m.mu.Lock()
	m.slot = &r
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Take removes and returns the stored result, if any.
func (m *Mailbox[Res]) Take() (Result[Res], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slot == nil {
		return Result[Res]{}, false
	}
	r := *m.slot
	m.slot = nil
	return r, true
}

// Ready is signalled after Put. A signal may be stale; Take is authoritative.
func (m *Mailbox[Res]) Ready() <-chan struct{} {
	return m.notify
}
