// Package clipboard holds the copy target for generated strings.
package clipboard

import (
	"sync"
	"time"
)

// DefaultResetAfter is how long the copied flag stays raised.
const DefaultResetAfter = 2 * time.Second

// Clipboard receives copied text and exposes a transient copied flag.
type Clipboard interface {
	Copy(text string) bool
	Copied() bool
	Text() string
	Close()
}

// Memory keeps the last copied text in memory.
type Memory struct {
	mu         sync.Mutex
	text       string
	copied     bool
	resetAfter time.Duration
	timer      *time.Timer
	closed     bool
	onReset    func()
}

// NewMemory creates a Memory clipboard. A non-positive resetAfter falls back
// to DefaultResetAfter.
func NewMemory(resetAfter time.Duration) *Memory {
	if resetAfter <= 0 {
		resetAfter = DefaultResetAfter
	}
	return &Memory{resetAfter: resetAfter}
}

// OnReset registers fn to be called after the copied flag drops.
func (m *Memory) OnReset(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReset = fn
}

// Copy stores text and raises the copied flag. Empty text is refused.
func (m *Memory) Copy(text string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || text == "" {
		return false
	}

	m.text = text
	m.copied = true
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.resetAfter, m.reset)
	return true
}

func (m *Memory) reset() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.copied = false
	m.timer = nil
	fn := m.onReset
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Copied reports whether a copy happened within the last resetAfter.
func (m *Memory) Copied() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copied
}

// Text returns the last copied text.
func (m *Memory) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

// Close stops the pending reset timer. Further copies are refused.
func (m *Memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.copied = false
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
