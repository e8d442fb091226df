package clock

import (
	"sync"
	"time"
)

// Clock reports ledger time as unix seconds.
type Clock interface {
	Now() int64
}

type System struct{}

func (System) Now() int64 {
	return time.Now().Unix()
}

// Manual is a settable clock for tests and tooling.
type Manual struct {
	mu  sync.Mutex
	now int64
}

func NewManual(now int64) *Manual {
	return &Manual{now: now}
}

func (m *Manual) Now() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Set(now int64) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

func (m *Manual) Advance(seconds int64) {
	m.mu.Lock()
	m.now += seconds
	m.mu.Unlock()
}
