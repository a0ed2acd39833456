package clock

import (
	"sync"
	"time"
)

// Mock is a manually advanced clock for tests. Advance fires due timers
// synchronously on the calling goroutine, so assertions can run right
// after without sleeping.
type Mock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*mockTimer
	tickers []*mockTicker
}

// NewMock creates a mock clock at the given instant.
func NewMock(at time.Time) *Mock {
	return &Mock{now: at}
}

// Now returns the mock's current time.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc registers fn to fire once the mock advances past d.
func (m *Mock) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &mockTimer{clock: m, at: m.now.Add(d), fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// NewTicker returns a ticker fed by Advance.
func (m *Mock) NewTicker(d time.Duration) Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &mockTicker{clock: m, interval: d, next: m.now.Add(d), ch: make(chan time.Time, 64)}
	m.tickers = append(m.tickers, t)
	return t
}

// Advance moves the clock forward, firing due timers in time order and
// pushing elapsed ticks onto ticker channels.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()
	m.Set(target)
}

// Set jumps the clock to a specific instant (must not move backward).
func (m *Mock) Set(target time.Time) {
	for {
		m.mu.Lock()
		var next *mockTimer
		for _, t := range m.timers {
			if t.stopped || t.fired || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			for _, tk := range m.tickers {
				for !tk.stopped && !tk.next.After(target) {
					select {
					case tk.ch <- tk.next:
					default:
					}
					tk.next = tk.next.Add(tk.interval)
				}
			}
			m.now = target
			m.mu.Unlock()
			return
		}
		next.fired = true
		m.now = next.at
		fn := next.fn
		m.mu.Unlock()
		fn()
	}
}

type mockTimer struct {
	clock   *Mock
	at      time.Time
	fn      func()
	fired   bool
	stopped bool
}

func (t *mockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.fired && !t.stopped
	t.stopped = true
	return was
}

type mockTicker struct {
	clock    *Mock
	interval time.Duration
	next     time.Time
	ch       chan time.Time
	stopped  bool
}

func (t *mockTicker) C() <-chan time.Time { return t.ch }

func (t *mockTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.stopped = true
}

// Pending returns the number of unfired, unstopped timers. Useful for
// asserting timer cleanup.
func (m *Mock) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}
