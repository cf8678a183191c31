package adb

import (
	"sync"
	"time"
)

// Level is the severity of a script log entry.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Entry is one adb.info/adb.error call.
type Entry struct {
	Level    Level     `json:"level"`
	Message  string    `json:"message"`
	Resource string    `json:"resource,omitempty"`
	RunID    string    `json:"run_id,omitempty"`
	Time     time.Time `json:"time"`
}

// Sink receives entries as scripts produce them.
type Sink interface {
	Publish(Entry)
}

// Hub keeps a bounded history of entries and fans them out to subscribers.
// Publish never blocks: a subscriber whose buffer is full misses entries.
type Hub struct {
	mu      sync.RWMutex
	history []Entry
	next    int
	full    bool
	subs    map[chan Entry]struct{}
	dropped uint64
}

// NewHub creates a hub remembering up to capacity entries.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 256
	}
	return &Hub{
		history: make([]Entry, capacity),
		subs:    make(map[chan Entry]struct{}),
	}
}

// Publish records e and forwards it to every subscriber.
func (h *Hub) Publish(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.history[h.next] = e
	h.next = (h.next + 1) % len(h.history)
	if h.next == 0 {
		h.full = true
	}

	for ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.dropped++
		}
	}
}

// Recent returns up to n of the newest entries, oldest first. n <= 0
// returns the whole history.
func (h *Hub) Recent(n int) []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.recentLocked(n)
}

func (h *Hub) recentLocked(n int) []Entry {
	size := h.next
	if h.full {
		size = len(h.history)
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]Entry, 0, n)
	start := h.next - n
	if start < 0 {
		start += len(h.history)
	}
	for i := 0; i < n; i++ {
		out = append(out, h.history[(start+i)%len(h.history)])
	}
	return out
}

// Subscribe returns a channel receiving new entries and a function that
// cancels the subscription and closes the channel.
func (h *Hub) Subscribe(buffer int) (<-chan Entry, func()) {
	_, ch, cancel := h.SubscribeWithHistory(0, buffer)
	return ch, cancel
}

// SubscribeWithHistory is Subscribe plus up to n of the newest entries
// (none when n <= 0). Every entry appears exactly once: either in the
// returned history or on the channel.
func (h *Hub) SubscribeWithHistory(n, buffer int) ([]Entry, <-chan Entry, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Entry, buffer)

	h.mu.Lock()
	var history []Entry
	if n > 0 {
		history = h.recentLocked(n)
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return history, ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Dropped returns how many deliveries were skipped for slow subscribers.
func (h *Hub) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
