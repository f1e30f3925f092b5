package provisioner

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// PendingEntry is a request waiting behind the in-flight attempt.
type PendingEntry struct {
	Request   *Request
	Timestamp time.Time
	Position  int
}

// PendingQueue is the FIFO of attempts that arrived while another was running.
// The controller is a single target, so one in-memory queue is enough.
type PendingQueue struct {
	mu      sync.RWMutex
	entries []*PendingEntry
}

func NewPendingQueue() *PendingQueue {
	return &PendingQueue{}
}

// Enqueue appends req and returns its 1-based position.
func (q *PendingQueue) Enqueue(req *Request) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry := &PendingEntry{Request: req, Timestamp: time.Now()}
	q.entries = append(q.entries, entry)
	q.renumber()
	return entry.Position
}

// Dequeue removes and returns the oldest entry, nil when empty.
func (q *PendingQueue) Dequeue() *PendingEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return nil
	}
	entry := q.entries[0]
	q.entries[0] = nil
	q.entries = q.entries[1:]
	q.renumber()
	return entry
}

// Position returns where an attempt currently waits.
func (q *PendingQueue) Position(id ulid.ULID) (int, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, e := range q.entries {
		if e.Request.AttemptID == id {
			return e.Position, true
		}
	}
	return 0, false
}

func (q *PendingQueue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.entries)
}

// Snapshot returns the waiting attempt ids in order.
func (q *PendingQueue) Snapshot() []ulid.ULID {
	q.mu.RLock()
	defer q.mu.RUnlock()

	ids := make([]ulid.ULID, 0, len(q.entries))
	for _, e := range q.entries {
		ids = append(ids, e.Request.AttemptID)
	}
	return ids
}

func (q *PendingQueue) renumber() {
	for i, e := range q.entries {
		e.Position = i + 1
	}
}
