package provisioner

import (
	"sync"
	"testing"

	"avatar-provisioner/auth"

	"github.com/oklog/ulid/v2"
)

func newReq() *Request { return NewRequest(auth.Completed{Success: true, Wallet: "0xABC"}) }

func TestPendingQueue_Enqueue(t *testing.T) {
	q := NewPendingQueue()
	for want := 1; want <= 3; want++ {
		if got := q.Enqueue(newReq()); got != want {
			t.Errorf("Enqueue() position = %d, want %d", got, want)
		}
	}
	if got := q.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
}

func TestPendingQueue_Dequeue(t *testing.T) {
	q := NewPendingQueue()
	r1, r2 := newReq(), newReq()
	q.Enqueue(r1)
	q.Enqueue(r2)

	entry := q.Dequeue()
	if entry == nil {
		t.Fatal("Dequeue() returned nil")
	}
	if entry.Request.AttemptID != r1.AttemptID {
		t.Errorf("Dequeued attempt = %s, want %s", entry.Request.AttemptID, r1.AttemptID)
	}
	if pos, ok := q.Position(r2.AttemptID); !ok || pos != 1 {
		t.Errorf("Position() after dequeue = %d, %v, want 1, true", pos, ok)
	}
	q.Dequeue()
	if entry := q.Dequeue(); entry != nil {
		t.Errorf("Dequeue() on empty queue = %#v, want nil", entry)
	}
}

func TestPendingQueue_Position(t *testing.T) {
	q := NewPendingQueue()
	reqs := []*Request{newReq(), newReq(), newReq()}
	for _, r := range reqs {
		q.Enqueue(r)
	}
	tests := []struct {
		name   string
		id     ulid.ULID
		want   int
		wantOK bool
	}{
		{"first", reqs[0].AttemptID, 1, true},
		{"last", reqs[2].AttemptID, 3, true},
		{"unknown", newReq().AttemptID, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := q.Position(tt.id)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Position() = %d, %v, want %d, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestPendingQueue_Snapshot(t *testing.T) {
	q := NewPendingQueue()
	if got := q.Snapshot(); len(got) != 0 {
		t.Errorf("Snapshot() of empty queue = %#v", got)
	}
	r1, r2 := newReq(), newReq()
	q.Enqueue(r1)
	q.Enqueue(r2)
	got := q.Snapshot()
	if len(got) != 2 || got[0] != r1.AttemptID || got[1] != r2.AttemptID {
		t.Errorf("Snapshot() mismatch\ngot: %#v", got)
	}
}

func TestPendingQueue_ConcurrentAccess(t *testing.T) {
	q := NewPendingQueue()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Enqueue(newReq())
		}()
	}
	wg.Wait()
	if got := q.Len(); got != 10 {
		t.Errorf("Len() after concurrent enqueues = %d, want 10", got)
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Dequeue()
		}()
	}
	wg.Wait()
	if got := q.Len(); got != 0 {
		t.Errorf("Len() after concurrent dequeues = %d, want 0", got)
	}
}

func TestNewRequest_UniqueOrderedIDs(t *testing.T) {
	a, b := newReq(), newReq()
	if a.AttemptID == b.AttemptID {
		t.Fatalf("attempt ids collide: %s", a.AttemptID)
	}
	if a.AttemptID.Compare(b.AttemptID) >= 0 {
		t.Errorf("attempt ids not monotonic: %s then %s", a.AttemptID, b.AttemptID)
	}
}
