package containers

import "testing"

func TestRingQueueFIFOOrder(t *testing.T) {
	q := NewRingQueue[int](2)
	for i := 0; i < 5; i++ {
		q.Enqueue(i)
	}
	for i := 0; i < 5; i++ {
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue() error = %v", err)
		}
		if got != i {
			t.Errorf("Dequeue() = %d, want %d", got, i)
		}
	}
}

func TestRingQueueGrowsPastInitialCapacity(t *testing.T) {
	q := NewRingQueue[int](1)
	const n = 100
	for i := 0; i < n; i++ {
		q.Enqueue(i)
	}
	if q.Len() != n {
		t.Fatalf("Len() = %d, want %d", q.Len(), n)
	}
	for i := 0; i < n; i++ {
		got, err := q.Dequeue()
		if err != nil || got != i {
			t.Fatalf("Dequeue() = (%d, %v), want (%d, nil)", got, err, i)
		}
	}
}

func TestRingQueueGrowPreservesOrderAcrossWraparound(t *testing.T) {
	q := NewRingQueue[int](4)
	q.Enqueue(1)
	q.Enqueue(2)
	q.Enqueue(3)
	q.Dequeue()
	q.Dequeue()
	q.Enqueue(4)
	q.Enqueue(5)
	q.Enqueue(6) // fills the ring with readIndex > 0
	q.Enqueue(7) // forces grow with readIndex > 0

	want := []int{3, 4, 5, 6, 7}
	for _, w := range want {
		got, err := q.Dequeue()
		if err != nil || got != w {
			t.Fatalf("Dequeue() = (%d, %v), want (%d, nil)", got, err, w)
		}
	}
}

func TestRingQueueDequeueEmptyReturnsError(t *testing.T) {
	q := NewRingQueue[string](4)
	if _, err := q.Dequeue(); err != ErrQueueEmpty {
		t.Errorf("Dequeue() error = %v, want ErrQueueEmpty", err)
	}
}

func TestRingQueuePeekDoesNotRemove(t *testing.T) {
	q := NewRingQueue[int](4)
	q.Enqueue(42)
	got, err := q.Peek()
	if err != nil || got != 42 {
		t.Fatalf("Peek() = (%d, %v), want (42, nil)", got, err)
	}
	if q.Len() != 1 {
		t.Errorf("Len() after Peek() = %d, want 1", q.Len())
	}
}

func TestRingQueueIsEmpty(t *testing.T) {
	q := NewRingQueue[int](4)
	if !q.IsEmpty() {
		t.Error("IsEmpty() = false on fresh queue, want true")
	}
	q.Enqueue(1)
	if q.IsEmpty() {
		t.Error("IsEmpty() = true after Enqueue, want false")
	}
	q.Dequeue()
	if !q.IsEmpty() {
		t.Error("IsEmpty() = false after draining, want true")
	}
}
