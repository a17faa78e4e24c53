package containers

import "testing"

func TestRingQueueFIFOOrder(t *testing.T) {
	rq := NewRingQueue[int](3)

	for i := 1; i <= 3; i++ {
		if err := rq.Enqueue(i); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	if err := rq.Enqueue(4); err != ErrQueueFull {
		t.Errorf("Enqueue on full queue = %v, want ErrQueueFull", err)
	}

	for i := 1; i <= 3; i++ {
		v, err := rq.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if v != i {
			t.Errorf("Dequeue = %d, want %d", v, i)
		}
	}
	if _, err := rq.Dequeue(); err != ErrQueueEmpty {
		t.Errorf("Dequeue on empty queue = %v, want ErrQueueEmpty", err)
	}
}

func TestRingQueueWrapsAround(t *testing.T) {
	rq := NewRingQueue[string](2)

	rq.Enqueue("a")
	rq.Enqueue("b")
	rq.Dequeue()
	if err := rq.Enqueue("c"); err != nil {
		t.Fatalf("Enqueue after wrap: %v", err)
	}

	if v, _ := rq.Peek(); v != "b" {
		t.Errorf("Peek = %q, want %q", v, "b")
	}
	if rq.Len() != 2 {
		t.Errorf("Len = %d, want 2", rq.Len())
	}
}
