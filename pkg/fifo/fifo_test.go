package fifo

import "testing"

func TestPushPopOrder(t *testing.T) {
	q := New(2)
	q.Push(1)
	q.Push(2)
	q.Push(3)

	for _, want := range []int{1, 2, 3} {
		if q.Empty() {
			t.Fatalf("queue unexpectedly empty before popping %d", want)
		}
		got := q.Pop().(int)
		if got != want {
			t.Errorf("Pop() = %d, want %d", got, want)
		}
	}
	if !q.Empty() {
		t.Error("queue should be empty after popping everything pushed")
	}
}

func TestGrowPreservesOrderAcrossWrap(t *testing.T) {
	q := New(2)
	q.Push("a")
	q.Push("b")
	q.Pop()
	q.Push("c")
	q.Push("d") // forces grow with head offset into the middle of buf

	want := []string{"b", "c", "d"}
	for _, w := range want {
		got := q.Pop().(string)
		if got != w {
			t.Errorf("Pop() = %q, want %q", got, w)
		}
	}
}

func TestLen(t *testing.T) {
	q := New(4)
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
	q.Push(1)
	q.Push(2)
	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}
	q.Pop()
	if q.Len() != 1 {
		t.Errorf("Len() = %d, want 1", q.Len())
	}
}

func TestPopEmptyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Pop on empty queue did not panic")
		}
	}()
	New(1).Pop()
}

func TestNewClampsNonPositiveCapacity(t *testing.T) {
	q := New(0)
	q.Push(1)
	if got := q.Pop().(int); got != 1 {
		t.Errorf("Pop() = %d, want 1", got)
	}
}
