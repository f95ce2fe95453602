package sim

import "testing"

func TestInputQueueDropsStale(t *testing.T) {
	q := NewInputQueue(16)
	for _, tick := range []uint32{3, 4, 2, 4, 6} {
		q.Push(InputSample{Tick: tick})
	}

	var got []uint32
	processed, stale := q.Drain(func(in InputSample) { got = append(got, in.Tick) })
	if processed != 3 || stale != 2 {
		t.Fatalf("processed=%d stale=%d", processed, stale)
	}
	want := []uint32{3, 4, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("queue not drained")
	}

	q.Push(InputSample{Tick: 6})
	if processed, stale := q.Drain(func(InputSample) {}); processed != 0 || stale != 1 {
		t.Fatalf("duplicate after drain: processed=%d stale=%d", processed, stale)
	}
	if last, ok := q.LastConsumed(); !ok || last != 6 {
		t.Fatalf("last consumed = %d, %v", last, ok)
	}
}

func TestInputQueueAcceptsTickZeroFirst(t *testing.T) {
	q := NewInputQueue(4)
	q.Push(InputSample{Tick: 0})
	if processed, _ := q.Drain(func(InputSample) {}); processed != 1 {
		t.Fatalf("tick 0 should be processed")
	}
}

func TestInputQueueLimit(t *testing.T) {
	q := NewInputQueue(2)
	q.Push(InputSample{Tick: 1})
	q.Push(InputSample{Tick: 2})
	if q.Push(InputSample{Tick: 3}) {
		t.Fatalf("push beyond limit accepted")
	}
}
