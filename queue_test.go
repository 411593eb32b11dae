package motif

import "testing"

func TestEventQueuePushPopOrder(t *testing.T) {
	q := newEventQueue(4)
	q.Push(1.0, Event{Kind: EventStartNote, Pitch: 0})
	q.Push(2.0, Event{Kind: EventStartNote, Pitch: 1})

	ts, ev, ok := q.PopUntil(1.5)
	if !ok || ts != 1.0 || ev.Pitch != 0 {
		t.Fatalf("got ts=%f ev=%+v ok=%v, want ts=1.0 pitch=0 ok=true", ts, ev, ok)
	}
	if _, _, ok := q.PopUntil(1.5); ok {
		t.Fatalf("expected no event due before 1.5 after draining the first")
	}
	ts, ev, ok = q.PopUntil(2.5)
	if !ok || ts != 2.0 || ev.Pitch != 1 {
		t.Fatalf("got ts=%f ev=%+v ok=%v, want ts=2.0 pitch=1 ok=true", ts, ev, ok)
	}
}

func TestEventQueueFullReturnsFalse(t *testing.T) {
	q := newEventQueue(2)
	if !q.Push(0, Event{}) {
		t.Fatalf("first push should succeed")
	}
	if !q.Push(0, Event{}) {
		t.Fatalf("second push should succeed")
	}
	if q.Push(0, Event{}) {
		t.Fatalf("third push should fail: capacity is 2")
	}
}

func TestEventQueueEmpty(t *testing.T) {
	q := newEventQueue(4)
	if !q.Empty() {
		t.Fatalf("new queue should be empty")
	}
	q.Push(0, Event{})
	if q.Empty() {
		t.Fatalf("queue should not be empty after a push")
	}
}

func TestEventQueueDrainReleasesDataPayloads(t *testing.T) {
	q := newEventQueue(4)
	released := false
	payload := &dataPayload{raw: 42, destroy: func(any) { released = true }}
	q.Push(0, Event{Kind: EventSetData, Data: payload})
	q.drain()
	if !released {
		t.Fatalf("expected drain to release the pending SetData payload")
	}
	if !q.Empty() {
		t.Fatalf("expected queue to be empty after drain")
	}
}
