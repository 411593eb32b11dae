package motif

import "sync/atomic"

// EventKind identifies which Instrument operation an Event carries across
// the Event Queue.
type EventKind int

const (
	// EventSetData carries an owned DSP data payload.
	EventSetData EventKind = iota
	// EventSetParameter carries a parameter index/value update.
	EventSetParameter
	// EventStartNote carries a pitch/intensity note-on.
	EventStartNote
	// EventStopNote carries a pitch note-off.
	EventStopNote
)

// Event is the payload type moved across the Event Queue. Only the fields
// relevant to Kind are populated; the rest are zero.
type Event struct {
	Kind          EventKind
	ParameterIdx  int
	Value         float64
	Slope         float64
	Pitch         float64
	Intensity     float64
	Data          *dataPayload
}

// dataPayload is the owned transfer unit for EventSetData: the caller's raw
// value, stored as given (there is no move step), and an optional destroy
// callback. On consumption the definition's SetData callback receives raw and
// destroy is not invoked; with no SetData callback, or when the queue is
// drained at Instrument destruction, release invokes destroy.
type dataPayload struct {
	raw     any
	destroy func(any)
}

// release invokes the attached destroy callback exactly once. Used both when
// the audio thread is done with a payload and when a queue is drained on
// Instrument destruction without ever having been consumed.
func (d *dataPayload) release() {
	if d != nil && d.destroy != nil {
		d.destroy(d.raw)
	}
}

type timedEvent struct {
	timestamp float64
	event     Event
}

// eventQueue is the bounded SPSC lock-free ring between the control thread
// (producer, Push) and the audio thread (consumer, PopUntil). It never
// blocks and never allocates past construction, matching spec.md section 4.A
// and the original's message_queue.cpp ring-buffer design.
type eventQueue struct {
	slots []timedEvent
	head  atomic.Uint64 // consumer-owned read index
	tail  atomic.Uint64 // producer-owned write index
}

// defaultQueueCapacity is the sensible default spec.md section 4.A calls for.
const defaultQueueCapacity = 4096

func newEventQueue(capacity int) *eventQueue {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	// One extra slot distinguishes full from empty without a separate count.
	return &eventQueue{slots: make([]timedEvent, capacity+1)}
}

// Push is called only by the control thread. It returns false, never
// blocking or allocating, if the ring is full.
func (q *eventQueue) Push(timestamp float64, ev Event) bool {
	tail := q.tail.Load()
	next := (tail + 1) % uint64(len(q.slots))
	if next == q.head.Load() {
		return false
	}
	q.slots[tail] = timedEvent{timestamp: timestamp, event: ev}
	q.tail.Store(next) // release-store publishes the slot
	return true
}

// PopUntil is called only by the audio thread. It returns the next event
// whose timestamp is strictly less than endTimestamp, or ok=false if the
// queue is empty or the head event is not yet due. Events come back in
// insertion order, never re-sorted by timestamp.
func (q *eventQueue) PopUntil(endTimestamp float64) (timestamp float64, ev Event, ok bool) {
	head := q.head.Load()
	if head == q.tail.Load() { // acquire-load observes the producer's publish
		return 0, Event{}, false
	}
	next := q.slots[head]
	if next.timestamp >= endTimestamp {
		return 0, Event{}, false
	}
	q.head.Store((head + 1) % uint64(len(q.slots)))
	return next.timestamp, next.event, true
}

// Empty reports whether the queue currently holds no events. Safe to call
// from either thread for diagnostics; not part of the real-time contract.
func (q *eventQueue) Empty() bool {
	return q.head.Load() == q.tail.Load()
}

// drain removes every remaining event, releasing any attached SetData
// payloads via their destroy callback. Called once, on the owning thread, at
// Instrument destruction.
func (q *eventQueue) drain() {
	for {
		head := q.head.Load()
		if head == q.tail.Load() {
			return
		}
		ev := q.slots[head].event
		if ev.Kind == EventSetData {
			ev.Data.release()
		}
		q.head.Store((head + 1) % uint64(len(q.slots)))
	}
}
