package motif

import "math"

// BeatCallback is invoked synchronously from Update/Start whenever the
// transport's position crosses an integer beat boundary. It may call Stop,
// SetTempo or SetPosition; Transport re-reads its own state after the call
// rather than caching anything across the boundary.
type BeatCallback func(position float64)

// UpdateCallback is invoked once per Update call (or once per jump within a
// single Update call that crosses multiple beats) with the beat range that
// was just advanced through.
type UpdateCallback func(beginPosition, endPosition float64)

// Transport is the authoritative mapping between seconds (wall time) and
// beats (musical time), grounded on
// original_source/barelymusician/engine/transport.cpp.
type Transport struct {
	isPlaying bool

	position     float64
	lastPosition float64
	timestamp    float64
	lastTimestamp float64

	tempo float64 // beats per second

	nextBeatPosition  float64
	nextBeatTimestamp float64

	beatCallback   BeatCallback
	updateCallback UpdateCallback
}

// NewTransport returns a stopped Transport at position 0, tempo 1 beat/sec.
func NewTransport() *Transport {
	return &Transport{tempo: 1.0}
}

// IsPlaying reports whether the transport is currently advancing position.
func (t *Transport) IsPlaying() bool { return t.isPlaying }

// Position returns the current position in beats.
func (t *Transport) Position() float64 { return t.position }

// Tempo returns the current tempo in beats per second.
func (t *Transport) Tempo() float64 { return t.tempo }

// Timestamp returns the current timestamp in seconds.
func (t *Transport) Timestamp() float64 { return t.timestamp }

// SetBeatCallback installs the callback fired on every integer beat
// boundary crossed. A nil callback disables notification.
func (t *Transport) SetBeatCallback(cb BeatCallback) { t.beatCallback = cb }

// SetUpdateCallback installs the callback fired once per advanced range.
// A nil callback disables notification.
func (t *Transport) SetUpdateCallback(cb UpdateCallback) { t.updateCallback = cb }

// TimestampOf returns the wall-clock timestamp at which the transport would
// reach the given beat position, linearly extrapolated from the current
// tempo. If tempo is zero the transport never reaches any position beyond
// the current one; TimestampOf returns +Inf for p > Position().
func (t *Transport) TimestampOf(position float64) float64 {
	if t.tempo <= 0 {
		if position > t.position {
			return math.Inf(1)
		}
		return t.timestamp
	}
	return t.timestamp + (position-t.position)/t.tempo
}

// SetTempo clamps tempo to [0, +Inf) and recomputes the next beat's
// timestamp so a mid-flight change doesn't leave it stale.
func (t *Transport) SetTempo(tempo float64) {
	if tempo < 0 {
		tempo = 0
	}
	if tempo == t.tempo {
		return
	}
	t.tempo = tempo
	t.nextBeatTimestamp = t.TimestampOf(t.nextBeatPosition)
}

// SetPosition clamps position to [0, +Inf), recomputing the next beat as
// ceil(position) and its timestamp.
func (t *Transport) SetPosition(position float64) {
	if position < 0 {
		position = 0
	}
	if position == t.position {
		return
	}
	wasSynced := t.position == t.lastPosition
	t.position = position
	if wasSynced {
		t.lastPosition = t.position
	}
	t.nextBeatPosition = math.Ceil(t.position)
	t.nextBeatTimestamp = t.TimestampOf(t.nextBeatPosition)
}

// Start begins playback. If position is already sitting exactly on an
// integer beat, that beat fires immediately.
func (t *Transport) Start() {
	t.isPlaying = true
	t.nextBeatPosition = math.Ceil(t.position)
	if t.position == t.nextBeatPosition {
		t.fireBeat(t.position)
		if !t.isPlaying || t.tempo <= 0 {
			return
		}
		if t.position == t.nextBeatPosition {
			t.nextBeatPosition++
		}
	}
	t.nextBeatTimestamp = t.TimestampOf(t.nextBeatPosition)
}

// Stop halts playback. Position is left untouched.
func (t *Transport) Stop() { t.isPlaying = false }

func (t *Transport) fireBeat(position float64) {
	if t.beatCallback != nil {
		t.beatCallback(position)
	}
}

func (t *Transport) fireUpdate(begin, end float64) {
	if t.updateCallback != nil {
		t.updateCallback(begin, end)
	}
}

// Update advances the transport's wall clock to toTimestamp, firing the beat
// callback on every integer beat crossed and the update callback once per
// advanced sub-range. Update is idempotent when not playing: it simply
// fast-forwards the wall clock with no beat/update callbacks.
//
// Re-entrancy: the beat callback may call Stop, SetTempo or SetPosition; this
// loop re-reads isPlaying/tempo immediately after invoking it and never
// assumes nextBeatPosition/nextBeatTimestamp still hold across the call.
func (t *Transport) Update(toTimestamp float64) {
	for t.timestamp < toTimestamp {
		if !t.isPlaying || t.tempo <= 0 {
			t.timestamp = toTimestamp
			t.lastTimestamp = t.timestamp
			return
		}
		if t.position == t.nextBeatPosition {
			t.fireBeat(t.position)
			if !t.isPlaying || t.tempo <= 0 {
				t.timestamp = toTimestamp
				t.lastTimestamp = t.timestamp
				return
			}
			if t.position == t.nextBeatPosition {
				t.nextBeatPosition++
				t.nextBeatTimestamp = t.TimestampOf(t.nextBeatPosition)
			}
		}
		if t.nextBeatTimestamp < toTimestamp {
			t.position = t.nextBeatPosition
			t.timestamp = t.nextBeatTimestamp
		} else {
			t.position += t.tempo * (toTimestamp - t.timestamp)
			t.timestamp = toTimestamp
		}
		t.fireUpdate(t.lastPosition, t.position)
		t.lastPosition = t.position
		t.lastTimestamp = t.timestamp
	}
}
