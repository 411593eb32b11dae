package motif

import (
	"math"
	"sort"
)

// NoteDefinition is the immutable content of a scheduled note.
type NoteDefinition struct {
	DurationBeats float64
	Pitch         float64
	Intensity     float64
}

// noteKey orders notes primarily by position, with id as a stable,
// insertion-order tiebreaker for same-position notes.
type noteKey struct {
	position float64
	id       Id
}

func lessKey(a, b noteKey) bool {
	if a.position != b.position {
		return a.position < b.position
	}
	return a.id < b.id
}

// Sequence is a time-ranged, loopable, offset-able container of notes. Given
// a half-open beat interval, Process emits the note-on/note-off events
// falling inside it, handling notes that straddle the interval boundary.
// Grounded on spec.md section 4.D and
// original_source/barelymusician/engine/sequence.cpp's offset/loop math.
type Sequence struct {
	keys      []noteKey // sorted ascending by (position, id)
	notes     map[noteKey]NoteDefinition
	positions map[Id]float64

	beginOffset   float64
	beginPosition float64
	endPosition   float64

	isLooping       bool
	loopBeginOffset float64
	loopLength      float64
}

// NewSequence returns an empty, non-looping Sequence spanning
// [0, +Inf) with no begin offset.
func NewSequence() *Sequence {
	return &Sequence{
		notes:      make(map[noteKey]NoteDefinition),
		positions:  make(map[Id]float64),
		endPosition: math.Inf(1),
		loopLength:  1,
	}
}

// AddNote inserts a note at position. Returns an AlreadyExists error if id
// is already present.
func (s *Sequence) AddNote(id Id, position float64, def NoteDefinition) error {
	if _, exists := s.positions[id]; exists {
		return newError(StatusAlreadyExists, "note id %d already exists", id)
	}
	key := noteKey{position, id}
	s.positions[id] = position
	s.notes[key] = def
	s.insertKey(key)
	return nil
}

// RemoveNote deletes the note with the given id. Returns NotFound if absent.
func (s *Sequence) RemoveNote(id Id) error {
	pos, exists := s.positions[id]
	if !exists {
		return newError(StatusNotFound, "note id %d not found", id)
	}
	key := noteKey{pos, id}
	delete(s.positions, id)
	delete(s.notes, key)
	s.removeKey(key)
	return nil
}

// RemoveAllNotes clears the sequence entirely.
func (s *Sequence) RemoveAllNotes() {
	s.keys = s.keys[:0]
	s.notes = make(map[noteKey]NoteDefinition)
	s.positions = make(map[Id]float64)
}

// RemoveAllNotesAt deletes every note sitting exactly at position,
// regardless of id. Grounded on
// original_source/barelymusician/engine/sequence.h's
// RemoveAllNotes(double position) overload.
func (s *Sequence) RemoveAllNotesAt(position float64) {
	s.RemoveAllNotesIn(position, math.Nextafter(position, math.Inf(1)))
}

// RemoveAllNotesIn deletes every note whose position lies in [begin, end).
func (s *Sequence) RemoveAllNotesIn(begin, end float64) {
	if begin >= end {
		return
	}
	lo := s.lowerBound(noteKey{begin, 0})
	hi := s.lowerBound(noteKey{end, 0})
	for i := lo; i < hi; i++ {
		key := s.keys[i]
		delete(s.positions, key.id)
		delete(s.notes, key)
	}
	s.keys = append(s.keys[:lo], s.keys[hi:]...)
}

// SetNotePosition moves an existing note. Returns NotFound if id is absent.
func (s *Sequence) SetNotePosition(id Id, position float64) error {
	oldPos, exists := s.positions[id]
	if !exists {
		return newError(StatusNotFound, "note id %d not found", id)
	}
	if oldPos == position {
		return nil
	}
	oldKey := noteKey{oldPos, id}
	def := s.notes[oldKey]
	delete(s.notes, oldKey)
	s.removeKey(oldKey)
	newKey := noteKey{position, id}
	s.notes[newKey] = def
	s.positions[id] = position
	s.insertKey(newKey)
	return nil
}

// SetNoteDefinition replaces an existing note's definition in place.
// Returns NotFound if id is absent.
func (s *Sequence) SetNoteDefinition(id Id, def NoteDefinition) error {
	pos, exists := s.positions[id]
	if !exists {
		return newError(StatusNotFound, "note id %d not found", id)
	}
	s.notes[noteKey{pos, id}] = def
	return nil
}

// GetNoteDefinition returns the note's definition and true, or the zero
// value and false if id is absent.
func (s *Sequence) GetNoteDefinition(id Id) (NoteDefinition, bool) {
	pos, exists := s.positions[id]
	if !exists {
		return NoteDefinition{}, false
	}
	return s.notes[noteKey{pos, id}], true
}

// GetNotePosition returns the note's position and true, or 0 and false if id
// is absent.
func (s *Sequence) GetNotePosition(id Id) (float64, bool) {
	pos, exists := s.positions[id]
	return pos, exists
}

// IsEmpty reports whether the sequence has no notes.
func (s *Sequence) IsEmpty() bool { return len(s.keys) == 0 }

// Accessors/mutators for the window, offset and loop metadata.

func (s *Sequence) BeginOffset() float64   { return s.beginOffset }
func (s *Sequence) BeginPosition() float64 { return s.beginPosition }
func (s *Sequence) EndPosition() float64   { return s.endPosition }
func (s *Sequence) IsLooping() bool        { return s.isLooping }
func (s *Sequence) LoopBeginOffset() float64 { return s.loopBeginOffset }
func (s *Sequence) LoopLength() float64    { return s.loopLength }

func (s *Sequence) SetBeginOffset(v float64)   { s.beginOffset = v }
func (s *Sequence) SetBeginPosition(v float64) { s.beginPosition = v }
func (s *Sequence) SetEndPosition(v float64)   { s.endPosition = v }
func (s *Sequence) SetLoopBeginOffset(v float64) { s.loopBeginOffset = v }
func (s *Sequence) SetLoopLength(v float64) {
	if v < 0 {
		v = 0
	}
	s.loopLength = v
}
func (s *Sequence) SetLooping(v bool) { s.isLooping = v }

// NoteOnFunc is invoked once per note-on event Process emits, with the
// external beat position, pitch and intensity.
type NoteOnFunc func(position, pitch, intensity float64)

// NoteOffFunc is invoked once per note-off event Process emits, with the
// external beat position and pitch.
type NoteOffFunc func(position, pitch float64)

// Process emits every note-on/note-off event inside the half-open beat
// interval [beginPosition, endPosition), in the external (caller) beat
// timeline, handling the sequence's own window, offset and loop metadata.
func (s *Sequence) Process(beginPosition, endPosition float64, onNoteOn NoteOnFunc, onNoteOff NoteOffFunc) {
	// Step 1: boundary clipping against the sequence's own active window.
	beginPosition = math.Max(beginPosition, s.beginPosition)
	endPosition = math.Min(endPosition, s.endPosition)
	if beginPosition >= endPosition || len(s.keys) == 0 {
		return
	}

	// Step 2: offset reframing into the internal timeline.
	positionOffset := s.beginPosition - s.beginOffset
	internalBegin := beginPosition - positionOffset
	internalEnd := endPosition - positionOffset

	if !s.isLooping {
		s.processRange(internalBegin, internalEnd, positionOffset, onNoteOn, onNoteOff)
		return
	}
	if s.loopLength <= 0 {
		return
	}

	// Step 3.1: fast-forward to the first relevant loop iteration.
	if loopBegin := internalBegin - s.loopBeginOffset; loopBegin > s.loopLength {
		advance := s.loopLength * math.Floor(loopBegin/s.loopLength)
		internalBegin -= advance
		internalEnd -= advance
		positionOffset += advance
	}

	// Step 3.2: pre-loop head.
	loopEnd := s.loopBeginOffset + s.loopLength
	if internalBegin < loopEnd {
		clippedEnd := math.Min(loopEnd, internalEnd)
		s.processRange(internalBegin, clippedEnd, positionOffset, onNoteOn, onNoteOff)
		internalBegin = clippedEnd
	}

	// Step 3.3: repeated loop body.
	positionOffset -= s.loopBeginOffset
	for internalBegin < internalEnd {
		bodyEnd := s.loopBeginOffset + math.Min(s.loopLength, internalEnd-internalBegin)
		s.processRange(s.loopBeginOffset, bodyEnd, positionOffset+internalBegin, onNoteOn, onNoteOff)
		internalBegin += s.loopLength
	}
}

// processRange walks notes in the internal range [begin, end) and emits
// note-on/note-off pairs translated by positionOffset into the external
// timeline. Note-off is clamped to the sequence's own end boundary.
func (s *Sequence) processRange(begin, end, positionOffset float64, onNoteOn NoteOnFunc, onNoteOff NoteOffFunc) {
	lo := s.lowerBound(noteKey{begin, 0})
	hi := s.lowerBound(noteKey{end, 0})
	for i := lo; i < hi; i++ {
		key := s.keys[i]
		def := s.notes[key]
		position := key.position + positionOffset
		if onNoteOn != nil {
			onNoteOn(position, def.Pitch, def.Intensity)
		}
		if onNoteOff != nil {
			duration := math.Max(def.DurationBeats, 0)
			offPosition := math.Min(position+duration, s.endPosition)
			onNoteOff(offPosition, def.Pitch)
		}
	}
}

// lowerBound returns the index of the first key >= target, in [0, len(keys)].
func (s *Sequence) lowerBound(target noteKey) int {
	return sort.Search(len(s.keys), func(i int) bool {
		return !lessKey(s.keys[i], target)
	})
}

func (s *Sequence) insertKey(key noteKey) {
	i := s.lowerBound(key)
	s.keys = append(s.keys, noteKey{})
	copy(s.keys[i+1:], s.keys[i:])
	s.keys[i] = key
}

func (s *Sequence) removeKey(key noteKey) {
	i := s.lowerBound(key)
	if i < len(s.keys) && s.keys[i] == key {
		s.keys = append(s.keys[:i], s.keys[i+1:]...)
	}
}
