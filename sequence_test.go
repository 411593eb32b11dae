package motif

import (
	"math"
	"testing"
)

type recordedEvent struct {
	kind     string
	position float64
	pitch    float64
}

func collectingCallbacks() (*[]recordedEvent, NoteOnFunc, NoteOffFunc) {
	events := &[]recordedEvent{}
	onNoteOn := func(position, pitch, intensity float64) {
		*events = append(*events, recordedEvent{"on", position, pitch})
	}
	onNoteOff := func(position, pitch float64) {
		*events = append(*events, recordedEvent{"off", position, pitch})
	}
	return events, onNoteOn, onNoteOff
}

func TestSequenceProcessEmitsNoteOnAndOff(t *testing.T) {
	s := NewSequence()
	s.AddNote(1, 1.0, NoteDefinition{DurationBeats: 0.5, Pitch: 2, Intensity: 1})

	events, onOn, onOff := collectingCallbacks()
	s.Process(0, 2, onOn, onOff)

	if len(*events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(*events), *events)
	}
	if (*events)[0] != (recordedEvent{"on", 1.0, 2}) {
		t.Fatalf("got %+v, want note-on at 1.0", (*events)[0])
	}
	if (*events)[1] != (recordedEvent{"off", 1.5, 2}) {
		t.Fatalf("got %+v, want note-off at 1.5", (*events)[1])
	}
}

func TestSequenceProcessClipsToWindow(t *testing.T) {
	s := NewSequence()
	s.AddNote(1, 5.0, NoteDefinition{DurationBeats: 1, Pitch: 0, Intensity: 1})

	events, onOn, onOff := collectingCallbacks()
	s.Process(0, 1, onOn, onOff) // window doesn't reach position 5
	if len(*events) != 0 {
		t.Fatalf("got %d events, want 0 outside the note's position", len(*events))
	}
}

func TestSequenceBeginOffsetReframesPositions(t *testing.T) {
	s := NewSequence()
	// A note sitting at internal content position 2 should surface at
	// external position 0 once beginOffset skips the first 2 beats of
	// content.
	s.AddNote(1, 2, NoteDefinition{DurationBeats: 1, Pitch: 0, Intensity: 1})
	s.SetBeginOffset(2)

	events, onOn, onOff := collectingCallbacks()
	s.Process(0, 4, onOn, onOff)

	if len(*events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(*events), *events)
	}
	if (*events)[0].position != 0 {
		t.Fatalf("got position %f, want 0 (internal position 2 shifted by beginOffset)", (*events)[0].position)
	}
}

func TestSequenceLoopRepeatsBody(t *testing.T) {
	s := NewSequence()
	s.AddNote(1, 0, NoteDefinition{DurationBeats: 0.25, Pitch: 0, Intensity: 1})
	s.SetLooping(true)
	s.SetLoopLength(1)

	events, onOn, onOff := collectingCallbacks()
	s.Process(0, 3, onOn, onOff)

	var onCount int
	for _, e := range *events {
		if e.kind == "on" {
			onCount++
		}
	}
	if onCount != 3 {
		t.Fatalf("got %d note-ons across 3 loop iterations, want 3", onCount)
	}
}

func TestSequenceLoopFastForwardsPastManyIterations(t *testing.T) {
	s := NewSequence()
	s.AddNote(1, 0, NoteDefinition{DurationBeats: 0.1, Pitch: 0, Intensity: 1})
	s.SetLooping(true)
	s.SetLoopLength(1)

	events, onOn, onOff := collectingCallbacks()
	s.Process(100, 101, onOn, onOff)

	if len(*events) != 2 {
		t.Fatalf("got %d events, want 2 (one on/off pair at loop iteration 100): %+v", len(*events), *events)
	}
	if math.Abs((*events)[0].position-100) > 1e-9 {
		t.Fatalf("got position %f, want 100", (*events)[0].position)
	}
}

func TestSequenceRemoveAndMoveNote(t *testing.T) {
	s := NewSequence()
	s.AddNote(1, 0, NoteDefinition{DurationBeats: 1, Pitch: 0, Intensity: 1})
	if err := s.SetNotePosition(1, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pos, ok := s.GetNotePosition(1)
	if !ok || pos != 5 {
		t.Fatalf("got pos=%f ok=%v, want 5/true", pos, ok)
	}
	if err := s.RemoveNote(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.IsEmpty() {
		t.Fatalf("expected sequence to be empty after removing its only note")
	}
	if err := s.RemoveNote(1); err == nil {
		t.Fatalf("expected NotFound removing an already-removed note")
	}
}

func TestSequenceAddNoteDuplicateIdFails(t *testing.T) {
	s := NewSequence()
	s.AddNote(1, 0, NoteDefinition{})
	if err := s.AddNote(1, 1, NoteDefinition{}); err == nil {
		t.Fatalf("expected AlreadyExists adding a duplicate id")
	}
}

func TestSequenceRemoveAllNotesAtRemovesOnlyThatPosition(t *testing.T) {
	s := NewSequence()
	s.AddNote(1, 2.0, NoteDefinition{DurationBeats: 1, Pitch: 0, Intensity: 1})
	s.AddNote(2, 2.0, NoteDefinition{DurationBeats: 1, Pitch: 7, Intensity: 1})
	s.AddNote(3, 3.0, NoteDefinition{DurationBeats: 1, Pitch: 0, Intensity: 1})

	s.RemoveAllNotesAt(2.0)

	if _, ok := s.GetNotePosition(1); ok {
		t.Fatalf("expected note 1 at position 2.0 to be removed")
	}
	if _, ok := s.GetNotePosition(2); ok {
		t.Fatalf("expected note 2 at position 2.0 to be removed")
	}
	pos, ok := s.GetNotePosition(3)
	if !ok || pos != 3.0 {
		t.Fatalf("expected note 3 at position 3.0 to survive, got pos=%f ok=%v", pos, ok)
	}
}
