package motif

import "testing"

func sineDefinition() InstrumentDefinition {
	return InstrumentDefinition{
		Parameters: []ParameterDefinition{{DefaultValue: 0.5, MinValue: 0, MaxValue: 1}},
		Create:     func(sampleRate int) any { return &sineState{} },
		Process: func(s any, out []float32, channels, frames int) {
			st := s.(*sineState)
			for i := 0; i < frames*channels; i++ {
				if st.on {
					out[i] = 1
				}
			}
		},
		SetNoteOn:  func(s any, pitch, intensity float64) { s.(*sineState).on = true },
		SetNoteOff: func(s any, pitch float64) { s.(*sineState).on = false },
		SetParameter: func(s any, index int, value, slope float64) {
			s.(*sineState).gain = value
		},
	}
}

type sineState struct {
	on   bool
	gain float64
}

func TestInstrumentStartNoteIsIdempotent(t *testing.T) {
	inst := NewInstrument(sineDefinition(), 48000)
	hookCalls := 0
	inst.SetNoteOnHook(func(pitch, intensity float64) { hookCalls++ })

	inst.StartNote(1, 1, 0)
	inst.StartNote(1, 1, 0)
	if hookCalls != 1 {
		t.Fatalf("got %d note-on hook calls, want 1 (second start_note is a no-op)", hookCalls)
	}
	if !inst.IsNoteOn(1) {
		t.Fatalf("expected pitch 1 to be on")
	}
}

func TestInstrumentStopNoteOnlyFiresWhenOn(t *testing.T) {
	inst := NewInstrument(sineDefinition(), 48000)
	hookCalls := 0
	inst.SetNoteOffHook(func(pitch float64) { hookCalls++ })

	inst.StopNote(1, 0) // never started
	if hookCalls != 0 {
		t.Fatalf("got %d note-off hook calls, want 0", hookCalls)
	}
	inst.StartNote(1, 1, 0)
	inst.StopNote(1, 0)
	if hookCalls != 1 {
		t.Fatalf("got %d note-off hook calls, want 1", hookCalls)
	}
	if inst.IsNoteOn(1) {
		t.Fatalf("expected pitch 1 to be off")
	}
}

func TestInstrumentSetParameterSkipsEnqueueWhenUnchanged(t *testing.T) {
	inst := NewInstrument(sineDefinition(), 48000)
	// Draining the construction-time SetParameter event first.
	out := make([]float32, 2)
	inst.Process(out, 2, 1, 0)

	if err := inst.SetParameter(0, 0.5, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inst.queue.Empty() {
		t.Fatalf("expected no event enqueued for an unchanged parameter value")
	}
	if err := inst.SetParameter(0, 0.9, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst.queue.Empty() {
		t.Fatalf("expected an event enqueued for a changed parameter value")
	}
}

func TestInstrumentSetParameterOutOfRangeErrors(t *testing.T) {
	inst := NewInstrument(sineDefinition(), 48000)
	if err := inst.SetParameter(5, 1, 0); err == nil {
		t.Fatalf("expected an error for an out-of-range parameter index")
	}
}

func TestInstrumentProcessAppliesEventsAtCorrectFrame(t *testing.T) {
	inst := NewInstrument(sineDefinition(), 10) // 10 Hz sample rate: 1 sample = 0.1s
	inst.StartNote(1, 1, 0.5)                   // due at frame 5 of a 10-frame block

	out := make([]float32, 10*2)
	inst.Process(out, 2, 10, 0)

	for i := 0; i < 5; i++ {
		if out[i*2] != 0 {
			t.Fatalf("frame %d: got %f, want silence before the note-on", i, out[i*2])
		}
	}
	for i := 5; i < 10; i++ {
		if out[i*2] != 1 {
			t.Fatalf("frame %d: got %f, want 1 after the note-on", i, out[i*2])
		}
	}
}

func TestInstrumentStopAllNotes(t *testing.T) {
	inst := NewInstrument(sineDefinition(), 48000)
	inst.StartNote(1, 1, 0)
	inst.StartNote(2, 1, 0)
	inst.StopAllNotes(0)
	if inst.IsNoteOn(1) || inst.IsNoteOn(2) {
		t.Fatalf("expected every note to be off after StopAllNotes")
	}
}

func TestInstrumentSetDataReleasesOnDrainWithoutCallback(t *testing.T) {
	def := sineDefinition() // no SetData callback
	inst := NewInstrument(def, 48000)
	released := false
	inst.SetData(42, func(any) { released = true }, 0)
	inst.Destroy()
	if !released {
		t.Fatalf("expected the pending SetData payload to be released on Destroy")
	}
}
