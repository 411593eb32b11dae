package motif

import "math"

// InstrumentDefinition is the implementer-supplied, immutable description of
// a concrete sound-generating unit: its parameter metadata and the seven DSP
// callback points that carry it across the control/audio thread boundary.
// Every callback is optional; an absent one is a no-op, not an error, per
// spec.md section 6/7.
type InstrumentDefinition struct {
	Parameters []ParameterDefinition

	// Create allocates DSP state on the control thread and returns it.
	Create func(sampleRate int) any
	// Destroy releases DSP state on the owning thread at drop.
	Destroy func(state any)
	// Process renders frames of audio (interleaved, channels wide) into out.
	Process func(state any, out []float32, channels, frames int)
	// SetData installs an owned data payload; the callback must take
	// ownership of raw or free it immediately.
	SetData func(state any, raw any)
	// SetNoteOn applies a note-on.
	SetNoteOn func(state any, pitch, intensity float64)
	// SetNoteOff applies a note-off.
	SetNoteOff func(state any, pitch float64)
	// SetParameter applies a parameter change. slope is a reserved
	// extension point for sample-accurate ramping (spec.md section 9);
	// the core never calls this with a non-zero slope.
	SetParameter func(state any, index int, value, slope float64)
}

// NoteOnHook and NoteOffHook are invoked synchronously on the control thread
// whenever StartNote/StopNote actually change the live-note set.
type NoteOnHook func(pitch, intensity float64)
type NoteOffHook func(pitch float64)

// Instrument is the per-instrument event pipeline: a Controller half (this
// type's exported methods, control-thread only) and a Processor half
// (Process, audio-thread only), joined by a lock-free Event Queue. Grounded
// on original_source/barelymusician/engine/instrument.h +
// instrument_processor.cpp and spec.md section 4.E.
type Instrument struct {
	def        InstrumentDefinition
	sampleRate int
	queue      *eventQueue

	// Controller state (control thread only).
	params    []Parameter
	liveNotes map[float64]bool
	onNoteOn  NoteOnHook
	onNoteOff NoteOffHook

	// Processor state: allocated on the control thread at construction,
	// touched only by the audio thread from then on.
	state any
}

// NewInstrument constructs an Instrument, allocating its DSP state via
// def.Create, building a Parameter per entry in def.Parameters, and
// synthesizing a SetParameter(index, default) event at t=0 for each so the
// audio-thread state and the Controller's current values start in sync
// (see DESIGN.md's Open Question decision).
func NewInstrument(def InstrumentDefinition, sampleRate int) *Instrument {
	inst := &Instrument{
		def:        def,
		sampleRate: sampleRate,
		queue:      newEventQueue(defaultQueueCapacity),
		liveNotes:  make(map[float64]bool),
	}
	inst.params = make([]Parameter, len(def.Parameters))
	for i, pd := range def.Parameters {
		inst.params[i] = NewParameter(pd)
	}
	if def.Create != nil {
		inst.state = def.Create(sampleRate)
	}
	for i := range inst.params {
		inst.queue.Push(0, Event{Kind: EventSetParameter, ParameterIdx: i, Value: inst.params[i].Value()})
	}
	return inst
}

// Destroy drains the Event Queue (releasing any pending SetData payloads)
// and releases the DSP state. Must be called from the owning thread,
// serialised with any in-flight Process call.
func (inst *Instrument) Destroy() {
	inst.queue.drain()
	if inst.def.Destroy != nil {
		inst.def.Destroy(inst.state)
	}
}

// SetNoteOnHook installs the hook invoked synchronously from StartNote
// whenever a pitch newly turns on.
func (inst *Instrument) SetNoteOnHook(hook NoteOnHook) { inst.onNoteOn = hook }

// SetNoteOffHook installs the hook invoked synchronously from StopNote
// whenever a pitch turns off.
func (inst *Instrument) SetNoteOffHook(hook NoteOffHook) { inst.onNoteOff = hook }

// ParameterCount returns the number of parameters this instrument exposes.
func (inst *Instrument) ParameterCount() int { return len(inst.params) }

// Parameter returns the current value of the parameter at index, or an
// error if the index is out of range.
func (inst *Instrument) Parameter(index int) (float64, error) {
	if index < 0 || index >= len(inst.params) {
		return 0, newError(StatusNotFound, "parameter index %d out of range", index)
	}
	return inst.params[index].Value(), nil
}

// SetParameter clamps and stores value at index, enqueuing a SetParameter
// event only if the clamped value actually changed.
func (inst *Instrument) SetParameter(index int, value, timestamp float64) error {
	if index < 0 || index >= len(inst.params) {
		return newError(StatusNotFound, "parameter index %d out of range", index)
	}
	if inst.params[index].Set(value) {
		return inst.push(timestamp, Event{Kind: EventSetParameter, ParameterIdx: index, Value: inst.params[index].Value()})
	}
	return nil
}

// ResetParameter restores the parameter at index to its default, enqueuing
// a SetParameter event only if the value actually changed.
func (inst *Instrument) ResetParameter(index int, timestamp float64) error {
	if index < 0 || index >= len(inst.params) {
		return newError(StatusNotFound, "parameter index %d out of range", index)
	}
	if inst.params[index].Reset() {
		return inst.push(timestamp, Event{Kind: EventSetParameter, ParameterIdx: index, Value: inst.params[index].Value()})
	}
	return nil
}

// ResetAllParameters resets every parameter, enqueuing one SetParameter
// event per parameter that actually changed.
func (inst *Instrument) ResetAllParameters(timestamp float64) error {
	for i := range inst.params {
		if err := inst.ResetParameter(i, timestamp); err != nil {
			return err
		}
	}
	return nil
}

// SetData transfers an owned data payload to the audio thread. destroy, if
// non-nil, is invoked at most once: by Process when the definition has no
// SetData callback, or by Destroy's drain if the event is still queued. When
// the definition has a SetData callback, that callback receives raw and
// destroy is not invoked.
func (inst *Instrument) SetData(raw any, destroy func(any), timestamp float64) error {
	payload := &dataPayload{raw: raw, destroy: destroy}
	return inst.push(timestamp, Event{Kind: EventSetData, Data: payload})
}

// StartNote adds pitch to the live-note set and enqueues a StartNote event,
// but only if the pitch was not already on; this is what makes repeated
// start_note calls for an already-sounding pitch idempotent.
func (inst *Instrument) StartNote(pitch, intensity, timestamp float64) error {
	if intensity < 0 {
		intensity = 0
	} else if intensity > 1 {
		intensity = 1
	}
	if inst.liveNotes[pitch] {
		return nil
	}
	inst.liveNotes[pitch] = true
	if inst.onNoteOn != nil {
		inst.onNoteOn(pitch, intensity)
	}
	return inst.push(timestamp, Event{Kind: EventStartNote, Pitch: pitch, Intensity: intensity})
}

// StopNote removes pitch from the live-note set and enqueues a StopNote
// event, but only if it was actually on.
func (inst *Instrument) StopNote(pitch, timestamp float64) error {
	if !inst.liveNotes[pitch] {
		return nil
	}
	delete(inst.liveNotes, pitch)
	if inst.onNoteOff != nil {
		inst.onNoteOff(pitch)
	}
	return inst.push(timestamp, Event{Kind: EventStopNote, Pitch: pitch})
}

// StopAllNotes clears the live-note set, invoking the note-off hook and
// enqueuing a StopNote event per pitch that was on.
func (inst *Instrument) StopAllNotes(timestamp float64) error {
	for pitch := range inst.liveNotes {
		delete(inst.liveNotes, pitch)
		if inst.onNoteOff != nil {
			inst.onNoteOff(pitch)
		}
		if err := inst.push(timestamp, Event{Kind: EventStopNote, Pitch: pitch}); err != nil {
			return err
		}
	}
	return nil
}

// IsNoteOn is a pure membership test against the control-thread live-note set.
func (inst *Instrument) IsNoteOn(pitch float64) bool {
	return inst.liveNotes[pitch]
}

func (inst *Instrument) push(timestamp float64, ev Event) error {
	if !inst.queue.Push(timestamp, ev) {
		return ErrQueueFull
	}
	return nil
}

// Process is the sole audio-thread-safe operation: it drains every event due
// before timestamp+frames/sampleRate, rendering the gap of silence before
// each one via the DSP Process callback, applies the event, then renders the
// remaining tail. Grounded on spec.md section 4.E's process algorithm.
func (inst *Instrument) Process(out []float32, channels, frames int, timestamp float64) {
	endTimestamp := timestamp + float64(frames)/float64(inst.sampleRate)
	frame := 0
	for {
		ts, ev, ok := inst.queue.PopUntil(endTimestamp)
		if !ok {
			break
		}
		evFrame := int(math.Round((ts - timestamp) * float64(inst.sampleRate)))
		if evFrame < frame {
			evFrame = frame
		} else if evFrame > frames {
			evFrame = frames
		}
		if evFrame > frame {
			inst.render(out, channels, frame, evFrame)
			frame = evFrame
		}
		inst.apply(ev)
	}
	if frame < frames {
		inst.render(out, channels, frame, frames)
	}
}

func (inst *Instrument) render(out []float32, channels, from, to int) {
	if inst.def.Process == nil || to <= from {
		return
	}
	start := from * channels
	end := to * channels
	if end > len(out) {
		end = len(out)
	}
	inst.def.Process(inst.state, out[start:end], channels, to-from)
}

func (inst *Instrument) apply(ev Event) {
	switch ev.Kind {
	case EventSetData:
		if inst.def.SetData != nil {
			inst.def.SetData(inst.state, ev.Data.raw)
		} else {
			ev.Data.release()
		}
	case EventSetParameter:
		if inst.def.SetParameter != nil {
			inst.def.SetParameter(inst.state, ev.ParameterIdx, ev.Value, ev.Slope)
		}
	case EventStartNote:
		if inst.def.SetNoteOn != nil {
			inst.def.SetNoteOn(inst.state, ev.Pitch, ev.Intensity)
		}
	case EventStopNote:
		if inst.def.SetNoteOff != nil {
			inst.def.SetNoteOff(inst.state, ev.Pitch)
		}
	}
}
