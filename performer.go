package motif

// InstrumentLookup resolves an Id to the live *Instrument currently bound to
// it, or nil if none. Engine implements this against its instrument table.
type InstrumentLookup func(id Id) *Instrument

// Performer binds one Sequence to one Instrument, by id, non-owning: it
// never constructs or destroys either, only reads the Sequence and drives
// the Instrument's Controller methods as the Sequence emits events.
// Grounded on spec.md section 4.F.
type Performer struct {
	sequence     *Sequence
	instrumentId Id

	// activeNotes holds one entry per note-on that has been emitted to the
	// bound instrument but whose note-off has not, because its end lies at
	// or beyond the end of the range last processed, mirroring spec.md's
	// "multimap note_begin_position -> (note_end_position, pitch)"
	// invariant. A slice (not a map keyed by pitch) because two notes of
	// the same pitch can be active at once when a Sequence has overlapping
	// notes; keying by pitch alone would let the second overwrite the
	// first's deferred end and stop the wrong one.
	activeNotes []pendingNoteOff
}

// pendingNoteOff records a deferred note-off: pitch and the position (in
// the Sequence's external beat timeline) at which it falls due.
type pendingNoteOff struct {
	pitch    float64
	position float64
}

// NewPerformer returns a Performer over sequence, initially bound to no
// instrument (InvalidId).
func NewPerformer(sequence *Sequence) *Performer {
	return &Performer{sequence: sequence}
}

// Sequence returns the bound Sequence.
func (p *Performer) Sequence() *Sequence { return p.sequence }

// InstrumentId returns the currently bound instrument id, or InvalidId.
func (p *Performer) InstrumentId() Id { return p.instrumentId }

// SetInstrument rebinds the performer to a different instrument. Any notes
// currently sounding are stopped on the old instrument first, so a swap
// never leaves a voice stuck on.
func (p *Performer) SetInstrument(id Id, lookup InstrumentLookup, timestamp float64) {
	if id == p.instrumentId {
		return
	}
	p.stopActiveNotes(lookup, timestamp)
	p.instrumentId = id
}

// Stop immediately silences every note this performer started, without
// waiting for the sequence to reach their note-off position.
func (p *Performer) Stop(lookup InstrumentLookup, timestamp float64) {
	p.stopActiveNotes(lookup, timestamp)
}

func (p *Performer) stopActiveNotes(lookup InstrumentLookup, timestamp float64) {
	if len(p.activeNotes) == 0 {
		return
	}
	inst := lookup(p.instrumentId)
	if inst != nil {
		for _, n := range p.activeNotes {
			inst.StopNote(n.pitch, timestamp)
		}
	}
	p.activeNotes = nil
}

// Perform advances the performer through [beginPosition, endPosition) of
// musical time, translating every note-on/note-off the bound Sequence emits
// into StartNote/StopNote calls on the resolved Instrument, timestamped via
// transport.TimestampOf. If the bound instrument id cannot be resolved, any
// notes this performer was holding active are silently dropped (spec.md's
// ownership summary: a dangling Performer->Instrument reference just stops
// producing output, it is not an error).
//
// A note-off that lands before endPosition is emitted immediately; one that
// lands at or after endPosition is deferred into activeNotes instead of
// being timestamped off a position transport.TimestampOf would have to
// extrapolate arbitrarily far into the future — it is emitted later, once a
// Perform call's range actually reaches it, using transport state current
// at that time. This is what keeps a long note's off-timestamp correct
// across an intervening tempo change.
func (p *Performer) Perform(beginPosition, endPosition float64, transport *Transport, lookup InstrumentLookup) {
	inst := lookup(p.instrumentId)
	if inst == nil {
		p.activeNotes = nil
		return
	}

	// Step 2: expire active notes that finish inside this range, or that
	// would be orphaned by a backward jump (endPosition <= beginPosition
	// never happens in practice here, but a note whose end already lies
	// behind beginPosition is expired immediately rather than missed).
	// Each entry is independent, so two notes of the same pitch with
	// different deferred ends never collide.
	remaining := p.activeNotes[:0]
	for _, n := range p.activeNotes {
		if n.position < endPosition {
			inst.StopNote(n.pitch, transport.TimestampOf(n.position))
			continue
		}
		remaining = append(remaining, n)
	}
	p.activeNotes = remaining

	p.sequence.Process(beginPosition, endPosition,
		func(position, pitch, intensity float64) {
			inst.StartNote(pitch, intensity, transport.TimestampOf(position))
		},
		func(position, pitch float64) {
			if position >= endPosition {
				p.activeNotes = append(p.activeNotes, pendingNoteOff{pitch: pitch, position: position})
				return
			}
			inst.StopNote(pitch, transport.TimestampOf(position))
		},
	)
}
