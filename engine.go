package motif

// EngineOption configures a new Engine, following the functional-options
// shape used throughout this codebase's constructors.
type EngineOption func(*engineConfig)

type engineConfig struct {
	sampleRate int
	tempoBPM   float64
}

// WithSampleRate sets the sample rate every Instrument created by this
// Engine is constructed with. Defaults to 48000.
func WithSampleRate(rate int) EngineOption {
	return func(c *engineConfig) { c.sampleRate = rate }
}

// WithTempo sets the Engine's initial tempo in beats per minute. Defaults
// to 120.
func WithTempo(bpm float64) EngineOption {
	return func(c *engineConfig) { c.tempoBPM = bpm }
}

// Engine is the top-level aggregate: one Transport, a table of owned
// Instruments and a table of owned Performers, each keyed by an Id this
// Engine mints. Update is the single control-thread entry point that drives
// every Performer through the Transport's advance. Grounded on spec.md
// section 4.G.
type Engine struct {
	transport  *Transport
	ids        IdGenerator
	sampleRate int

	instruments map[Id]*Instrument
	performers  map[Id]*Performer
}

// NewEngine constructs a stopped Engine at position 0.
func NewEngine(opts ...EngineOption) *Engine {
	cfg := engineConfig{sampleRate: 48000, tempoBPM: 120}
	for _, opt := range opts {
		opt(&cfg)
	}
	e := &Engine{
		transport:   NewTransport(),
		sampleRate:  cfg.sampleRate,
		instruments: make(map[Id]*Instrument),
		performers:  make(map[Id]*Performer),
	}
	e.transport.SetTempo(cfg.tempoBPM / 60)
	e.transport.SetUpdateCallback(e.onUpdate)
	return e
}

// SampleRate returns the sample rate new Instruments are constructed with.
func (e *Engine) SampleRate() int { return e.sampleRate }

// Transport-facing playback controls, delegated to the owned Transport with
// beats-per-minute <-> beats-per-second conversion at the boundary.

// IsPlaying reports whether the Engine's transport is advancing.
func (e *Engine) IsPlaying() bool { return e.transport.IsPlaying() }

// Position returns the current position in beats.
func (e *Engine) Position() float64 { return e.transport.Position() }

// SetPosition moves the transport to position, in beats.
func (e *Engine) SetPosition(position float64) { e.transport.SetPosition(position) }

// TempoBPM returns the current tempo in beats per minute.
func (e *Engine) TempoBPM() float64 { return e.transport.Tempo() * 60 }

// SetTempoBPM sets the tempo in beats per minute.
func (e *Engine) SetTempoBPM(bpm float64) { e.transport.SetTempo(bpm / 60) }

// Start begins playback.
func (e *Engine) Start() { e.transport.Start() }

// Stop halts playback and immediately silences every performer's active
// notes; position is left untouched.
func (e *Engine) Stop() {
	e.transport.Stop()
	for _, perf := range e.performers {
		perf.Stop(e.lookupInstrument, e.transport.Timestamp())
	}
}

// SetBeatCallback installs a callback fired on every integer beat boundary.
func (e *Engine) SetBeatCallback(cb BeatCallback) { e.transport.SetBeatCallback(cb) }

// Update advances the transport to newTimestamp, driving every bound
// Performer's Perform over each beat sub-range crossed. This is the single
// control-thread entry point a caller drives once per audio callback (or
// scheduling tick).
func (e *Engine) Update(newTimestamp float64) { e.transport.Update(newTimestamp) }

func (e *Engine) onUpdate(beginPosition, endPosition float64) {
	for _, perf := range e.performers {
		perf.Perform(beginPosition, endPosition, e.transport, e.lookupInstrument)
	}
}

func (e *Engine) lookupInstrument(id Id) *Instrument {
	return e.instruments[id]
}

// CreateInstrument constructs and registers a new Instrument from def,
// returning the id the Engine minted for it.
func (e *Engine) CreateInstrument(def InstrumentDefinition) Id {
	id := e.ids.Next()
	e.instruments[id] = NewInstrument(def, e.sampleRate)
	return id
}

// DestroyInstrument stops and releases the instrument with the given id.
// Returns NotFound if id is absent. Performers still bound to id simply
// stop receiving note-on/note-off calls; SetPerformerInstrument must be
// used to rebind them.
func (e *Engine) DestroyInstrument(id Id) error {
	inst, exists := e.instruments[id]
	if !exists {
		return newError(StatusNotFound, "instrument id %d not found", id)
	}
	inst.StopAllNotes(e.transport.Timestamp())
	inst.Destroy()
	delete(e.instruments, id)
	return nil
}

// Instrument returns the instrument registered under id, or nil if absent.
func (e *Engine) Instrument(id Id) *Instrument { return e.instruments[id] }

// InstrumentIds returns every currently registered instrument id, in no
// particular order.
func (e *Engine) InstrumentIds() []Id {
	ids := make([]Id, 0, len(e.instruments))
	for id := range e.instruments {
		ids = append(ids, id)
	}
	return ids
}

// AddPerformer registers sequence under a new Performer, initially bound to
// no instrument, and returns its id.
func (e *Engine) AddPerformer(sequence *Sequence) Id {
	id := e.ids.Next()
	e.performers[id] = NewPerformer(sequence)
	return id
}

// RemovePerformer stops and unregisters the performer with the given id.
// Returns NotFound if id is absent.
func (e *Engine) RemovePerformer(id Id) error {
	perf, exists := e.performers[id]
	if !exists {
		return newError(StatusNotFound, "performer id %d not found", id)
	}
	perf.Stop(e.lookupInstrument, e.transport.Timestamp())
	delete(e.performers, id)
	return nil
}

// Performer returns the performer registered under id, or nil if absent.
func (e *Engine) Performer(id Id) *Performer { return e.performers[id] }

// SetPerformerInstrument rebinds the performer identified by performerId to
// the instrument identified by instrumentId (InvalidId to unbind). Returns
// NotFound if performerId is absent.
func (e *Engine) SetPerformerInstrument(performerId, instrumentId Id) error {
	perf, exists := e.performers[performerId]
	if !exists {
		return newError(StatusNotFound, "performer id %d not found", performerId)
	}
	perf.SetInstrument(instrumentId, e.lookupInstrument, e.transport.Timestamp())
	return nil
}
