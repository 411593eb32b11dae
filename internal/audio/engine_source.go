package audio

import "github.com/cbegin/motif"

// EngineSource adapts a *motif.Engine into the SampleSource this package's
// StreamReader pulls from. Each Process call is one tick of both halves of
// the engine's concurrency model: it advances the Transport (the control
// thread's side of the Event Queue contract) and then drains every
// Instrument's queued events while rendering (the audio thread's side),
// mirroring how the old sequencer.Sequencer.Process was driven from this
// same stream callback.
type EngineSource struct {
	engine     *motif.Engine
	timestamp  float64
}

// NewEngineSource wraps engine for playback starting at timestamp 0.
func NewEngineSource(engine *motif.Engine) *EngineSource {
	return &EngineSource{engine: engine}
}

// Process renders len(dst)/2 stereo frames into dst, advancing the engine's
// transport by the corresponding span of wall-clock time.
func (s *EngineSource) Process(dst []float32) {
	const channels = 2
	frames := len(dst) / channels
	for i := range dst {
		dst[i] = 0
	}
	toTimestamp := s.timestamp + float64(frames)/float64(s.engine.SampleRate())
	s.engine.Update(toTimestamp)
	for _, id := range s.engine.InstrumentIds() {
		if inst := s.engine.Instrument(id); inst != nil {
			inst.Process(dst, channels, frames, s.timestamp)
		}
	}
	s.timestamp = toTimestamp
}

// Finished always reports false: an Engine-driven stream plays until the
// caller stops it, it never self-terminates like a single finite score render.
func (s *EngineSource) Finished() bool { return false }
