// Package instruments adapts a small polyphonic FM voice engine into a
// motif.InstrumentDefinition, so it can be driven through an Engine's
// Controller/Processor split instead of a bespoke render loop.
//
// The DSP here starts from the teacher's internal/fm voice engine (operator
// envelopes, algorithm-selectable routing, a one-pole output filter) but
// drops everything that only existed to serve an MML tracker: OPM patch
// banks loaded from score text, encoded program/module/channel routing, and
// phase/portamento control driven by out-of-band tracker commands. In their
// place, voice identity is keyed directly by motif pitch (Instrument's own
// Controller already makes StartNote/StopNote idempotent per pitch, so a
// separate voice-id allocator is redundant) and every runtime-tunable knob
// is wired through motif.ParameterDefinition/SetParameter instead of being
// exposed as bespoke Go methods only a tracker could reach.
package instruments

import (
	"math"
	"sync/atomic"

	"github.com/cbegin/motif"
)

const twoPi = math.Pi * 2

// FMParams configures a newly constructed FM instrument definition.
type FMParams struct {
	Polyphony   int
	CarrierMul  float64
	ModMul      float64
	ModIndex    float64
	AttackSec   float64
	DecaySec    float64
	SustainLvl  float64
	ReleaseSec  float64
	MasterGain  float64
	VelocityAmp float64
	LPFCutoffHz float64 // 0 disables the output low-pass filter
}

// DefaultFMParams returns the voicing the teacher's FM synth shipped with.
func DefaultFMParams() FMParams {
	return FMParams{
		Polyphony:   16,
		CarrierMul:  1.0,
		ModMul:      2.0,
		ModIndex:    1.6,
		AttackSec:   0.005,
		DecaySec:    0.12,
		SustainLvl:  0.75,
		ReleaseSec:  0.2,
		MasterGain:  0.45,
		VelocityAmp: 0.8,
		LPFCutoffHz: 12000,
	}
}

// Parameter indices exposed through InstrumentDefinition.SetParameter. Only
// a handful of the original engine's knobs survive the adaptation: the rest
// (OPM patch selection, per-voice pan, tracker phase reset) had no meaning
// once the MML dispatcher that drove them was dropped.
const (
	ParamGain           = 0
	ParamAlgorithm      = 1 // 0-7, operator routing topology
	ParamOperatorCount  = 2 // 1-4
	ParamFeedback       = 3 // 0-1, self-feedback of the top modulator (the highest-numbered operator), algorithm 0 only
	ParamFilterCutoffHz = 4 // 0 disables the output low-pass filter
)

type envState int

const (
	envAttack envState = iota
	envDecay
	envSustain
	envRelease
	envOff
)

type operator struct {
	phase    float64
	env      float64
	envState envState
	mul      float64
	tl       float64
	ar, dr, sl, rr float64
	prevOut  float64
}

type voice struct {
	active   bool
	pitch    float64
	velocity float64
	freq     float64
	ops      [4]operator
}

// fmState is the audio-thread DSP state allocated by Create.
type fmState struct {
	sampleRate float64
	params     FMParams
	voices     []voice

	masterGain uint64 // accessed atomically; written by the SetParameter callback, which Instrument.Process invokes

	algorithm  int
	feedback   float64
	opCount    int
	lpfAlpha   float64
	baseCutoff float64
	lpfL, lpfR float64
}

func newFMState(sampleRate int, params FMParams) *fmState {
	if params.Polyphony <= 0 {
		params.Polyphony = 16
	}
	st := &fmState{
		sampleRate: float64(sampleRate),
		params:     params,
		voices:     make([]voice, params.Polyphony),
		masterGain: math.Float64bits(params.MasterGain),
		opCount:    2,
	}
	st.setLPFCutoff(params.LPFCutoffHz)
	return st
}

func (st *fmState) setLPFCutoff(hz float64) {
	st.baseCutoff = hz
	if hz <= 0 || hz >= st.sampleRate/2 {
		st.lpfAlpha = 0
		return
	}
	rc := 1.0 / (twoPi * hz)
	dt := 1.0 / st.sampleRate
	st.lpfAlpha = dt / (rc + dt)
}

func (st *fmState) noteOn(pitch, intensity float64) {
	slot := st.stealVoice()
	v := &st.voices[slot]
	numOps := st.opCount
	if numOps <= 0 {
		numOps = 2
	}
	*v = voice{
		active:   true,
		pitch:    pitch,
		velocity: clamp01(intensity),
		freq:     pitchToFreq(pitch),
	}
	muls := [4]float64{st.params.CarrierMul, st.params.ModMul, 3.0, 4.0}
	for oi := 0; oi < numOps; oi++ {
		tl := 1.0
		if oi > 0 {
			tl = st.params.ModIndex / 8.0
		}
		v.ops[oi] = operator{
			envState: envAttack,
			mul:      muls[oi],
			tl:       tl,
			ar:       st.params.AttackSec,
			dr:       st.params.DecaySec,
			sl:       st.params.SustainLvl,
			rr:       st.params.ReleaseSec,
		}
	}
}

func (st *fmState) noteOff(pitch float64) {
	for i := range st.voices {
		v := &st.voices[i]
		if v.active && v.pitch == pitch {
			numOps := st.opCount
			if numOps <= 0 {
				numOps = 2
			}
			for oi := 0; oi < numOps; oi++ {
				v.ops[oi].envState = envRelease
			}
		}
	}
}

func (st *fmState) stealVoice() int {
	for i := range st.voices {
		if !st.voices[i].active {
			return i
		}
	}
	quiet, minEnv := 0, st.voices[0].ops[0].env
	for i := 1; i < len(st.voices); i++ {
		if st.voices[i].ops[0].env < minEnv {
			minEnv, quiet = st.voices[i].ops[0].env, i
		}
	}
	return quiet
}

func (st *fmState) renderFrame() (float32, float32) {
	numOps := st.opCount
	if numOps <= 0 {
		numOps = 2
	}
	var mix float64
	for i := range st.voices {
		v := &st.voices[i]
		if !v.active {
			continue
		}
		allOff := true
		for oi := 0; oi < numOps; oi++ {
			advanceEnvelope(&v.ops[oi], st.sampleRate)
			if v.ops[oi].envState != envOff {
				allOff = false
			}
		}
		if allOff {
			v.active = false
			continue
		}
		sig := st.renderVoice(v, numOps)
		sig *= st.masterGainValue() * (0.2 + v.velocity*st.params.VelocityAmp)
		mix += sig
		for oi := 0; oi < numOps; oi++ {
			v.ops[oi].phase += twoPi * v.freq * v.ops[oi].mul / st.sampleRate
			if v.ops[oi].phase > twoPi {
				v.ops[oi].phase -= twoPi
			}
		}
	}
	out := mix
	if st.lpfAlpha > 0 {
		st.lpfL += st.lpfAlpha * (out - st.lpfL)
		out = st.lpfL
	}
	sample := float32(clamp(out, -1, 1))
	return sample, sample
}

// renderVoice computes one voice's FM output. Algorithm selects operator
// routing: 0 is full serial modulation (op[n-1] -> ... -> op0, the carrier),
// any other value in range sums every operator in parallel.
func (st *fmState) renderVoice(v *voice, numOps int) float64 {
	ops := &v.ops
	if numOps == 1 || st.algorithm != 0 {
		var sum float64
		for oi := 0; oi < numOps; oi++ {
			sum += math.Sin(ops[oi].phase) * ops[oi].env * ops[oi].tl
		}
		return sum / math.Sqrt(float64(numOps))
	}
	mod := 0.0
	for oi := numOps - 1; oi > 0; oi-- {
		fb := 0.0
		if oi == numOps-1 {
			fb = ops[oi].prevOut * st.feedback * math.Pi
		}
		s := math.Sin(ops[oi].phase+mod+fb) * ops[oi].env * ops[oi].tl
		if oi == numOps-1 {
			ops[oi].prevOut = s
		}
		mod = s
	}
	return math.Sin(ops[0].phase+mod) * ops[0].env * ops[0].tl
}

func advanceEnvelope(op *operator, sampleRate float64) {
	switch op.envState {
	case envAttack:
		step := stepOrOne(1.0 / (op.ar * sampleRate))
		op.env += step
		if op.env >= 1 {
			op.env, op.envState = 1, envDecay
		}
	case envDecay:
		step := stepOrOne((1 - op.sl) / (op.dr * sampleRate))
		op.env -= step
		if op.env <= op.sl {
			op.env, op.envState = op.sl, envSustain
		}
	case envSustain:
	case envRelease:
		step := stepOrOne(op.sl / (op.rr * sampleRate))
		op.env -= step
		if op.env <= 0.0001 {
			op.env, op.envState = 0, envOff
		}
	case envOff:
		op.env = 0
	}
}

func stepOrOne(step float64) float64 {
	if step <= 0 {
		return 1
	}
	return step
}

func (st *fmState) masterGainValue() float64 {
	return math.Float64frombits(atomic.LoadUint64(&st.masterGain))
}

func pitchToFreq(pitch float64) float64 {
	return 440 * math.Pow(2, pitch)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }

// FM returns a motif.InstrumentDefinition backed by the adapted FM engine.
func FM(params FMParams) motif.InstrumentDefinition {
	return motif.InstrumentDefinition{
		Parameters: []motif.ParameterDefinition{
			ParamGain:           {DefaultValue: params.MasterGain, MinValue: 0, MaxValue: 1},
			ParamAlgorithm:      {DefaultValue: 0, MinValue: 0, MaxValue: 7},
			ParamOperatorCount:  {DefaultValue: 2, MinValue: 1, MaxValue: 4},
			ParamFeedback:       {DefaultValue: 0, MinValue: 0, MaxValue: 1},
			ParamFilterCutoffHz: {DefaultValue: params.LPFCutoffHz, MinValue: 0, MaxValue: 20000},
		},
		Create: func(sampleRate int) any {
			return newFMState(sampleRate, params)
		},
		Process: func(s any, out []float32, channels, frames int) {
			st := s.(*fmState)
			for i := 0; i < frames; i++ {
				l, r := st.renderFrame()
				base := i * channels
				if channels == 1 {
					out[base] += (l + r) * 0.5
					continue
				}
				out[base] += l
				out[base+1] += r
				for c := 2; c < channels; c++ {
					out[base+c] += (l + r) * 0.5
				}
			}
		},
		SetNoteOn: func(s any, pitch, intensity float64) {
			s.(*fmState).noteOn(pitch, intensity)
		},
		SetNoteOff: func(s any, pitch float64) {
			s.(*fmState).noteOff(pitch)
		},
		SetParameter: func(s any, index int, value, slope float64) {
			st := s.(*fmState)
			switch index {
			case ParamGain:
				atomic.StoreUint64(&st.masterGain, math.Float64bits(value))
			case ParamAlgorithm:
				st.algorithm = int(value)
			case ParamOperatorCount:
				st.opCount = int(value)
			case ParamFeedback:
				st.feedback = value
			case ParamFilterCutoffHz:
				st.setLPFCutoff(value)
			}
		},
	}
}
