package motif

// ParameterDefinition describes one tunable scalar of an InstrumentDefinition:
// its default, and the inclusive range every stored value is clamped into.
type ParameterDefinition struct {
	DefaultValue float64
	MinValue     float64
	MaxValue     float64
}

// Parameter is a clamped scalar with a default, owned exclusively by an
// Instrument's Controller. It never allocates and every store is clamped,
// matching spec.md section 4.B.
type Parameter struct {
	def     ParameterDefinition
	current float64
}

// NewParameter builds a Parameter whose current value starts at the
// definition's default value clamped into [min, max]; an inverted min/max
// pair is swapped first.
func NewParameter(def ParameterDefinition) Parameter {
	if def.MinValue > def.MaxValue {
		def.MinValue, def.MaxValue = def.MaxValue, def.MinValue
	}
	p := Parameter{def: def}
	p.current = clamp(def.DefaultValue, def.MinValue, def.MaxValue)
	return p
}

// Value returns the current value.
func (p *Parameter) Value() float64 { return p.current }

// Default returns the default value.
func (p *Parameter) Default() float64 { return p.def.DefaultValue }

// Min returns the minimum allowed value.
func (p *Parameter) Min() float64 { return p.def.MinValue }

// Max returns the maximum allowed value.
func (p *Parameter) Max() float64 { return p.def.MaxValue }

// Set clamps value into [min, max] and stores it, returning true iff the
// clamped value differs from the previous current value.
func (p *Parameter) Set(value float64) bool {
	clamped := clamp(value, p.def.MinValue, p.def.MaxValue)
	if clamped == p.current {
		return false
	}
	p.current = clamped
	return true
}

// Reset restores the default value, returning true iff it differed from the
// previous current value.
func (p *Parameter) Reset() bool {
	return p.Set(p.def.DefaultValue)
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
