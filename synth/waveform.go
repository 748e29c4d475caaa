package synth

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-approx"
)

// Shape is the base oscillator waveform.
type Shape int

const (
	ShapeSine Shape = iota
	ShapeSquare
	ShapeSawtooth
	ShapeTriangle
	ShapePulse
	ShapePWM
)

var shapeNames = [...]string{
	ShapeSine:     "sine",
	ShapeSquare:   "square",
	ShapeSawtooth: "sawtooth",
	ShapeTriangle: "triangle",
	ShapePulse:    "pulse",
	ShapePWM:      "pwm",
}

func (s Shape) String() string {
	if s < 0 || int(s) >= len(shapeNames) {
		return fmt.Sprintf("shape(%d)", int(s))
	}
	return shapeNames[s]
}

// Modifiable reports whether the shape accepts a modifier and partials.
// Pulse and PWM never do.
func (s Shape) Modifiable() bool {
	return s != ShapePulse && s != ShapePWM
}

// ParseShape resolves a shape name.
func ParseShape(name string) (Shape, bool) {
	for i, n := range shapeNames {
		if n == name {
			return Shape(i), true
		}
	}
	return 0, false
}

// Modifier alters a base shape: amplitude modulation, frequency modulation or
// a stack of detuned copies.
type Modifier int

const (
	ModNone Modifier = iota
	ModAM
	ModFM
	ModFat
)

var modifierNames = [...]string{
	ModNone: "",
	ModAM:   "am",
	ModFM:   "fm",
	ModFat:  "fat",
}

func (m Modifier) String() string {
	if m < 0 || int(m) >= len(modifierNames) {
		return fmt.Sprintf("modifier(%d)", int(m))
	}
	return modifierNames[m]
}

// ParseModifier accepts "", "none", "am", "fm" and "fat".
func ParseModifier(name string) (Modifier, bool) {
	if name == "none" {
		return ModNone, true
	}
	for i, n := range modifierNames {
		if n == name {
			return Modifier(i), true
		}
	}
	return 0, false
}

// Waveform is a resolved oscillator type.
type Waveform struct {
	Shape    Shape
	Modifier Modifier
}

// NewWaveform pairs shape with mod, dropping the modifier for shapes that do
// not take one.
func NewWaveform(shape Shape, mod Modifier) Waveform {
	if !shape.Modifiable() {
		mod = ModNone
	}
	return Waveform{Shape: shape, Modifier: mod}
}

// String returns the composed type name, e.g. "fmsine" or "pulse".
func (w Waveform) String() string {
	return w.Modifier.String() + w.Shape.String()
}

// Compose returns the oscillator type name for a base shape and modifier.
// Unknown names are concatenated unchanged, except that pulse and pwm
// always stay bare.
func Compose(shape, modifier string) string {
	s, ok := ParseShape(shape)
	if ok && !s.Modifiable() {
		return shape
	}
	m, mok := ParseModifier(modifier)
	if ok && mok {
		return NewWaveform(s, m).String()
	}
	return modifier + shape
}

const (
	pulseWidth     = 0.2
	pwmRateHz      = 0.4
	pwmDepth       = 0.4
	fatSpreadCents = 20
	modDepthAM     = 0.5
	modIndexFM     = 2.0
)

// oscillator renders one waveform with its own phase state.
type oscillator struct {
	wave     Waveform
	partials [4]float64

	phase    float64
	modPhase float64
	lfoPhase float64
	fat      [3]float64
}

// fatDetune holds the per-copy frequency ratios of the fat stack.
var fatDetune = [3]float64{
	math.Exp2(-fatSpreadCents / 2 / 1200.0),
	1,
	math.Exp2(fatSpreadCents / 2 / 1200.0),
}

func (o *oscillator) reset() {
	o.phase, o.modPhase, o.lfoPhase = 0, 0, 0
	o.fat = [3]float64{0, 1.0 / 3, 2.0 / 3}
}

// next advances by one sample at freq Hz and returns a value in [-1, 1].
func (o *oscillator) next(freq, sampleRate float64) float64 {
	inc := freq / sampleRate
	var out float64

	switch o.wave.Modifier {
	case ModFat:
		for i := range o.fat {
			out += o.shapeAt(o.fat[i])
			o.fat[i] = wrap(o.fat[i] + inc*fatDetune[i])
		}
		out /= float64(len(o.fat))
	case ModFM:
		m := math.Sin(2 * math.Pi * o.modPhase)
		out = o.shapeAt(wrap(o.phase + modIndexFM*m/(2*math.Pi)))
		o.modPhase = wrap(o.modPhase + inc)
		o.phase = wrap(o.phase + inc)
	case ModAM:
		m := 0.5 + 0.5*math.Sin(2*math.Pi*o.modPhase)
		out = o.shapeAt(o.phase) * (1 - modDepthAM + modDepthAM*m)
		o.modPhase = wrap(o.modPhase + inc)
		o.phase = wrap(o.phase + inc)
	default:
		out = o.shapeAt(o.phase)
		o.phase = wrap(o.phase + inc)
	}

	if o.wave.Shape == ShapePWM {
		o.lfoPhase = wrap(o.lfoPhase + pwmRateHz/sampleRate)
	}
	return out
}

func (o *oscillator) shapeAt(p float64) float64 {
	if o.wave.Shape.Modifiable() {
		if v, ok := o.additive(p); ok {
			return v
		}
	}
	switch o.wave.Shape {
	case ShapeSquare:
		if p < 0.5 {
			return 1
		}
		return -1
	case ShapeSawtooth:
		return 2*p - 1
	case ShapeTriangle:
		if p < 0.5 {
			return 4*p - 1
		}
		return 3 - 4*p
	case ShapePulse:
		if p < pulseWidth {
			return 1
		}
		return -1
	case ShapePWM:
		width := 0.5 + pwmDepth*approx.FastSinPrec(2*math.Pi*o.lfoPhase, approx.PrecisionFast)
		if p < width {
			return 1
		}
		return -1
	default:
		return math.Sin(2 * math.Pi * p)
	}
}

// additive sums the weighted harmonics. All-zero weights mean "no partials".
func (o *oscillator) additive(p float64) (float64, bool) {
	var sum, norm float64
	for k, w := range o.partials {
		if w <= 0 {
			continue
		}
		sum += w * math.Sin(2*math.Pi*float64(k+1)*p)
		norm += w
	}
	if norm == 0 {
		return 0, false
	}
	return sum / norm, true
}

func wrap(p float64) float64 {
	return p - math.Floor(p)
}
