package effect

import (
	"github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// rbjDesigner builds single-section RBJ biquads for the four filter kinds.
type rbjDesigner struct{}

func (rbjDesigner) NormalizeFamily(string) string { return "rbj" }

func (rbjDesigner) NormalizeFamilyForType(_, family string) string { return family }

func (rbjDesigner) NormalizeOrder(string, string, int) int { return 2 }

func (rbjDesigner) ClampShape(_, _ string, _, _, value float64) float64 {
	return core.Clamp(value, 0.1, 18)
}

func (rbjDesigner) BuildChain(_, kind string, _ int, freq, _, q, sampleRate float64) *biquad.Chain {
	var c biquad.Coefficients
	switch kind {
	case "lowpass":
		c = design.Lowpass(freq, q, sampleRate)
	case "highpass":
		c = design.Highpass(freq, q, sampleRate)
	case "bandpass":
		c = design.Bandpass(freq, q, sampleRate)
	case "notch":
		c = design.Notch(freq, q, sampleRate)
	default:
		c = biquad.Coefficients{B0: 1}
	}
	return biquad.NewChain([]biquad.Coefficients{c})
}
