package effect

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/delay"
	"github.com/cwbudde/algo-dsp/dsp/effectchain"
	"github.com/cwbudde/algo-dsp/dsp/effects/modulation"
)

const (
	runtimePingPong = "pingpong"
	runtimeWah      = "wah"

	maxPingPongSeconds = 2.0
)

// pingPongRuntime alternates echoes between two cross-fed delay lines.
type pingPongRuntime struct {
	left, right *delay.Line

	sampleRate float64
	delay      int
	feedback   float64
	mix        float64
}

func (r *pingPongRuntime) Configure(ctx effectchain.Context, p effectchain.Params) error {
	if r.left == nil || r.sampleRate != ctx.SampleRate {
		size := int(math.Ceil(maxPingPongSeconds*ctx.SampleRate)) + 1
		left, err := delay.New(size)
		if err != nil {
			return fmt.Errorf("effect: pingpong: %w", err)
		}
		right, err := delay.New(size)
		if err != nil {
			return fmt.Errorf("effect: pingpong: %w", err)
		}
		r.left, r.right = left, right
		r.sampleRate = ctx.SampleRate
	}

	seconds := core.Clamp(p.GetNum("time", 0.25), 0.001, maxPingPongSeconds)
	r.delay = max(int(math.Round(seconds*ctx.SampleRate)), 1)
	r.feedback = core.Clamp(p.GetNum("feedback", 0.5), 0, 0.99)
	r.mix = core.Clamp(p.GetNum("mix", 0.5), 0, 1)
	return nil
}

func (r *pingPongRuntime) Process(block []float64) {
	if r.left == nil {
		return
	}
	for i, x := range block {
		l := r.left.Read(r.delay)
		rr := r.right.Read(r.delay)
		r.left.Write(x + r.feedback*rr)
		r.right.Write(r.feedback * l)
		block[i] = x*(1-r.mix) + (l+rr)*r.mix
	}
}

// wahRuntime drives an envelope-following band-pass.
type wahRuntime struct {
	fx *modulation.AutoWah
}

func (r *wahRuntime) Configure(ctx effectchain.Context, p effectchain.Params) error {
	minHz := core.Clamp(p.GetNum("minFreqHz", 100), 20, ctx.SampleRate*0.4)
	maxHz := core.Clamp(p.GetNum("maxFreqHz", 6400), minHz+1, ctx.SampleRate*0.45)
	sensitivity := core.Clamp(p.GetNum("sensitivity", 1), 0.01, 100)

	if r.fx == nil || r.fx.SampleRate() != ctx.SampleRate {
		fx, err := modulation.NewAutoWah(ctx.SampleRate,
			modulation.WithAutoWahFrequencyRangeHz(minHz, maxHz),
			modulation.WithAutoWahSensitivity(sensitivity),
		)
		if err != nil {
			return fmt.Errorf("effect: wah: %w", err)
		}
		r.fx = fx
		return nil
	}

	if err := r.fx.SetFrequencyRangeHz(minHz, maxHz); err != nil {
		return fmt.Errorf("effect: wah range: %w", err)
	}
	if err := r.fx.SetSensitivity(sensitivity); err != nil {
		return fmt.Errorf("effect: wah sensitivity: %w", err)
	}
	return nil
}

func (r *wahRuntime) Process(block []float64) {
	if r.fx == nil {
		return
	}
	_ = r.fx.ProcessInPlace(block)
}
