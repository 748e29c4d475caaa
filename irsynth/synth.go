// Package irsynth produces mono impulse responses for the convolution reverb,
// either synthesised from a decay time or loaded from a WAV file.
package irsynth

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/signal"
)

// ln(1000): the tail has fallen by 60 dB after DecayS seconds.
const decay60dB = 6.907755278982137

// Config controls synthetic IR generation.
type Config struct {
	SampleRate float64
	DecayS     float64
	PreDelayS  float64
	Seed       int64

	// FadeS shapes the last part of the tail to avoid a hard cut.
	FadeS         float64
	NormalizePeak float64
}

// DefaultConfig returns a one second decay at 48 kHz.
func DefaultConfig() Config {
	return Config{
		SampleRate:    48000,
		DecayS:        1.0,
		PreDelayS:     0.01,
		Seed:          1,
		FadeS:         0.05,
		NormalizePeak: 0.9,
	}
}

// Validate reports the first out-of-range field.
func (c *Config) Validate() error {
	if c.SampleRate < 8000 {
		return fmt.Errorf("sample rate too low: %v", c.SampleRate)
	}
	if c.DecayS <= 0 {
		return fmt.Errorf("decay must be > 0")
	}
	if c.PreDelayS < 0 {
		return fmt.Errorf("pre-delay must be >= 0")
	}
	if c.FadeS < 0 {
		return fmt.Errorf("fade must be >= 0")
	}
	if c.NormalizePeak <= 0 {
		return fmt.Errorf("normalize peak must be > 0")
	}
	return nil
}

// Generate returns a noise burst with an exponential envelope reaching -60 dB
// at DecayS, preceded by PreDelayS of silence.
func Generate(cfg Config) ([]float64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pre := int(math.Round(cfg.PreDelayS * cfg.SampleRate))
	tail := int(math.Round(cfg.DecayS * cfg.SampleRate))
	if tail < 1 {
		tail = 1
	}

	gen := signal.NewGeneratorWithOptions(
		[]core.ProcessorOption{core.WithSampleRate(cfg.SampleRate)},
		signal.WithSeed(cfg.Seed),
	)
	noise, err := gen.WhiteNoise(1, tail)
	if err != nil {
		return nil, fmt.Errorf("irsynth: noise: %w", err)
	}

	for i := range noise {
		t := float64(i) / cfg.SampleRate
		noise[i] *= math.Exp(-decay60dB * t / cfg.DecayS)
	}
	applyFadeOut(noise, cfg.FadeS, cfg.SampleRate)

	noise, err = signal.Normalize(noise, cfg.NormalizePeak)
	if err != nil {
		return nil, fmt.Errorf("irsynth: normalize: %w", err)
	}

	out := make([]float64, pre+len(noise))
	copy(out[pre:], noise)
	return out, nil
}

func applyFadeOut(buf []float64, fadeS float64, sampleRate float64) {
	n := int(fadeS * sampleRate)
	if n <= 0 {
		return
	}
	if n > len(buf) {
		n = len(buf)
	}
	start := len(buf) - n
	for i := 0; i < n; i++ {
		buf[start+i] *= 1.0 - float64(i+1)/float64(n)
	}
}
