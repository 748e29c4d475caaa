package effect

import (
	"log/slog"

	"github.com/cwbudde/algo-synth/irsynth"
)

const (
	minDecaySeconds     = 0.01
	maxDecaySeconds     = 20
	decayStepsPerSecond = 100
)

// irBank serves reverb impulse responses to the convolution runtime. Index i
// maps to a synthesized decay of i/100 seconds, unless a fixed response has
// been loaded, which then answers every index.
type irBank struct {
	sampleRate float64
	fixed      []float64
	cache      map[int][]float64
	logger     *slog.Logger
}

func newIRBank(sampleRate float64, fixed []float64, logger *slog.Logger) *irBank {
	if logger == nil {
		logger = slog.Default()
	}
	return &irBank{
		sampleRate: sampleRate,
		fixed:      fixed,
		cache:      make(map[int][]float64),
		logger:     logger,
	}
}

func (b *irBank) GetIR(index int) ([][]float64, float64, bool) {
	if len(b.fixed) > 0 {
		return [][]float64{b.fixed}, b.sampleRate, true
	}
	if index <= 0 {
		return nil, 0, false
	}
	if ir, ok := b.cache[index]; ok {
		return [][]float64{ir}, b.sampleRate, true
	}

	cfg := irsynth.DefaultConfig()
	cfg.SampleRate = b.sampleRate
	cfg.DecayS = float64(index) / decayStepsPerSecond
	cfg.PreDelayS = 0
	if cfg.FadeS > cfg.DecayS/2 {
		cfg.FadeS = cfg.DecayS / 2
	}
	ir, err := irsynth.Generate(cfg)
	if err != nil {
		b.logger.Warn("reverb impulse response", "decay", cfg.DecayS, "err", err)
		return nil, 0, false
	}
	b.cache[index] = ir
	return [][]float64{ir}, b.sampleRate, true
}
