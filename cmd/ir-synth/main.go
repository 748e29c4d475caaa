package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/cwbudde/algo-synth/irsynth"
)

func main() {
	cfg := irsynth.DefaultConfig()

	output := flag.String("output", "ir.wav", "Output WAV path")
	flag.Float64Var(&cfg.SampleRate, "sample-rate", cfg.SampleRate, "Output sample rate")
	flag.Float64Var(&cfg.DecayS, "decay", cfg.DecayS, "Time to fall by 60 dB (s)")
	flag.Float64Var(&cfg.PreDelayS, "pre-delay", cfg.PreDelayS, "Silence before the tail (s)")
	flag.Float64Var(&cfg.FadeS, "fade", cfg.FadeS, "Fade-out length at the end of the tail (s)")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	flag.Float64Var(&cfg.NormalizePeak, "normalize", cfg.NormalizePeak, "Peak normalization target")
	flag.Parse()

	ir, err := irsynth.Generate(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ir-synth error: %v\n", err)
		os.Exit(1)
	}
	if err := irsynth.WriteWAV(*output, ir, int(cfg.SampleRate)); err != nil {
		fmt.Fprintf(os.Stderr, "wav write error: %v\n", err)
		os.Exit(1)
	}

	peak, rms := stats(ir)
	fmt.Printf("Wrote %s\n", *output)
	fmt.Printf("SampleRate: %.0f Hz, Decay: %.3f s, Samples: %d\n", cfg.SampleRate, cfg.DecayS, len(ir))
	fmt.Printf("Peak: %.6f, RMS: %.6f\n", peak, rms)
}

func stats(x []float64) (peak float64, rms float64) {
	if len(x) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range x {
		peak = math.Max(peak, math.Abs(v))
		sum += v * v
	}
	return peak, math.Sqrt(sum / float64(len(x)))
}
