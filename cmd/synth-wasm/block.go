package main

import "github.com/cwbudde/algo-synth/config"

// maxBlockFrames matches the AudioWorklet render quantum.
const maxBlockFrames = 128

// initConfig validates the host sample rate the same way a config file is
// validated.
func initConfig(sampleRate int) (*config.Config, error) {
	cfg := config.Default()
	if err := config.ApplyFile(cfg, &config.File{SampleRate: &sampleRate}); err != nil {
		return nil, err
	}
	return cfg, nil
}

func clampFrames(n int) int {
	return min(max(n, 0), maxBlockFrames)
}
