package irsynth

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

func TestGenerateLengthAndPeak(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 48000
	cfg.DecayS = 0.5
	cfg.PreDelayS = 0.01
	cfg.NormalizePeak = 0.8

	ir, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if want := 480 + 24000; len(ir) != want {
		t.Fatalf("unexpected length: got=%d want=%d", len(ir), want)
	}
	for i := 0; i < 480; i++ {
		if ir[i] != 0 {
			t.Fatalf("expected silence during pre-delay at %d", i)
		}
	}

	peak := 0.0
	for i, v := range ir {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite sample at %d", i)
		}
		peak = math.Max(peak, math.Abs(v))
	}
	if math.Abs(peak-0.8) > 1e-9 {
		t.Fatalf("expected normalized peak 0.8, got %.9f", peak)
	}
}

func TestGenerateTailDecays(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 16000
	cfg.DecayS = 1.0
	cfg.PreDelayS = 0

	ir, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	head := rms(ir[:1600])
	tail := rms(ir[len(ir)-3200 : len(ir)-1600])
	if tail >= head*0.1 {
		t.Fatalf("expected tail to be well below head: head=%g tail=%g", head, tail)
	}
}

func TestGenerateDeterministicForSeed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 16000
	cfg.DecayS = 0.2
	cfg.Seed = 7

	a, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("mismatch at %d", i)
		}
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.SampleRate = 100 },
		func(c *Config) { c.DecayS = 0 },
		func(c *Config) { c.PreDelayS = -1 },
		func(c *Config) { c.NormalizePeak = 0 },
	}
	for i, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		if _, err := Generate(cfg); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestLoadWAVFoldsToMono(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ir.wav")
	writeStereoWAV(t, path, []float32{0.5, 0.25, -0.5, -0.25, 0, 0}, 48000)

	ir, err := LoadWAV(path, 48000)
	if err != nil {
		t.Fatalf("LoadWAV: %v", err)
	}
	if len(ir) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(ir))
	}
	if math.Abs(ir[0]-0.375) > 1e-3 || math.Abs(ir[1]+0.375) > 1e-3 {
		t.Fatalf("unexpected mono fold: %v", ir)
	}
}

func TestWriteWAVLoadsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DecayS = 0.1
	ir, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "gen.wav")
	if err := WriteWAV(path, ir, int(cfg.SampleRate)); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	back, err := LoadWAV(path, cfg.SampleRate)
	if err != nil {
		t.Fatalf("LoadWAV: %v", err)
	}
	if len(back) != len(ir) {
		t.Fatalf("length %d, want %d", len(back), len(ir))
	}
	for i := range ir {
		if math.Abs(back[i]-ir[i]) > 1e-3 {
			t.Fatalf("sample %d: %v vs %v", i, back[i], ir[i])
		}
	}
}

func TestLoadWAVRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("not a wav"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadWAV(path, 48000); err == nil {
		t.Fatalf("expected error for invalid wav")
	}
}

func writeStereoWAV(t *testing.T, path string, samples []float32, sampleRate int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 2, 1)
	buf := &audio.Float32Buffer{
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 2},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
}

func rms(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}
