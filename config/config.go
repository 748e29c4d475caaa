// Package config loads the startup configuration of the instrument from a
// JSON or YAML file. Every field of the file is optional and overrides the
// defaults.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cwbudde/algo-synth/effect"
	"github.com/cwbudde/algo-synth/params"
	"github.com/cwbudde/algo-synth/synth"
	"gopkg.in/yaml.v3"
)

// Config is the resolved startup configuration.
type Config struct {
	SampleRate int
	BlockSize  int
	Polyphony  int

	Algorithm       string
	Harmonicity     float64
	ModulationIndex float64
	Waveform        string
	Modifier        string
	Envelope        synth.Envelope
	Partials        [4]float64

	// Effects are enabled in this order at startup.
	Effects      []string
	EffectParams map[string]params.Set
	ReverbIRPath string

	// MIDIInput selects input ports whose name starts with it; empty opens all.
	MIDIInput string
}

// Default returns the built-in settings used when no file is given.
func Default() *Config {
	return &Config{
		SampleRate:      48000,
		BlockSize:       512,
		Polyphony:       synth.DefaultPolyphony,
		Algorithm:       "synth",
		Harmonicity:     synth.DefaultHarmonicity,
		ModulationIndex: synth.DefaultModIndex,
		Waveform:        "sine",
		Envelope:        synth.DefaultEnvelope(),
		EffectParams:    make(map[string]params.Set),
	}
}

// File is the on-disk schema.
type File struct {
	SampleRate      *int                          `json:"sample_rate" yaml:"sample_rate"`
	BlockSize       *int                          `json:"block_size" yaml:"block_size"`
	Polyphony       *int                          `json:"polyphony" yaml:"polyphony"`
	Algorithm       *string                       `json:"algorithm" yaml:"algorithm"`
	Harmonicity     *float64                      `json:"harmonicity" yaml:"harmonicity"`
	ModulationIndex *float64                      `json:"modulation_index" yaml:"modulation_index"`
	Waveform        *string                       `json:"waveform" yaml:"waveform"`
	Modifier        *string                       `json:"modifier" yaml:"modifier"`
	Envelope        *EnvelopeSetting              `json:"envelope" yaml:"envelope"`
	Partials        []float64                     `json:"partials" yaml:"partials,flow"`
	Effects         []string                      `json:"effects" yaml:"effects,flow"`
	EffectParams    map[string]map[string]float64 `json:"effect_params" yaml:"effect_params"`
	ReverbIRPath    string                        `json:"reverb_ir_path" yaml:"reverb_ir_path"`
	MIDIInput       *string                       `json:"midi_input" yaml:"midi_input"`
}

// EnvelopeSetting is a partial ADSR override.
type EnvelopeSetting struct {
	Attack  *float64 `json:"attack" yaml:"attack"`
	Decay   *float64 `json:"decay" yaml:"decay"`
	Sustain *float64 `json:"sustain" yaml:"sustain"`
	Release *float64 `json:"release" yaml:"release"`
}

// Load reads path, choosing the decoder by extension (.json, .yaml, .yml),
// and applies it on top of Default. A relative reverb_ir_path is resolved
// against the directory of path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(b, &f)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &f)
	default:
		return nil, fmt.Errorf("config: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	c := Default()
	if err := ApplyFile(c, &f); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if c.ReverbIRPath != "" && !filepath.IsAbs(c.ReverbIRPath) {
		c.ReverbIRPath = filepath.Clean(filepath.Join(filepath.Dir(path), c.ReverbIRPath))
	}
	return c, nil
}

// ApplyFile validates f and copies every set field onto dst.
func ApplyFile(dst *Config, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination config")
	}
	if f == nil {
		return nil
	}

	if f.SampleRate != nil {
		if *f.SampleRate < 8000 || *f.SampleRate > 192000 {
			return fmt.Errorf("sample_rate must be in [8000,192000]")
		}
		dst.SampleRate = *f.SampleRate
	}
	if f.BlockSize != nil {
		if *f.BlockSize < 16 || *f.BlockSize > 8192 {
			return fmt.Errorf("block_size must be in [16,8192]")
		}
		dst.BlockSize = *f.BlockSize
	}
	if f.Polyphony != nil {
		if *f.Polyphony < 1 || *f.Polyphony > 128 {
			return fmt.Errorf("polyphony must be in [1,128]")
		}
		dst.Polyphony = *f.Polyphony
	}
	if f.Algorithm != nil {
		if _, ok := synth.ParseAlgorithm(*f.Algorithm); !ok {
			return fmt.Errorf("unknown algorithm %q", *f.Algorithm)
		}
		dst.Algorithm = *f.Algorithm
	}
	if f.Harmonicity != nil {
		if !finite(*f.Harmonicity) || *f.Harmonicity <= 0 {
			return fmt.Errorf("harmonicity must be > 0")
		}
		dst.Harmonicity = *f.Harmonicity
	}
	if f.ModulationIndex != nil {
		if !finite(*f.ModulationIndex) || *f.ModulationIndex < 0 {
			return fmt.Errorf("modulation_index must be >= 0")
		}
		dst.ModulationIndex = *f.ModulationIndex
	}
	if f.Waveform != nil {
		if _, ok := synth.ParseShape(*f.Waveform); !ok {
			return fmt.Errorf("unknown waveform %q", *f.Waveform)
		}
		dst.Waveform = *f.Waveform
	}
	if f.Modifier != nil {
		if _, ok := synth.ParseModifier(*f.Modifier); !ok {
			return fmt.Errorf("unknown modifier %q", *f.Modifier)
		}
		dst.Modifier = *f.Modifier
	}
	if f.Envelope != nil {
		if err := applyEnvelope(&dst.Envelope, f.Envelope); err != nil {
			return err
		}
	}
	if f.Partials != nil {
		if len(f.Partials) > len(dst.Partials) {
			return fmt.Errorf("partials takes at most %d weights", len(dst.Partials))
		}
		var w [4]float64
		for i, v := range f.Partials {
			if !finite(v) || v < 0 || v > 1 {
				return fmt.Errorf("partials[%d] must be in [0,1]", i)
			}
			w[i] = v
		}
		dst.Partials = w
	}
	if f.Effects != nil {
		seen := make(map[string]bool, len(f.Effects))
		for _, k := range f.Effects {
			if _, ok := effect.Lookup(k); !ok {
				return fmt.Errorf("unknown effect %q", k)
			}
			if seen[k] {
				return fmt.Errorf("effect %q listed twice", k)
			}
			seen[k] = true
		}
		dst.Effects = append([]string(nil), f.Effects...)
	}
	if err := applyEffectParams(dst, f.EffectParams); err != nil {
		return err
	}
	if f.ReverbIRPath != "" {
		dst.ReverbIRPath = strings.TrimSpace(f.ReverbIRPath)
	}
	if f.MIDIInput != nil {
		dst.MIDIInput = strings.TrimSpace(*f.MIDIInput)
	}
	return nil
}

func applyEnvelope(dst *synth.Envelope, s *EnvelopeSetting) error {
	stages := []struct {
		name string
		v    *float64
	}{
		{"attack", s.Attack},
		{"decay", s.Decay},
		{"sustain", s.Sustain},
		{"release", s.Release},
	}
	env := *dst
	for _, st := range stages {
		if st.v == nil {
			continue
		}
		if st.name == "sustain" && *st.v > 1 {
			return fmt.Errorf("envelope.sustain must be in [0,1]")
		}
		next, err := env.Set(st.name, *st.v)
		if err != nil {
			return err
		}
		env = next
	}
	*dst = env
	return nil
}

func applyEffectParams(dst *Config, src map[string]map[string]float64) error {
	if len(src) == 0 {
		return nil
	}
	if dst.EffectParams == nil {
		dst.EffectParams = make(map[string]params.Set)
	}

	kinds := make([]string, 0, len(src))
	for k := range src {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		defaults, ok := effect.DefaultParams(kind)
		if !ok {
			return fmt.Errorf("effect_params: unknown effect %q", kind)
		}
		set := dst.EffectParams[kind]
		if set == nil {
			set = params.Set{}
			dst.EffectParams[kind] = set
		}
		for name, v := range src[kind] {
			if _, known := defaults[name]; !known {
				return fmt.Errorf("effect_params.%s: unknown parameter %q", kind, name)
			}
			if !finite(v) {
				return fmt.Errorf("effect_params.%s.%s must be finite", kind, name)
			}
			set[name] = v
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
