package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/cwbudde/algo-synth/config"
	"github.com/cwbudde/algo-synth/instrument"
	"github.com/cwbudde/algo-synth/internal/audioout"
	"github.com/cwbudde/algo-synth/internal/logging"
	"github.com/cwbudde/algo-synth/internal/midiin"
	"github.com/eiannone/keyboard"
	"github.com/fatih/color"
)

var (
	algorithms = []string{"synth", "amsynth", "fmsynth"}
	shapes     = []string{"sine", "square", "sawtooth", "triangle", "pulse", "pwm"}
	modifiers  = []string{"", "am", "fm", "fat"}
)

func main() {
	configPath := flag.String("config", "", "YAML or JSON config file (optional)")
	sampleRate := flag.Int("sample-rate", 0, "Output sample rate in Hz (overrides config)")
	blockSize := flag.Int("block", 0, "Render block size in frames (overrides config)")
	algorithm := flag.String("algorithm", "", "Synthesis algorithm: synth, amsynth or fmsynth")
	waveform := flag.String("waveform", "", "Oscillator shape")
	modifier := flag.String("modifier", "", "Oscillator modifier: am, fm or fat")
	effects := flag.String("effects", "", "Comma-separated effects to enable at startup")
	irPath := flag.String("ir", "", "Reverb IR WAV path override")
	midiPrefix := flag.String("midi", "", "Open MIDI inputs whose name starts with this prefix")
	noMIDI := flag.Bool("no-midi", false, "Disable MIDI input")
	rescan := flag.Duration("midi-rescan", 2*time.Second, "MIDI device rescan interval")
	gate := flag.Duration("gate", 350*time.Millisecond, "Note length for a computer key press")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logger := logging.Setup(*debug)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config %q: %v\n", *configPath, err)
			os.Exit(1)
		}
	}
	if err := config.ApplyFile(cfg, overrides(*sampleRate, *blockSize, *algorithm, *waveform, *modifier, *effects, *irPath, *midiPrefix)); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid flags: %v\n", err)
		os.Exit(1)
	}

	inst, err := instrument.New(cfg, instrument.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating instrument: %v\n", err)
		os.Exit(1)
	}
	defer inst.Close()

	player, err := audioout.Open(instrument.NewStream(inst, cfg.BlockSize), cfg.SampleRate, 2*cfg.BlockSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening audio output: %v\n", err)
		os.Exit(1)
	}
	defer player.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if !*noMIDI {
		startMIDI(ctx, inst, cfg.MIDIInput, *rescan)
	}

	keys, err := keyboard.GetKeys(16)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening keyboard: %v\n", err)
		os.Exit(1)
	}
	defer keyboard.Close()

	printHelp()
	printStatus(inst)
	play(inst, keys, *gate, indexOf(shapes, cfg.Waveform), indexOf(modifiers, cfg.Modifier))
}

// overrides turns the non-empty flags into a config file layer so they are
// validated like the file itself.
func overrides(sampleRate, blockSize int, algorithm, waveform, modifier, effects, irPath, midiPrefix string) *config.File {
	f := &config.File{ReverbIRPath: irPath}
	if sampleRate > 0 {
		f.SampleRate = &sampleRate
	}
	if blockSize > 0 {
		f.BlockSize = &blockSize
	}
	if algorithm != "" {
		f.Algorithm = &algorithm
	}
	if waveform != "" {
		f.Waveform = &waveform
	}
	if modifier != "" {
		f.Modifier = &modifier
	}
	if effects != "" {
		f.Effects = splitList(effects)
	}
	if midiPrefix != "" {
		f.MIDIInput = &midiPrefix
	}
	return f
}

func startMIDI(ctx context.Context, inst *instrument.Instrument, prefix string, interval time.Duration) {
	src, err := midiin.OpenDriver()
	if err != nil {
		color.Yellow("MIDI input disabled: %v", err)
		return
	}
	w := midiin.NewWatcher(src, prefix, func(status, data1, data2 byte) {
		inst.HandleMIDI(status, data1, data2)
	}, nil)
	go func() {
		w.Run(ctx, interval)
		_ = src.Close()
	}()
}

func play(inst *instrument.Instrument, keys <-chan keyboard.KeyEvent, hold time.Duration, shape, mod int) {
	g := newKeyGate(inst, hold)
	defer g.releaseAll()

	alg := indexOf(algorithms, inst.Algorithm().String())
	for {
		select {
		case e := <-g.expired:
			g.expire(e)
		case ev, ok := <-keys:
			if !ok {
				return
			}
			if ev.Err != nil {
				color.Red("keyboard error: %v", ev.Err)
				return
			}
			switch ev.Key {
			case keyboard.KeyEsc, keyboard.KeyCtrlC:
				return
			case keyboard.KeyArrowUp:
				g.releaseAll()
				color.Cyan("octave %+d", inst.OctaveUp())
			case keyboard.KeyArrowDown:
				g.releaseAll()
				color.Cyan("octave %+d", inst.OctaveDown())
			case keyboard.KeyTab:
				g.releaseAll()
				alg = (alg + 1) % len(algorithms)
				if err := inst.SelectAlgorithm(algorithms[alg]); err != nil {
					color.Red("%v", err)
				}
				printStatus(inst)
			case keyboard.KeyArrowRight:
				shape = (shape + 1) % len(shapes)
				inst.SetWaveform(shapes[shape], modifiers[mod])
				printStatus(inst)
			case keyboard.KeyArrowLeft:
				mod = (mod + 1) % len(modifiers)
				inst.SetWaveform(shapes[shape], modifiers[mod])
				printStatus(inst)
			case keyboard.KeySpace:
				g.releaseAll()
			default:
				g.press(unicode.ToLower(ev.Rune))
			}
		}
	}
}

func printHelp() {
	color.Yellow("Keys: q..p / z..m play notes | up/down octave | tab algorithm | right shape | left modifier | space release | esc quit")
}

func printStatus(inst *instrument.Instrument) {
	fx := inst.Effects()
	chain := "none"
	if len(fx) > 0 {
		chain = strings.Join(fx, " > ")
	}
	color.Green("%s %s | octave %+d | effects: %s", inst.Algorithm(), inst.Waveform(), inst.Octave(), chain)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func indexOf(list []string, v string) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return 0
}
