//go:build js && wasm

package main

import (
	"syscall/js"
	"unsafe"

	"github.com/cwbudde/algo-synth/instrument"
)

var (
	globalSynth  *instrument.Instrument
	renderBuffer []float64
	outputBuffer []float32
)

func main() {
	c := make(chan struct{})

	js.Global().Set("wasmInit", js.FuncOf(wasmInit))
	js.Global().Set("wasmNoteOn", js.FuncOf(wasmNoteOn))
	js.Global().Set("wasmNoteOff", js.FuncOf(wasmNoteOff))
	js.Global().Set("wasmMIDI", js.FuncOf(wasmMIDI))
	js.Global().Set("wasmSelectAlgorithm", js.FuncOf(wasmSelectAlgorithm))
	js.Global().Set("wasmSetAlgorithmParam", js.FuncOf(wasmSetAlgorithmParam))
	js.Global().Set("wasmSetWaveform", js.FuncOf(wasmSetWaveform))
	js.Global().Set("wasmSetEnvelope", js.FuncOf(wasmSetEnvelope))
	js.Global().Set("wasmSetPartials", js.FuncOf(wasmSetPartials))
	js.Global().Set("wasmEnableEffect", js.FuncOf(wasmEnableEffect))
	js.Global().Set("wasmDisableEffect", js.FuncOf(wasmDisableEffect))
	js.Global().Set("wasmSetEffectParam", js.FuncOf(wasmSetEffectParam))
	js.Global().Set("wasmProcessBlock", js.FuncOf(wasmProcessBlock))
	js.Global().Set("wasmGetMemoryBuffer", js.FuncOf(wasmGetMemoryBuffer))

	println("WASM synth module loaded")
	<-c
}

func wasmInit(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	cfg, err := initConfig(args[0].Int())
	if err != nil {
		println("Synth init failed:", err.Error())
		return nil
	}

	if globalSynth != nil {
		_ = globalSynth.Close()
	}
	inst, err := instrument.New(cfg)
	if err != nil {
		println("Synth init failed:", err.Error())
		return nil
	}
	globalSynth = inst
	renderBuffer = make([]float64, maxBlockFrames)
	outputBuffer = make([]float32, maxBlockFrames*2)

	println("Synth initialized at", cfg.SampleRate, "Hz")
	return nil
}

// wasmNoteOn(note, velocity, octave)
func wasmNoteOn(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 || globalSynth == nil {
		return nil
	}
	octave := 0
	if len(args) > 2 {
		octave = args[2].Int()
	}
	globalSynth.NoteDown(args[0].Int(), args[1].Int(), octave)
	return nil
}

// wasmNoteOff(note, octave)
func wasmNoteOff(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalSynth == nil {
		return nil
	}
	octave := 0
	if len(args) > 1 {
		octave = args[1].Int()
	}
	globalSynth.NoteUp(args[0].Int(), octave)
	return nil
}

// wasmMIDI(status, data1, data2) for Web MIDI input.
func wasmMIDI(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 || globalSynth == nil {
		return false
	}
	return globalSynth.HandleMIDI(byte(args[0].Int()), byte(args[1].Int()), byte(args[2].Int()))
}

func wasmSelectAlgorithm(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalSynth == nil {
		return nil
	}
	if err := globalSynth.SelectAlgorithm(args[0].String()); err != nil {
		println("Select algorithm failed:", err.Error())
	}
	return nil
}

func wasmSetAlgorithmParam(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 || globalSynth == nil {
		return nil
	}
	globalSynth.SetAlgorithmParameter(args[0].String(), args[1].Float())
	return nil
}

// wasmSetWaveform(shape, modifier)
func wasmSetWaveform(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalSynth == nil {
		return nil
	}
	modifier := ""
	if len(args) > 1 {
		modifier = args[1].String()
	}
	globalSynth.SetWaveform(args[0].String(), modifier)
	return nil
}

func wasmSetEnvelope(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 || globalSynth == nil {
		return nil
	}
	globalSynth.SetEnvelopeStage(args[0].String(), args[1].Float())
	return nil
}

func wasmSetPartials(this js.Value, args []js.Value) interface{} {
	if globalSynth == nil {
		return nil
	}
	var w [4]float64
	for i := 0; i < len(w) && i < len(args); i++ {
		w[i] = args[i].Float()
	}
	globalSynth.SetPartialWeights(w)
	return nil
}

func wasmEnableEffect(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalSynth == nil {
		return nil
	}
	if err := globalSynth.EnableEffect(args[0].String()); err != nil {
		println("Enable effect failed:", err.Error())
	}
	return nil
}

func wasmDisableEffect(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalSynth == nil {
		return nil
	}
	if err := globalSynth.DisableEffect(args[0].String()); err != nil {
		println("Disable effect failed:", err.Error())
	}
	return nil
}

// wasmSetEffectParam(kind, name, value)
func wasmSetEffectParam(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 || globalSynth == nil {
		return nil
	}
	globalSynth.UpdateEffectParameter(args[0].String(), args[1].String(), args[2].Float())
	return nil
}

func wasmProcessBlock(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalSynth == nil {
		return 0
	}

	numFrames := clampFrames(args[0].Int())
	block := renderBuffer[:numFrames]
	globalSynth.Render(block)
	for i, v := range block {
		outputBuffer[2*i] = float32(v)
		outputBuffer[2*i+1] = float32(v)
	}

	// Return pointer to buffer in WASM linear memory
	ptr := &outputBuffer[0]
	return js.ValueOf(uintptr(unsafe.Pointer(ptr)))
}

func wasmGetMemoryBuffer(this js.Value, args []js.Value) interface{} {
	return js.Global().Get("Go").Get("_inst").Get("exports").Get("mem").Get("buffer")
}
