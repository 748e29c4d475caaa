package instrument

import (
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"math"
	"reflect"
	"slices"
	"testing"

	"github.com/cwbudde/algo-synth/config"
	"github.com/cwbudde/algo-synth/effect"
	"github.com/cwbudde/algo-synth/router"
	"github.com/cwbudde/algo-synth/synth"
)

func newTestInstrument(t *testing.T, mutate func(*config.Config)) *Instrument {
	t.Helper()
	cfg := config.Default()
	cfg.Envelope.Release = 0.01
	if mutate != nil {
		mutate(cfg)
	}
	inst, err := New(cfg, WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = inst.Close() })
	return inst
}

func hasEdge(edges []router.Edge, from, to string) bool {
	return slices.Contains(edges, router.Edge{From: from, To: to})
}

func assertChain(t *testing.T, inst *Instrument) {
	t.Helper()
	chain := inst.Chain()
	if len(chain) < 2 {
		t.Fatalf("chain too short: %v", chain)
	}
	if chain[0] != inst.Algorithm().String() || chain[len(chain)-1] != "limiter" {
		t.Fatalf("chain must run engine..limiter: %v", chain)
	}
	seen := map[string]bool{}
	for _, n := range chain {
		if seen[n] {
			t.Fatalf("duplicate node %s in %v", n, chain)
		}
		seen[n] = true
	}
}

func TestChainInvariantAcrossOperations(t *testing.T) {
	inst := newTestInstrument(t, nil)
	assertChain(t, inst)

	steps := []func() error{
		func() error { return inst.EnableEffect("chorus") },
		func() error { return inst.EnableEffect("delay") },
		func() error { return inst.SelectAlgorithm("fmsynth") },
		func() error { return inst.EnableEffect("reverb") },
		func() error { return inst.DisableEffect("delay") },
		func() error { return inst.SelectAlgorithm("amsynth") },
		func() error { return inst.EnableEffect("pingpong") },
		func() error { return inst.DisableEffect("chorus") },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		assertChain(t, inst)
	}
	want := []string{"amsynth", "reverb", "pingpong", "limiter"}
	if got := inst.Chain(); !reflect.DeepEqual(got, want) {
		t.Fatalf("chain = %v, want %v", got, want)
	}
}

func TestDelayThenReverbScenario(t *testing.T) {
	inst := newTestInstrument(t, nil)
	_ = inst.EnableEffect("delay")
	_ = inst.EnableEffect("reverb")

	edges := inst.Topology()
	for _, e := range []router.Edge{
		{From: "synth", To: "delay"},
		{From: "synth", To: "reverb"},
		{From: "delay", To: "reverb"},
		{From: "reverb", To: "limiter"},
	} {
		if !hasEdge(edges, e.From, e.To) {
			t.Fatalf("missing edge %v in %v", e, edges)
		}
	}
	if len(edges) != 4 {
		t.Fatalf("unexpected edges: %v", edges)
	}
}

func TestDelayRunBypass(t *testing.T) {
	inst := newTestInstrument(t, nil)
	for _, k := range []string{"chorus", "delay", "feedback", "reverb"} {
		_ = inst.EnableEffect(k)
	}
	edges := inst.Topology()
	if !hasEdge(edges, "chorus", "delay") || !hasEdge(edges, "chorus", "reverb") {
		t.Fatalf("node before the delay run must feed both ends: %v", edges)
	}
	if !hasEdge(edges, "feedback", "reverb") {
		t.Fatalf("delay run output must propagate: %v", edges)
	}
	if hasEdge(edges, "synth", "delay") || hasEdge(edges, "synth", "reverb") {
		t.Fatalf("serial effects must not be bypassed: %v", edges)
	}
}

func TestDelayRunEndingAtLimiter(t *testing.T) {
	inst := newTestInstrument(t, nil)
	_ = inst.EnableEffect("pingpong")
	_ = inst.EnableEffect("feedback")
	edges := inst.Topology()
	if !hasEdge(edges, "synth", "pingpong") || !hasEdge(edges, "synth", "limiter") {
		t.Fatalf("dry path must reach the limiter: %v", edges)
	}
	if !hasEdge(edges, "pingpong", "limiter") || !hasEdge(edges, "feedback", "limiter") {
		t.Fatalf("bypass inside the run must stop at the limiter: %v", edges)
	}
}

func TestEnableIdempotentAndRoundTrip(t *testing.T) {
	inst := newTestInstrument(t, nil)
	_ = inst.EnableEffect("lowpass")
	_ = inst.EnableEffect("chorus")
	before, beforeEdges := inst.Chain(), inst.Topology()

	_ = inst.EnableEffect("wah")
	once, onceEdges := inst.Chain(), inst.Topology()
	_ = inst.EnableEffect("wah")
	if !reflect.DeepEqual(inst.Chain(), once) || !reflect.DeepEqual(inst.Topology(), onceEdges) {
		t.Fatalf("second enable changed the graph")
	}

	_ = inst.DisableEffect("wah")
	if !reflect.DeepEqual(inst.Chain(), before) || !reflect.DeepEqual(inst.Topology(), beforeEdges) {
		t.Fatalf("round trip did not restore %v, got %v", before, inst.Chain())
	}
}

func TestUnknownIdentifiersAreInert(t *testing.T) {
	inst := newTestInstrument(t, nil)
	before := inst.Chain()
	if err := inst.EnableEffect("granular"); err != nil {
		t.Fatalf("EnableEffect: %v", err)
	}
	if err := inst.DisableEffect("reverb"); err != nil {
		t.Fatalf("DisableEffect: %v", err)
	}
	if err := inst.SelectAlgorithm("duosynth"); err != nil {
		t.Fatalf("SelectAlgorithm: %v", err)
	}
	inst.UpdateEffectParameter("granular", "grain", 1)
	inst.SetAlgorithmParameter("detune", 3)
	if got := inst.Chain(); !reflect.DeepEqual(got, before) {
		t.Fatalf("chain changed: %v", got)
	}
	if inst.Algorithm() != synth.AlgorithmClassic {
		t.Fatalf("algorithm changed")
	}
	if _, ok := inst.Params("algorithm")["detune"]; ok {
		t.Fatalf("unknown algorithm parameter stored")
	}
}

func TestFMHarmonicityIsLive(t *testing.T) {
	inst := newTestInstrument(t, nil)
	if err := inst.SelectAlgorithm("fmsynth"); err != nil {
		t.Fatalf("SelectAlgorithm: %v", err)
	}
	live := inst.engine.Poly()
	if live.Harmonicity() != 3 || live.ModulationIndex() != 10 {
		t.Fatalf("defaults not applied: %v/%v", live.Harmonicity(), live.ModulationIndex())
	}
	inst.SetAlgorithmParameter(synth.ParamHarmonicity, 5)
	if inst.engine.Poly() != live || live.Disposed() {
		t.Fatalf("engine reconstructed")
	}
	if live.Harmonicity() != 5 || inst.Params("algorithm")[synth.ParamHarmonicity] != 5 {
		t.Fatalf("harmonicity not applied")
	}
	if inst.Chain()[0] != "fmsynth" {
		t.Fatalf("chain head = %s", inst.Chain()[0])
	}
}

func TestParametersSurviveSwitches(t *testing.T) {
	inst := newTestInstrument(t, nil)
	inst.UpdateEffectParameter("reverb", "decay", 3)
	inst.SetEnvelopeStage("attack", 0.2)
	_ = inst.SelectAlgorithm("amsynth")
	_ = inst.SelectAlgorithm("synth")

	if v := inst.Params("reverb")["decay"]; v != 3 {
		t.Fatalf("reverb decay = %v", v)
	}
	if got := inst.engine.Poly().Envelope().Attack; got != 0.2 {
		t.Fatalf("envelope not re-applied: attack %v", got)
	}
	_ = inst.EnableEffect("reverb")
	n, _ := inst.rack.Node("reverb")
	if v := n.(*effect.Node).Values()["decay"]; v != 3 {
		t.Fatalf("instance built with decay %v", v)
	}
}

func TestPartialsResetOnSwitch(t *testing.T) {
	inst := newTestInstrument(t, nil)
	inst.SetPartialWeights([4]float64{1, 0.5, 0.25, 0})
	if inst.Params("partials")["partial2"] != 0.5 {
		t.Fatalf("partials not stored")
	}
	_ = inst.SelectAlgorithm("fmsynth")
	if inst.engine.Partials() != [4]float64{} || inst.Params("partials")["partial1"] != 0 {
		t.Fatalf("partials not reset")
	}
}

func TestWaveformSurvivesSwitch(t *testing.T) {
	inst := newTestInstrument(t, nil)
	inst.SetWaveform("sawtooth", "fat")
	_ = inst.SelectAlgorithm("amsynth")
	if got := inst.Waveform(); got != "fatsawtooth" {
		t.Fatalf("waveform = %q", got)
	}
	inst.SetWaveform("pwm", "am")
	if got := inst.Waveform(); got != "pwm" {
		t.Fatalf("waveform = %q", got)
	}
}

func renderBlock(inst *Instrument, frames int) []float64 {
	buf := make([]float64, frames)
	inst.Render(buf)
	return buf
}

func peak(x []float64) float64 {
	p := 0.0
	for _, v := range x {
		p = math.Max(p, math.Abs(v))
	}
	return p
}

func TestNoteDownUpThroughChain(t *testing.T) {
	inst := newTestInstrument(t, nil)
	if p := peak(renderBlock(inst, 256)); p != 0 {
		t.Fatalf("silence expected before any note, peak %v", p)
	}

	inst.NoteDown(60, 100, 0)
	if p := peak(renderBlock(inst, 1024)); p == 0 {
		t.Fatalf("no sound after note down")
	}
	if inst.engine.Poly().ActiveVoices() != 1 {
		t.Fatalf("active voices = %d", inst.engine.Poly().ActiveVoices())
	}

	inst.NoteUp(60, 0)
	renderBlock(inst, 4800)
	if n := inst.engine.Poly().ActiveVoices(); n != 0 {
		t.Fatalf("voice still active after release: %d", n)
	}
}

func renderOrder(inst *Instrument) []string {
	var out []string
	for _, n := range inst.renderer.Order() {
		out = append(out, n.Name())
	}
	return out
}

func TestRenderFollowsRerouting(t *testing.T) {
	inst := newTestInstrument(t, nil)
	renderBlock(inst, 64)
	if got := renderOrder(inst); !reflect.DeepEqual(got, []string{"synth", "limiter"}) {
		t.Fatalf("order = %v", got)
	}

	if err := inst.EnableEffect("delay"); err != nil {
		t.Fatalf("EnableEffect: %v", err)
	}
	renderBlock(inst, 64)
	if got := renderOrder(inst); !reflect.DeepEqual(got, []string{"synth", "delay", "limiter"}) {
		t.Fatalf("order after enable = %v", got)
	}

	if err := inst.SelectAlgorithm("fmsynth"); err != nil {
		t.Fatalf("SelectAlgorithm: %v", err)
	}
	renderBlock(inst, 64)
	if got := renderOrder(inst); !reflect.DeepEqual(got, []string{"fmsynth", "delay", "limiter"}) {
		t.Fatalf("order after switch = %v", got)
	}

	_ = inst.DisableEffect("delay")
	renderBlock(inst, 64)
	if got := renderOrder(inst); !reflect.DeepEqual(got, []string{"fmsynth", "limiter"}) {
		t.Fatalf("order after disable = %v", got)
	}
}

func TestHandleMIDIAndKeys(t *testing.T) {
	inst := newTestInstrument(t, nil)
	if !inst.HandleMIDI(0x90, 69, 127) {
		t.Fatalf("note-on not handled")
	}
	if inst.HandleMIDI(0xB0, 7, 100) {
		t.Fatalf("control change handled")
	}
	if !inst.KeyDown('c') || inst.KeyDown('c') {
		t.Fatalf("key repeat not suppressed")
	}
	if got := inst.HeldKeys(); !reflect.DeepEqual(got, []rune{'c'}) {
		t.Fatalf("held = %q", got)
	}
	if inst.engine.Poly().ActiveVoices() != 2 {
		t.Fatalf("active voices = %d", inst.engine.Poly().ActiveVoices())
	}
	if inst.OctaveUp() != 1 || inst.OctaveDown() != 0 {
		t.Fatalf("octave shift broken")
	}
	if !inst.KeyUp('c') {
		t.Fatalf("key release not handled")
	}
}

func TestRenderEveryEffectStaysFinite(t *testing.T) {
	inst := newTestInstrument(t, nil)
	for _, k := range effect.Kinds() {
		_ = inst.EnableEffect(k)
	}
	assertChain(t, inst)
	inst.NoteDown(57, 127, 0)
	inst.NoteDown(64, 90, 0)
	for range 4 {
		for i, v := range renderBlock(inst, 512) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("sample %d = %v", i, v)
			}
		}
	}
}

func TestStartupEffectsFromConfig(t *testing.T) {
	inst := newTestInstrument(t, func(c *config.Config) {
		c.Algorithm = "fmsynth"
		c.Harmonicity = 2
		c.Effects = []string{"distortion", "feedback"}
		c.EffectParams["feedback"] = map[string]float64{"feedback": 0.8}
		c.Partials = [4]float64{0, 1, 0, 0}
	})
	want := []string{"fmsynth", "distortion", "feedback", "limiter"}
	if got := inst.Chain(); !reflect.DeepEqual(got, want) {
		t.Fatalf("chain = %v", got)
	}
	if inst.engine.Poly().Harmonicity() != 2 {
		t.Fatalf("harmonicity not configured")
	}
	n, _ := inst.rack.Node("feedback")
	if v := n.(*effect.Node).Values()["feedback"]; v != 0.8 {
		t.Fatalf("feedback = %v", v)
	}
	if inst.engine.Partials() != [4]float64{0, 1, 0, 0} {
		t.Fatalf("partials = %v", inst.engine.Partials())
	}
}

func TestInstancesAreIndependent(t *testing.T) {
	a := newTestInstrument(t, nil)
	b := newTestInstrument(t, nil)
	_ = a.EnableEffect("reverb")
	a.UpdateEffectParameter("delay", "delayTime", 0.25)
	if len(b.Effects()) != 0 || b.Params("delay")["delayTime"] != 1 {
		t.Fatalf("state leaked between instruments")
	}
}

func TestStream(t *testing.T) {
	inst := newTestInstrument(t, nil)
	inst.NoteDown(69, 127, 0)
	s := NewStream(inst, 16)

	p := make([]byte, 40*streamFrameBytes+3)
	n, err := s.Read(p)
	if err != nil || n != 40*streamFrameBytes {
		t.Fatalf("Read = %d, %v", n, err)
	}
	nonZero := false
	for i := 0; i < n; i += streamFrameBytes {
		l := binary.LittleEndian.Uint32(p[i:])
		r := binary.LittleEndian.Uint32(p[i+4:])
		if l != r {
			t.Fatalf("frame %d: channels differ", i/streamFrameBytes)
		}
		if math.Float32frombits(l) != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		t.Fatalf("stream is silent")
	}
	var _ io.Reader = s
}

func TestClose(t *testing.T) {
	inst := newTestInstrument(t, nil)
	_ = inst.EnableEffect("delay")
	inst.NoteDown(60, 100, 0)
	live := inst.engine.Poly()
	n, _ := inst.rack.Node("delay")

	if err := inst.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !live.Disposed() || !n.Disposed() || !inst.sink.Disposed() {
		t.Fatalf("nodes not disposed")
	}
	if err := inst.EnableEffect("reverb"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if p := peak(renderBlock(inst, 128)); p != 0 {
		t.Fatalf("closed instrument rendered sound")
	}
	if err := inst.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
