// Package notes turns key presses and MIDI messages into voice triggers.
package notes

import "math"

// Freq returns the equal-tempered frequency of note shifted by octave
// octaves, with note 69 at 440 Hz.
func Freq(note, octave int) float64 {
	return 440.0 / 32 * math.Pow(2, float64(note+12*octave-9)/12)
}

// Trigger receives note events. synth.Engine implements it.
type Trigger interface {
	TriggerOn(note int, velocity float64, octave int)
	TriggerOff(note int, octave int)
}

// Dispatcher forwards note events to a Trigger.
type Dispatcher struct {
	t Trigger
}

// NewDispatcher returns a Dispatcher forwarding to t.
func NewDispatcher(t Trigger) *Dispatcher {
	return &Dispatcher{t: t}
}

// OnNoteDown starts note. Velocity 0 is a release.
func (d *Dispatcher) OnNoteDown(note, velocity, octave int) {
	if velocity <= 0 {
		d.t.TriggerOff(note, octave)
		return
	}
	d.t.TriggerOn(note, float64(min(velocity, 127))/127, octave)
}

// OnNoteUp releases note at octave.
func (d *Dispatcher) OnNoteUp(note, octave int) {
	d.t.TriggerOff(note, octave)
}

// HandleMIDI decodes a raw message and dispatches it at octave 0.
// It reports whether the message was a note event.
func (d *Dispatcher) HandleMIDI(status, data1, data2 byte) bool {
	ev, ok := DecodeMIDI(status, data1, data2)
	if !ok {
		return false
	}
	if ev.On {
		d.OnNoteDown(ev.Note, ev.Velocity, 0)
	} else {
		d.OnNoteUp(ev.Note, 0)
	}
	return true
}
