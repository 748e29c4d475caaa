package notes

import "sort"

// keyToNote maps computer keys to notes, two rows spanning C3 to E5.
var keyToNote = map[rune]int{
	'q': 48, '2': 49, 'w': 50, '3': 51, 'e': 52, 'r': 53,
	'5': 54, 't': 55, '6': 56, 'y': 57, '7': 58, 'u': 59,
	'i': 60, '9': 61, 'o': 62, '0': 63, 'p': 64,
	'z': 65, 's': 66, 'x': 67, 'd': 68, 'c': 69, 'f': 70,
	'v': 71, 'b': 72, 'h': 73, 'n': 74, 'j': 75, 'm': 76,
}

// KeyNote returns the note mapped to key.
func KeyNote(key rune) (int, bool) {
	n, ok := keyToNote[key]
	return n, ok
}

const keyVelocity = 127

// Keyboard tracks held computer keys so auto-repeat does not retrigger and
// each release sends exactly one note-off.
//
// Releases use the octave current at release time. Changing octave while a
// key is held therefore leaves that voice sounding.
type Keyboard struct {
	d      *Dispatcher
	octave int
	held   map[rune]bool
}

// NewKeyboard returns a Keyboard at octave 0 sending notes to d.
func NewKeyboard(d *Dispatcher) *Keyboard {
	return &Keyboard{d: d, held: make(map[rune]bool)}
}

// KeyDown reports whether the key started a note.
func (k *Keyboard) KeyDown(key rune) bool {
	note, ok := keyToNote[key]
	if !ok || k.held[key] {
		return false
	}
	k.held[key] = true
	k.d.OnNoteDown(note, keyVelocity, k.octave)
	return true
}

// KeyUp reports whether the key released a note.
func (k *Keyboard) KeyUp(key rune) bool {
	note, ok := keyToNote[key]
	if !ok || !k.held[key] {
		return false
	}
	delete(k.held, key)
	k.d.OnNoteUp(note, k.octave)
	return true
}

func (k *Keyboard) OctaveUp()   { k.octave++ }
func (k *Keyboard) OctaveDown() { k.octave-- }
func (k *Keyboard) Octave() int { return k.octave }

// IsHeld reports whether key is currently down.
func (k *Keyboard) IsHeld(key rune) bool { return k.held[key] }

// Held lists the held keys in order.
func (k *Keyboard) Held() []rune {
	out := make([]rune, 0, len(k.held))
	for r := range k.held {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
