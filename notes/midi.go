package notes

const (
	statusNoteOff = 0x80 // 128
	statusNoteOn  = 0x90 // 144
)

// Event is a decoded note message.
type Event struct {
	On       bool
	Note     int
	Velocity int
}

// DecodeMIDI interprets a (status, note, velocity) triple. Note-on and
// note-off are recognised on any channel; everything else is rejected.
func DecodeMIDI(status, note, velocity byte) (Event, bool) {
	switch status & 0xF0 {
	case statusNoteOn:
		return Event{On: true, Note: int(note & 0x7F), Velocity: int(velocity & 0x7F)}, true
	case statusNoteOff:
		return Event{On: false, Note: int(note & 0x7F), Velocity: int(velocity & 0x7F)}, true
	}
	return Event{}, false
}
