package midi

import gomidi "gitlab.com/gomidi/midi/v2"

// MIDI message types
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
)

// Event is one note message to a hardware port
type Event struct {
	Type     uint8 // NoteOn or NoteOff
	Channel  uint8 // 0-15
	Note     uint8
	Velocity uint8
}

// Message converts the event for the driver
func (e Event) Message() gomidi.Message {
	if e.Type == NoteOff {
		return gomidi.NoteOff(e.Channel, e.Note)
	}
	return gomidi.NoteOn(e.Channel, e.Note, e.Velocity)
}
