package midi

// MIDI message types
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
)

// Event is one incoming note event from an Input port
type Event struct {
	Type     uint8 // NoteOn or NoteOff
	Channel  uint8 // internal channel (device index)
	Note     uint8
	Velocity uint8
}
