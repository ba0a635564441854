package midi

import (
	"fmt"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Input listens on one MIDI in port and forwards note events, so incoming
// notes can drive triggers and releases the same way scheduled ones do.
type Input struct {
	portName string
	stopFunc func()
	events   chan Event
	done     chan struct{}
}

// OpenInput starts listening on the first in port matching name (empty
// name takes the first port).
func OpenInput(name string) (*Input, error) {
	ports := gomidi.GetInPorts()
	if len(ports) == 0 {
		return nil, fmt.Errorf("no MIDI input ports")
	}
	var port drivers.In
	if name == "" {
		port = ports[0]
	} else {
		want := strings.ToLower(name)
		for i, p := range ports {
			if strings.Contains(strings.ToLower(p.String()), want) {
				port = ports[i]
				break
			}
		}
		if port == nil {
			return nil, fmt.Errorf("no MIDI input port matching %q", name)
		}
	}

	in := &Input{
		portName: port.String(),
		events:   make(chan Event, 32),
		done:     make(chan struct{}),
	}
	stop, err := gomidi.ListenTo(port, func(msg gomidi.Message, timestampms int32) {
		var channel, note, velocity uint8
		switch {
		case msg.GetNoteOn(&channel, &note, &velocity) && velocity > 0:
			in.emit(Event{Type: NoteOn, Channel: channel, Note: note, Velocity: velocity})
		case msg.GetNoteOff(&channel, &note, &velocity),
			msg.GetNoteOn(&channel, &note, &velocity): // running-status note-on with velocity 0
			in.emit(Event{Type: NoteOff, Channel: channel, Note: note})
		}
	})
	if err != nil {
		return nil, fmt.Errorf("open input %q: %w", port.String(), err)
	}
	in.stopFunc = stop
	return in, nil
}

func (in *Input) emit(ev Event) {
	select {
	case in.events <- ev:
	default:
	}
}

func (in *Input) Port() string { return in.portName }

// Events yields incoming note events. The channel never closes; consumers
// select on Done to learn the input shut down. A driver callback may still
// be mid-send when Close runs, so closing the channel would race it.
func (in *Input) Events() <-chan Event {
	return in.events
}

// Done is signalled once Close has run.
func (in *Input) Done() <-chan struct{} {
	return in.done
}

func (in *Input) Close() error {
	if in.stopFunc != nil {
		in.stopFunc()
		in.stopFunc = nil
	}
	select {
	case <-in.done:
	default:
		close(in.done)
	}
	return nil
}
