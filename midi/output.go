package midi

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"github.com/J-Broadway/TrapCode/sequencer"
)

// SendFunc delivers one MIDI message to the wire. Injected so tests can
// capture traffic without a driver.
type SendFunc func(msg gomidi.Message) error

// Output owns one MIDI out port and mints voices on it. The sender is
// resolved lazily on first use so construction never blocks on the driver.
type Output struct {
	portName string

	mu     sync.Mutex
	send   SendFunc
	out    drivers.Out
	nextID atomic.Int64
}

// NewOutput prepares an output for the named port. An empty name picks the
// first available port at send time.
func NewOutput(portName string) *Output {
	return &Output{portName: portName}
}

// NewTestOutput bypasses the driver entirely.
func NewTestOutput(send SendFunc) *Output {
	return &Output{send: send}
}

// Ports lists the MIDI output port names visible to the driver.
func Ports() []string {
	var names []string
	for _, p := range gomidi.GetOutPorts() {
		names = append(names, p.String())
	}
	return names
}

func (o *Output) sender() (SendFunc, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.send != nil {
		return o.send, nil
	}

	ports := gomidi.GetOutPorts()
	if len(ports) == 0 {
		return nil, fmt.Errorf("no MIDI output ports")
	}
	var port drivers.Out
	if o.portName == "" {
		port = ports[0]
	} else {
		want := strings.ToLower(o.portName)
		for i, p := range ports {
			if strings.Contains(strings.ToLower(p.String()), want) {
				port = ports[i]
				break
			}
		}
		if port == nil {
			return nil, fmt.Errorf("no MIDI output port matching %q", o.portName)
		}
	}

	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", port.String(), err)
	}
	o.out = port
	o.send = func(msg gomidi.Message) error { return send(msg) }
	return o.send, nil
}

// NewVoice implements sequencer.VoiceSource.
func (o *Output) NewVoice() sequencer.Voice {
	return &Voice{
		id:        sequencer.VoiceID(o.nextID.Add(1)),
		output:    o,
		cutoff:    -1,
		resonance: -1,
	}
}

// Close releases the underlying port.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.send = nil
	if o.out != nil {
		err := o.out.Close()
		o.out = nil
		return err
	}
	return nil
}
