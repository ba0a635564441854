package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/J-Broadway/TrapCode/sequencer"
)

// Standard controller numbers.
const (
	panCC       = 10
	resonanceCC = 71
	cutoffCC    = 74 // "brightness"
)

// Voice is one note on an output port. Trigger sends controllers then
// note-on; Release sends the matching note-off. A voice is single-shot:
// triggering twice without a release would orphan the first note-on, so
// Trigger refuses it.
type Voice struct {
	id     sequencer.VoiceID
	output *Output

	note      uint8
	velocity  uint8
	pan       float64
	cutoff    float64
	resonance float64
	channel   uint8

	sounding bool
}

func (v *Voice) ID() sequencer.VoiceID { return v.id }

func (v *Voice) SetNote(note int)    { v.note = uint8(note) }
func (v *Voice) SetVelocity(vel int) { v.velocity = uint8(vel) }
func (v *Voice) SetPan(pan float64)  { v.pan = pan }
func (v *Voice) SetChannel(ch uint8) { v.channel = ch }

// SetFilter configures the cutoff and resonance controllers, 0..1 each.
// Negative values suppress the corresponding CC.
func (v *Voice) SetFilter(cutoff, resonance float64) {
	v.cutoff = cutoff
	v.resonance = resonance
}

func (v *Voice) Trigger() error {
	if v.sounding {
		return fmt.Errorf("voice %d already sounding", v.id)
	}
	send, err := v.output.sender()
	if err != nil {
		return err
	}
	if err := send(gomidi.ControlChange(v.channel, panCC, panValue(v.pan))); err != nil {
		return fmt.Errorf("pan: %w", err)
	}
	if v.cutoff >= 0 {
		if err := send(gomidi.ControlChange(v.channel, cutoffCC, ccValue(v.cutoff))); err != nil {
			return fmt.Errorf("cutoff: %w", err)
		}
	}
	if v.resonance >= 0 {
		if err := send(gomidi.ControlChange(v.channel, resonanceCC, ccValue(v.resonance))); err != nil {
			return fmt.Errorf("resonance: %w", err)
		}
	}
	if err := send(gomidi.NoteOn(v.channel, v.note, v.velocity)); err != nil {
		return fmt.Errorf("note on: %w", err)
	}
	v.sounding = true
	return nil
}

func (v *Voice) Release() error {
	if !v.sounding {
		return nil
	}
	send, err := v.output.sender()
	if err != nil {
		return err
	}
	v.sounding = false
	if err := send(gomidi.NoteOff(v.channel, v.note)); err != nil {
		return fmt.Errorf("note off: %w", err)
	}
	return nil
}

// panValue maps -1..1 onto the 0..127 controller range, center 64.
func panValue(pan float64) uint8 {
	if pan < -1 {
		pan = -1
	}
	if pan > 1 {
		pan = 1
	}
	v := int((pan + 1) / 2 * 127)
	if v > 127 {
		v = 127
	}
	return uint8(v)
}

// ccValue maps 0..1 onto the 0..127 controller range.
func ccValue(x float64) uint8 {
	if x < 0 {
		x = 0
	}
	if x > 1 {
		x = 1
	}
	return uint8(x*127 + 0.5)
}
