package sequencer

import (
	"fmt"

	"github.com/J-Broadway/TrapCode/debug"
)

// VoiceID identifies one sounding voice across the session. IDs are issued
// by the voice source (or by the host for passthrough voices) and are never
// reused while the voice can still be referenced.
type VoiceID int64

// Voice is one playable unit on an output device. A Handle configures it,
// triggers it, and eventually releases it; collaborator errors propagate
// back through the scheduler unchanged.
type Voice interface {
	ID() VoiceID
	SetNote(note int)
	SetVelocity(vel int)
	SetPan(pan float64)
	SetChannel(ch uint8)
	SetFilter(cutoff, resonance float64)
	Trigger() error
	Release() error
}

// VoiceSource mints fresh voices for handle triggers.
type VoiceSource interface {
	NewVoice() Voice
}

// Overrides carries the per-trigger field overrides merged onto a handle's
// persistent settings. Nil pointers leave the persistent value in place.
type Overrides struct {
	Note      *int
	Velocity  *int
	Length    *float64 // beats
	Pan       *float64
	Cutoff    *float64
	Resonance *float64
	Parent    *VoiceID
}

// activeVoice is one sounding voice and its scheduled release tick
// (due < 0 holds until an explicit release).
type activeVoice struct {
	voice Voice
	due   int64
}

// Handle replays its persistent settings onto each voice it triggers and
// tracks every voice it still has sounding. With Cut enabled (the default)
// a trigger first releases everything the handle holds, so one handle
// behaves like a mono channel strip; with Cut off voices overlap and each
// runs out its own length. Handles are not self-locking; drive them from
// the same goroutine that calls Session.Update.
type Handle struct {
	session *Session

	Note      int
	Velocity  int
	Length    float64 // beats; <= 0 disables the auto-release
	Pan       float64 // -1 hard left .. 1 hard right
	Cutoff    float64 // 0..1 filter cutoff; negative leaves the synth untouched
	Resonance float64 // 0..1 filter resonance; negative leaves the synth untouched
	Channel   uint8
	Cut       bool
	Parent    VoiceID // 0 links nothing

	detached bool // no pattern points here anymore; pruned once drained
	active   []activeVoice
}

// Trigger merges ov onto the persistent fields, releases the previous
// voices when Cut is set, then starts a fresh voice and schedules its
// auto-release.
func (h *Handle) Trigger(ov Overrides) error {
	note := h.Note
	if ov.Note != nil {
		note = *ov.Note
	}
	vel := h.Velocity
	if ov.Velocity != nil {
		vel = *ov.Velocity
	}
	length := h.Length
	if ov.Length != nil {
		length = *ov.Length
	}
	pan := h.Pan
	if ov.Pan != nil {
		pan = *ov.Pan
	}
	cutoff := h.Cutoff
	if ov.Cutoff != nil {
		cutoff = *ov.Cutoff
	}
	resonance := h.Resonance
	if ov.Resonance != nil {
		resonance = *ov.Resonance
	}
	parent := h.Parent
	if ov.Parent != nil {
		parent = *ov.Parent
	}

	note = clampMIDI(note, "note")
	vel = clampMIDI(vel, "velocity")

	if h.Cut && len(h.active) > 0 {
		if err := h.Release(); err != nil {
			return fmt.Errorf("cut release: %w", err)
		}
	}

	v := h.session.source.NewVoice()
	v.SetChannel(h.Channel)
	v.SetNote(note)
	v.SetVelocity(vel)
	v.SetPan(pan)
	v.SetFilter(cutoff, resonance)
	if err := v.Trigger(); err != nil {
		return fmt.Errorf("trigger voice %d: %w", v.ID(), err)
	}
	due := int64(-1)
	if length > 0 {
		due = h.session.clock.Tick() + h.session.beatsToTicks(length)
	}
	h.active = append(h.active, activeVoice{voice: v, due: due})
	if parent != 0 {
		h.session.link(v.ID(), parent)
	}
	return nil
}

// Release stops every voice the handle holds and drops their parent links.
func (h *Handle) Release() error {
	var firstErr error
	for _, av := range h.active {
		if err := h.releaseVoice(av.voice); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	h.active = nil
	return firstErr
}

// Active reports the most recently triggered sounding voice, or nil.
func (h *Handle) Active() Voice {
	if len(h.active) == 0 {
		return nil
	}
	return h.active[len(h.active)-1].voice
}

// releaseDue fires auto-releases whose tick has arrived.
func (h *Handle) releaseDue(tick int64) error {
	var firstErr error
	kept := h.active[:0]
	for _, av := range h.active {
		if av.due >= 0 && av.due <= tick {
			if err := h.releaseVoice(av.voice); err != nil && firstErr == nil {
				firstErr = err
			}
			continue
		}
		kept = append(kept, av)
	}
	h.active = kept
	return firstErr
}

// releaseLinked stops only the voices linked under parent.
func (h *Handle) releaseLinked(parent VoiceID) error {
	var firstErr error
	kept := h.active[:0]
	for _, av := range h.active {
		if h.session.parents[av.voice.ID()] == parent {
			if err := h.releaseVoice(av.voice); err != nil && firstErr == nil {
				firstErr = err
			}
			continue
		}
		kept = append(kept, av)
	}
	h.active = kept
	return firstErr
}

func (h *Handle) releaseVoice(v Voice) error {
	h.session.unlink(v.ID())
	if err := v.Release(); err != nil {
		return fmt.Errorf("release voice %d: %w", v.ID(), err)
	}
	return nil
}

func clampMIDI(v int, what string) int {
	if v < 0 {
		debug.Log("sequencer", "clamping %s %d to 0", what, v)
		return 0
	}
	if v > 127 {
		debug.Log("sequencer", "clamping %s %d to 127", what, v)
		return 127
	}
	return v
}
