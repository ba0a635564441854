package sequencer

import (
	"fmt"

	"github.com/J-Broadway/TrapCode/debug"
	"github.com/J-Broadway/TrapCode/pattern"
)

// PatternOpts configures a named pattern at bind time. Zero values fall
// back to the session defaults.
type PatternOpts struct {
	Root       int     // base note for numeric offsets
	CycleBeats float64 // musical length of one cycle; 0 = one beat
	Channel    uint8
	Velocity   int
	Length     float64 // fixed beats per event; 0 derives length from the event span
	Cut        *bool   // nil = cut on
	Seed       uint64  // degrade seed; 0 keeps the session default
	BoundTo    VoiceID // releasing this voice stops the pattern
}

// Pattern is one running instance of a compiled pattern bound to a handle.
// Its cursor is an exact rational position in cycles; conversion to ticks
// happens only at the anchor.
type Pattern struct {
	name   string
	src    *pattern.Pattern
	handle *Handle

	root       int
	cycleBeats pattern.Rat
	seed       uint64
	boundTo    VoiceID
	eventLen   float64 // beats; 0 derives length from each event's span

	running    bool
	cursor     pattern.Rat // absolute position, in cycles
	anchorTick int64
	anchorPos  pattern.Rat
}

func (p *Pattern) Name() string             { return p.name }
func (p *Pattern) Running() bool            { return p.running }
func (p *Pattern) Handle() *Handle          { return p.handle }
func (p *Pattern) Source() *pattern.Pattern { return p.src }
func (p *Pattern) Root() int                { return p.root }
func (p *Pattern) Seed() uint64             { return p.seed }

// Cursor reports the position reached by the last update, in cycles.
// Running and Cursor read scheduler-owned state; callers on other
// goroutines go through Session.Status instead.
func (p *Pattern) Cursor() pattern.Rat { return p.cursor }

// Start resumes from the current cursor. The anchor moves to the present
// tick so paused time is not replayed.
func (p *Pattern) Start(tick int64) {
	p.running = true
	p.anchorTick = tick
	p.anchorPos = p.cursor
}

// Stop freezes the cursor in place. Sounding voices are left alone; any
// scheduled auto-release still fires.
func (p *Pattern) Stop() {
	p.running = false
}

// Reset rewinds the cursor to cycle zero without changing run state.
func (p *Pattern) Reset(tick int64) {
	p.cursor = pattern.NewRat(0, 1)
	p.anchorTick = tick
	p.anchorPos = p.cursor
}

// advance moves the cursor to the position implied by tick and returns the
// arc swept since the previous update. PPQ is whatever the clock reports
// right now; the per-update re-anchor makes tempo changes take effect from
// the current position instead of rescaling history.
func (p *Pattern) advance(tick int64, ppq int) pattern.Span {
	ticksPerCycle := pattern.NewRat(int64(ppq), 1).Mul(p.cycleBeats)
	delta := pattern.NewRat(tick-p.anchorTick, 1)
	newPos := p.anchorPos.Add(delta.Div(ticksPerCycle))
	arc := pattern.Span{Begin: p.cursor, End: newPos}
	p.cursor = newPos
	p.anchorTick = tick
	p.anchorPos = newPos
	return arc
}

// update queries the swept arc and fires one trigger per onset, converting
// each event's span length back to beats for the auto-release.
func (p *Pattern) update(tick int64, ppq int) error {
	arc := p.advance(tick, ppq)
	if arc.Empty() {
		return nil
	}
	haps := p.src.Query(arc, p.root, p.seed)
	for _, h := range haps {
		if !h.HasOnset() {
			continue
		}
		note := h.Value
		length := p.eventLen
		if length <= 0 {
			length = h.Whole.Length().Mul(p.cycleBeats).Float()
		}
		if err := p.handle.Trigger(Overrides{Note: &note, Length: &length}); err != nil {
			return fmt.Errorf("pattern %q: %w", p.name, err)
		}
		debug.Log("sequencer", "pattern %q note %d at %s", p.name, note, h.Whole.Begin)
	}
	return nil
}
