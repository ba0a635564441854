package sequencer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/J-Broadway/TrapCode/debug"
	"github.com/J-Broadway/TrapCode/pattern"
)

// Defaults seeds handle fields for patterns that do not override them.
type Defaults struct {
	Velocity   int
	Length     float64 // beats
	CycleBeats float64
	Channel    uint8
	Seed       uint64
}

// Session ties the clock, the voice source, the named patterns and the
// parent-link table together. All scheduler state lives here; nothing is
// package-global, so tests (and multiple outputs) can run sessions side by
// side.
type Session struct {
	mu       sync.Mutex
	clock    Clock
	source   VoiceSource
	defaults Defaults

	patterns map[string]*Pattern
	handles  []*Handle
	parents  map[VoiceID]VoiceID // child -> parent
	live     map[int]*Handle     // externally played notes, keyed by note

	lastTick int64
	started  bool
}

// NewSession wires a session to its collaborators.
func NewSession(clock Clock, source VoiceSource, d Defaults) *Session {
	if d.Velocity == 0 {
		d.Velocity = 100
	}
	if d.Length == 0 {
		d.Length = 0.25
	}
	if d.CycleBeats == 0 {
		d.CycleBeats = 1
	}
	return &Session{
		clock:    clock,
		source:   source,
		defaults: d,
		patterns: make(map[string]*Pattern),
		parents:  make(map[VoiceID]VoiceID),
		live:     make(map[int]*Handle),
	}
}

// NewHandle registers a standalone handle with the session defaults.
func (s *Session) NewHandle() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newHandleLocked()
}

func (s *Session) newHandleLocked() *Handle {
	h := &Handle{
		session:   s,
		Velocity:  s.defaults.Velocity,
		Length:    s.defaults.Length,
		Channel:   s.defaults.Channel,
		Cut:       true,
		Cutoff:    -1, // filter untouched unless set
		Resonance: -1,
	}
	s.handles = append(s.handles, h)
	return h
}

// Bind compiles text and installs it as the named pattern, replacing any
// previous binding of that name. The new instance starts stopped at cycle
// zero.
func (s *Session) Bind(name, text string, opts PatternOpts) (*Pattern, error) {
	src, err := pattern.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("bind %q: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.patterns[name]; ok {
		old.Stop()
		// The old handle lingers only until its voices run out.
		old.handle.detached = true
		s.pruneHandlesLocked()
	}
	h := s.newHandleLocked()
	if opts.Velocity > 0 {
		h.Velocity = opts.Velocity
	}
	if opts.Length > 0 {
		h.Length = opts.Length
	}
	h.Channel = opts.Channel
	if opts.Cut != nil {
		h.Cut = *opts.Cut
	}
	h.Parent = opts.BoundTo

	cycle := opts.CycleBeats
	if cycle <= 0 {
		cycle = s.defaults.CycleBeats
	}
	seed := opts.Seed
	if seed == 0 {
		seed = s.defaults.Seed
	}
	p := &Pattern{
		name:       name,
		src:        src,
		handle:     h,
		root:       opts.Root,
		cycleBeats: beatsToRat(cycle),
		seed:       seed,
		boundTo:    opts.BoundTo,
		eventLen:   opts.Length,
		cursor:     pattern.NewRat(0, 1),
		anchorPos:  pattern.NewRat(0, 1),
	}
	s.patterns[name] = p
	return p, nil
}

// Unbind removes a named pattern, releasing whatever its handle is
// sounding; a voice with no handle left could never be released. Used for
// the per-note pattern instances of passthrough mode.
func (s *Session) Unbind(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patterns[name]
	if !ok {
		return nil
	}
	p.Stop()
	delete(s.patterns, name)
	err := p.handle.Release()
	for i, h := range s.handles {
		if h == p.handle {
			s.handles = append(s.handles[:i], s.handles[i+1:]...)
			break
		}
	}
	return err
}

// ActiveVoices counts handles with a sounding voice.
func (s *Session) ActiveVoices() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, h := range s.handles {
		n += len(h.active)
	}
	return n
}

// Pattern looks up a bound pattern by name.
func (s *Session) Pattern(name string) (*Pattern, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patterns[name]
	return p, ok
}

// PatternStatus is a display snapshot of one bound pattern. The compiled
// source is immutable once bound, so it is safe to query from any goroutine.
type PatternStatus struct {
	Running bool
	Cursor  pattern.Rat
	Source  *pattern.Pattern
	Root    int
	Seed    uint64
}

// Status snapshots a pattern under the session lock. Display code runs on
// its own goroutine and must not read pattern fields the scheduler mutates.
func (s *Session) Status(name string) (PatternStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patterns[name]
	if !ok {
		return PatternStatus{}, false
	}
	return PatternStatus{
		Running: p.running,
		Cursor:  p.cursor,
		Source:  p.src,
		Root:    p.root,
		Seed:    p.seed,
	}, true
}

// Patterns returns the bound patterns sorted by name.
func (s *Session) Patterns() []*Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Pattern, 0, len(s.patterns))
	for _, p := range s.patterns {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Start sets the named pattern running from its current cursor.
func (s *Session) Start(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patterns[name]
	if !ok {
		return fmt.Errorf("start: no pattern %q", name)
	}
	p.Start(s.clock.Tick())
	return nil
}

// Stop halts the named pattern. Its voices keep sounding; scheduled
// auto-releases still fire.
func (s *Session) Stop(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patterns[name]
	if !ok {
		return fmt.Errorf("stop: no pattern %q", name)
	}
	p.Stop()
	return nil
}

// Reset rewinds the named pattern to cycle zero.
func (s *Session) Reset(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patterns[name]
	if !ok {
		return fmt.Errorf("reset: no pattern %q", name)
	}
	p.Reset(s.clock.Tick())
	return nil
}

// Update advances every running pattern to the current tick. Auto-releases
// due at or before this tick fire before any new trigger, so a voice whose
// span just ended never collides with its successor. A tick counter that
// moved backwards re-anchors everything silently.
func (s *Session) Update() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tick := s.clock.Tick()
	ppq := s.clock.PPQ()
	if ppq <= 0 {
		return fmt.Errorf("update: clock reports ppq %d", ppq)
	}

	if s.started && tick < s.lastTick {
		debug.Log("sequencer", "tick went back %d -> %d, re-anchoring", s.lastTick, tick)
		for _, p := range s.patterns {
			p.anchorTick = tick
			p.anchorPos = p.cursor
		}
		s.lastTick = tick
		return nil
	}
	s.started = true
	s.lastTick = tick

	var firstErr error
	for _, h := range s.handles {
		if err := h.releaseDue(tick); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.pruneHandlesLocked()
	for _, name := range s.runningNamesLocked() {
		p := s.patterns[name]
		if err := p.update(tick, ppq); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// pruneHandlesLocked drops detached handles once their voices have drained,
// so repeated rebinds do not accumulate dead handles.
func (s *Session) pruneHandlesLocked() {
	kept := s.handles[:0]
	for _, h := range s.handles {
		if h.detached && len(h.active) == 0 {
			continue
		}
		kept = append(kept, h)
	}
	s.handles = kept
}

// runningNamesLocked keeps trigger order deterministic across updates.
func (s *Session) runningNamesLocked() []string {
	names := make([]string, 0, len(s.patterns))
	for name, p := range s.patterns {
		if p.running {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// NotifyRelease tells the session an externally owned voice has ended.
// Handles whose voice is linked to id are released in cascade, the link
// entries are pruned, and patterns bound to id stop.
func (s *Session) NotifyRelease(id VoiceID) error {
	if id == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.parents, id)

	var firstErr error
	for _, h := range s.handles {
		if err := h.releaseLinked(id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, p := range s.patterns {
		if p.boundTo == id && p.running {
			debug.Log("sequencer", "stopping pattern %q: voice %d released", p.name, id)
			p.Stop()
		}
	}
	return firstErr
}

// Parent reports the voice id is linked under, or 0.
func (s *Session) Parent(id VoiceID) (VoiceID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	parent, ok := s.parents[id]
	return parent, ok
}

// ReleaseAll silences every handle the session owns. The escape hatch for
// Stop leaving voices sounding.
func (s *Session) ReleaseAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, h := range s.handles {
		if err := h.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PlayNote sounds an externally played note (MIDI input, live keys). The
// note keeps sounding until StopNote; each note gets its own handle so
// held chords work.
func (s *Session) PlayNote(note, velocity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.live[note]
	if !ok {
		h = s.newHandleLocked()
		h.Length = 0 // released by StopNote, never by the clock
		s.live[note] = h
	}
	return h.Trigger(Overrides{Note: &note, Velocity: &velocity})
}

// StopNote releases an externally played note.
func (s *Session) StopNote(note int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.live[note]
	if !ok {
		return nil
	}
	return h.Release()
}

func (s *Session) link(child, parent VoiceID) {
	s.parents[child] = parent
}

func (s *Session) unlink(child VoiceID) {
	delete(s.parents, child)
}

// beatsToTicks converts a beat length to whole ticks, rounding to nearest.
func (s *Session) beatsToTicks(beats float64) int64 {
	t := beats * float64(s.clock.PPQ())
	if t < 1 {
		return 1
	}
	return int64(t + 0.5)
}

// beatsToRat widens a beat count from config floats to an exact rational,
// quantized to 1/960 of a beat.
func beatsToRat(beats float64) pattern.Rat {
	return pattern.NewRat(int64(beats*960+0.5), 960)
}
