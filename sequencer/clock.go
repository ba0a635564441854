package sequencer

import (
	"sync"
	"time"
)

// Clock is the host tick context: a monotonically non-decreasing tick
// counter plus the current pulses-per-quarter-note. Both are sampled fresh
// on every scheduler update; the counter may plateau while the transport is
// paused and must never be assumed to advance.
type Clock interface {
	Tick() int64
	PPQ() int
}

// Transport is a wall-clock Clock. Ticks derive from elapsed time and BPM,
// so the driver loop never accumulates drift from its own sleep jitter.
type Transport struct {
	mu      sync.Mutex
	bpm     float64
	ppq     int
	playing bool
	t0      time.Time // wall time of tick == base
	base    int64     // tick value when t0 was set
}

// NewTransport creates a paused transport at the given tempo.
func NewTransport(bpm float64, ppq int) *Transport {
	if bpm <= 0 {
		bpm = 120
	}
	if ppq <= 0 {
		ppq = 96
	}
	return &Transport{bpm: bpm, ppq: ppq}
}

// Tick returns the current tick. While paused it holds steady.
func (t *Transport) Tick() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tickLocked(time.Now())
}

func (t *Transport) tickLocked(now time.Time) int64 {
	if !t.playing {
		return t.base
	}
	elapsed := now.Sub(t.t0).Minutes()
	return t.base + int64(elapsed*t.bpm*float64(t.ppq))
}

func (t *Transport) PPQ() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ppq
}

func (t *Transport) BPM() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bpm
}

// Play resumes ticking from the held position.
func (t *Transport) Play() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.playing {
		return
	}
	t.t0 = time.Now()
	t.playing = true
}

// Pause freezes the tick counter at its current value.
func (t *Transport) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.playing {
		return
	}
	t.base = t.tickLocked(time.Now())
	t.playing = false
}

func (t *Transport) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

// SetBPM changes the tempo, re-anchoring so the tick counter stays
// continuous. Clamped to 20..300.
func (t *Transport) SetBPM(bpm float64) {
	if bpm < 20 {
		bpm = 20
	}
	if bpm > 300 {
		bpm = 300
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.base = t.tickLocked(now)
	t.t0 = now
	t.bpm = bpm
}

// SetPPQ changes the tick resolution, re-anchoring like SetBPM so the
// counter never jumps.
func (t *Transport) SetPPQ(ppq int) {
	if ppq <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.base = t.tickLocked(now)
	t.t0 = now
	t.ppq = ppq
}

// TickInterval returns the wall duration of one tick at the current tempo,
// for driver loops.
func (t *Transport) TickInterval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	perBeat := time.Duration(float64(time.Minute) / t.bpm)
	return perBeat / time.Duration(t.ppq)
}

// ManualClock is a hand-stepped Clock for tests and offline rendering.
type ManualClock struct {
	Ticks int64
	Pulse int
}

func (c *ManualClock) Tick() int64 { return c.Ticks }
func (c *ManualClock) PPQ() int    { return c.Pulse }
