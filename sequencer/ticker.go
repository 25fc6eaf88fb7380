package sequencer

import (
	"time"

	"go-vibe/model"
)

// TransportState is the run state of the Ticker
type TransportState int

const (
	Stopped TransportState = iota
	Playing
	Paused
)

func (s TransportState) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return "stopped"
}

// SlotsPerBeat is how many ticks make up one beat
const SlotsPerBeat = model.SlotsPerPage

// Period returns the wall-clock length of one tick at the given tempo
func Period(bpm float64) time.Duration {
	return time.Duration(float64(time.Minute) / SlotsPerBeat / bpm)
}

// Ticker is the master clock. It holds no goroutine; the Manager asks it
// when the next boundary is due and fires it under its own lock.
type Ticker struct {
	state TransportState
	bpm   float64
	tick  int

	deadline  time.Time     // next boundary while Playing
	remaining time.Duration // time left in the frozen period while Paused
}

// NewTicker creates a stopped ticker
func NewTicker(bpm float64) *Ticker {
	if !model.ValidBPM(bpm) {
		bpm = model.DefaultBPM
	}
	return &Ticker{bpm: bpm}
}

func (t *Ticker) State() TransportState { return t.state }
func (t *Ticker) BPM() float64          { return t.bpm }
func (t *Ticker) Tick() int             { return t.tick }
func (t *Ticker) Period() time.Duration { return Period(t.bpm) }

// Play starts from tick 0 when Stopped or resumes the frozen tick when
// Paused. It reports whether the state changed.
func (t *Ticker) Play(now time.Time) bool {
	switch t.state {
	case Playing:
		return false
	case Paused:
		t.deadline = now.Add(t.remaining)
	default:
		t.tick = 0
		t.deadline = now.Add(t.Period())
	}
	t.remaining = 0
	t.state = Playing
	return true
}

// Pause freezes the tick and remembers how much of the period is left.
// Pausing while Stopped or Paused does nothing.
func (t *Ticker) Pause(now time.Time) bool {
	if t.state != Playing {
		return false
	}
	t.remaining = t.deadline.Sub(now)
	if t.remaining < 0 {
		t.remaining = 0
	}
	t.state = Paused
	return true
}

// Stop resets the tick to 0. Stopping twice is harmless.
func (t *Ticker) Stop() bool {
	changed := t.state != Stopped
	t.state = Stopped
	t.tick = 0
	t.remaining = 0
	t.deadline = time.Time{}
	return changed
}

// SetBPM changes the tempo in any state. The part of the current period
// still to run is rescaled to the new tempo, so the tick index and the
// musical position are kept.
func (t *Ticker) SetBPM(bpm float64, now time.Time) error {
	if !model.ValidBPM(bpm) {
		return model.Invalid("bpm %g must be a positive number", bpm)
	}
	scale := t.bpm / bpm
	switch t.state {
	case Playing:
		left := t.deadline.Sub(now)
		if left < 0 {
			left = 0
		}
		t.deadline = now.Add(time.Duration(float64(left) * scale))
	case Paused:
		t.remaining = time.Duration(float64(t.remaining) * scale)
	}
	t.bpm = bpm
	return nil
}

// Deadline returns the next boundary; ok is false unless Playing.
func (t *Ticker) Deadline() (deadline time.Time, ok bool) {
	return t.deadline, t.state == Playing
}

// Due reports whether a boundary has been reached.
func (t *Ticker) Due(now time.Time) bool {
	return t.state == Playing && !now.Before(t.deadline)
}

// Fire consumes one boundary: it returns the tick index to play and moves
// on to the next one. When the clock is more than a period late the next
// boundary is scheduled from now, so ticks are never fired in a burst.
func (t *Ticker) Fire(now time.Time) int {
	idx := t.tick
	t.tick++
	period := t.Period()
	if now.Before(t.deadline) {
		t.deadline = now.Add(period)
	} else {
		t.deadline = t.deadline.Add(period)
		if t.deadline.Before(now) {
			t.deadline = now.Add(period)
		}
	}
	return idx
}
