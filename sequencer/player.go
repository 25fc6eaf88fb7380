package sequencer

import (
	"fmt"

	"go-vibe/debug"
	"go-vibe/model"
)

// cursor is a track's play head: pattern index in the track's sequence,
// page in that pattern and slot in the page.
type cursor struct {
	pattern int
	page    int
	slot    int

	warned map[string]bool // dangling pattern names already reported
}

func newCursor() *cursor {
	return &cursor{warned: map[string]bool{}}
}

func (c *cursor) reset() {
	c.pattern, c.page, c.slot = 0, 0, 0
}

// Trigger is everything one track fires on one tick
type Trigger struct {
	Track    string
	Pattern  string
	Page     int
	Slot     int
	Code     *uint8
	Messages []model.OscMessage
}

// Change is a track state update the Manager must broadcast
type Change struct {
	Track       string
	Progress    *float64
	Deactivated bool
}

// Step is the outcome of playing one tick
type Step struct {
	Tick     int
	Max      int
	Triggers []Trigger
	Changes  []Change
	Warnings []string
}

// Messages flattens the triggers in dispatch order: track order, then the
// MIDI code before the gated messages of each slot.
func (s *Step) Messages() []model.OscMessage {
	var out []model.OscMessage
	for _, tr := range s.Triggers {
		out = append(out, tr.Messages...)
	}
	return out
}

// Notes lists the MIDI codes fired this tick in dispatch order
func (s *Step) Notes() []uint8 {
	var out []uint8
	for _, tr := range s.Triggers {
		if tr.Code != nil {
			out = append(out, *tr.Code)
		}
	}
	return out
}

// Player owns one cursor per active track and advances them all in a single
// pass per tick.
type Player struct {
	cursors map[string]*cursor
}

func NewPlayer() *Player {
	return &Player{cursors: map[string]*cursor{}}
}

// Activate puts a track at the start of its sequence
func (pl *Player) Activate(t *model.Track) Change {
	pl.cursors[t.Name] = newCursor()
	zero := 0.0
	t.SetProgress(&zero)
	return Change{Track: t.Name, Progress: t.Progress}
}

// Deactivate drops a track's cursor. Slots left in the current page are
// not played.
func (pl *Player) Deactivate(t *model.Track) Change {
	delete(pl.cursors, t.Name)
	t.SetProgress(nil)
	return Change{Track: t.Name, Deactivated: true}
}

// Forget discards the cursor of a deleted track
func (pl *Player) Forget(name string) {
	delete(pl.cursors, name)
}

// Rewind moves every active track back to the start of its sequence
func (pl *Player) Rewind(p *model.Project) []Change {
	var changes []Change
	p.Tracks.Each(func(_ string, t *model.Track) bool {
		if t.Active {
			changes = append(changes, pl.Activate(t))
		}
		return true
	})
	return changes
}

func (pl *Player) cursor(t *model.Track) *cursor {
	c, ok := pl.cursors[t.Name]
	if !ok {
		c = newCursor()
		pl.cursors[t.Name] = c
	}
	return c
}

// settle moves the cursor forward to the next playable position, skipping
// dangling pattern names and positions an edit made unreachable. Looping
// tracks wrap at most once. It returns nil when nothing can be played.
func (pl *Player) settle(p *model.Project, t *model.Track, c *cursor, st *Step) *model.Pattern {
	wrapped := false
	for {
		if c.pattern >= len(t.Patterns) {
			if !t.Loop || wrapped {
				return nil
			}
			c.reset()
			wrapped = true
			continue
		}
		name := t.Patterns[c.pattern]
		pat, ok := p.Patterns.Get(name)
		if ok && c.page < pat.PageCount {
			return pat
		}
		if !ok && !c.warned[name] {
			c.warned[name] = true
			msg := fmt.Sprintf("Track %q refers to missing pattern %q", t.Name, name)
			debug.Warn("player", "%s", msg)
			st.Warnings = append(st.Warnings, msg)
		}
		c.pattern++
		c.page, c.slot = 0, 0
	}
}

// Step plays one tick. With a context pattern only that pattern is played,
// at slot tick mod its length, and track cursors stay where they are.
func (pl *Player) Step(p *model.Project, tick int, context *model.Pattern) Step {
	st := Step{Tick: tick}
	if context != nil {
		st.Max = context.SlotCount()
		s := tick % st.Max
		page, slot := s/model.SlotsPerPage, s%model.SlotsPerPage
		code, msgs := context.Fire(page, slot)
		if code != nil || len(msgs) > 0 {
			st.Triggers = append(st.Triggers, Trigger{
				Pattern: context.Name, Page: page, Slot: slot, Code: code, Messages: msgs,
			})
		}
		return st
	}

	st.Max = pl.Max(p, nil)
	p.Tracks.Each(func(_ string, t *model.Track) bool {
		if !t.Active {
			return true
		}
		c := pl.cursor(t)
		pat := pl.settle(p, t, c, &st)
		if pat == nil {
			st.Changes = append(st.Changes, pl.Deactivate(t))
			return true
		}

		code, msgs := pat.Fire(c.page, c.slot)
		if code != nil || len(msgs) > 0 {
			st.Triggers = append(st.Triggers, Trigger{
				Track: t.Name, Pattern: pat.Name, Page: c.page, Slot: c.slot, Code: code, Messages: msgs,
			})
		}

		c.slot++
		if c.slot == model.SlotsPerPage {
			c.slot = 0
			c.page++
		}
		if c.page >= pat.PageCount {
			c.page = 0
			c.pattern++
		}
		if pl.settle(p, t, c, &st) == nil {
			st.Changes = append(st.Changes, pl.Deactivate(t))
			return true
		}
		if c.slot == 0 {
			progress := pl.progress(p, t, c)
			t.SetProgress(&progress)
			st.Changes = append(st.Changes, Change{Track: t.Name, Progress: t.Progress})
		}
		return true
	})
	return st
}

// progress is the share of the sequence's slots already consumed
func (pl *Player) progress(p *model.Project, t *model.Track, c *cursor) float64 {
	total, done := 0, 0
	for i, name := range t.Patterns {
		pat, ok := p.Patterns.Get(name)
		if !ok {
			continue
		}
		n := pat.SlotCount()
		total += n
		switch {
		case i < c.pattern:
			done += n
		case i == c.pattern:
			done += min(c.page*model.SlotsPerPage+c.slot, n)
		}
	}
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total)
}

// Max is the length in ticks of the current playback cycle: the context
// pattern when set, else the longest sequence among active tracks.
func (pl *Player) Max(p *model.Project, context *model.Pattern) int {
	if context != nil {
		return context.SlotCount()
	}
	longest := 0
	p.Tracks.Each(func(_ string, t *model.Track) bool {
		if !t.Active {
			return true
		}
		n := 0
		for _, name := range t.Patterns {
			if pat, ok := p.Patterns.Get(name); ok {
				n += pat.SlotCount()
			}
		}
		longest = max(longest, n)
		return true
	})
	return longest
}
