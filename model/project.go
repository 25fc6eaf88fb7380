package model

import (
	"math"
	"net"
	"strconv"
)

// Default project values.
const (
	DefaultProjectName = "Unnamed"
	DefaultBPM         = 120.0
	DefaultTargetAddr  = "127.0.0.1:3000"
)

// Project is the root of the domain model. It owns every track, pattern,
// event and slider by name. Tracks refer to patterns by name only.
type Project struct {
	Name       string              `json:"name" yaml:"name"`
	BPM        float64             `json:"bpm" yaml:"bpm"`
	TargetAddr string              `json:"target_addr" yaml:"target_addr"`
	Tracks     *Registry[*Track]   `json:"tracks" yaml:"tracks"`
	Patterns   *Registry[*Pattern] `json:"patterns" yaml:"patterns"`
	Events     *Registry[*Event]   `json:"events" yaml:"events"`
	Sliders    *Registry[*Slider]  `json:"sliders" yaml:"sliders"`
}

// NewProject creates an empty project with defaults.
func NewProject() *Project {
	return &Project{
		Name:       DefaultProjectName,
		BPM:        DefaultBPM,
		TargetAddr: DefaultTargetAddr,
		Tracks:     NewRegistry[*Track](),
		Patterns:   NewRegistry[*Pattern](),
		Events:     NewRegistry[*Event](),
		Sliders:    NewRegistry[*Slider](),
	}
}

// ValidBPM reports whether bpm can drive the clock.
func ValidBPM(bpm float64) bool {
	return bpm > 0 && !math.IsInf(bpm, 0) && !math.IsNaN(bpm)
}

// ValidateAddr checks a host:port OSC target.
func ValidateAddr(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return Invalid("address %q: %v", addr, err)
	}
	if host == "" {
		return Invalid("address %q has no host", addr)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p <= 0 || p > 65535 {
		return Invalid("address %q has an invalid port", addr)
	}
	return nil
}

// Tracks

func (p *Project) AddTrack(name string) (*Track, error) {
	if p.Tracks.Has(name) {
		return nil, Conflict("Track", name)
	}
	t := NewTrack(name)
	p.Tracks.Put(name, t)
	return t, nil
}

func (p *Project) DeleteTrack(name string) error {
	if !p.Tracks.Delete(name) {
		return NotFound("Track", name)
	}
	return nil
}

// EditTrack replaces the loop flag and pattern sequence of a track. Name,
// active and progress stay under server control.
func (p *Project) EditTrack(name string, edit *Track) (*Track, error) {
	t, ok := p.Tracks.Get(name)
	if !ok {
		return nil, NotFound("Track", name)
	}
	if edit == nil {
		return nil, Invalid("track %q: missing track", name)
	}
	t.Loop = edit.Loop
	t.Patterns = append([]string{}, edit.Patterns...)
	return t, nil
}

func (p *Project) Track(name string) (*Track, error) {
	t, ok := p.Tracks.Get(name)
	if !ok {
		return nil, NotFound("Track", name)
	}
	return t, nil
}

// Patterns

func (p *Project) AddPattern(name string) (*Pattern, error) {
	if p.Patterns.Has(name) {
		return nil, Conflict("Pattern", name)
	}
	pat := NewPattern(name)
	p.Patterns.Put(name, pat)
	return pat, nil
}

func (p *Project) DeletePattern(name string) error {
	if !p.Patterns.Delete(name) {
		return NotFound("Pattern", name)
	}
	return nil
}

// EditPattern replaces a pattern after validating its page shape. The stored
// name always matches the key.
func (p *Project) EditPattern(name string, edit *Pattern) (*Pattern, error) {
	if !p.Patterns.Has(name) {
		return nil, NotFound("Pattern", name)
	}
	if edit == nil {
		return nil, Invalid("pattern %q: missing pattern", name)
	}
	pat := edit.Copy()
	pat.Name = name
	if pat.Messages == nil {
		pat.Messages = []Messages{}
	}
	if err := pat.Validate(); err != nil {
		return nil, err
	}
	p.Patterns.Put(name, pat)
	return pat, nil
}

func (p *Project) Pattern(name string) (*Pattern, error) {
	pat, ok := p.Patterns.Get(name)
	if !ok {
		return nil, NotFound("Pattern", name)
	}
	return pat, nil
}

// Events

func (p *Project) AddEvent(name string) (*Event, error) {
	if p.Events.Has(name) {
		return nil, Conflict("Event", name)
	}
	e := NewEvent(name)
	p.Events.Put(name, e)
	return e, nil
}

func (p *Project) DeleteEvent(name string) error {
	if !p.Events.Delete(name) {
		return NotFound("Event", name)
	}
	return nil
}

func (p *Project) EditEvent(name string, edit *Event) (*Event, error) {
	if !p.Events.Has(name) {
		return nil, NotFound("Event", name)
	}
	if edit == nil {
		return nil, Invalid("event %q: missing event", name)
	}
	e := edit.Copy()
	e.Name = name
	if err := e.Validate(); err != nil {
		return nil, err
	}
	p.Events.Put(name, e)
	return e, nil
}

func (p *Project) Event(name string) (*Event, error) {
	e, ok := p.Events.Get(name)
	if !ok {
		return nil, NotFound("Event", name)
	}
	return e, nil
}

// Sliders

func (p *Project) AddSlider(name string) (*Slider, error) {
	if p.Sliders.Has(name) {
		return nil, Conflict("Slider", name)
	}
	s := NewSlider(name)
	p.Sliders.Put(name, s)
	return s, nil
}

func (p *Project) DeleteSlider(name string) error {
	if !p.Sliders.Delete(name) {
		return NotFound("Slider", name)
	}
	return nil
}

// EditSlider replaces a slider. A value outside the new bounds is clamped.
func (p *Project) EditSlider(name string, edit *Slider) (*Slider, error) {
	if !p.Sliders.Has(name) {
		return nil, NotFound("Slider", name)
	}
	if edit == nil {
		return nil, Invalid("slider %q: missing slider", name)
	}
	s := *edit
	s.Name = name
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.Val = s.Clamp(s.Val)
	p.Sliders.Put(name, &s)
	return &s, nil
}

// SetSliderVal stores a clamped value and returns what was stored. The
// value is clamped before narrowing, so huge inputs land on a bound.
func (p *Project) SetSliderVal(name string, val float64) (*Slider, error) {
	s, ok := p.Sliders.Get(name)
	if !ok {
		return nil, NotFound("Slider", name)
	}
	if math.IsNaN(val) {
		return nil, Invalid("slider %q: value is NaN", name)
	}
	val = math.Max(float64(s.Min), math.Min(float64(s.Max), val))
	s.Val = float32(val)
	return s, nil
}

func (p *Project) Slider(name string) (*Slider, error) {
	s, ok := p.Sliders.Get(name)
	if !ok {
		return nil, NotFound("Slider", name)
	}
	return s, nil
}
