package model

// Event is an OSC trigger fired on demand rather than by the clock.
type Event struct {
	Name     string  `json:"name" yaml:"name"`
	Path     string  `json:"path" yaml:"path"`
	Shortcut *string `json:"shortcut" yaml:"shortcut,omitempty"`
	Arg      OscArg  `json:"arg" yaml:"arg"`
}

func NewEvent(name string) *Event {
	return &Event{
		Name: name,
		Path: "/" + name,
		Arg:  FloatArg(1),
	}
}

func (e *Event) Message() OscMessage {
	return OscMessage{Path: e.Path, Arg: e.Arg}
}

func (e *Event) Validate() error {
	if e.Path == "" {
		return Invalid("event %q has an empty path", e.Name)
	}
	return nil
}

func (e *Event) Copy() *Event {
	c := *e
	if e.Shortcut != nil {
		s := *e.Shortcut
		c.Shortcut = &s
	}
	return &c
}
