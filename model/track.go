package model

// Track cycles through a sequence of patterns, referenced by name. Progress
// is non-nil exactly when Active is true.
type Track struct {
	Name     string   `json:"name" yaml:"name"`
	Active   bool     `json:"active" yaml:"active"`
	Loop     bool     `json:"loop" yaml:"loop"`
	Progress *float64 `json:"progress" yaml:"-"`
	Patterns []string `json:"patterns" yaml:"patterns,flow"`
}

// NewTrack creates an inactive, empty track.
func NewTrack(name string) *Track {
	return &Track{
		Name:     name,
		Patterns: []string{},
	}
}

// SetProgress updates the play head fraction; nil marks the track inactive.
func (t *Track) SetProgress(p *float64) {
	t.Progress = p
	t.Active = p != nil
}

// Copy makes a deep copy of a Track.
func (t *Track) Copy() *Track {
	c := *t
	if t.Progress != nil {
		p := *t.Progress
		c.Progress = &p
	}
	c.Patterns = append([]string{}, t.Patterns...)
	return &c
}
