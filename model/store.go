package model

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ProjectsDir returns the directory holding project files.
func ProjectsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-vibe"), nil
}

// DefaultProjectPath is where the daemon keeps its project unless configured.
func DefaultProjectPath() (string, error) {
	dir, err := ProjectsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "project.json"), nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yml" || ext == ".yaml"
}

// LoadProject reads a project file, JSON or YAML by extension. A missing file
// yields a default project. Entities that break their invariants are dropped
// and reported together as an *InvariantError next to the usable project.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewProject(), nil
		}
		return nil, errors.Wrap(err, "read project")
	}

	var (
		p   *Project
		bad = &InvariantError{}
	)
	if isYAML(path) {
		sp := newStoredProject[yaml.Node]()
		if err := yaml.Unmarshal(data, sp); err != nil {
			return nil, errors.Wrapf(err, "decode project %s", path)
		}
		p = sp.decode(func(n yaml.Node, v any) error { return n.Decode(v) }, bad)
	} else {
		sp := newStoredProject[json.RawMessage]()
		if err := json.Unmarshal(data, sp); err != nil {
			return nil, errors.Wrapf(err, "decode project %s", path)
		}
		p = sp.decode(func(r json.RawMessage, v any) error { return json.Unmarshal(r, v) }, bad)
	}
	p.normalize(bad)
	return p, bad.orNil()
}

// storedProject is a project file whose entities are not decoded yet, so one
// malformed entity is dropped without losing the rest.
type storedProject[R any] struct {
	Name       string       `json:"name" yaml:"name"`
	BPM        float64      `json:"bpm" yaml:"bpm"`
	TargetAddr string       `json:"target_addr" yaml:"target_addr"`
	Tracks     *Registry[R] `json:"tracks" yaml:"tracks"`
	Patterns   *Registry[R] `json:"patterns" yaml:"patterns"`
	Events     *Registry[R] `json:"events" yaml:"events"`
	Sliders    *Registry[R] `json:"sliders" yaml:"sliders"`
}

func newStoredProject[R any]() *storedProject[R] {
	return &storedProject[R]{
		Name:       DefaultProjectName,
		BPM:        DefaultBPM,
		TargetAddr: DefaultTargetAddr,
	}
}

func (sp *storedProject[R]) decode(fn func(R, any) error, bad *InvariantError) *Project {
	p := NewProject()
	p.Name, p.BPM, p.TargetAddr = sp.Name, sp.BPM, sp.TargetAddr
	decodeEntries(sp.Tracks, p.Tracks, "track", fn, bad)
	decodeEntries(sp.Patterns, p.Patterns, "pattern", fn, bad)
	decodeEntries(sp.Events, p.Events, "event", fn, bad)
	decodeEntries(sp.Sliders, p.Sliders, "slider", fn, bad)
	return p
}

func decodeEntries[T, R any](raw *Registry[R], dst *Registry[T], kind string, fn func(R, any) error, bad *InvariantError) {
	if raw == nil {
		return
	}
	raw.Each(func(name string, r R) bool {
		var v T
		if err := fn(r, &v); err != nil {
			bad.add("%s %q: %v", kind, name, err)
			return true
		}
		dst.Put(name, v)
		return true
	})
}

// normalize fills missing collections, resets runtime-only fields and drops
// entities whose stored shape is inconsistent. Problems are added to bad.
func (p *Project) normalize(bad *InvariantError) {
	if p.Tracks == nil {
		p.Tracks = NewRegistry[*Track]()
	}
	if p.Patterns == nil {
		p.Patterns = NewRegistry[*Pattern]()
	}
	if p.Events == nil {
		p.Events = NewRegistry[*Event]()
	}
	if p.Sliders == nil {
		p.Sliders = NewRegistry[*Slider]()
	}
	if p.Name == "" {
		p.Name = DefaultProjectName
	}

	if !ValidBPM(p.BPM) {
		bad.add("bpm %g is not positive, using %g", p.BPM, DefaultBPM)
		p.BPM = DefaultBPM
	}
	if p.TargetAddr == "" {
		p.TargetAddr = DefaultTargetAddr
	} else if err := ValidateAddr(p.TargetAddr); err != nil {
		bad.add("%v, using %s", err, DefaultTargetAddr)
		p.TargetAddr = DefaultTargetAddr
	}

	for _, name := range p.Tracks.Names() {
		t, _ := p.Tracks.Get(name)
		if t == nil {
			bad.add("track %q is empty", name)
			p.Tracks.Delete(name)
			continue
		}
		t.Name = name
		t.SetProgress(nil)
		if t.Patterns == nil {
			t.Patterns = []string{}
		}
	}
	for _, name := range p.Patterns.Names() {
		pat, _ := p.Patterns.Get(name)
		if pat == nil {
			bad.add("pattern %q is empty", name)
			p.Patterns.Delete(name)
			continue
		}
		pat.Name = name
		if pat.Messages == nil {
			pat.Messages = []Messages{}
		}
		if err := pat.Validate(); err != nil {
			bad.add("%v", err)
			p.Patterns.Delete(name)
		}
	}
	for _, name := range p.Events.Names() {
		e, _ := p.Events.Get(name)
		if e == nil {
			bad.add("event %q is empty", name)
			p.Events.Delete(name)
			continue
		}
		e.Name = name
		if err := e.Validate(); err != nil {
			bad.add("%v", err)
			p.Events.Delete(name)
		}
	}
	for _, name := range p.Sliders.Names() {
		s, _ := p.Sliders.Get(name)
		if s == nil {
			bad.add("slider %q is empty", name)
			p.Sliders.Delete(name)
			continue
		}
		s.Name = name
		if err := s.Validate(); err != nil {
			bad.add("%v", err)
			p.Sliders.Delete(name)
			continue
		}
		if c := s.Clamp(s.Val); c != s.Val {
			bad.add("slider %q value %g clamped to %g", name, s.Val, c)
			s.Val = c
		}
	}
}

// SaveProject writes the project, JSON or YAML by extension. The file is
// replaced atomically.
func SaveProject(p *Project, path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(p)
	} else {
		data, err = json.MarshalIndent(p, "", "  ")
	}
	if err != nil {
		return errors.Wrap(err, "encode project")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create project directory")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "write project")
	}
	return errors.Wrap(os.Rename(tmp, path), "replace project")
}
