package model

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// SlotsPerPage is the fixed number of sub-steps on every page.
const SlotsPerPage = 4

// MaxMidiCode is the highest MIDI code a page slot may hold.
const MaxMidiCode = 127

// Page is a fixed four-slot subdivision of a pattern. Decoding rejects any
// other number of slots instead of padding or truncating.
type Page[T any] [SlotsPerPage]T

func (p *Page[T]) fill(slots []T, line int) error {
	if len(slots) != SlotsPerPage {
		if line > 0 {
			return Invalid("line %d: page has %d slots, want %d", line, len(slots), SlotsPerPage)
		}
		return Invalid("page has %d slots, want %d", len(slots), SlotsPerPage)
	}
	copy(p[:], slots)
	return nil
}

func (p *Page[T]) UnmarshalJSON(data []byte) error {
	var slots []T
	if err := json.Unmarshal(data, &slots); err != nil {
		return err
	}
	return p.fill(slots, 0)
}

func (p *Page[T]) UnmarshalYAML(node *yaml.Node) error {
	var slots []T
	if err := node.Decode(&slots); err != nil {
		return err
	}
	return p.fill(slots, node.Line)
}

// Messages pairs one OSC payload with the slots it fires on, one Page per
// pattern page.
type Messages struct {
	Payload OscMessage   `json:"payload" yaml:"payload"`
	Active  []Page[bool] `json:"active" yaml:"active,flow"`
}

// Pattern is a named sequence of pages holding MIDI codes and gated OSC
// messages. MidiCodes and every Messages.Active hold exactly PageCount pages.
type Pattern struct {
	Name      string         `json:"name" yaml:"name"`
	PageCount int            `json:"page_count" yaml:"page_count"`
	MidiPath  string         `json:"midi_path" yaml:"midi_path"`
	MidiCodes []Page[*uint8] `json:"midi_codes" yaml:"midi_codes,flow"`
	Messages  []Messages     `json:"messages" yaml:"messages"`
}

// DefaultMidiPath is where MIDI codes are routed for new patterns.
const DefaultMidiPath = "/midi"

// NewPattern creates a single, empty page pattern.
func NewPattern(name string) *Pattern {
	return &Pattern{
		Name:      name,
		PageCount: 1,
		MidiPath:  DefaultMidiPath,
		MidiCodes: make([]Page[*uint8], 1),
		Messages:  []Messages{},
	}
}

// SlotCount is the number of ticks needed to play the whole pattern once.
func (p *Pattern) SlotCount() int {
	return p.PageCount * SlotsPerPage
}

// Validate checks the page shape invariants.
func (p *Pattern) Validate() error {
	if p.PageCount < 1 {
		return Invalid("pattern %q: page_count %d must be at least 1", p.Name, p.PageCount)
	}
	if len(p.MidiCodes) != p.PageCount {
		return Invalid("pattern %q: %d midi pages for page_count %d", p.Name, len(p.MidiCodes), p.PageCount)
	}
	for pg, page := range p.MidiCodes {
		for slot, code := range page {
			if code != nil && *code > MaxMidiCode {
				return Invalid("pattern %q: midi code %d at page %d slot %d exceeds %d", p.Name, *code, pg, slot, MaxMidiCode)
			}
		}
	}
	for i, m := range p.Messages {
		if len(m.Active) != p.PageCount {
			return Invalid("pattern %q: message %d has %d pages for page_count %d", p.Name, i, len(m.Active), p.PageCount)
		}
		if m.Payload.Path == "" {
			return Invalid("pattern %q: message %d has an empty path", p.Name, i)
		}
	}
	return nil
}

// Fire returns the OSC messages due at the given page and slot: the MIDI code
// first (sent to MidiPath as a Float), then each message gated on, in order.
// Out of range positions yield nothing.
func (p *Pattern) Fire(page, slot int) (code *uint8, msgs []OscMessage) {
	if page < 0 || page >= len(p.MidiCodes) || slot < 0 || slot >= SlotsPerPage {
		return nil, nil
	}
	code = p.MidiCodes[page][slot]
	if code != nil {
		msgs = append(msgs, OscMessage{Path: p.MidiPath, Arg: FloatArg(float32(*code))})
	}
	for _, m := range p.Messages {
		if page < len(m.Active) && m.Active[page][slot] {
			msgs = append(msgs, m.Payload)
		}
	}
	return code, msgs
}

// Copy makes a deep copy of a Pattern.
func (p *Pattern) Copy() *Pattern {
	c := *p
	c.MidiCodes = make([]Page[*uint8], len(p.MidiCodes))
	for i, page := range p.MidiCodes {
		for j, code := range page {
			if code != nil {
				v := *code
				c.MidiCodes[i][j] = &v
			}
		}
	}
	c.Messages = make([]Messages, len(p.Messages))
	for i, m := range p.Messages {
		c.Messages[i] = Messages{
			Payload: m.Payload,
			Active:  append([]Page[bool](nil), m.Active...),
		}
	}
	return &c
}

// Code is a helper for building MIDI pages.
func Code(v uint8) *uint8 {
	return &v
}
