package model

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// ArgType tags the single argument carried by an OSC payload.
type ArgType string

const (
	ArgFloat  ArgType = "Float"
	ArgString ArgType = "String"
)

// OscArg is a typed OSC argument: either a float32 or a string.
type OscArg struct {
	Type   ArgType
	Float  float32
	String string
}

// FloatArg returns a Float argument.
func FloatArg(v float32) OscArg {
	return OscArg{Type: ArgFloat, Float: v}
}

// StringArg returns a String argument.
func StringArg(s string) OscArg {
	return OscArg{Type: ArgString, String: s}
}

// Value returns the argument as the Go value an OSC encoder expects.
func (a OscArg) Value() any {
	if a.Type == ArgString {
		return a.String
	}
	return a.Float
}

func (a OscArg) GoString() string {
	if a.Type == ArgString {
		return fmt.Sprintf("String(%q)", a.String)
	}
	return fmt.Sprintf("Float(%g)", a.Float)
}

type oscArgJSON struct {
	Type  ArgType         `json:"type" yaml:"type"`
	Value json.RawMessage `json:"value" yaml:"-"`
}

func (a OscArg) MarshalJSON() ([]byte, error) {
	switch a.Type {
	case ArgString:
		return json.Marshal(struct {
			Type  ArgType `json:"type"`
			Value string  `json:"value"`
		}{a.Type, a.String})
	case ArgFloat, "":
		return json.Marshal(struct {
			Type  ArgType `json:"type"`
			Value float32 `json:"value"`
		}{ArgFloat, a.Float})
	}
	return nil, Invalid("osc argument type %q", a.Type)
}

func (a *OscArg) UnmarshalJSON(data []byte) error {
	var raw oscArgJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "osc argument")
	}
	switch raw.Type {
	case ArgFloat:
		var f float32
		if err := json.Unmarshal(raw.Value, &f); err != nil {
			return errors.Wrap(err, "osc Float argument")
		}
		*a = FloatArg(f)
	case ArgString:
		var s string
		if err := json.Unmarshal(raw.Value, &s); err != nil {
			return errors.Wrap(err, "osc String argument")
		}
		*a = StringArg(s)
	default:
		return Invalid("osc argument type %q", raw.Type)
	}
	return nil
}

// MarshalYAML keeps the same {type, value} shape as JSON.
func (a OscArg) MarshalYAML() (any, error) {
	if a.Type == ArgString {
		return map[string]any{"type": ArgString, "value": a.String}, nil
	}
	return map[string]any{"type": ArgFloat, "value": a.Float}, nil
}

func (a *OscArg) UnmarshalYAML(unmarshal func(any) error) error {
	var raw struct {
		Type  ArgType `yaml:"type"`
		Value any     `yaml:"value"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch raw.Type {
	case ArgString:
		s, ok := raw.Value.(string)
		if !ok {
			return Invalid("osc String argument %v", raw.Value)
		}
		*a = StringArg(s)
	case ArgFloat:
		switch v := raw.Value.(type) {
		case float64:
			*a = FloatArg(float32(v))
		case int:
			*a = FloatArg(float32(v))
		default:
			return Invalid("osc Float argument %v", raw.Value)
		}
	default:
		return Invalid("osc argument type %q", raw.Type)
	}
	return nil
}

// OscMessage is an OSC address with exactly one argument.
type OscMessage struct {
	Path string `json:"path" yaml:"path"`
	Arg  OscArg `json:"arg" yaml:"arg"`
}

func (m OscMessage) String() string {
	return fmt.Sprintf("%s %#v", m.Path, m.Arg)
}
