package model

import "math"

// Slider is a bounded continuous control sent as a Float OSC message.
// Min <= Val <= Max always holds for stored sliders.
type Slider struct {
	Name string  `json:"name" yaml:"name"`
	Path string  `json:"path" yaml:"path"`
	Val  float32 `json:"val" yaml:"val"`
	Min  float32 `json:"min" yaml:"min"`
	Max  float32 `json:"max" yaml:"max"`
}

func NewSlider(name string) *Slider {
	return &Slider{
		Name: name,
		Path: "/" + name,
		Min:  0,
		Max:  100,
	}
}

// Clamp limits v to the slider bounds.
func (s *Slider) Clamp(v float32) float32 {
	if v < s.Min {
		return s.Min
	}
	if v > s.Max {
		return s.Max
	}
	return v
}

// Validate checks the bounds. A value outside the bounds is not an error;
// callers clamp it.
func (s *Slider) Validate() error {
	if math.IsNaN(float64(s.Min)) || math.IsNaN(float64(s.Max)) || math.IsNaN(float64(s.Val)) {
		return Invalid("slider %q has NaN bounds or value", s.Name)
	}
	if s.Min > s.Max {
		return Invalid("slider %q: min %g is greater than max %g", s.Name, s.Min, s.Max)
	}
	if s.Path == "" {
		return Invalid("slider %q has an empty path", s.Name)
	}
	return nil
}

func (s *Slider) Message() OscMessage {
	return OscMessage{Path: s.Path, Arg: FloatArg(s.Val)}
}
