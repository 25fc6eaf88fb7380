package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-vibe/theme"
)

// RenderProgress renders a bar width cells wide. nil progress renders
// an empty bar in the muted color.
func RenderProgress(th *theme.Theme, progress *float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if progress != nil {
		p := *progress
		if p < 0 {
			p = 0
		}
		if p > 1 {
			p = 1
		}
		filled = int(p * float64(width))
	}
	full := lipgloss.NewStyle().Foreground(th.Active())
	empty := lipgloss.NewStyle().Foreground(th.Muted())
	return full.Render(strings.Repeat(string(th.Symbols.BarFull), filled)) +
		empty.Render(strings.Repeat(string(th.Symbols.BarEmpty), width-filled))
}

// RenderSlots renders one pattern's slots, hits colored by their MIDI code.
// playhead < 0 hides the playhead.
func RenderSlots(th *theme.Theme, codes []*uint8, playhead int) string {
	var out strings.Builder
	for i, c := range codes {
		if i > 0 && i%4 == 0 {
			out.WriteString(" ")
		}
		switch {
		case i == playhead:
			out.WriteString(lipgloss.NewStyle().Foreground(th.Success()).Render(string(th.Symbols.SlotPlayhead)))
		case c != nil:
			out.WriteString(lipgloss.NewStyle().Foreground(th.Color(float64(*c) / 127)).Render(string(th.Symbols.SlotHit)))
		default:
			out.WriteString(lipgloss.NewStyle().Foreground(th.Muted()).Render(string(th.Symbols.SlotEmpty)))
		}
	}
	return out.String()
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}
