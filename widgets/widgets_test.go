package widgets

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"

	"go-vibe/theme"
)

func TestRenderProgress(t *testing.T) {
	th := theme.New(theme.Plasma())
	half := 0.5
	assert.Equal(t, "█████░░░░░", ansi.Strip(RenderProgress(th, &half, 10)))
	assert.Equal(t, "░░░░", ansi.Strip(RenderProgress(th, nil, 4)))
	over := 3.0
	assert.Equal(t, "███", ansi.Strip(RenderProgress(th, &over, 3)))
	assert.Empty(t, RenderProgress(th, &half, 0))
}

func TestRenderSlots(t *testing.T) {
	th := theme.New(theme.Plasma())
	c := uint8(60)
	codes := []*uint8{&c, nil, nil, nil, nil, &c, nil, nil}
	assert.Equal(t, "▶··· ·■··", ansi.Strip(RenderSlots(th, codes, 0)))
	assert.Equal(t, "■··· ·■··", ansi.Strip(RenderSlots(th, codes, -1)))
}

func TestRenderKeyHelp(t *testing.T) {
	out := RenderKeyHelp([]KeySection{{
		Title: "Transport",
		Keys:  []KeyBinding{{"space", "play/pause"}},
	}})
	assert.True(t, strings.HasPrefix(out, "Transport\n"))
	assert.Contains(t, out, "space")
}
