package theme_test

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "keyscope/theme"
)

const gpl = `GIMP Palette
Name: mono
Columns: 2
# black to white
0 0 0 black
255 255 255 white
`

func TestParseGPL(t *testing.T) {
	p, err := ParseGPL(strings.NewReader(gpl))
	require.NoError(t, err)
	assert.Equal(t, "mono", p.Name)
	assert.Equal(t, []RGB{{0, 0, 0}, {255, 255, 255}}, p.Colors)
}

func TestParseGPLEmpty(t *testing.T) {
	_, err := ParseGPL(strings.NewReader("GIMP Palette\n"))
	assert.Error(t, err)
}

func TestStepPicksNearest(t *testing.T) {
	p, err := ParseGPL(strings.NewReader(gpl))
	require.NoError(t, err)
	assert.Equal(t, RGB{0, 0, 0}, p.Step(-1))
	assert.Equal(t, RGB{0, 0, 0}, p.Step(0.4))
	assert.Equal(t, RGB{255, 255, 255}, p.Step(0.6))
	assert.Equal(t, RGB{255, 255, 255}, p.Step(2))
}

func TestParseGPLRejectsBadComponent(t *testing.T) {
	_, err := ParseGPL(strings.NewReader("GIMP Palette\n0 0 0\n300 0 0\n"))
	assert.ErrorContains(t, err, "line 3")
}

func TestVelocityColors(t *testing.T) {
	th := New(nil)
	assert.Equal(t, "plasma", th.Palette.Name)
	assert.Equal(t, lipgloss.Color("#0d0887"), th.Velocity(0))
	assert.Equal(t, lipgloss.Color("#f0f921"), th.Velocity(127))
}
