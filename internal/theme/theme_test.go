package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToggle(t *testing.T) {
	tests := []struct {
		name   string
		start  string
		host   Mode
		expect Preference
	}{
		{"auto on dark host", "auto", ModeDark, Light},
		{"auto on light host", "auto", ModeLight, Dark},
		{"dark", "dark", ModeLight, Light},
		{"light", "light", ModeDark, Dark},
		{"unknown falls back to auto", "sepia", ModeDark, Light},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager()
			m.SetHost(tt.host)
			m.Initialize(tt.start)
			assert.Equal(t, tt.expect, m.Toggle())
		})
	}
}

func TestEffective(t *testing.T) {
	m := NewManager()
	assert.Equal(t, Auto, m.Preference())
	assert.Equal(t, ModeDark, m.Effective())
	assert.Equal(t, DiagramDark, m.DiagramTheme())

	m.SetHost(ModeLight)
	assert.Equal(t, ModeLight, m.Effective())
	assert.Equal(t, DiagramDefault, m.DiagramTheme())
	assert.False(t, m.IsDark())

	m.Initialize("dark")
	assert.True(t, m.IsDark())
	assert.Equal(t, "#c9d1d9", m.Palette().Colors["text"])
}

func TestPaletteIsCopy(t *testing.T) {
	m := NewManager()
	p := m.Palette()
	p.Colors["text"] = "red"
	assert.NotEqual(t, "red", m.Palette().Colors["text"])
}

func TestParseMode(t *testing.T) {
	mode, ok := ParseMode("light")
	assert.True(t, ok)
	assert.Equal(t, ModeLight, mode)

	_, ok = ParseMode("sepia")
	assert.False(t, ok)
}
