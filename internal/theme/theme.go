package theme

import (
	"sync"
)

// Preference is the user's theme choice.
type Preference string

const (
	Auto  Preference = "auto"
	Light Preference = "light"
	Dark  Preference = "dark"
)

// Mode is a concrete theme.
type Mode string

const (
	ModeLight Mode = "light"
	ModeDark  Mode = "dark"
)

// Diagram themes passed to the diagram engine.
const (
	DiagramDark    = "dark"
	DiagramDefault = "default"
)

// ParsePreference parses a stored preference.
func ParsePreference(s string) (Preference, bool) {
	switch p := Preference(s); p {
	case Auto, Light, Dark:
		return p, true
	default:
		return Auto, false
	}
}

// ParseMode parses a host theme name.
func ParseMode(s string) (Mode, bool) {
	switch m := Mode(s); m {
	case ModeLight, ModeDark:
		return m, true
	default:
		return ModeDark, false
	}
}

// Palette is the set of colors applied for a mode.
type Palette struct {
	Mode   Mode              `json:"mode"`
	Colors map[string]string `json:"colors"`
}

var palettes = map[Mode]Palette{
	ModeDark: {
		Mode: ModeDark,
		Colors: map[string]string{
			"background": "#0d1117",
			"surface":    "#161b22",
			"text":       "#c9d1d9",
			"textMuted":  "#8b949e",
			"border":     "#30363d",
			"link":       "#58a6ff",
		},
	},
	ModeLight: {
		Mode: ModeLight,
		Colors: map[string]string{
			"background": "#ffffff",
			"surface":    "#f6f8fa",
			"text":       "#1f2328",
			"textMuted":  "#656d76",
			"border":     "#d0d7de",
			"link":       "#0969da",
		},
	},
}

// Manager holds the theme preference and the host's own theme, which
// resolves the auto preference.
type Manager struct {
	mu         sync.RWMutex
	preference Preference
	host       Mode
}

// NewManager creates a manager with the auto preference. The host theme
// defaults to dark.
func NewManager() *Manager {
	return &Manager{preference: Auto, host: ModeDark}
}

// Initialize sets the preference from a stored value. Unknown values fall
// back to auto.
func (m *Manager) Initialize(value string) {
	p, _ := ParsePreference(value)
	m.mu.Lock()
	m.preference = p
	m.mu.Unlock()
}

// SetHost records the host's theme.
func (m *Manager) SetHost(mode Mode) {
	if mode != ModeLight {
		mode = ModeDark
	}
	m.mu.Lock()
	m.host = mode
	m.mu.Unlock()
}

// Toggle flips the preference and returns the new one. From auto it picks
// the opposite of the host theme.
func (m *Manager) Toggle() Preference {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.preference
	if current == Auto {
		current = Preference(m.host)
	}
	if current == Dark {
		m.preference = Light
	} else {
		m.preference = Dark
	}
	return m.preference
}

// Preference returns the stored preference.
func (m *Manager) Preference() Preference {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.preference
}

// Effective resolves the preference to a concrete mode.
func (m *Manager) Effective() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.preference == Auto {
		return m.host
	}
	return Mode(m.preference)
}

// IsDark reports whether the effective theme is dark.
func (m *Manager) IsDark() bool {
	return m.Effective() == ModeDark
}

// DiagramTheme returns the diagram engine theme for the effective mode.
func (m *Manager) DiagramTheme() string {
	if m.IsDark() {
		return DiagramDark
	}
	return DiagramDefault
}

// Palette returns a copy of the colors for the effective mode.
func (m *Manager) Palette() Palette {
	p := palettes[m.Effective()]
	colors := make(map[string]string, len(p.Colors))
	for k, v := range p.Colors {
		colors[k] = v
	}
	return Palette{Mode: p.Mode, Colors: colors}
}
