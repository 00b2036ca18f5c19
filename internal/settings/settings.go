package settings

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnknownSetting is returned for keys outside the allow-list.
	ErrUnknownSetting = errors.New("unknown setting")
	// ErrInvalidSetting is returned for values of the wrong type or range.
	ErrInvalidSetting = errors.New("invalid setting value")
)

// Setting keys. Only these are persisted.
const (
	KeyTheme        = "theme"
	KeyFontSize     = "fontSize"
	KeyFontFamily   = "fontFamily"
	KeyContentWidth = "contentWidth"
	KeyTocVisible   = "tocVisible"
	KeyMaxTabs      = "maxTabs"
)

// Keys lists the allowed keys in a stable order.
var Keys = []string{KeyTheme, KeyFontSize, KeyFontFamily, KeyContentWidth, KeyTocVisible, KeyMaxTabs}

// Value ranges.
const (
	MinFontSize = 12
	MaxFontSize = 24
	MinMaxTabs  = 1
	MaxMaxTabs  = 100
)

var (
	themes = map[string]bool{"auto": true, "light": true, "dark": true}

	fontStacks = map[string]string{
		"system": "-apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, sans-serif",
		"serif":  "Georgia, 'Times New Roman', serif",
		"mono":   "Consolas, 'Courier New', monospace",
	}

	widths = map[string]string{
		"narrow": "600px",
		"medium": "800px",
		"wide":   "100%",
	}
)

// Settings are the persisted viewer preferences.
type Settings struct {
	Theme        string `json:"theme" yaml:"theme" toml:"theme"`
	FontSize     int    `json:"fontSize" yaml:"fontSize" toml:"fontSize"`
	FontFamily   string `json:"fontFamily" yaml:"fontFamily" toml:"fontFamily"`
	ContentWidth string `json:"contentWidth" yaml:"contentWidth" toml:"contentWidth"`
	TocVisible   bool   `json:"tocVisible" yaml:"tocVisible" toml:"tocVisible"`
	MaxTabs      int    `json:"maxTabs" yaml:"maxTabs" toml:"maxTabs"`
}

// Defaults returns the settings used before anything is stored.
func Defaults() Settings {
	return Settings{
		Theme:        "auto",
		FontSize:     16,
		FontFamily:   "system",
		ContentWidth: "medium",
		TocVisible:   true,
		MaxTabs:      10,
	}
}

// FromMap builds settings from defaults overlaid with values. Unknown keys are
// ignored; invalid values keep their default and are reported together.
func FromMap(values map[string]any) (Settings, error) {
	s := Defaults()
	var errs []error
	for _, key := range Keys {
		v, ok := values[key]
		if !ok || v == nil {
			continue
		}
		if err := s.Set(key, v); err != nil {
			errs = append(errs, err)
		}
	}
	return s, errors.Join(errs...)
}

// Set validates and assigns one setting.
func (s *Settings) Set(key string, value any) error {
	switch key {
	case KeyTheme:
		v, ok := value.(string)
		if !ok || !themes[v] {
			return invalid(key, value)
		}
		s.Theme = v
	case KeyFontSize:
		v, ok := toInt(value)
		if !ok || v < MinFontSize || v > MaxFontSize {
			return invalid(key, value)
		}
		s.FontSize = v
	case KeyFontFamily:
		v, ok := value.(string)
		if _, known := fontStacks[v]; !ok || !known {
			return invalid(key, value)
		}
		s.FontFamily = v
	case KeyContentWidth:
		v, ok := value.(string)
		if _, known := widths[v]; !ok || !known {
			return invalid(key, value)
		}
		s.ContentWidth = v
	case KeyTocVisible:
		v, ok := value.(bool)
		if !ok {
			return invalid(key, value)
		}
		s.TocVisible = v
	case KeyMaxTabs:
		v, ok := toInt(value)
		if !ok || v < MinMaxTabs || v > MaxMaxTabs {
			return invalid(key, value)
		}
		s.MaxTabs = v
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSetting, key)
	}
	return nil
}

// Get returns the value of one setting.
func (s Settings) Get(key string) (any, error) {
	switch key {
	case KeyTheme:
		return s.Theme, nil
	case KeyFontSize:
		return s.FontSize, nil
	case KeyFontFamily:
		return s.FontFamily, nil
	case KeyContentWidth:
		return s.ContentWidth, nil
	case KeyTocVisible:
		return s.TocVisible, nil
	case KeyMaxTabs:
		return s.MaxTabs, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSetting, key)
	}
}

// Validate checks every field.
func (s Settings) Validate() error {
	var errs []error
	check := s
	for _, key := range Keys {
		v, _ := s.Get(key)
		if err := check.Set(key, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Style is the presentation derived from settings.
type Style struct {
	FontSize   string `json:"fontSize"`
	FontFamily string `json:"fontFamily"`
	MaxWidth   string `json:"maxWidth"`
}

// Style maps the settings to concrete CSS values.
func (s Settings) Style() Style {
	family, ok := fontStacks[s.FontFamily]
	if !ok {
		family = fontStacks["system"]
	}
	width, ok := widths[s.ContentWidth]
	if !ok {
		width = widths["medium"]
	}
	return Style{
		FontSize:   fmt.Sprintf("%dpx", s.FontSize),
		FontFamily: family,
		MaxWidth:   width,
	}
}

func invalid(key string, value any) error {
	return fmt.Errorf("%w: %s=%v", ErrInvalidSetting, key, value)
}

// toInt accepts the numeric types decoders produce, rejecting fractions.
func toInt(value any) (int, bool) {
	switch n := value.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		if n > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
