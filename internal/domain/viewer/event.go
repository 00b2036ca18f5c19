package viewer

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/lens/internal/settings"
	"github.com/GriffinCanCode/lens/internal/shared/types"
	"github.com/GriffinCanCode/lens/internal/theme"
	"github.com/GriffinCanCode/lens/internal/toc"
)

// Outbound message types.
const (
	TypeReady          = "ready"
	TypeSettingChanged = "settingChanged"
	TypeTabActivated   = "tabActivated"
	TypeAllTabsClosed  = "allTabsClosed"
	TypeView           = "view"
	TypeScrollTo       = "scrollTo"
	TypeOutlineActive  = "outlineActive"
)

// Event is one outbound message.
type Event interface {
	EventType() string
}

type Ready struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

type SettingChanged struct {
	Type  string `json:"type"`
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type TabActivated struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type AllTabsClosed struct {
	Type string `json:"type"`
}

type ScrollTo struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Behavior string `json:"behavior"`
}

type OutlineActive struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// TabView is the tab bar entry for one tab.
type TabView struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Path   string     `json:"path"`
	Kind   types.Kind `json:"kind"`
	Active bool       `json:"active"`
}

// View is a snapshot of everything the host displays.
type View struct {
	Type       string         `json:"type"`
	Empty      bool           `json:"empty"`
	Tabs       []TabView      `json:"tabs"`
	ActiveID   string         `json:"activeId,omitempty"`
	Content    string         `json:"content"`
	Outline    string         `json:"outline"`
	Entries    []toc.Entry    `json:"entries"`
	TocVisible bool           `json:"tocVisible"`
	ScrollTop  float64        `json:"scrollTop"`
	Theme      theme.Mode     `json:"theme"`
	Palette    theme.Palette  `json:"palette"`
	Style      settings.Style `json:"style"`
}

func (e Ready) EventType() string          { return e.Type }
func (e SettingChanged) EventType() string { return e.Type }
func (e TabActivated) EventType() string   { return e.Type }
func (e AllTabsClosed) EventType() string  { return e.Type }
func (e ScrollTo) EventType() string       { return e.Type }
func (e OutlineActive) EventType() string  { return e.Type }
func (e View) EventType() string           { return e.Type }

// EncodeEvent serializes an outbound message.
func EncodeEvent(ev Event) ([]byte, error) {
	data, err := sonic.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", ev.EventType(), err)
	}
	return data, nil
}
