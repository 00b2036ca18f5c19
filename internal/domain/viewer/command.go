package viewer

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/lens/internal/shared/types"
)

// ErrUnknownCommand is returned by DecodeCommand for message types the
// session does not handle. Callers ignore such messages.
var ErrUnknownCommand = errors.New("unknown command")

// Inbound message types.
const (
	TypeOpenDocument   = "openDocument"
	TypeUpdateDocument = "updateDocument"
	TypeCloseDocument  = "closeDocument"
	TypeInitSettings   = "initSettings"
	TypeThemeToggle    = "themeToggle"
	TypeActivateTab    = "activateTab"
	TypeCloseTab       = "closeTab"
	TypeViewport       = "viewport"
	TypeNavigate       = "navigate"
	TypeToggleOutline  = "toggleOutline"
	TypeChangeSetting  = "changeSetting"
	TypeOpenPath       = "openPath"
	TypeHostTheme      = "hostTheme"
)

// Command is one inbound message.
type Command interface {
	CommandType() string
}

type OpenDocument struct {
	Path    string     `json:"path"`
	Name    string     `json:"name"`
	Kind    types.Kind `json:"kind"`
	Content string     `json:"content"`
	BaseURI string     `json:"baseUri"`
}

type UpdateDocument struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type CloseDocument struct {
	Path string `json:"path"`
}

// InitSettings carries the persisted settings and, when known, the host's
// light or dark theme.
type InitSettings struct {
	Settings  map[string]any `json:"settings"`
	HostTheme string         `json:"hostTheme,omitempty"`
}

// HostTheme reports a change of the host's color theme.
type HostTheme struct {
	Mode string `json:"mode"`
}

type ThemeToggle struct{}

type ActivateTab struct {
	ID string `json:"id"`
}

type CloseTab struct {
	ID string `json:"id"`
}

// Viewport reports the scroll state of the content area. Offsets maps
// heading ids to their top within the scroll area.
type Viewport struct {
	ScrollTop float64            `json:"scrollTop"`
	Height    float64            `json:"height"`
	Offsets   map[string]float64 `json:"offsets"`
}

type Navigate struct {
	ID string `json:"id"`
}

type ToggleOutline struct{}

type ChangeSetting struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// OpenPath asks the transport to load a document from its source. The
// session never sees it.
type OpenPath struct {
	Path string `json:"path"`
}

func (OpenDocument) CommandType() string   { return TypeOpenDocument }
func (UpdateDocument) CommandType() string { return TypeUpdateDocument }
func (CloseDocument) CommandType() string  { return TypeCloseDocument }
func (InitSettings) CommandType() string   { return TypeInitSettings }
func (ThemeToggle) CommandType() string    { return TypeThemeToggle }
func (ActivateTab) CommandType() string    { return TypeActivateTab }
func (CloseTab) CommandType() string       { return TypeCloseTab }
func (Viewport) CommandType() string       { return TypeViewport }
func (Navigate) CommandType() string       { return TypeNavigate }
func (ToggleOutline) CommandType() string  { return TypeToggleOutline }
func (ChangeSetting) CommandType() string  { return TypeChangeSetting }
func (OpenPath) CommandType() string       { return TypeOpenPath }
func (HostTheme) CommandType() string      { return TypeHostTheme }

// Document converts the command to a source document.
func (c OpenDocument) Document() types.Document {
	return types.Document{
		Path:    c.Path,
		Name:    c.Name,
		Kind:    types.ParseKind(string(c.Kind)),
		Content: c.Content,
		BaseURI: c.BaseURI,
	}
}

type envelope struct {
	Type string `json:"type"`
}

// DecodeCommand parses one inbound message.
func DecodeCommand(data []byte) (Command, error) {
	var env envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}

	var cmd Command
	switch env.Type {
	case TypeOpenDocument:
		cmd = &OpenDocument{}
	case TypeUpdateDocument:
		cmd = &UpdateDocument{}
	case TypeCloseDocument:
		cmd = &CloseDocument{}
	case TypeInitSettings:
		cmd = &InitSettings{}
	case TypeThemeToggle:
		return ThemeToggle{}, nil
	case TypeActivateTab:
		cmd = &ActivateTab{}
	case TypeCloseTab:
		cmd = &CloseTab{}
	case TypeViewport:
		cmd = &Viewport{}
	case TypeNavigate:
		cmd = &Navigate{}
	case TypeToggleOutline:
		return ToggleOutline{}, nil
	case TypeChangeSetting:
		cmd = &ChangeSetting{}
	case TypeOpenPath:
		cmd = &OpenPath{}
	case TypeHostTheme:
		cmd = &HostTheme{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Type)
	}

	if err := sonic.Unmarshal(data, cmd); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", env.Type, err)
	}
	return deref(cmd), nil
}

// deref returns commands by value so callers switch on one form.
func deref(cmd Command) Command {
	switch c := cmd.(type) {
	case *OpenDocument:
		return *c
	case *UpdateDocument:
		return *c
	case *CloseDocument:
		return *c
	case *InitSettings:
		return *c
	case *ActivateTab:
		return *c
	case *CloseTab:
		return *c
	case *Viewport:
		return *c
	case *Navigate:
		return *c
	case *ChangeSetting:
		return *c
	case *OpenPath:
		return *c
	case *HostTheme:
		return *c
	default:
		return cmd
	}
}
