// Package locator implements the element location core: the multi-strategy
// Locator model, the Resolver that turns a Locator into at most one live
// element, the Poller that retries resolution for late-mounting UI, and the
// Synthesizer that builds a Locator from an interacted-with element at
// record time.
package locator

import (
	"errors"

	"golang.org/x/net/html"
)

// ControlType identifies the kind of control searched for inside a named
// setting row.
type ControlType string

const (
	ControlDropdown  ControlType = "dropdown"
	ControlToggle    ControlType = "toggle"
	ControlButton    ControlType = "button"
	ControlTextInput ControlType = "text-input"
	ControlSlider    ControlType = "slider"
)

// Strategy names reported in a Result. StrategyContext and StrategyNone are
// pseudo-strategies: the former means the context pre-check failed before any
// strategy ran, the latter means every populated strategy ran and failed.
const (
	StrategyContext     = "context"
	StrategyNone        = "none"
	StrategyAriaLabel   = "ariaLabel"
	StrategyDataType    = "dataType"
	StrategySettingID   = "settingId"
	StrategySettingName = "settingName"
	StrategyInputAttrs  = "inputAttrs"
	StrategyExactText   = "exactText"
	StrategyPartialText = "partialText"
	StrategyPath        = "path"
)

// Locator describes how to re-find an element. Fields are independent and
// optional; all populated strategies are tried in a fixed priority order
// (semantic attributes first, visible text next, structural path last) until
// one yields an element. A Locator is created once at record time and is
// plain immutable data afterwards.
type Locator struct {
	AriaLabel   string      `json:"ariaLabel,omitempty"`
	DataType    string      `json:"dataType,omitempty"`
	SettingID   string      `json:"settingId,omitempty"`
	SettingName string      `json:"settingName,omitempty"`
	ControlType ControlType `json:"controlType,omitempty"`
	Placeholder string      `json:"placeholder,omitempty"`
	InputType   string      `json:"inputType,omitempty"`
	ExactText   string      `json:"exactText,omitempty"`
	PartialText string      `json:"partialText,omitempty"`

	// Path is the structural CSS path synthesized at record time. Last
	// resort: it is the most specific strategy and the most fragile.
	Path string `json:"path,omitempty"`

	// Context gates all strategies; when it fails, resolution
	// short-circuits before any strategy runs.
	Context *Context `json:"context,omitempty"`

	// Description is a human-readable fallback used in error messages and
	// step prompts ("Click the Close button").
	Description string `json:"description,omitempty"`
}

// IsZero reports whether no strategy at all is populated.
func (l Locator) IsZero() bool {
	return l.AriaLabel == "" && l.DataType == "" && l.SettingID == "" &&
		l.SettingName == "" && l.Placeholder == "" && l.InputType == "" &&
		l.ExactText == "" && l.PartialText == "" && l.Path == ""
}

// Context is an optional precondition on resolution.
type Context struct {
	// RequireModal demands that a modal/dialog region is open.
	RequireModal bool `json:"requireModal,omitempty"`
	// ModalClass additionally demands a class on the open dialog region.
	ModalClass string `json:"modalClass,omitempty"`
	// SettingsTab names the settings tab that must be active. Only
	// enforced when the surface actually renders a tab navigation;
	// surfaces without one pass the check.
	SettingsTab string `json:"settingsTab,omitempty"`
}

// Result is the outcome of one resolution attempt. It never holds more than
// one element: the first strategy to succeed wins, and the first match within
// a strategy wins. Results are ephemeral and never cached across attempts.
type Result struct {
	Element  *html.Node
	Strategy string
	OK       bool
	Err      string
}

// Resolution error taxonomy. All recoverable: a failed resolution never
// corrupts playback state.
var (
	ErrContextMismatch       = errors.New("context mismatch")
	ErrNoStrategyMatched     = errors.New("no strategy matched")
	ErrResolutionTimeout     = errors.New("resolution timed out")
	ErrBadStructuralSelector = errors.New("invalid structural selector")
)
