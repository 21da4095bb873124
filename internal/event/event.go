package event

import (
	"fmt"
	"strings"
)

// Kind discriminates the raw event union.
type Kind string

const (
	KindPointer  Kind = "mouse"
	KindKeyboard Kind = "keyboard"
)

// Phase is the interaction phase, resolved once at the connection
// boundary so the compiler never re-parses wire strings.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseDown
	PhaseUp
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseDown:
		return "down"
	case PhaseUp:
		return "up"
	default:
		return "unknown"
	}
}

// Button identifies the mouse button of a pointer event.
type Button int

const (
	ButtonUnknown Button = iota
	ButtonLeft
	ButtonMiddle
	ButtonRight
)

// String returns a human-readable button name.
func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonMiddle:
		return "middle"
	case ButtonRight:
		return "right"
	default:
		return "unknown"
	}
}

// Bounds is the bounding rectangle of a UI element.
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// UIElement is one node in the UI-ancestor chain of a trigger element.
// The last element of a chain path is the trigger (deepest) element.
type UIElement struct {
	Bounds       Bounds `json:"bounds"`
	AutomationID string `json:"automationId,omitempty"`
	Name         string `json:"name,omitempty"`
	ControlType  string `json:"controlType,omitempty"`
}

// Chain carries the resolved locator and the ancestor path for the
// element an interaction targeted.
type Chain struct {
	Locator string      `json:"locator"`
	Path    []UIElement `json:"path"`
}

// RawEvent is one interaction event as delivered by a capture
// connection. Immutable once decoded; owned by its connection until the
// merger consumes it.
type RawEvent struct {
	Timestamp   int64
	MachineName string
	Kind        Kind
	Phase       Phase
	Button      Button
	Key         string
	X           float64
	Y           float64
	Chain       Chain
}

// Trigger returns the deepest element of the chain path, or false when
// the path is empty.
func (e RawEvent) Trigger() (UIElement, bool) {
	if len(e.Chain.Path) == 0 {
		return UIElement{}, false
	}
	return e.Chain.Path[len(e.Chain.Path)-1], true
}

// parsePhase resolves the interaction phase from a wire event name such
// as "left-up", "mousedown" or "keyup".
func parsePhase(s string) Phase {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "up"):
		return PhaseUp
	case strings.Contains(lower, "down"):
		return PhaseDown
	default:
		return PhaseUnknown
	}
}

// parseButton resolves the mouse button from a wire event name such as
// "left-up" or "middle-down".
func parseButton(s string) Button {
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "left"):
		return ButtonLeft
	case strings.HasPrefix(lower, "middle"):
		return ButtonMiddle
	case strings.HasPrefix(lower, "right"):
		return ButtonRight
	default:
		return ButtonUnknown
	}
}

// NormalizedEvent is a RawEvent that passed filtering, with the derived
// geometric element identity and the projected locator.
type NormalizedEvent struct {
	RawEvent

	// ElementID is a composite key over the trigger bounds, used as a
	// diagnostic and dedup aid only.
	ElementID string

	// Locator is the element locator projected from the chain.
	Locator string
}

// elementID composes the geometric identity of a trigger element from
// its bounding rectangle, in height, x, y, width order.
func elementID(b Bounds) string {
	return fmt.Sprintf("%v.%v.%v.%v", b.Height, b.X, b.Y, b.Width)
}

// Normalize filters a raw event down to a semantically meaningful one.
// It rejects "down" phases (only a release confirms a completed
// interaction), events without a resolvable trigger element, and events
// originating from the recorder's own control surface (identified by
// selfMarker appearing in the locator). Pure; no side effects.
func Normalize(raw RawEvent, selfMarker string) (NormalizedEvent, bool) {
	if raw.Phase != PhaseUp {
		return NormalizedEvent{}, false
	}
	trigger, ok := raw.Trigger()
	if !ok {
		return NormalizedEvent{}, false
	}
	if selfMarker != "" && strings.Contains(raw.Chain.Locator, selfMarker) {
		return NormalizedEvent{}, false
	}
	return NormalizedEvent{
		RawEvent:  raw,
		ElementID: elementID(trigger.Bounds),
		Locator:   raw.Chain.Locator,
	}, true
}

// BufferGroup is a contiguous run of events from one machine within the
// merged timeline. Created by the segmenter, consumed by the rule
// compiler, then discarded.
type BufferGroup struct {
	// ID is 1-based and sequential within one segmentation pass.
	ID          int
	MachineName string
	Events      []NormalizedEvent

	// Origin is the index of the snapshot that contributed the group's
	// first event; used downstream to resolve per-group driver
	// parameters and capture mode. Base URLs cannot serve as the key
	// here: connections may omit or share one.
	Origin int

	// BaseURL is the originating connection's base URL, informational.
	BaseURL string

	// ThinkTime is the think-time policy of the originating connection.
	ThinkTime ThinkTimeSettings
}

// ThinkTimeSettings gates synthetic pause insertion between compiled
// rules. Durations are milliseconds.
type ThinkTimeSettings struct {
	Enabled      bool  `json:"enabled" yaml:"enabled"`
	MinThinkTime int64 `json:"minThinkTime" yaml:"min_think_time"`
	MaxThinkTime int64 `json:"maxThinkTime" yaml:"max_think_time"`
}
