// Package surface abstracts the live application surface the walkthrough
// runs against: a DOM document, a stream of user interaction events, and an
// interaction gate for suppressing clicks outside the current step target.
package surface

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// EventKind classifies externally delivered interaction events.
type EventKind string

const (
	EventClick           EventKind = "click"
	EventInput           EventKind = "input"
	EventSelectionChange EventKind = "selection-change"
	EventEscape          EventKind = "escape"
)

// Event is one user interaction on the surface. Target is a node within the
// surface's current document; SelectedText is set for selection changes.
type Event struct {
	Kind         EventKind
	Target       *html.Node
	SelectedText string
}

// Surface is the contract between the playback/recording core and whatever
// delivers the real UI: a live bridge, a static snapshot, or a test double.
type Surface interface {
	// Document returns the current DOM. Called once per resolution
	// attempt so dynamic changes are observed between polls.
	Document() (*goquery.Document, error)

	// Events delivers user interactions. The channel stays open for the
	// lifetime of the surface.
	Events() <-chan Event

	// SetGate suppresses interactions outside the allowed element:
	// they are captured and canceled instead of being delivered.
	// Escape events always pass through.
	SetGate(allow *html.Node)

	// ClearGate removes any gate.
	ClearGate()
}
