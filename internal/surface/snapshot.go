package surface

import (
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/mj1618/guide-cli/internal/locator"
	"golang.org/x/net/html"
)

// Snapshot is a Surface backed by a parsed HTML document. It serves offline
// commands (record from an event log, inspect, scripted playback) and tests.
// Swap replaces the document to simulate dynamic UI; Deliver injects events
// the way a live surface would, including gate suppression.
type Snapshot struct {
	mu     sync.Mutex
	doc    *goquery.Document
	gate   *html.Node
	events chan Event
}

// NewSnapshot parses HTML from r into a fresh snapshot surface.
func NewSnapshot(r io.Reader) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return &Snapshot{doc: doc, events: make(chan Event, 16)}, nil
}

// NewSnapshotString is NewSnapshot for literal HTML, mostly for tests.
func NewSnapshotString(src string) (*Snapshot, error) {
	return NewSnapshot(strings.NewReader(src))
}

// Document returns the current document.
func (s *Snapshot) Document() (*goquery.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc, nil
}

// Swap replaces the document, simulating a UI change between poll attempts.
func (s *Snapshot) Swap(src string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return nil
}

// Events returns the event stream fed by Deliver.
func (s *Snapshot) Events() <-chan Event { return s.events }

// SetGate restricts delivered interactions to descendants of allow.
func (s *Snapshot) SetGate(allow *html.Node) {
	s.mu.Lock()
	s.gate = allow
	s.mu.Unlock()
}

// ClearGate removes the gate.
func (s *Snapshot) ClearGate() {
	s.mu.Lock()
	s.gate = nil
	s.mu.Unlock()
}

// Gate returns the currently allowed element, or nil.
func (s *Snapshot) Gate() *html.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate
}

// Deliver injects an event, applying the same suppression a live surface
// performs: interactions outside the gated element are captured and
// canceled (dropped). Escape always passes. Reports whether the event was
// delivered.
func (s *Snapshot) Deliver(ev Event) bool {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()

	if gate != nil && ev.Kind != EventEscape && !locator.NodeContains(gate, ev.Target) {
		return false
	}
	s.events <- ev
	return true
}

// Find resolves a CSS selector against the current document, returning the
// first match or nil. Used by event logs and scripts that reference elements
// by selector.
func (s *Snapshot) Find(selector string) *html.Node {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil
	}
	s.mu.Lock()
	doc := s.doc
	s.mu.Unlock()
	matches := doc.FindMatcher(sel)
	if matches.Length() == 0 {
		return nil
	}
	return matches.Get(0)
}
