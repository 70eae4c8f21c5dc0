// Package bridge serves the live surface over a WebSocket. A thin in-page
// client connects, streams DOM snapshots and interaction events up, and
// renders highlight/gate instructions sent down. The bridge implements both
// the Surface the core resolves against and the Renderer the player draws
// through, so a play or record session needs nothing else.
package bridge

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/gorilla/websocket"
	"github.com/mj1618/guide-cli/internal/flow"
	"github.com/mj1618/guide-cli/internal/locator"
	"github.com/mj1618/guide-cli/internal/player"
	"github.com/mj1618/guide-cli/internal/surface"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

// clientMsg is everything the in-page client sends up.
type clientMsg struct {
	Type         string `json:"type"` // snapshot | event | next | exit
	HTML         string `json:"html,omitempty"`
	Kind         string `json:"kind,omitempty"` // click | input | selection-change | escape
	Selector     string `json:"selector,omitempty"`
	SelectedText string `json:"selectedText,omitempty"`
}

// serverMsg is everything the bridge sends down.
type serverMsg struct {
	Type     string            `json:"type"` // highlight | clear | gate | done
	Kind     string            `json:"kind,omitempty"`
	Selector string            `json:"selector,omitempty"`
	Note     string            `json:"note,omitempty"`
	Text     string            `json:"text,omitempty"`
	Expected string            `json:"expected,omitempty"`
	Index    int               `json:"index,omitempty"`
	Total    int               `json:"total,omitempty"`
	Extra    []flow.Annotation `json:"annotations,omitempty"`
}

// Server is a single-session WebSocket bridge.
type Server struct {
	log   logrus.FieldLogger
	synth *locator.Synthesizer

	upgrader websocket.Upgrader
	httpSrv  *http.Server
	listener net.Listener

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex
	doc     *goquery.Document
	gate    *html.Node

	events    chan surface.Event
	controls  chan player.Control
	ready     chan struct{}
	done      chan struct{}
	readyOnce sync.Once
	closeOnce sync.Once
}

// New creates an unstarted bridge server.
func New(log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		log:      log,
		synth:    locator.NewSynthesizer(),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		events:   make(chan surface.Event, 16),
		controls: make(chan player.Control, 4),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start listens on addr and serves the /ws endpoint in the background.
func (b *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("bridge listen: %w", err)
	}
	b.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", b.handleWS)
	b.httpSrv = &http.Server{Handler: mux}

	go func() {
		if err := b.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			b.log.WithError(err).Warn("bridge server stopped")
		}
	}()
	b.log.WithField("addr", ln.Addr().String()).Info("bridge listening")
	return nil
}

// Addr returns the bound listen address.
func (b *Server) Addr() string {
	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

// Close shuts the server down and stops event delivery. The event channel is
// never closed: the read goroutine may still be processing a just-read client
// message, so delivery is cut off by the done signal instead.
func (b *Server) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		if b.httpSrv != nil {
			err = b.httpSrv.Close()
		}
	})
	return err
}

// WaitReady blocks until a client has connected and delivered its first
// snapshot, or the timeout passes.
func (b *Server) WaitReady(timeout time.Duration) error {
	select {
	case <-b.ready:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("no client connected within %s", timeout)
	}
}

func (b *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	b.mu.Lock()
	if b.conn != nil {
		b.conn.Close() // one session at a time; newest client wins
	}
	b.conn = conn
	b.mu.Unlock()
	b.log.Info("bridge client connected")

	for {
		var msg clientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			b.log.WithError(err).Debug("bridge client disconnected")
			b.mu.Lock()
			if b.conn == conn {
				b.conn = nil
			}
			b.mu.Unlock()
			return
		}
		b.handleMsg(msg)
	}
}

func (b *Server) handleMsg(msg clientMsg) {
	// Straggler messages read after shutdown are dropped, not delivered.
	select {
	case <-b.done:
		return
	default:
	}

	switch msg.Type {
	case "snapshot":
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(msg.HTML))
		if err != nil {
			b.log.WithError(err).Warn("unparseable snapshot from client")
			return
		}
		b.mu.Lock()
		b.doc = doc
		b.mu.Unlock()
		b.readyOnce.Do(func() { close(b.ready) })

	case "event":
		b.deliverEvent(msg)

	case "next":
		b.pushControl(player.ControlNext)

	case "exit":
		b.pushControl(player.ControlExit)
	}
}

func (b *Server) deliverEvent(msg clientMsg) {
	kind := surface.EventKind(msg.Kind)
	ev := surface.Event{Kind: kind, SelectedText: msg.SelectedText}

	if kind != surface.EventEscape {
		b.mu.Lock()
		doc, gate := b.doc, b.gate
		b.mu.Unlock()
		if doc == nil {
			return
		}
		ev.Target = findBySelector(doc, msg.Selector)
		if ev.Target == nil {
			b.log.WithField("selector", msg.Selector).Debug("event target not found in snapshot")
			return
		}
		// The client cancels gated-out interactions itself, but the
		// server re-checks against its own snapshot.
		if gate != nil && !locator.NodeContains(gate, ev.Target) {
			return
		}
	}

	select {
	case b.events <- ev:
	default:
		b.log.Warn("event dropped, playback not consuming")
	}
}

func (b *Server) pushControl(c player.Control) {
	select {
	case b.controls <- c:
	default:
	}
}

func findBySelector(doc *goquery.Document, selector string) *html.Node {
	if selector == "" {
		return nil
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil
	}
	matches := doc.FindMatcher(sel)
	if matches.Length() == 0 {
		return nil
	}
	return matches.Get(0)
}

func (b *Server) send(msg serverMsg) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		b.log.WithError(err).Debug("bridge write failed")
	}
}

// --- surface.Surface ---

// Document returns the latest client snapshot.
func (b *Server) Document() (*goquery.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.doc == nil {
		return nil, fmt.Errorf("no snapshot received yet")
	}
	return b.doc, nil
}

// Events returns the interaction stream from the client.
func (b *Server) Events() <-chan surface.Event { return b.events }

// SetGate suppresses client interactions outside allow.
func (b *Server) SetGate(allow *html.Node) {
	b.mu.Lock()
	b.gate = allow
	b.mu.Unlock()
	b.send(serverMsg{Type: "gate", Selector: b.synth.PathFor(allow)})
}

// ClearGate lifts the suppression.
func (b *Server) ClearGate() {
	b.mu.Lock()
	b.gate = nil
	b.mu.Unlock()
	b.send(serverMsg{Type: "gate"})
}

// --- player.Renderer ---

// ShowStep instructs the client overlay to highlight and prompt.
func (b *Server) ShowStep(step flow.Step, target *html.Node, index, total int) {
	msg := serverMsg{
		Type:  "highlight",
		Kind:  string(step.Kind()),
		Note:  step.Meta().Note,
		Index: index + 1,
		Total: total,
		Extra: step.Meta().Annotations,
	}
	if target != nil {
		msg.Selector = b.synth.PathFor(target)
	}
	switch st := step.(type) {
	case flow.MessageStep:
		msg.Text = st.Text
	case flow.SelectStep:
		msg.Expected = st.ExpectedValue
	}
	b.send(msg)
}

// ClearStep removes the overlay.
func (b *Server) ClearStep() {
	b.send(serverMsg{Type: "clear"})
}

// Controls returns the manual next/exit signals from the client.
func (b *Server) Controls() <-chan player.Control { return b.controls }

// Done tells the client how the session ended.
func (b *Server) Done(outcome player.Outcome) {
	b.send(serverMsg{Type: "done", Text: string(outcome)})
}
