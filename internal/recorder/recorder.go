// Package recorder captures interaction events and turns them into flow
// steps. It is the sole producer of Locator instances: per qualifying
// interaction it asks the synthesizer for a Locator and appends a step whose
// type is decided from the element's tag and attributes.
package recorder

import (
	"strings"

	"github.com/mj1618/guide-cli/internal/flow"
	"github.com/mj1618/guide-cli/internal/locator"
	"github.com/mj1618/guide-cli/internal/surface"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

// IDFunc mints step identifiers; the persistence collaborator's GenerateID
// is the usual implementation.
type IDFunc func(prefix string) string

// Recorder appends steps to a flow definition as interactions arrive.
type Recorder struct {
	synth *locator.Synthesizer
	def   *flow.Definition
	genID IDFunc
	log   logrus.FieldLogger

	// lastTarget dedupes bursts of events on the same element: repeated
	// input events on one field are one step, and a selection change
	// right after a click on the same select updates the recorded step
	// instead of appending a second one.
	lastTarget *html.Node
}

// New creates a Recorder appending into def.
func New(def *flow.Definition, genID IDFunc, log logrus.FieldLogger) *Recorder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Recorder{
		synth: locator.NewSynthesizer(),
		def:   def,
		genID: genID,
		log:   log,
	}
}

// Definition returns the flow being recorded.
func (r *Recorder) Definition() *flow.Definition { return r.def }

// HandleEvent appends (or amends) a step for one raw interaction. Escape
// events are not interactions and are ignored.
func (r *Recorder) HandleEvent(ev surface.Event) {
	if ev.Target == nil {
		return
	}
	switch ev.Kind {
	case surface.EventClick:
		r.recordClick(ev.Target)
	case surface.EventInput:
		r.recordInput(ev.Target)
	case surface.EventSelectionChange:
		r.recordSelection(ev.Target, ev.SelectedText)
	}
}

func (r *Recorder) recordClick(raw *html.Node) {
	n := r.synth.Normalize(raw)
	switch stepKindFor(n) {
	case flow.StepSelect:
		r.appendSelect(n, selectedOptionText(n))
	case flow.StepInput:
		r.appendInput(n)
	default:
		r.append(flow.ClickStep{StepMeta: r.meta(), Target: r.synth.FromNode(n)}, n)
	}
}

func (r *Recorder) recordInput(raw *html.Node) {
	n := r.synth.Normalize(raw)
	// A typing burst into the field we just recorded is still one step.
	if n == r.lastTarget {
		if _, ok := r.lastStep().(flow.InputStep); ok {
			return
		}
	}
	r.appendInput(n)
}

func (r *Recorder) recordSelection(raw *html.Node, selected string) {
	n := r.synth.Normalize(raw)
	// Clicking a select fires a click first; fold the selection change
	// into that step rather than recording the dropdown twice.
	if n == r.lastTarget {
		if st, ok := r.lastStep().(flow.SelectStep); ok {
			st.ExpectedValue = selected
			r.def.Steps[len(r.def.Steps)-1] = st
			return
		}
	}
	r.appendSelect(n, selected)
}

func (r *Recorder) appendInput(n *html.Node) {
	r.append(flow.InputStep{StepMeta: r.meta(), Target: r.synth.FromNode(n)}, n)
}

func (r *Recorder) appendSelect(n *html.Node, expected string) {
	r.append(flow.SelectStep{
		StepMeta:      r.meta(),
		Target:        r.synth.FromNode(n),
		ExpectedValue: expected,
	}, n)
}

// AddWait appends an editor-authored wait step.
func (r *Recorder) AddWait(durationMs int) {
	r.append(flow.WaitStep{StepMeta: r.meta(), DurationMs: durationMs}, nil)
}

// AddMessage appends an editor-authored message step.
func (r *Recorder) AddMessage(text string) {
	r.append(flow.MessageStep{StepMeta: r.meta(), Text: text}, nil)
}

func (r *Recorder) append(s flow.Step, target *html.Node) {
	r.def.Steps = append(r.def.Steps, s)
	r.lastTarget = target
	r.log.WithFields(logrus.Fields{
		"step": len(r.def.Steps),
		"kind": s.Kind(),
	}).Debug("recorded step")
}

func (r *Recorder) meta() flow.StepMeta {
	return flow.StepMeta{StepID: r.genID("step")}
}

func (r *Recorder) lastStep() flow.Step {
	if len(r.def.Steps) == 0 {
		return nil
	}
	return r.def.Steps[len(r.def.Steps)-1]
}

// stepKindFor decides the recorded step type from the element itself.
func stepKindFor(n *html.Node) flow.StepType {
	switch locator.TagName(n) {
	case "select":
		return flow.StepSelect
	case "textarea":
		return flow.StepInput
	case "input":
		switch locator.AttrVal(n, "type") {
		case "button", "submit", "reset", "checkbox", "radio", "range":
			return flow.StepClick
		default:
			return flow.StepInput
		}
	default:
		return flow.StepClick
	}
}

// selectedOptionText reads the currently selected option's visible text, so
// a click-recorded select step still carries an expected value.
func selectedOptionText(n *html.Node) string {
	var first, selected *html.Node
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.ElementNode && locator.TagName(child) == "option" {
				if first == nil {
					first = child
				}
				for _, a := range child.Attr {
					if a.Key == "selected" && selected == nil {
						selected = child
					}
				}
			}
			walk(child)
		}
	}
	walk(n)
	if selected != nil {
		return strings.TrimSpace(locator.NodeText(selected))
	}
	if first != nil {
		return strings.TrimSpace(locator.NodeText(first))
	}
	return ""
}
