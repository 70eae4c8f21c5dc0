// Package flow defines the persisted walkthrough model: an ordered list of
// typed steps plus metadata. Step order is the sole execution order; there
// is no branching.
package flow

import (
	"time"

	"github.com/mj1618/guide-cli/internal/locator"
)

// StepType tags the closed set of step kinds.
type StepType string

const (
	StepClick   StepType = "click"
	StepInput   StepType = "input"
	StepSelect  StepType = "select"
	StepWait    StepType = "wait"
	StepMessage StepType = "message"
)

// Annotation is presentation-only content attached to a step. The playback
// core carries annotations through untouched; rendering them is the overlay
// renderer's job.
type Annotation struct {
	Kind      string `json:"kind"`
	Text      string `json:"text,omitempty"`
	Placement string `json:"placement,omitempty"`
}

// StepMeta is the part shared by every step kind. The ID is
// generator-assigned and stable for the lifetime of the flow.
type StepMeta struct {
	StepID      string       `json:"id"`
	Note        string       `json:"note,omitempty"` // hint text, Markdown
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Meta returns the shared step fields. Defined on StepMeta so every concrete
// step type inherits it by embedding.
func (m StepMeta) Meta() StepMeta { return m }

// ID returns the step's stable identifier.
func (m StepMeta) ID() string { return m.StepID }

func (StepMeta) sealed() {}

// Step is one unit of guided interaction. The set of implementations is
// closed: ClickStep, InputStep, SelectStep, WaitStep, MessageStep. Code that
// switches over Step must handle every one of them and treat any other value
// as a programming error.
type Step interface {
	Kind() StepType
	Meta() StepMeta
	ID() string
	sealed()
}

// ClickStep highlights its target and auto-advances on a qualifying click
// inside it.
type ClickStep struct {
	StepMeta
	Target locator.Locator
}

func (ClickStep) Kind() StepType { return StepClick }

// InputStep highlights its target like a click step but only advances on
// explicit user confirmation.
type InputStep struct {
	StepMeta
	Target locator.Locator
}

func (InputStep) Kind() StepType { return StepInput }

// SelectStep additionally watches selection changes on its target and
// auto-advances when the selected option text tolerantly matches
// ExpectedValue.
type SelectStep struct {
	StepMeta
	Target        locator.Locator
	ExpectedValue string
}

func (SelectStep) Kind() StepType { return StepSelect }

// WaitStep shows a countdown prompt and advances unconditionally when its
// duration expires. No targeting.
type WaitStep struct {
	StepMeta
	DurationMs int
}

func (WaitStep) Kind() StepType { return StepWait }

// Duration returns the wait as a time.Duration.
func (s WaitStep) Duration() time.Duration {
	return time.Duration(s.DurationMs) * time.Millisecond
}

// MessageStep shows text, optionally anchored to a target. Failing to
// resolve the target still proceeds, just without a highlight. Never
// auto-advances.
type MessageStep struct {
	StepMeta
	Text   string
	Target *locator.Locator
}

func (MessageStep) Kind() StepType { return StepMessage }

// Steps is an ordered step list with a tagged-union JSON representation.
type Steps []Step

// Definition is one persisted walkthrough.
type Definition struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Author      string    `json:"author,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Version     int       `json:"version"`
	Steps       Steps     `json:"steps"`
}

// StepIndex returns the position of the step with the given id, or -1.
func (d *Definition) StepIndex(id string) int {
	for i, s := range d.Steps {
		if s.ID() == id {
			return i
		}
	}
	return -1
}
