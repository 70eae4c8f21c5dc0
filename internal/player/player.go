// Package player drives step playback: it advances through an ordered step
// list, resolving each step's target with bounded polling, rendering
// highlight/prompt state, and deciding between auto-advance, manual advance,
// and timers. One Player instance is constructed per play session and torn
// down on stop; there are no ambient singletons.
package player

import (
	"context"
	"fmt"
	"time"

	"github.com/mj1618/guide-cli/internal/flow"
	"github.com/mj1618/guide-cli/internal/locator"
	"github.com/mj1618/guide-cli/internal/surface"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

// State is the playback state machine's current phase.
type State int

const (
	StateIdle State = iota
	StateAwaitingTarget
	StateArmed
	StateAdvancing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingTarget:
		return "awaiting-target"
	case StateArmed:
		return "armed"
	case StateAdvancing:
		return "advancing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Outcome distinguishes how a play session ended. Completing the last step
// and being interrupted are both normal; Failed means a required target
// never resolved.
type Outcome string

const (
	OutcomeCompleted   Outcome = "completed"
	OutcomeInterrupted Outcome = "interrupted"
	OutcomeFailed      Outcome = "failed"
)

// Control signals the renderer reports back: the only two things the core
// listens for.
type Control int

const (
	ControlNext Control = iota
	ControlExit
)

// Renderer is the overlay/annotation collaborator. It owns all visuals; the
// core calls it once per step with the resolution result and position.
type Renderer interface {
	ShowStep(step flow.Step, target *html.Node, index, total int)
	ClearStep()
	Controls() <-chan Control
}

// DefaultAdvanceDelay debounces the short pause between a qualifying
// interaction and moving to the next step.
const DefaultAdvanceDelay = 600 * time.Millisecond

// Config tunes one play session.
type Config struct {
	Poll         locator.PollConfig
	AdvanceDelay time.Duration
	Logger       logrus.FieldLogger
}

// Player is the step playback state machine. All state transitions run on
// the Run goroutine; collaborators read progress through accessors and never
// mutate it.
type Player struct {
	def    *flow.Definition
	surf   surface.Surface
	rend   Renderer
	poller *locator.Poller
	cfg    Config
	log    logrus.FieldLogger

	state  State
	idx    int
	target *html.Node

	// At most one pending poll and one pending advance/wait timer exist
	// at any time; starting a new one cancels the previous one first.
	pending      *locator.Pending
	advanceTimer *time.Timer
	advanceCh    <-chan time.Time
}

// New builds a Player for one session.
func New(def *flow.Definition, surf surface.Surface, rend Renderer, cfg Config) *Player {
	if cfg.AdvanceDelay <= 0 {
		cfg.AdvanceDelay = DefaultAdvanceDelay
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	res := locator.NewResolver(log)
	return &Player{
		def:    def,
		surf:   surf,
		rend:   rend,
		poller: locator.NewPoller(res, log),
		cfg:    cfg,
		log:    log,
		state:  StateIdle,
	}
}

// State returns the current machine state.
func (p *Player) State() State { return p.state }

// StepIndex returns the current step index.
func (p *Player) StepIndex() int { return p.idx }

// Target returns the currently resolved target element, or nil.
func (p *Player) Target() *html.Node { return p.target }

// Run plays the flow to completion, interruption, or failure. Cancellation
// of ctx behaves like an escape: all timers and pollers are cleared before
// returning.
func (p *Player) Run(ctx context.Context) (Outcome, error) {
	defer p.teardown()

	if len(p.def.Steps) == 0 {
		p.state = StateDone
		return OutcomeCompleted, nil
	}
	if err := p.enterStep(0); err != nil {
		return OutcomeFailed, err
	}

	for {
		if p.state == StateDone {
			return OutcomeCompleted, nil
		}
		select {
		case <-ctx.Done():
			return OutcomeInterrupted, ctx.Err()

		case res := <-p.pollDone():
			fail, err := p.handleResolved(res)
			if fail != nil {
				return OutcomeFailed, fail
			}
			if err != nil {
				return OutcomeFailed, err
			}

		case ev, ok := <-p.surf.Events():
			if !ok {
				return OutcomeInterrupted, fmt.Errorf("surface disconnected")
			}
			if ev.Kind == surface.EventEscape {
				return OutcomeInterrupted, nil
			}
			if err := p.handleEvent(ev); err != nil {
				return OutcomeFailed, err
			}

		case c, ok := <-p.rend.Controls():
			if !ok || c == ControlExit {
				return OutcomeInterrupted, nil
			}
			if err := p.handleManualNext(); err != nil {
				return OutcomeFailed, err
			}

		case <-p.advanceCh:
			p.advanceTimer = nil
			p.advanceCh = nil
			if err := p.handleTimerFired(); err != nil {
				return OutcomeFailed, err
			}
		}
	}
}

// pollDone returns the pending poll's channel, or a nil channel (blocks
// forever) when no poll is in flight.
func (p *Player) pollDone() <-chan locator.Result {
	if p.pending == nil {
		return nil
	}
	return p.pending.Done()
}

// enterStep makes step i current. Entering a step always clears any pending
// timers and pollers from the previous step first.
func (p *Player) enterStep(i int) error {
	p.clearPending()
	p.clearTimer()
	p.surf.ClearGate()
	p.rend.ClearStep()
	p.target = nil
	p.idx = i

	if i >= len(p.def.Steps) {
		p.state = StateDone
		return nil
	}

	step := p.def.Steps[i]
	p.log.WithFields(logrus.Fields{
		"step": i + 1,
		"of":   len(p.def.Steps),
		"kind": step.Kind(),
	}).Debug("entering step")

	switch st := step.(type) {
	case flow.ClickStep:
		p.startPoll(st.Target)
	case flow.InputStep:
		p.startPoll(st.Target)
	case flow.SelectStep:
		p.startPoll(st.Target)
	case flow.WaitStep:
		p.state = StateArmed
		p.rend.ShowStep(step, nil, i, len(p.def.Steps))
		p.startTimer(st.Duration())
	case flow.MessageStep:
		if st.Target != nil && !st.Target.IsZero() {
			p.startPoll(*st.Target)
		} else {
			p.state = StateArmed
			p.rend.ShowStep(step, nil, i, len(p.def.Steps))
		}
	default:
		return fmt.Errorf("unhandled step type %T at index %d", step, i)
	}
	return nil
}

func (p *Player) startPoll(loc locator.Locator) {
	p.state = StateAwaitingTarget
	p.pending = p.poller.Start(p.surf.Document, loc, p.cfg.Poll)
}

// handleResolved consumes a poll result for the current step. The first
// return value is the terminal failure for required targets; the second is
// an internal error.
func (p *Player) handleResolved(res locator.Result) (terminal, internal error) {
	p.pending = nil
	step := p.def.Steps[p.idx]

	switch step.(type) {
	case flow.MessageStep:
		// Text-only content remains useful without a highlight.
		if !res.OK {
			p.log.WithField("step", p.idx+1).Debug("message target not resolved, proceeding without highlight")
		}
		p.target = res.Element
		p.state = StateArmed
		p.rend.ShowStep(step, p.target, p.idx, len(p.def.Steps))
		return nil, nil

	case flow.ClickStep, flow.InputStep, flow.SelectStep:
		if !res.OK {
			// Nothing actionable to highlight: halt playback.
			return fmt.Errorf("step %d (%s): %w: %s",
				p.idx+1, step.Kind(), locator.ErrResolutionTimeout, res.Err), nil
		}
		p.target = res.Element
		p.state = StateArmed
		p.surf.SetGate(p.target)
		p.rend.ShowStep(step, p.target, p.idx, len(p.def.Steps))
		return nil, nil

	default:
		return nil, fmt.Errorf("poll result for unexpected step type %T", step)
	}
}

// handleEvent reacts to a delivered interaction. Only qualifying
// interactions inside the armed target advance the machine; everything else
// is ignored (outside interactions are already suppressed by the gate, but
// the machine does not rely on that).
func (p *Player) handleEvent(ev surface.Event) error {
	if p.state != StateArmed {
		return nil
	}
	step := p.def.Steps[p.idx]

	switch st := step.(type) {
	case flow.ClickStep:
		if ev.Kind == surface.EventClick && p.insideTarget(ev.Target) {
			p.beginAdvance()
		}
	case flow.SelectStep:
		if ev.Kind == surface.EventSelectionChange && p.insideTarget(ev.Target) &&
			optionMatches(ev.SelectedText, st.ExpectedValue) {
			p.beginAdvance()
		}
	case flow.InputStep, flow.WaitStep, flow.MessageStep:
		// input advances manually, wait on its timer, message manually.
	default:
		return fmt.Errorf("event for unhandled step type %T", step)
	}
	return nil
}

func (p *Player) insideTarget(n *html.Node) bool {
	return p.target != nil && n != nil && locator.NodeContains(p.target, n)
}

// handleManualNext advances on an explicit user confirmation. Manual advance
// is an affordance of input, select, and message steps only.
func (p *Player) handleManualNext() error {
	if p.state != StateArmed {
		return nil
	}
	switch p.def.Steps[p.idx].(type) {
	case flow.InputStep, flow.SelectStep, flow.MessageStep:
		return p.enterStep(p.idx + 1)
	}
	return nil
}

// handleTimerFired resolves the single pending timer: either the post-
// interaction advance debounce, or a wait step's countdown expiring.
func (p *Player) handleTimerFired() error {
	switch p.state {
	case StateAdvancing:
		return p.enterStep(p.idx + 1)
	case StateArmed:
		if _, ok := p.def.Steps[p.idx].(flow.WaitStep); ok {
			return p.enterStep(p.idx + 1)
		}
	}
	return nil
}

// beginAdvance debounces a short delay after a qualifying interaction before
// moving on, so the user sees their action land.
func (p *Player) beginAdvance() {
	p.state = StateAdvancing
	p.startTimer(p.cfg.AdvanceDelay)
}

func (p *Player) startTimer(d time.Duration) {
	p.clearTimer()
	p.advanceTimer = time.NewTimer(d)
	p.advanceCh = p.advanceTimer.C
}

func (p *Player) clearTimer() {
	if p.advanceTimer != nil {
		p.advanceTimer.Stop()
		p.advanceTimer = nil
		p.advanceCh = nil
	}
}

func (p *Player) clearPending() {
	if p.pending != nil {
		p.pending.Cancel()
		p.pending = nil
	}
}

// teardown synchronously clears all outstanding work so nothing can mutate
// state after the session ends.
func (p *Player) teardown() {
	p.clearPending()
	p.clearTimer()
	p.surf.ClearGate()
	p.rend.ClearStep()
	if p.state != StateDone {
		p.state = StateIdle
	}
}
