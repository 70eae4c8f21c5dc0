package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mj1618/guide-cli/internal/bridge"
	"github.com/mj1618/guide-cli/internal/flow"
	"github.com/mj1618/guide-cli/internal/locator"
	"github.com/mj1618/guide-cli/internal/output"
	"github.com/mj1618/guide-cli/internal/player"
	"github.com/mj1618/guide-cli/internal/surface"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"
)

// PlayResult is the output of the play command.
type PlayResult struct {
	OK      bool   `yaml:"ok"                json:"ok"`
	Flow    string `yaml:"flow"              json:"flow"`
	Outcome string `yaml:"outcome"           json:"outcome"`
	Steps   int    `yaml:"steps"             json:"steps"`
	Reached int    `yaml:"reached"           json:"reached"`
	Error   string `yaml:"error,omitempty"   json:"error,omitempty"`
}

var playCmd = &cobra.Command{
	Use:   "play <flow-id>",
	Short: "Play a flow as a guided walkthrough",
	Long: `Play a flow either live (a page client connects over the WebSocket bridge
and renders the highlights) or scripted (events fed from a YAML script
against a DOM snapshot, for CI and flow validation).

Live:
  guide-cli play my-flow --listen :8765

Scripted:
  guide-cli play my-flow --dom page.html --script events.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().String("listen", "", "Listen address for the live bridge (e.g. :8765)")
	playCmd.Flags().String("dom", "", "HTML snapshot file for scripted playback")
	playCmd.Flags().String("script", "", "YAML event script for scripted playback (- for stdin)")
	playCmd.Flags().Int("max-attempts", locator.DefaultMaxAttempts, "Resolution attempts per step")
	playCmd.Flags().Int("interval", int(locator.DefaultPollInterval/time.Millisecond), "Polling interval in milliseconds")
	playCmd.Flags().Int("advance-delay", int(player.DefaultAdvanceDelay/time.Millisecond), "Delay after a qualifying interaction in milliseconds")
}

func runPlay(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	def, err := st.Load(args[0])
	if err != nil {
		return err
	}

	maxAttempts, _ := cmd.Flags().GetInt("max-attempts")
	intervalMs, _ := cmd.Flags().GetInt("interval")
	advanceMs, _ := cmd.Flags().GetInt("advance-delay")
	cfg := player.Config{
		Poll: locator.PollConfig{
			MaxAttempts: maxAttempts,
			Interval:    time.Duration(intervalMs) * time.Millisecond,
		},
		AdvanceDelay: time.Duration(advanceMs) * time.Millisecond,
		Logger:       logrus.StandardLogger(),
	}

	listen, _ := cmd.Flags().GetString("listen")
	domPath, _ := cmd.Flags().GetString("dom")
	scriptPath, _ := cmd.Flags().GetString("script")

	var outcome player.Outcome
	var reached int
	var playErr error
	switch {
	case listen != "":
		outcome, reached, playErr = playLive(def, cfg, listen)
	case domPath != "" && scriptPath != "":
		outcome, reached, playErr = playScripted(def, cfg, domPath, scriptPath)
	default:
		return fmt.Errorf("specify either --listen, or both --dom and --script")
	}

	result := PlayResult{
		OK:      playErr == nil && outcome == player.OutcomeCompleted,
		Flow:    def.ID,
		Outcome: string(outcome),
		Steps:   len(def.Steps),
		Reached: reached,
	}
	if playErr != nil {
		result.Error = playErr.Error()
	}
	return output.Print(result)
}

func playLive(def *flow.Definition, cfg player.Config, listen string) (player.Outcome, int, error) {
	br := bridge.New(logrus.StandardLogger())
	if err := br.Start(listen); err != nil {
		return player.OutcomeFailed, 0, err
	}
	defer br.Close()

	fmt.Fprintf(os.Stderr, "playing on %s, waiting for page client\n", br.Addr())
	if err := br.WaitReady(5 * time.Minute); err != nil {
		return player.OutcomeFailed, 0, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := player.New(def, br, br, cfg)
	outcome, err := p.Run(ctx)
	br.Done(outcome)
	return outcome, reachedSteps(p, def), err
}

// reachedSteps counts steps entered during the session, for the result
// report. After a completed run the index sits one past the last step.
func reachedSteps(p *player.Player, def *flow.Definition) int {
	reached := p.StepIndex() + 1
	if reached > len(def.Steps) {
		reached = len(def.Steps)
	}
	return reached
}

// scriptEntry is one scripted action, consumed one per targeted step.
type scriptEntry struct {
	Kind     string `yaml:"kind"` // click | input | selection-change | next | exit | none
	Selector string `yaml:"selector,omitempty"`
	Selected string `yaml:"selected,omitempty"`
}

// scriptDriver is a Renderer that drives playback from a script: whenever a
// step is shown, it pops the next entry and either injects the scripted
// interaction into the snapshot surface or issues a manual control.
type scriptDriver struct {
	snap     *surface.Snapshot
	entries  []scriptEntry
	pos      int
	controls chan player.Control
}

func newScriptDriver(snap *surface.Snapshot, entries []scriptEntry) *scriptDriver {
	return &scriptDriver{snap: snap, entries: entries, controls: make(chan player.Control, 4)}
}

func (d *scriptDriver) ShowStep(step flow.Step, target *html.Node, index, total int) {
	fmt.Fprintf(os.Stderr, "step %d/%d (%s)\n", index+1, total, step.Kind())
	if _, ok := step.(flow.WaitStep); ok {
		return // the step's own timer advances it
	}
	if d.pos >= len(d.entries) {
		return
	}
	e := d.entries[d.pos]
	d.pos++

	switch e.Kind {
	case "next":
		d.controls <- player.ControlNext
	case "exit":
		d.controls <- player.ControlExit
	case "none", "":
	default:
		ev := surface.Event{
			Kind:         surface.EventKind(e.Kind),
			SelectedText: e.Selected,
		}
		if e.Selector != "" {
			ev.Target = d.snap.Find(e.Selector)
		} else if target != nil {
			ev.Target = target
		}
		d.snap.Deliver(ev)
	}
}

func (d *scriptDriver) ClearStep() {}

func (d *scriptDriver) Controls() <-chan player.Control { return d.controls }

func playScripted(def *flow.Definition, cfg player.Config, domPath, scriptPath string) (player.Outcome, int, error) {
	src, err := readInput(domPath)
	if err != nil {
		return player.OutcomeFailed, 0, fmt.Errorf("read DOM snapshot: %w", err)
	}
	snap, err := surface.NewSnapshot(bytes.NewReader(src))
	if err != nil {
		return player.OutcomeFailed, 0, fmt.Errorf("parse DOM snapshot: %w", err)
	}

	scriptSrc, err := readInput(scriptPath)
	if err != nil {
		return player.OutcomeFailed, 0, fmt.Errorf("read script: %w", err)
	}
	var entries []scriptEntry
	if err := yaml.Unmarshal(scriptSrc, &entries); err != nil {
		return player.OutcomeFailed, 0, fmt.Errorf("parse script: %w", err)
	}

	driver := newScriptDriver(snap, entries)
	p := player.New(def, snap, driver, cfg)
	outcome, err := p.Run(context.Background())
	return outcome, reachedSteps(p, def), err
}
