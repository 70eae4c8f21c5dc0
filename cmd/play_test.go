package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/mj1618/guide-cli/internal/flow"
	"github.com/mj1618/guide-cli/internal/locator"
	"github.com/mj1618/guide-cli/internal/player"
)

func fastPlayConfig() player.Config {
	return player.Config{
		Poll:         locator.PollConfig{MaxAttempts: 2, Interval: time.Millisecond},
		AdvanceDelay: 5 * time.Millisecond,
	}
}

const playFixture = `<html><body>
	<button aria-label="Create vault" class="mod-cta">Create</button>
	<input type="text" placeholder="Vault name">
	<select aria-label="Language"><option>English</option><option>Deutsch</option></select>
</body></html>`

func playDef() *flow.Definition {
	return &flow.Definition{
		ID:   "flow-play",
		Name: "scripted",
		Steps: flow.Steps{
			flow.ClickStep{
				StepMeta: flow.StepMeta{StepID: "s1"},
				Target:   locator.Locator{AriaLabel: "Create vault"},
			},
			flow.InputStep{
				StepMeta: flow.StepMeta{StepID: "s2"},
				Target:   locator.Locator{Placeholder: "Vault name"},
			},
			flow.SelectStep{
				StepMeta:      flow.StepMeta{StepID: "s3"},
				Target:        locator.Locator{AriaLabel: "Language"},
				ExpectedValue: "Deutsch",
			},
			flow.MessageStep{StepMeta: flow.StepMeta{StepID: "s4"}, Text: "Done"},
		},
	}
}

func TestPlayScripted_CompletesFlow(t *testing.T) {
	domPath := writeTempFile(t, "page.html", playFixture)
	scriptPath := writeTempFile(t, "script.yaml", strings.Join([]string{
		`- kind: click`,
		`- kind: next`,
		`- kind: selection-change`,
		`  selected: Deutsch`,
		`- kind: next`,
	}, "\n"))

	outcome, reached, err := playScripted(playDef(), fastPlayConfig(), domPath, scriptPath)
	if err != nil {
		t.Fatalf("playScripted: %v", err)
	}
	if outcome != player.OutcomeCompleted {
		t.Errorf("outcome = %q, want completed", outcome)
	}
	if reached != 4 {
		t.Errorf("reached = %d, want 4", reached)
	}
}

func TestPlayScripted_ExitInterrupts(t *testing.T) {
	domPath := writeTempFile(t, "page.html", playFixture)
	scriptPath := writeTempFile(t, "script.yaml", "- kind: exit\n")

	outcome, reached, err := playScripted(playDef(), fastPlayConfig(), domPath, scriptPath)
	if err != nil {
		t.Fatalf("playScripted: %v", err)
	}
	if outcome != player.OutcomeInterrupted {
		t.Errorf("outcome = %q, want interrupted", outcome)
	}
	if reached != 1 {
		t.Errorf("reached = %d, want 1", reached)
	}
}

func TestPlayScripted_MissingTargetFails(t *testing.T) {
	domPath := writeTempFile(t, "page.html", `<html><body><p>bare</p></body></html>`)
	scriptPath := writeTempFile(t, "script.yaml", "- kind: click\n")

	outcome, _, err := playScripted(playDef(), fastPlayConfig(), domPath, scriptPath)
	if outcome != player.OutcomeFailed {
		t.Errorf("outcome = %q, want failed", outcome)
	}
	if err == nil {
		t.Error("expected a resolution error")
	}
}

func TestPlayScripted_BadScript(t *testing.T) {
	domPath := writeTempFile(t, "page.html", playFixture)
	scriptPath := writeTempFile(t, "script.yaml", "kind: [not a list")

	if _, _, err := playScripted(playDef(), fastPlayConfig(), domPath, scriptPath); err == nil {
		t.Fatal("expected a script parse error")
	}
}
