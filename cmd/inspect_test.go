package cmd

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/mj1618/guide-cli/internal/flow"
	"github.com/mj1618/guide-cli/internal/locator"
)

func TestInspectFlow(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body>
		<div class="sidebar"><button class="new-note">+</button></div>
		<div class="toolbar"><button class="ambiguous">a</button><button class="ambiguous">b</button></div>
	</body></html>`))
	if err != nil {
		t.Fatal(err)
	}

	def := &flow.Definition{
		ID: "flow-1",
		Steps: flow.Steps{
			flow.ClickStep{
				StepMeta: flow.StepMeta{StepID: "s1"},
				Target:   locator.Locator{Path: "div.sidebar > button.new-note", Description: "new note"},
			},
			flow.ClickStep{
				StepMeta: flow.StepMeta{StepID: "s2"},
				Target:   locator.Locator{Path: "button.ambiguous"},
			},
			flow.ClickStep{
				StepMeta: flow.StepMeta{StepID: "s3"},
				Target:   locator.Locator{Path: "div.gone > span"},
			},
			flow.ClickStep{
				StepMeta: flow.StepMeta{StepID: "s4"},
				Target:   locator.Locator{Path: ":::broken"},
			},
			// Steps without a structural path are skipped.
			flow.ClickStep{StepMeta: flow.StepMeta{StepID: "s5"}, Target: locator.Locator{AriaLabel: "x"}},
			flow.WaitStep{StepMeta: flow.StepMeta{StepID: "s6"}, DurationMs: 100},
			flow.MessageStep{StepMeta: flow.StepMeta{StepID: "s7"}, Text: "hi"},
		},
	}

	result := inspectFlow(def, doc)
	if !result.OK || result.Flow != "flow-1" {
		t.Errorf("result header = %+v", result)
	}
	if len(result.Rows) != 4 {
		t.Fatalf("got %d rows, want 4 (only click steps with a path)", len(result.Rows))
	}

	tests := []struct {
		stepID      string
		wantMatches int
		wantError   bool
	}{
		{"s1", 1, false},
		{"s2", 2, false},
		{"s3", 0, false},
		{"s4", 0, true},
	}
	for i, tt := range tests {
		row := result.Rows[i]
		if row.StepID != tt.stepID {
			t.Errorf("row %d step id = %q, want %q", i, row.StepID, tt.stepID)
			continue
		}
		if row.Matches != tt.wantMatches {
			t.Errorf("%s: matches = %d, want %d", tt.stepID, row.Matches, tt.wantMatches)
		}
		if (row.Error != "") != tt.wantError {
			t.Errorf("%s: error = %q, wantError = %v", tt.stepID, row.Error, tt.wantError)
		}
	}
	if result.Rows[0].Step != 1 {
		t.Errorf("step numbers are 1-based, got %d", result.Rows[0].Step)
	}
	if result.Rows[0].Description != "new note" {
		t.Errorf("description = %q", result.Rows[0].Description)
	}
}
