package flow

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/mj1618/guide-cli/internal/locator"
)

func sampleSteps() Steps {
	msgTarget := &locator.Locator{AriaLabel: "Status bar"}
	return Steps{
		ClickStep{
			StepMeta: StepMeta{StepID: "s1", Note: "Open the **settings**"},
			Target:   locator.Locator{AriaLabel: "Settings", Path: "div.titlebar > button.settings"},
		},
		InputStep{
			StepMeta: StepMeta{
				StepID:      "s2",
				Annotations: []Annotation{{Kind: "tooltip", Text: "Type a name", Placement: "bottom"}},
			},
			Target: locator.Locator{Placeholder: "Vault name", InputType: "text"},
		},
		SelectStep{
			StepMeta:      StepMeta{StepID: "s3"},
			Target:        locator.Locator{SettingName: "Theme", ControlType: locator.ControlDropdown},
			ExpectedValue: "Dark",
		},
		WaitStep{StepMeta: StepMeta{StepID: "s4"}, DurationMs: 1500},
		MessageStep{StepMeta: StepMeta{StepID: "s5"}, Text: "All done!", Target: msgTarget},
		MessageStep{StepMeta: StepMeta{StepID: "s6"}, Text: "No anchor here"},
	}
}

func TestSteps_RoundTrip(t *testing.T) {
	in := sampleSteps()

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out Steps
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip changed the steps:\n in: %#v\nout: %#v", in, out)
	}
}

func TestSteps_WireShape(t *testing.T) {
	data, err := json.Marshal(Steps{
		ClickStep{StepMeta: StepMeta{StepID: "s1"}, Target: locator.Locator{AriaLabel: "Close"}},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"type":"click"`, `"id":"s1"`, `"ariaLabel":"Close"`} {
		if !strings.Contains(s, want) {
			t.Errorf("wire form %s missing %s", s, want)
		}
	}
	// Fields of other step kinds must not leak into the envelope.
	for _, reject := range []string{"durationMs", "expectedValue"} {
		if strings.Contains(s, reject) {
			t.Errorf("wire form %s carries unrelated field %s", s, reject)
		}
	}
}

func TestSteps_DecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown_type", `[{"type":"hover","id":"s1"}]`},
		{"click_without_target", `[{"type":"click","id":"s1"}]`},
		{"input_without_target", `[{"type":"input","id":"s1"}]`},
		{"select_without_target", `[{"type":"select","id":"s1","expectedValue":"x"}]`},
		{"wait_without_duration", `[{"type":"wait","id":"s1"}]`},
		{"wait_negative_duration", `[{"type":"wait","id":"s1","durationMs":-5}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out Steps
			if err := json.Unmarshal([]byte(tt.raw), &out); err == nil {
				t.Errorf("expected decode error for %s", tt.raw)
			}
		})
	}
}

func TestSteps_MessageWithoutTargetIsValid(t *testing.T) {
	var out Steps
	if err := json.Unmarshal([]byte(`[{"type":"message","id":"s1","text":"hi"}]`), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg, ok := out[0].(MessageStep)
	if !ok {
		t.Fatalf("decoded %T, want MessageStep", out[0])
	}
	if msg.Target != nil {
		t.Error("target should stay nil")
	}
	if msg.Text != "hi" {
		t.Errorf("text = %q", msg.Text)
	}
}

func TestDefinition_RoundTrip(t *testing.T) {
	in := Definition{
		ID:          "flow-abc123",
		Name:        "First vault",
		Description: "Create and configure a vault",
		Author:      "docs team",
		Version:     1,
		Steps:       sampleSteps(),
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Definition
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in.Steps, out.Steps) {
		t.Error("steps changed over the round trip")
	}
	if out.ID != in.ID || out.Name != in.Name || out.Version != in.Version {
		t.Errorf("metadata changed: %+v", out)
	}
}

func TestDefinition_StepIndex(t *testing.T) {
	d := Definition{Steps: sampleSteps()}
	if got := d.StepIndex("s3"); got != 2 {
		t.Errorf("StepIndex(s3) = %d, want 2", got)
	}
	if got := d.StepIndex("missing"); got != -1 {
		t.Errorf("StepIndex(missing) = %d, want -1", got)
	}
}

func TestWaitStep_Duration(t *testing.T) {
	s := WaitStep{DurationMs: 1500}
	if got := s.Duration().Milliseconds(); got != 1500 {
		t.Errorf("Duration = %dms", got)
	}
}

func TestStepKinds(t *testing.T) {
	tests := []struct {
		step Step
		want StepType
	}{
		{ClickStep{}, StepClick},
		{InputStep{}, StepInput},
		{SelectStep{}, StepSelect},
		{WaitStep{}, StepWait},
		{MessageStep{}, StepMessage},
	}
	for _, tt := range tests {
		if got := tt.step.Kind(); got != tt.want {
			t.Errorf("%T.Kind() = %q, want %q", tt.step, got, tt.want)
		}
	}
}
