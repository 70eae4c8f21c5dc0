package output

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type sampleResult struct {
	OK    bool   `yaml:"ok"    json:"ok"`
	Flow  string `yaml:"flow"  json:"flow"`
	Steps int    `yaml:"steps" json:"steps"`
	Error string `yaml:"error,omitempty" json:"error,omitempty"`
}

// capture runs fn with stdout redirected and returns what it wrote.
func capture(t *testing.T, fn func() error) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w

	ferr := fn()
	w.Close()
	os.Stdout = old

	if ferr != nil {
		t.Fatal(ferr)
	}
	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}

func TestPrintYAML(t *testing.T) {
	out := capture(t, func() error {
		return PrintYAML(sampleResult{OK: true, Flow: "flow-abc", Steps: 4})
	})

	if strings.Count(out, "\n") <= 1 {
		t.Errorf("YAML output should be multi-line, got:\n%s", out)
	}
	var decoded sampleResult
	if err := yaml.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if decoded.Flow != "flow-abc" || decoded.Steps != 4 {
		t.Errorf("decoded = %+v", decoded)
	}
	if strings.Contains(out, "error") {
		t.Errorf("empty error field should be omitted:\n%s", out)
	}
}

func TestPrintJSON(t *testing.T) {
	out := capture(t, func() error {
		return PrintJSON(sampleResult{OK: true, Flow: "flow-abc", Steps: 4}, false)
	})

	if strings.Count(strings.TrimSpace(out), "\n") != 0 {
		t.Errorf("compact JSON should be single-line, got:\n%s", out)
	}
	var decoded sampleResult
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if !decoded.OK || decoded.Flow != "flow-abc" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestPrintJSON_Pretty(t *testing.T) {
	out := capture(t, func() error {
		return PrintJSON(sampleResult{OK: true, Flow: "flow-abc"}, true)
	})
	if strings.Count(out, "\n") <= 1 {
		t.Errorf("pretty JSON should be indented, got:\n%s", out)
	}
}

func TestPrint_FormatSwitch(t *testing.T) {
	orig := OutputFormat
	defer func() { OutputFormat = orig }()

	OutputFormat = FormatJSON
	out := capture(t, func() error {
		return Print(sampleResult{OK: true})
	})
	if !strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("expected JSON, got:\n%s", out)
	}

	OutputFormat = FormatYAML
	out = capture(t, func() error {
		return Print(sampleResult{OK: true})
	})
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("expected YAML, got:\n%s", out)
	}

	OutputFormat = Format("xml")
	if err := Print(sampleResult{}); err == nil {
		t.Error("unknown format should error")
	}
}
