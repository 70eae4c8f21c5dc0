package cmd

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/mj1618/guide-cli/internal/flow"
	"github.com/mj1618/guide-cli/internal/locator"
	"github.com/mj1618/guide-cli/internal/output"
	"github.com/spf13/cobra"
)

// inspectRow reports match counts for one recorded structural selector.
type inspectRow struct {
	Step        int    `yaml:"step"                json:"step"`
	StepID      string `yaml:"step_id"             json:"step_id"`
	Selector    string `yaml:"selector"            json:"selector"`
	Matches     int    `yaml:"matches"             json:"matches"`
	Error       string `yaml:"error,omitempty"     json:"error,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// InspectResult is the top-level output of the inspect command.
type InspectResult struct {
	OK   bool         `yaml:"ok"     json:"ok"`
	Flow string       `yaml:"flow"   json:"flow"`
	Rows []inspectRow `yaml:"rows"   json:"rows"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <flow-id>",
	Short: "Check recorded structural selectors against a live DOM snapshot",
	Long: `For every click step in the flow, report how many elements its recorded
structural path selector matches in the given DOM snapshot (0, 1, or N).
Validates recordings without running full playback.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().String("dom", "-", "HTML snapshot file to probe (- for stdin)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	def, err := st.Load(args[0])
	if err != nil {
		return err
	}

	domPath, _ := cmd.Flags().GetString("dom")
	src, err := readInput(domPath)
	if err != nil {
		return fmt.Errorf("read DOM snapshot: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(src))
	if err != nil {
		return fmt.Errorf("parse DOM snapshot: %w", err)
	}

	return output.Print(inspectFlow(def, doc))
}

// inspectFlow builds the diagnostics report; shared with the MCP tool.
func inspectFlow(def *flow.Definition, doc *goquery.Document) InspectResult {
	var rows []inspectRow
	for i, step := range def.Steps {
		click, ok := step.(flow.ClickStep)
		if !ok || click.Target.Path == "" {
			continue
		}
		row := inspectRow{
			Step:        i + 1,
			StepID:      step.ID(),
			Selector:    click.Target.Path,
			Description: click.Target.Description,
		}
		count, err := locator.CountMatches(doc, click.Target.Path)
		if err != nil {
			row.Error = err.Error()
		} else {
			row.Matches = count
		}
		rows = append(rows, row)
	}
	return InspectResult{OK: true, Flow: def.ID, Rows: rows}
}
