package cmd

import (
	"time"

	"github.com/mj1618/guide-cli/internal/output"
	"github.com/spf13/cobra"
)

// listFlowInfo is a compact flow representation for list results.
type listFlowInfo struct {
	ID        string `yaml:"id"                  json:"id"`
	Name      string `yaml:"name"                json:"name"`
	Steps     int    `yaml:"steps"               json:"steps"`
	UpdatedAt string `yaml:"updated_at"          json:"updated_at"`
}

// ListResult is the top-level output of the list command.
type ListResult struct {
	OK    bool           `yaml:"ok"     json:"ok"`
	Total int            `yaml:"total"  json:"total"`
	Flows []listFlowInfo `yaml:"flows"  json:"flows"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded flows",
	Long:  "List all flow definitions in the flow store with their step counts.",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defs, err := st.List()
	if err != nil {
		return err
	}

	infos := make([]listFlowInfo, 0, len(defs))
	for _, d := range defs {
		infos = append(infos, listFlowInfo{
			ID:        d.ID,
			Name:      d.Name,
			Steps:     len(d.Steps),
			UpdatedAt: d.UpdatedAt.Format(time.RFC3339),
		})
	}
	return output.Print(ListResult{OK: true, Total: len(infos), Flows: infos})
}
