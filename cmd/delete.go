package cmd

import (
	"errors"
	"fmt"

	"github.com/mj1618/guide-cli/internal/output"
	"github.com/mj1618/guide-cli/internal/store"
	"github.com/spf13/cobra"
)

// DeleteResult is the output of the delete command.
type DeleteResult struct {
	OK bool   `yaml:"ok"  json:"ok"`
	ID string `yaml:"id"  json:"id"`
}

var deleteCmd = &cobra.Command{
	Use:   "delete <flow-id>",
	Short: "Delete a flow",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	if err := st.Delete(args[0]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no flow with id %q", args[0])
		}
		return err
	}
	return output.Print(DeleteResult{OK: true, ID: args[0]})
}
