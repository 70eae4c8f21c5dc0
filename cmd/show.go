package cmd

import (
	"errors"
	"fmt"

	"github.com/mj1618/guide-cli/internal/output"
	"github.com/mj1618/guide-cli/internal/store"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <flow-id>",
	Short: "Print a flow definition",
	Long:  "Print the full flow definition, including each step's locator strategies, in the selected output format.",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	def, err := st.Load(args[0])
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no flow with id %q (run `guide-cli list`)", args[0])
	}
	if err != nil {
		return err
	}
	plain, err := asPlain(def)
	if err != nil {
		return err
	}
	return output.Print(plain)
}
