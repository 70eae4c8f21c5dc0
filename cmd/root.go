package cmd

import (
	"fmt"
	"os"

	"github.com/mj1618/guide-cli/internal/output"
	"github.com/mj1618/guide-cli/internal/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "guide-cli",
	Short: "Record and replay guided UI walkthroughs",
	Long:  "A CLI tool that records sequences of interface interactions as portable flow definitions and replays them as guided, step-by-step walkthroughs over a live application surface.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate)
	rootCmd.PersistentFlags().String("format", "", "Output format: yaml, json")
	rootCmd.PersistentFlags().Bool("pretty", false, "Pretty-print JSON output")
	rootCmd.PersistentFlags().String("flows-dir", "", "Directory holding flow files (default: $GUIDE_CLI_FLOWS_DIR or ~/.guide-cli/flows)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging on stderr")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logrus.SetOutput(os.Stderr)
		if debug, _ := rootCmd.PersistentFlags().GetBool("debug"); debug {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.WarnLevel)
		}

		format, _ := rootCmd.PersistentFlags().GetString("format")

		// Smart default: piped output (agent context) gets JSON, a
		// terminal gets YAML.
		if format == "" {
			if output.IsOutputPiped() {
				format = "json"
			} else {
				format = "yaml"
			}
		}

		switch format {
		case "yaml":
			output.OutputFormat = output.FormatYAML
		case "json":
			output.OutputFormat = output.FormatJSON
		default:
			return fmt.Errorf("unsupported format: %s (use yaml or json)", format)
		}

		if pretty, _ := rootCmd.PersistentFlags().GetBool("pretty"); pretty {
			output.PrettyOutput = true
		}
		return nil
	}
}
