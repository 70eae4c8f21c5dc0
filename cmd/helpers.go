package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mj1618/guide-cli/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// flowsDir resolves the flow storage directory: flag, then environment, then
// the per-user default.
func flowsDir(cmd *cobra.Command) (string, error) {
	if dir, _ := cmd.Flags().GetString("flows-dir"); dir != "" {
		return dir, nil
	}
	if dir := os.Getenv("GUIDE_CLI_FLOWS_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".guide-cli", "flows"), nil
}

// openStore opens the flow store for a command.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	dir, err := flowsDir(cmd)
	if err != nil {
		return nil, err
	}
	return store.New(dir, logrus.StandardLogger())
}

// readInput reads a file path, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// asPlain round-trips v through JSON into generic maps/slices so that a
// value with custom JSON marshaling (like the tagged step union) prints the
// same shape in every output format.
func asPlain(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var plain interface{}
	if err := json.Unmarshal(data, &plain); err != nil {
		return nil, err
	}
	return plain, nil
}

// StringParam extracts a string parameter from an MCP arguments map.
func StringParam(params map[string]interface{}, key, def string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return def
}

// IntParam extracts an integer parameter from an MCP arguments map. MCP
// delivers numbers as float64.
func IntParam(params map[string]interface{}, key string, def int) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// BoolParam extracts a boolean parameter from an MCP arguments map.
func BoolParam(params map[string]interface{}, key string, def bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return def
}
