package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mj1618/guide-cli/internal/bridge"
	"github.com/mj1618/guide-cli/internal/flow"
	"github.com/mj1618/guide-cli/internal/output"
	"github.com/mj1618/guide-cli/internal/recorder"
	"github.com/mj1618/guide-cli/internal/surface"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RecordResult is the output of the record command.
type RecordResult struct {
	OK    bool   `yaml:"ok"     json:"ok"`
	ID    string `yaml:"id"     json:"id"`
	Name  string `yaml:"name"   json:"name"`
	Steps int    `yaml:"steps"  json:"steps"`
}

// logEntry is one line of an offline event log. Interaction kinds mirror
// surface events; wait and message entries author steps directly.
type logEntry struct {
	Kind         string `json:"kind"`
	Selector     string `json:"selector,omitempty"`
	SelectedText string `json:"selectedText,omitempty"`
	DurationMs   int    `json:"durationMs,omitempty"`
	Text         string `json:"text,omitempty"`
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a new flow from interaction events",
	Long: `Record a flow either live (a page client connects over the WebSocket
bridge and streams interactions) or offline (replay a JSON-lines event log
against a DOM snapshot).

Live:
  guide-cli record --name "Setup walkthrough" --listen :8765

Offline:
  guide-cli record --name "Setup walkthrough" --dom page.html --events events.jsonl`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().String("name", "", "Flow name (required)")
	recordCmd.Flags().String("description", "", "Flow description")
	recordCmd.Flags().String("author", "", "Flow author")
	recordCmd.Flags().String("listen", "", "Listen address for the live bridge (e.g. :8765)")
	recordCmd.Flags().String("dom", "", "HTML snapshot file for offline recording")
	recordCmd.Flags().String("events", "", "JSON-lines event log for offline recording (- for stdin)")
}

func runRecord(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		return fmt.Errorf("--name is required")
	}
	listen, _ := cmd.Flags().GetString("listen")
	domPath, _ := cmd.Flags().GetString("dom")
	eventsPath, _ := cmd.Flags().GetString("events")

	st, err := openStore(cmd)
	if err != nil {
		return err
	}

	desc, _ := cmd.Flags().GetString("description")
	author, _ := cmd.Flags().GetString("author")
	def := &flow.Definition{
		ID:          st.GenerateID("flow"),
		Name:        name,
		Description: desc,
		Author:      author,
	}
	rec := recorder.New(def, st.GenerateID, logrus.StandardLogger())

	switch {
	case listen != "":
		if err := recordLive(rec, listen); err != nil {
			return err
		}
	case domPath != "" && eventsPath != "":
		if err := recordOffline(rec, domPath, eventsPath); err != nil {
			return err
		}
	default:
		return fmt.Errorf("specify either --listen, or both --dom and --events")
	}

	if len(def.Steps) == 0 {
		return fmt.Errorf("no steps recorded")
	}
	if err := st.Save(def); err != nil {
		return fmt.Errorf("save flow: %w", err)
	}
	return output.Print(RecordResult{OK: true, ID: def.ID, Name: def.Name, Steps: len(def.Steps)})
}

// recordLive consumes bridge events until the client exits or the user
// interrupts.
func recordLive(rec *recorder.Recorder, listen string) error {
	br := bridge.New(logrus.StandardLogger())
	if err := br.Start(listen); err != nil {
		return err
	}
	defer br.Close()

	fmt.Fprintf(os.Stderr, "recording on %s, interact with the page, Ctrl-C to finish\n", br.Addr())
	if err := br.WaitReady(5 * time.Minute); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-sigCh:
			return nil
		case ev, ok := <-br.Events():
			if !ok {
				return nil
			}
			if ev.Kind == surface.EventEscape {
				return nil
			}
			rec.HandleEvent(ev)
		}
	}
}

// recordOffline replays a JSON-lines event log against a DOM snapshot.
func recordOffline(rec *recorder.Recorder, domPath, eventsPath string) error {
	src, err := readInput(domPath)
	if err != nil {
		return fmt.Errorf("read DOM snapshot: %w", err)
	}
	snap, err := surface.NewSnapshot(bytes.NewReader(src))
	if err != nil {
		return fmt.Errorf("parse DOM snapshot: %w", err)
	}

	log, err := readInput(eventsPath)
	if err != nil {
		return fmt.Errorf("read event log: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(log))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry logEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return fmt.Errorf("event log line %d: %w", lineNo, err)
		}

		switch entry.Kind {
		case "wait":
			rec.AddWait(entry.DurationMs)
		case "message":
			rec.AddMessage(entry.Text)
		case "click", "input", "selection-change":
			target := snap.Find(entry.Selector)
			if target == nil {
				return fmt.Errorf("event log line %d: selector %q matches nothing in the snapshot", lineNo, entry.Selector)
			}
			rec.HandleEvent(surface.Event{
				Kind:         surface.EventKind(entry.Kind),
				Target:       target,
				SelectedText: entry.SelectedText,
			})
		default:
			return fmt.Errorf("event log line %d: unknown kind %q", lineNo, entry.Kind)
		}
	}
	return scanner.Err()
}
