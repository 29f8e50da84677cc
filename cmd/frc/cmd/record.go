package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssargent/framerec/pkg/recorder"
	"github.com/ssargent/framerec/pkg/recording"
)

// recordCmd represents the record command
var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record values read from stdin",
	Long: `Start a recording session and capture one entry per input line until EOF.

Each line is either a value or a marker:

  <source> <value>                       a number, true/false, or a string
  !<name> [importance] [description]     an event marker

The session is saved periodically and once more when input ends.

Examples:
  printf '/speed 1.5\n!Enabled HIGH\n/speed 2\n' | frc record
  robot-feed | frc record --dir ./logs --name 'match-${id}'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := container.Config()
		if cmd.Flags().Changed("dir") {
			cfg.Recorder.Dir, _ = cmd.Flags().GetString("dir")
		}
		if cmd.Flags().Changed("name") {
			cfg.Recorder.FileNameFormat, _ = cmd.Flags().GetString("name")
		}
		if cmd.Flags().Changed("interval") {
			cfg.Recorder.SaveInterval, _ = cmd.Flags().GetDuration("interval")
		}

		r := container.NewRecorder()
		r.Start()

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, cancel := context.WithCancel(parent)
		done := make(chan error, 1)
		go func() { done <- r.Run(ctx) }()

		readErr := feed(r, cmd.InOrStdin())
		cancel()
		if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
			readErr = errors.Join(readErr, err)
		}
		r.Stop()

		saves, failures := r.Stats()
		cmd.Printf("Recorded to %s (%d saves, %d failed, %d samples dropped)\n", r.File(), saves, failures, r.Dropped())
		if failures > 0 {
			readErr = errors.Join(readErr, fmt.Errorf("%d saves failed", failures))
		}
		return readErr
	},
}

// feed records every line of in
func feed(r *recorder.Recorder, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := recordLine(r, text); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return scanner.Err()
}

func recordLine(r *recorder.Recorder, text string) error {
	if name, ok := strings.CutPrefix(text, "!"); ok {
		m, err := parseMarker(name)
		if err != nil {
			return err
		}
		r.AddMarker(m.Name, m.Description, m.Importance)
		return nil
	}

	source, raw, ok := strings.Cut(text, " ")
	if !ok {
		return fmt.Errorf("expected \"<source> <value>\", got %q", text)
	}
	r.RecordValue(source, parseValue(strings.TrimSpace(raw)))
	return nil
}

// parseMarker parses "name [importance] [description]". A second word that
// is not an importance starts the description.
func parseMarker(text string) (recording.Marker, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return recording.Marker{}, errors.New("marker needs a name")
	}
	m := recording.Marker{Name: fields[0], Importance: recording.Normal}
	rest := fields[1:]
	if len(rest) > 0 {
		if importance, err := recording.ParseImportance(rest[0]); err == nil {
			m.Importance = importance
			rest = rest[1:]
		}
	}
	m.Description = strings.Join(rest, " ")
	return m, nil
}

func parseValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil && (raw == "true" || raw == "false") {
		return b
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().String("dir", "", "Directory for the recording (default: <data-dir>/recordings)")
	recordCmd.Flags().String("name", "", "File name format, ${time} and ${id} are expanded")
	recordCmd.Flags().Duration("interval", 0, "Save interval")
}
