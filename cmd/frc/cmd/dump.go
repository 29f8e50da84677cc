package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/framerec/pkg/adapter"
	"github.com/ssargent/framerec/pkg/export"
	"github.com/ssargent/framerec/pkg/frc"
	"github.com/ssargent/framerec/pkg/recording"
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print every frame of a recording",
	Long: `Print one line per frame: byte offset, kind, timestamp and contents.

Frames before a corrupt or truncated frame are still printed.

Examples:
  frc dump match.frc
  frc dump match.frc | grep marker`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		buf, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("could not load recording: %w", err)
		}

		opts := container.Options()
		opts.Adapters.SetCurrentFile(args[0], adapter.FileRead)
		defer func() {
			err = errors.Join(err, opts.Adapters.CleanUpAll())
		}()

		if err := dumpFrames(cmd.OutOrStdout(), buf, opts); err != nil {
			return fmt.Errorf("could not load recording: %w", err)
		}
		return nil
	},
}

func dumpFrames(w io.Writer, buf []byte, opts frc.Options) error {
	dec, err := frc.NewDecoder(buf, opts)
	if err != nil {
		return err
	}

	offset := dec.Offset()
	for dec.Next() {
		switch e := dec.Entry().(type) {
		case recording.TimestampedData:
			fmt.Fprintf(w, "%8d  %-6s %8d  %s %s = %s\n",
				offset, dec.Tag(), e.Timestamp, e.SourceID, e.Type, export.FormatValue(e.Value))
		case recording.Marker:
			fmt.Fprintf(w, "%8d  %-6s %8d  %s [%s] %s\n",
				offset, dec.Tag(), e.Timestamp, e.Name, e.Importance, e.Description)
		}
		offset = dec.Offset()
	}
	return dec.Err()
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
