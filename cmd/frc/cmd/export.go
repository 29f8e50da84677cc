package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssargent/framerec/pkg/export"
	"github.com/ssargent/framerec/pkg/frc"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export a recording to CSV",
	Long: `Export a recording to CSV with one row per time window.

Defaults come from the export section of the config file; flags override them.
Without -o the CSV is written next to the recording. Use -o - for stdout.

Examples:
  frc export match.frc
  frc export match.frc -o - --window 20 --sort
  frc export match.frc -o match.csv --quote --metadata`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := exportSettings(cmd)
		if err != nil {
			return err
		}

		rec, err := frc.Load(args[0], container.Options())
		if err != nil {
			return fmt.Errorf("could not load recording: %w", err)
		}

		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			out = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + export.Ext
		}
		if out == "-" {
			if err := export.WriteCSV(cmd.OutOrStdout(), rec, settings); err != nil {
				return fmt.Errorf("could not export recording: %w", err)
			}
			return nil
		}

		if err := export.WriteFile(out, rec, settings); err != nil {
			return fmt.Errorf("could not export recording: %w", err)
		}
		cmd.Printf("Exported %s to %s\n", args[0], out)
		return nil
	},
}

func exportSettings(cmd *cobra.Command) (export.Settings, error) {
	settings := container.Config().Export.Settings(container.Logger())
	flags := cmd.Flags()

	if flags.Changed("window") {
		settings.Window, _ = flags.GetInt64("window")
	}
	if flags.Changed("quote") {
		settings.Quote, _ = flags.GetBool("quote")
	}
	if flags.Changed("metadata") {
		settings.ConvertMetadata, _ = flags.GetBool("metadata")
	}
	if flags.Changed("sort") {
		settings.SortColumns, _ = flags.GetBool("sort")
	}
	if flags.Changed("no-fill") {
		settings.NoFillForward, _ = flags.GetBool("no-fill")
	}
	if settings.Window < 0 {
		return settings, fmt.Errorf("%w: %d", export.ErrNegativeWindow, settings.Window)
	}
	return settings, nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("output", "o", "", "Output file, - for stdout")
	exportCmd.Flags().Int64("window", 0, "Group entries within this many ms of a row's first entry")
	exportCmd.Flags().Bool("quote", false, "Quote fields as RFC 4180 CSV")
	exportCmd.Flags().Bool("metadata", false, "Keep metadata sources as columns")
	exportCmd.Flags().Bool("sort", false, "Sort source columns naturally")
	exportCmd.Flags().Bool("no-fill", false, "Leave cells empty instead of repeating the last value")
}
