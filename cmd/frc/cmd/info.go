package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/framerec/pkg/frc"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Summarize a recording",
	Long: `Print the size, version, frame counts, time span and digest of a recording.

Examples:
  frc info match.frc
  frc info match.frc --sources`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		showSources, _ := cmd.Flags().GetBool("sources")

		summary, err := frc.Info(args[0], container.Options())
		if err != nil {
			return fmt.Errorf("could not load recording: %w", err)
		}

		cmd.Printf("File:     %s\n", summary.Path)
		cmd.Printf("Size:     %d bytes\n", summary.Size)
		cmd.Printf("Version:  %d\n", summary.Version)
		cmd.Printf("Data:     %d frames\n", summary.DataFrames)
		cmd.Printf("Markers:  %d frames\n", summary.MarkerFrames)
		cmd.Printf("Sources:  %d\n", len(summary.SourceIDs))
		cmd.Printf("Span:     %d..%d (%d ms)\n", summary.First, summary.Last, summary.Length())
		cmd.Printf("BLAKE3:   %s\n", summary.Digest)

		if showSources {
			for _, id := range summary.SourceIDs {
				cmd.Printf("  %s\n", id)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().Bool("sources", false, "List every source ID")
}
