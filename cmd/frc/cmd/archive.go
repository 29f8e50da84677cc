package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ssargent/framerec/pkg/archive"
	"github.com/ssargent/framerec/pkg/frc"
)

// archiveCmd represents the archive command group
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage the local recording archive",
	Long: `Store, retrieve, list and delete recordings in the archive under
<data-dir>/archive. Stored recordings are compressed and checked against
their digest on retrieval.`,
}

var archivePutCmd = &cobra.Command{
	Use:   "put <file>",
	Short: "Store a recording in the archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			base := filepath.Base(args[0])
			name = strings.TrimSuffix(base, filepath.Ext(base))
		}

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("could not load recording: %w", err)
		}

		return withArchive(func(a *archive.Archive) error {
			entry, err := a.Put(name, raw)
			if err != nil {
				return fmt.Errorf("could not archive recording: %w", err)
			}
			cmd.Printf("Stored %s as %s\n", name, entry.ID)
			return nil
		})
	},
}

var archiveGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Retrieve a recording from the archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := archive.ParseID(args[0])
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			out = id.String() + frc.Ext
		}

		return withArchive(func(a *archive.Archive) error {
			raw, err := a.Get(id)
			if err != nil {
				return fmt.Errorf("could not retrieve recording: %w", err)
			}
			if err := os.WriteFile(out, raw, 0644); err != nil {
				return fmt.Errorf("could not write recording: %w", err)
			}
			cmd.Printf("Wrote %s (%d bytes)\n", out, len(raw))
			return nil
		})
	},
}

var archiveListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List archived recordings, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withArchive(func(a *archive.Archive) error {
			entries, err := a.List()
			if err != nil {
				return fmt.Errorf("could not list archive: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSTORED\tSIZE\tDATA\tMARKERS")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n",
					e.ID, e.Name, e.Stored.Local().Format(time.DateTime), e.Size, e.DataFrames, e.MarkerFrames)
			}
			return tw.Flush()
		})
	},
}

var archiveRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a recording from the archive",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := archive.ParseID(args[0])
		if err != nil {
			return err
		}
		return withArchive(func(a *archive.Archive) error {
			if err := a.Delete(id); err != nil {
				return fmt.Errorf("could not delete recording: %w", err)
			}
			cmd.Printf("Deleted %s\n", id)
			return nil
		})
	},
}

// withArchive opens the archive for the length of fn
func withArchive(fn func(*archive.Archive) error) (err error) {
	a, err := container.OpenArchive()
	if err != nil {
		return fmt.Errorf("could not open archive: %w", err)
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()
	return fn(a)
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archivePutCmd, archiveGetCmd, archiveListCmd, archiveRemoveCmd)

	archivePutCmd.Flags().String("name", "", "Name to store the recording under (default: file name)")
	archiveGetCmd.Flags().StringP("output", "o", "", "Output file (default: <id>.frc)")
}
