package backup

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/weave/internal/backup"
	"github.com/Paintersrp/weave/internal/state"
)

// Runner is the backup surface the commands drive.
type Runner interface {
	Export(ctx context.Context, owner string) (backup.ExportResult, error)
	Import(ctx context.Context, owner, key string) (backup.ImportResult, error)
}

// open builds the runner from state. Tests replace it.
var open = func(ctx context.Context, s *state.State) (Runner, error) {
	return s.Backup(ctx)
}

func NewCmdBackup(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or restore notes through S3.",
		Long: heredoc.Doc(`
			Snapshots are JSON objects stored under backup.prefix/<owner>/ in
			backup.bucket. Every export also overwrites latest.json.
		`),
	}

	cmd.AddCommand(newCmdExport(s), newCmdImport(s))
	return cmd
}

func newCmdExport(s *state.State) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Upload a snapshot of every note.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := open(cmd.Context(), s)
			if err != nil {
				return err
			}
			res, err := r.Export(cmd.Context(), s.Config.Owner)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d notes to %s\n", res.Notes, res.Key)
			return nil
		},
	}
}

func newCmdImport(s *state.State) *cobra.Command {
	return &cobra.Command{
		Use:   "import [key]",
		Short: "Restore a snapshot and rebuild backlinks.",
		Long: heredoc.Doc(`
			Restores the snapshot at key, or the owner's latest snapshot. Notes
			whose id already exists are skipped. Backlinks are rebuilt from the
			restored content.
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 1 {
				key = args[0]
			}
			r, err := open(cmd.Context(), s)
			if err != nil {
				return err
			}
			res, err := r.Import(cmd.Context(), s.Config.Owner, key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d notes from %s (%d skipped)\n", res.Restored, res.Key, res.Skipped)
			return nil
		},
	}
}
