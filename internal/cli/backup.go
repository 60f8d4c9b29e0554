package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func backupCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage the local fallback copy of the ticket list",
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the fallback ticket list to service-tickets-YYYY-MM-DD.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			deps, err := rt.desk(cmd.Context())
			if err != nil {
				return err
			}
			if dir == "" {
				dir = deps.Config.Fallback.ExportDir
			}
			path, err := deps.Backup.ExportToDir(cmd.Context(), dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported to %s\n", path)
			return nil
		},
	}
	exportCmd.Flags().String("dir", "", "target directory (default FALLBACK_EXPORT_DIR)")

	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the fallback ticket list with an exported file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}
			defer f.Close()

			deps, err := rt.desk(cmd.Context())
			if err != nil {
				return err
			}
			count, err := deps.Backup.Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d tickets\n", count)
			return nil
		},
	}

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Copy every stored ticket into the fallback store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := rt.desk(cmd.Context())
			if err != nil {
				return err
			}
			count, err := deps.Backup.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved %d tickets to the fallback store\n", count)
			return nil
		},
	}

	cmd.AddCommand(exportCmd, importCmd, snapshotCmd)
	return cmd
}
