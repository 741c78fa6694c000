package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
)

var dropForce bool

// dropCmd deletes the dataset database and its WAL side files.
var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete the dataset database",
	Long:  "Permanently delete the SQLite dataset database, including its -wal and -shm files. All stored matches, kills and ban records will be lost. Re-import afterwards to rebuild.",
	Args:  cobra.NoArgs,
	RunE:  runDrop,
}

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "skip confirmation prompt")
}

func runDrop(cmd *cobra.Command, args []string) error {
	files := dbFiles(dbPath)
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete: %s\n", dbPath)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}

	removed, err := removeFiles(files)
	if err != nil {
		return fmt.Errorf("remove database: %w", err)
	}
	if removed == 0 {
		fmt.Fprintln(os.Stdout, "Database does not exist, nothing to drop.")
		return nil
	}
	fmt.Fprintf(os.Stdout, "Deleted: %s\n", dbPath)
	return nil
}

// dbFiles lists the database file and the side files SQLite keeps in WAL mode.
func dbFiles(path string) []string {
	return []string{path, path + "-wal", path + "-shm"}
}

// removeFiles deletes the files that exist and reports how many it removed.
func removeFiles(paths []string) (int, error) {
	removed := 0
	for _, p := range paths {
		err := os.Remove(p)
		switch {
		case err == nil:
			removed++
		case errors.Is(err, fs.ErrNotExist):
		default:
			return removed, err
		}
	}
	return removed, nil
}
