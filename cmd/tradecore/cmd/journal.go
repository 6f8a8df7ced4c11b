package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradecore/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect a SQLite journal",
	Long: `Dump journal entries of one kind in time order, one line each.

Kinds: signal, veto, submit, fill, reject, cancel, close, reconcile, error

Example:
  tradecore journal -d journal.db -k fill`,
	RunE: runJournal,
}

var (
	journalDBPath string
	journalKind   string
)

func init() {
	rootCmd.AddCommand(journalCmd)

	journalCmd.Flags().StringVarP(&journalDBPath, "db", "d", "./journal.db", "path to SQLite journal")
	journalCmd.Flags().StringVarP(&journalKind, "kind", "k", "fill", "entry kind to dump")
}

func runJournal(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	entries, err := j.ByKind(journal.Kind(journalKind))
	if err != nil {
		return fmt.Errorf("query journal: %w", err)
	}
	if len(entries) == 0 {
		fmt.Printf("no %q entries in %s\n", journalKind, journalDBPath)
		return nil
	}
	for _, e := range entries {
		fmt.Println(e.Encode())
	}
	return nil
}
