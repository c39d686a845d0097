package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "print the cluster identity history and current backups for a stanza",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRepoFlags(); err != nil {
			return err
		}

		repo := newLocalRepo(flagRepoPath, flagStanza, cipherOptions())

		backupCatalog, err := repo.LoadBackupInfo()
		if err != nil {
			return fmt.Errorf("loading backup.info: %w", err)
		}

		fmt.Printf("stanza: %s\n", flagStanza)
		fmt.Println("db history:")
		for _, e := range backupCatalog.History.Entries() {
			fmt.Printf("  %d: pg version %s, system-id %d, catalog %d, control %d\n",
				e.HistoryID, e.PgVersionStr, e.SystemID, e.CatalogVersion, e.ControlVersion)
		}

		records := backupCatalog.Current()
		fmt.Printf("backups: %d\n", len(records))
		for _, r := range records {
			stopped := "in progress"
			if r.TimestampStop != 0 {
				stopped = time.Unix(r.TimestampStop, 0).UTC().Format(time.RFC3339)
			}
			fmt.Printf("  %-40s %-5s history=%d stop=%s\n", r.Label, r.Type, r.HistoryID, stopped)
		}

		return nil
	},
}
