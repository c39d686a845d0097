package main

import (
	"fmt"

	"github.com/cuemby/pgbackrest-repo/pkg/coherence"
	"github.com/cuemby/pgbackrest-repo/pkg/repo"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "verify archive.info/backup.info agree and the on-disk backup directories match the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRepoFlags(); err != nil {
			return err
		}

		localRepo := newLocalRepo(flagRepoPath, flagStanza, cipherOptions())

		backupCatalog, err := localRepo.LoadBackupInfo()
		if err != nil {
			return fmt.Errorf("loading backup.info: %w", err)
		}
		archiveCatalog, err := localRepo.LoadArchiveInfo()
		if err != nil {
			return fmt.Errorf("loading archive.info: %w", err)
		}

		if err := coherence.PgHistory(archiveCatalog.History, backupCatalog.History); err != nil {
			return err
		}
		fmt.Println("✓ archive.info and backup.info history agree")

		onDisk, err := localRepo.listBackupLabelDirs()
		if err != nil {
			return fmt.Errorf("listing backup directories: %w", err)
		}

		report := repo.Verify(backupCatalog, onDisk)
		if len(report.OrphanedDirs) == 0 && len(report.MissingDirs) == 0 {
			fmt.Println("✓ on-disk backup directories match backup.info")
			return nil
		}

		for _, d := range report.OrphanedDirs {
			fmt.Printf("  ! orphaned directory not in backup.info: %s\n", d)
		}
		for _, l := range report.MissingDirs {
			fmt.Printf("  ! backup.info entry missing its directory: %s\n", l)
		}
		return nil
	},
}
