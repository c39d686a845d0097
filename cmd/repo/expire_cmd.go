package main

import (
	"fmt"
	"os"
	"time"

	"github.com/cuemby/pgbackrest-repo/pkg/config"
	"github.com/cuemby/pgbackrest-repo/pkg/expire"
	"github.com/spf13/cobra"
)

var (
	expireConfigFile string
	expireLockDir    string
	expireDryRun     bool
	expireSet        string
)

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "run the retention expiration engine against a stanza",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRepoFlags(); err != nil {
			return err
		}

		var cfg *config.RetentionConfig
		if expireConfigFile != "" {
			data, err := os.ReadFile(expireConfigFile)
			if err != nil {
				return fmt.Errorf("reading retention policy: %w", err)
			}
			cfg, err = config.LoadRetentionConfig(data)
			if err != nil {
				return err
			}
		} else {
			cfg = &config.RetentionConfig{}
		}

		if expireDryRun {
			cfg.DryRun = true
		}
		if expireSet != "" {
			cfg.Set = expireSet
		}

		lockDir := expireLockDir
		if lockDir == "" {
			lockDir = flagRepoPath
		}

		repo := newLocalRepo(flagRepoPath, flagStanza, cipherOptions())
		result, err := expire.Run(cfg, lockDir, flagStanza, time.Now().Unix(), repo)
		if err != nil {
			return err
		}

		printExpireResult(result)
		return nil
	},
}

func init() {
	expireCmd.Flags().StringVar(&expireConfigFile, "config", "", "retention policy YAML file (kind: RetentionPolicy)")
	expireCmd.Flags().StringVar(&expireLockDir, "lock-dir", "", "directory for the stanza lock file (defaults to --repo-path)")
	expireCmd.Flags().BoolVar(&expireDryRun, "dry-run", false, "report what would be removed without removing anything")
	expireCmd.Flags().StringVar(&expireSet, "set", "", "expire one specific backup label (ad hoc expire)")
}

func printExpireResult(result expire.Result) {
	fmt.Printf("expire %s: stanza %s\n", result.OperationID, flagStanza)

	if len(result.ExpiredLabels) == 0 {
		fmt.Println("  no backups expired")
	}
	for _, l := range result.ExpiredLabels {
		fmt.Printf("  ✓ expired backup %s\n", l)
	}
	for _, l := range result.SkippedInProgress {
		fmt.Printf("  - skipped in-progress backup %s\n", l)
	}
	for archiveID, n := range result.RemovedSegments {
		fmt.Printf("  ✓ removed %d WAL segment(s) from archive id %s\n", n, archiveID)
	}
	for archiveID, n := range result.RemovedHistoryFiles {
		fmt.Printf("  ✓ removed %d history file(s) from archive id %s\n", n, archiveID)
	}
	for _, archiveID := range result.RemovedArchiveIDs {
		fmt.Printf("  ✓ removed empty archive id %s\n", archiveID)
	}
	for _, w := range result.Warnings {
		fmt.Printf("  ! %s\n", w)
	}
}
