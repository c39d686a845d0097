package main

import (
	"fmt"

	"github.com/cuemby/pgbackrest-repo/pkg/repo"
	"github.com/spf13/cobra"
)

var (
	identityPgVersion      string
	identitySystemID       uint64
	identityCatalogVersion int
	identityControlVersion int
	deletePgRunning        bool
)

var stanzaCmd = &cobra.Command{
	Use:   "stanza",
	Short: "create, delete, or upgrade a stanza's catalogs",
}

var stanzaCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "initialize archive.info and backup.info for a new stanza",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRepoFlags(); err != nil {
			return err
		}
		localRepo := newLocalRepo(flagRepoPath, flagStanza, cipherOptions())
		identity := repo.Identity{
			PgVersion:      identityPgVersion,
			SystemID:       identitySystemID,
			CatalogVersion: identityCatalogVersion,
			ControlVersion: identityControlVersion,
		}
		if err := repo.CreateStanza(localRepo, localRepo.backupDir(), localRepo.archiveDir(), identity); err != nil {
			return err
		}
		fmt.Printf("✓ stanza %s created\n", flagStanza)
		return nil
	},
}

var stanzaDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "remove a stanza's backup and archive directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRepoFlags(); err != nil {
			return err
		}
		localRepo := newLocalRepo(flagRepoPath, flagStanza, cipherOptions())
		if err := repo.DeleteStanza(localRepo, localRepo.backupDir(), localRepo.archiveDir(), deletePgRunning); err != nil {
			return err
		}
		fmt.Printf("✓ stanza %s deleted\n", flagStanza)
		return nil
	},
}

var stanzaUpgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "record a new cluster identity for an existing stanza",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRepoFlags(); err != nil {
			return err
		}
		localRepo := newLocalRepo(flagRepoPath, flagStanza, cipherOptions())
		identity := repo.Identity{
			PgVersion:      identityPgVersion,
			SystemID:       identitySystemID,
			CatalogVersion: identityCatalogVersion,
			ControlVersion: identityControlVersion,
		}
		if err := repo.UpgradeStanza(localRepo, identity); err != nil {
			return err
		}
		fmt.Printf("✓ stanza %s upgraded\n", flagStanza)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{stanzaCreateCmd, stanzaUpgradeCmd} {
		c.Flags().StringVar(&identityPgVersion, "pg-version", "", "PostgreSQL version string, e.g. \"15\"")
		c.Flags().Uint64Var(&identitySystemID, "system-id", 0, "cluster system identifier")
		c.Flags().IntVar(&identityCatalogVersion, "catalog-version", 0, "pg_control catalog version")
		c.Flags().IntVar(&identityControlVersion, "control-version", 0, "pg_control control version")
	}
	stanzaDeleteCmd.Flags().BoolVar(&deletePgRunning, "pg-running", false, "the cluster is currently running (delete will be refused)")

	stanzaCmd.AddCommand(stanzaCreateCmd)
	stanzaCmd.AddCommand(stanzaDeleteCmd)
	stanzaCmd.AddCommand(stanzaUpgradeCmd)
}
