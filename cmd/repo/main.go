// Command repo is a thin cobra CLI over the repository-core library
// surface: it parses flags, builds a localRepo against a directory on
// disk, and hands off to pkg/expire, pkg/coherence, and pkg/repo. It is a
// demonstration shim, not a storage adapter or a pgbackrest reimplementation.
package main

import (
	"fmt"
	"os"

	"github.com/cuemby/pgbackrest-repo/pkg/ini"
	"github.com/cuemby/pgbackrest-repo/pkg/log"
	"github.com/spf13/cobra"
)

var (
	flagRepoPath string
	flagStanza   string
	flagCipher   string
	flagLogLevel string
	flagLogJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "repo",
	Short: "repo inspects and maintains a pgBackRest-style backup repository",
	Long: `repo is a small command-line front end over the repository core:
archive.info/backup.info catalogs, coherence checks, and the retention
expiration engine. It operates directly against a local repository root;
remote/object-store repositories are out of scope.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().StringVar(&flagRepoPath, "repo-path", "", "repository root directory (required)")
	rootCmd.PersistentFlags().StringVar(&flagStanza, "stanza", "", "stanza name (required)")
	rootCmd.PersistentFlags().StringVar(&flagCipher, "cipher-pass", "", "passphrase for an encrypted catalog, if any")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "emit logs as JSON")

	rootCmd.AddCommand(expireCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(stanzaCmd)
}

func initLogging() {
	log.Init(log.Config{
		Level:      log.Level(flagLogLevel),
		JSONOutput: flagLogJSON,
	})
}

func requireRepoFlags() error {
	if flagRepoPath == "" {
		return fmt.Errorf("--repo-path is required")
	}
	if flagStanza == "" {
		return fmt.Errorf("--stanza is required")
	}
	return nil
}

func cipherOptions() ini.CipherOptions {
	if flagCipher == "" {
		return ini.CipherOptions{}
	}
	return ini.CipherOptions{Cipher: "aes-256-cbc", Passphrase: []byte(flagCipher)}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
