// Package cli implements passkit, the operator CLI for the pass issuer.
//
// passkit generates development signing identities, computes API key hashes for the server
// configuration, and verifies or inspects pass archives.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cardpass/pass-issuer/internal/version"
)

// NewRootCommand returns the passkit command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "passkit",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		Short:             "Wallet pass issuer operator CLI",
		Long:              `passkit manages signing identities and checks pass archives produced by the pass server`,
		SilenceUsage:      true,
	}

	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	rootCmd.AddCommand(newKeygenCmd())
	rootCmd.AddCommand(newHashKeyCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newInspectCmd())

	return rootCmd
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
