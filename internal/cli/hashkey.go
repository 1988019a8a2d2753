package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cardpass/pass-issuer/internal/services"
)

func newHashKeyCmd() *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "hash-key <api-key>",
		Short: "Print the API_KEYS entry for an API key",
		Long: `The server stores only SHA-256 hashes of API keys. hash-key prints the entry to add to
API_KEYS (entries are separated by "|"). Use --tenant "*" for a key valid for every tenant.

Example:
  passkit hash-key --tenant acme 3f1c...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args[0]) < 16 {
				return fmt.Errorf("API keys must be at least 16 characters")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s:%s\n", tenantID, services.HashAPIKey(args[0]))
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", services.AnyTenant, "Tenant the key is valid for")
	return cmd
}
