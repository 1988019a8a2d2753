package cli

import (
	"crypto/x509"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cardpass/pass-issuer/internal/crypto"
	"github.com/cardpass/pass-issuer/internal/pass"
)

func newVerifyCmd() *cobra.Command {
	var rootsPath string

	cmd := &cobra.Command{
		Use:   "verify <file.pkpass>",
		Short: "Verify a pass archive",
		Long: `Check that every archive member matches its manifest digest and that the signature
over the manifest is valid.

With --roots the signer certificate chain must also lead to one of the given root certificates.

Example:
  passkit verify --roots ./keys/dev-root.pem serial.pkpass`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read archive: %w", err)
			}

			var roots *x509.CertPool
			if rootsPath != "" {
				roots, err = crypto.LoadCustomRootCAs(rootsPath)
				if err != nil {
					return fmt.Errorf("failed to load roots: %w", err)
				}
			}

			contents, err := pass.VerifyArchive(data, roots)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ %s: %d members match the manifest, signature valid\n", args[0], len(contents.Manifest))

			certs, err := crypto.SignatureCertificates(contents.Signature)
			if err == nil && len(certs) > 0 {
				fmt.Fprintf(out, "  signed by %q (expires %s)\n",
					certs[0].Subject.CommonName, certs[0].NotAfter.UTC().Format("2006-01-02"))
			}
			if roots == nil {
				fmt.Fprintln(out, "  certificate chain not checked (no --roots)")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&rootsPath, "roots", "", "PEM file of trusted root certificates")
	return cmd
}
