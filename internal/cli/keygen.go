package cli

import (
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cardpass/pass-issuer/internal/crypto"
)

// file names written by keygen
const (
	rootCertFile = "dev-root.pem"
	rootKeyFile  = "dev-root.key"
	keystoreFile = "pass.p12"
)

func newKeygenCmd() *cobra.Command {
	var (
		outputDir          string
		passTypeIdentifier string
		teamIdentifier     string
		passphrase         string
		keySize            int
		validity           time.Duration
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a development signing keystore",
		Long: `Generate a development root CA and a pass type certificate issued by it, and write the
signing identity as a PKCS#12 keystore for the server (KEYSTORE_PATH).

Passes signed with a development identity verify with "passkit verify --roots dev-root.pem"
but are rejected by devices. Use the certificate issued by the wallet platform in production.

Example:
  passkit keygen --output-dir ./keys --pass-type-id pass.com.example.card --team-id ABCDE12345 --passphrase secret`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keySize != 2048 && keySize != 3072 && keySize != 4096 {
				return fmt.Errorf("invalid RSA key size: %d (must be 2048, 3072 or 4096)", keySize)
			}
			if passphrase == "" {
				return fmt.Errorf("passphrase must not be empty")
			}

			// make the directory if it doesn't exist
			if err := os.MkdirAll(outputDir, 0o750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Generating %d-bit development identity for %s\n", keySize, passTypeIdentifier)

			rootKey, err := crypto.GenerateRSAKeyPair(keySize)
			if err != nil {
				return fmt.Errorf("failed to generate root key: %w", err)
			}
			ca, err := crypto.NewCertificateAuthority("pass-issuer development root", rootKey, validity+24*time.Hour)
			if err != nil {
				return err
			}

			signingKey, err := crypto.GenerateRSAKeyPair(keySize)
			if err != nil {
				return fmt.Errorf("failed to generate signing key: %w", err)
			}
			notBefore := time.Now().Add(-time.Hour)
			leaf, err := ca.IssuePassTypeCertificate(crypto.PassTypeCertificateRequest{
				PassTypeIdentifier: passTypeIdentifier,
				TeamIdentifier:     teamIdentifier,
				PublicKey:          signingKey.Public(),
				NotBefore:          notBefore,
				NotAfter:           notBefore.Add(validity),
			})
			if err != nil {
				return err
			}

			blob, err := crypto.EncodeKeystore(signingKey, leaf, []*x509.Certificate{ca.Certificate}, passphrase)
			if err != nil {
				return err
			}

			if err := crypto.SaveKeystoreFile(blob, outputDir, keystoreFile); err != nil {
				return fmt.Errorf("failed to save keystore: %w", err)
			}
			fmt.Fprintf(out, "✓ Keystore:  %s/%s\n", outputDir, keystoreFile)

			if err := crypto.SaveCertificatesToPEMFile([]*x509.Certificate{ca.Certificate}, outputDir, rootCertFile); err != nil {
				return fmt.Errorf("failed to save root certificate: %w", err)
			}
			fmt.Fprintf(out, "✓ Root cert: %s/%s\n", outputDir, rootCertFile)

			if err := crypto.SaveRSAPrivateKeyToPEMFile(rootKey, outputDir, rootKeyFile); err != nil {
				return fmt.Errorf("failed to save root key: %w", err)
			}
			fmt.Fprintf(out, "✓ Root key:  %s/%s\n", outputDir, rootKeyFile)

			fmt.Fprintf(out, "\nThe certificate expires %s. Keep the keystore passphrase out of source control.\n",
				leaf.NotAfter.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Output directory for generated files [required]")
	cmd.Flags().StringVar(&passTypeIdentifier, "pass-type-id", "", "Pass type identifier, e.g. pass.com.example.card [required]")
	cmd.Flags().StringVar(&teamIdentifier, "team-id", "", "Team identifier")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "Keystore passphrase [required]")
	cmd.Flags().IntVarP(&keySize, "size", "s", 2048, "RSA key size in bits")
	cmd.Flags().DurationVar(&validity, "validity", 365*24*time.Hour, "Certificate validity")
	_ = cmd.MarkFlagRequired("output-dir")
	_ = cmd.MarkFlagRequired("pass-type-id")
	_ = cmd.MarkFlagRequired("passphrase")

	return cmd
}
