package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cardpass/pass-issuer/internal/crypto"
	"github.com/cardpass/pass-issuer/internal/pass"
)

func newInspectCmd() *cobra.Command {
	var (
		showDescriptor bool
		rootsPath      string
	)

	cmd := &cobra.Command{
		Use:   "inspect <file.pkpass>",
		Short: "Show the contents of a pass archive",
		Long: `List the archive members with their manifest digests, the certificates embedded in the
signature and, with --descriptor, the pass.json document.

With --roots the embedded certificate chain is checked against the given root certificates.
inspect does not verify the signature itself; use verify for that.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read archive: %w", err)
			}

			contents, err := pass.ReadArchive(data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MEMBER\tBYTES\tSHA-1\tDIGEST OK")
			for _, name := range contents.Members.Names() {
				member, _ := contents.Members.Bytes(name)
				digest := contents.Manifest[name]
				ok := crypto.VerifyChecksum(member, digest)
				fmt.Fprintf(tw, "%s\t%d\t%s\t%v\n", name, len(member), digest, ok)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			certs, err := crypto.SignatureCertificates(contents.Signature)
			if err != nil {
				fmt.Fprintf(out, "\nsignature: unreadable (%v)\n", err)
			} else {
				fmt.Fprintf(out, "\nsignature: %d bytes, %d certificates\n", len(contents.Signature), len(certs))
				for _, cert := range certs {
					fmt.Fprintf(out, "  %s (issuer %s, expires %s)\n",
						cert.Subject.CommonName, cert.Issuer.CommonName, cert.NotAfter.UTC().Format("2006-01-02"))
				}

				if rootsPath != "" {
					roots, err := crypto.LoadCustomRootCAs(rootsPath)
					if err != nil {
						return fmt.Errorf("failed to load roots: %w", err)
					}
					if err := crypto.ValidateCertificateChain(certs, roots); err != nil {
						fmt.Fprintf(out, "chain: invalid (%v)\n", err)
					} else {
						fmt.Fprintln(out, "chain: valid")
					}
				}
			}

			if showDescriptor {
				descriptor, _ := contents.Members.Bytes(pass.DescriptorMember)
				var pretty bytes.Buffer
				if err := json.Indent(&pretty, descriptor, "", "  "); err != nil {
					return fmt.Errorf("pass.json is not valid JSON: %w", err)
				}
				fmt.Fprintf(out, "\n%s\n", pretty.String())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showDescriptor, "descriptor", false, "Print pass.json")
	cmd.Flags().StringVar(&rootsPath, "roots", "", "PEM file of trusted root certificates")
	return cmd
}
