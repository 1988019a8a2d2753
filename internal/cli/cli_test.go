package cli

import (
	"bytes"
	"context"
	"crypto/x509"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cardpass/pass-issuer/internal/crypto"
	"github.com/cardpass/pass-issuer/internal/crypto/cryptotest"
	"github.com/cardpass/pass-issuer/internal/pass"
	"github.com/cardpass/pass-issuer/internal/services"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeTestPass signs a pass with a test identity and writes it and its root certificate to dir.
func writeTestPass(t *testing.T, dir string) (archivePath, rootsPath string, archive []byte) {
	t.Helper()

	tpl, err := pass.DefaultTemplate()
	if err != nil {
		t.Fatalf("DefaultTemplate() error: %v", err)
	}
	d, err := pass.BuildDescriptor(tpl, pass.CardProfile{
		TenantID:   "tenant-1",
		CardSerial: "abc123",
		Name:       "Jane Doe",
		Company:    "Acme",
	})
	if err != nil {
		t.Fatalf("BuildDescriptor() error: %v", err)
	}
	descriptor, err := d.Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	members := pass.NewMembers(map[string][]byte{
		pass.DescriptorMember: descriptor,
		"icon.png":            []byte("icon bytes"),
	})
	_, manifestJSON, err := pass.BuildManifest(members)
	if err != nil {
		t.Fatalf("BuildManifest() error: %v", err)
	}

	identity := cryptotest.NewIdentity(t)
	signer, err := pass.NewKeystoreSigner(identity.Keystore)
	if err != nil {
		t.Fatalf("NewKeystoreSigner() error: %v", err)
	}
	signature, err := signer.Sign(context.Background(), manifestJSON)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	a, err := pass.BuildArchive(members, manifestJSON, signature)
	if err != nil {
		t.Fatalf("BuildArchive() error: %v", err)
	}

	archivePath = filepath.Join(dir, a.Filename)
	if err := os.WriteFile(archivePath, a.Bytes, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := crypto.SaveCertificatesToPEMFile([]*x509.Certificate{identity.CA.Certificate}, dir, "roots.pem"); err != nil {
		t.Fatal(err)
	}
	return archivePath, filepath.Join(dir, "roots.pem"), a.Bytes
}

// writeUnrelatedRoot writes a root certificate with its own key, so it cannot anchor the test chain.
func writeUnrelatedRoot(t *testing.T, dir string) string {
	t.Helper()

	key, err := crypto.GenerateRSAKeyPair(2048)
	if err != nil {
		t.Fatal(err)
	}
	ca, err := crypto.NewCertificateAuthority("unrelated root", key, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if err := crypto.SaveCertificatesToPEMFile([]*x509.Certificate{ca.Certificate}, dir, "other-roots.pem"); err != nil {
		t.Fatal(err)
	}
	return filepath.Join(dir, "other-roots.pem")
}

func TestKeygen(t *testing.T) {
	dir := t.TempDir()

	out, err := runCommand(t, "keygen",
		"--output-dir", dir,
		"--pass-type-id", "pass.com.example.card",
		"--team-id", "TEAM123456",
		"--passphrase", "secret")
	if err != nil {
		t.Fatalf("keygen error: %v\n%s", err, out)
	}

	ks, err := crypto.ReadKeystoreFile(filepath.Join(dir, keystoreFile), "secret")
	if err != nil {
		t.Fatalf("generated keystore does not load: %v", err)
	}
	if got := crypto.PassTypeIdentifierFromCertificate(ks.Certificate()); got != "pass.com.example.card" {
		t.Errorf("certificate pass type = %q", got)
	}

	roots, err := crypto.ReadCertChainFromPEMFile(filepath.Join(dir, rootCertFile))
	if err != nil {
		t.Fatalf("root certificate does not load: %v", err)
	}
	chain := append([]*x509.Certificate{ks.Certificate()}, roots...)
	pool := x509.NewCertPool()
	pool.AddCert(roots[0])
	if err := crypto.ValidateCertificateChain(chain, pool); err != nil {
		t.Errorf("signing certificate does not chain to the generated root: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, rootKeyFile))
	if err != nil {
		t.Fatalf("root key not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("root key permissions = %v, want 0600", info.Mode().Perm())
	}
}

func TestKeygenFlagErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{
			name: "missing pass type",
			args: []string{"keygen", "--output-dir", dir, "--passphrase", "secret"},
		},
		{
			name: "unsupported key size",
			args: []string{"keygen", "--output-dir", dir, "--pass-type-id", "pass.x", "--passphrase", "secret", "--size", "1024"},
		},
		{
			name: "empty passphrase",
			args: []string{"keygen", "--output-dir", dir, "--pass-type-id", "pass.x", "--passphrase", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCommand(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestHashKey(t *testing.T) {
	key := "0123456789abcdef0123"

	out, err := runCommand(t, "hash-key", "--tenant", "acme", key)
	if err != nil {
		t.Fatalf("hash-key error: %v", err)
	}

	entry := strings.TrimSpace(out)
	if entry != "acme:"+services.HashAPIKey(key) {
		t.Errorf("entry = %q", entry)
	}

	keys, err := services.ParseAPIKeys(entry)
	if err != nil {
		t.Fatalf("printed entry does not parse: %v", err)
	}
	if err := keys.Check(key, "acme"); err != nil {
		t.Errorf("Check() error: %v", err)
	}

	if _, err := runCommand(t, "hash-key", "short"); err == nil {
		t.Error("expected error for short key")
	}
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	archivePath, rootsPath, archive := writeTestPass(t, dir)

	out, err := runCommand(t, "verify", "--roots", rootsPath, archivePath)
	if err != nil {
		t.Fatalf("verify error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "signature valid") {
		t.Errorf("output = %q", out)
	}

	out, err = runCommand(t, "verify", archivePath)
	if err != nil {
		t.Fatalf("verify without roots error: %v", err)
	}
	if !strings.Contains(out, "not checked") {
		t.Errorf("output without roots = %q", out)
	}

	// a different root must not verify the chain
	otherRoots := writeUnrelatedRoot(t, t.TempDir())
	if _, err := runCommand(t, "verify", "--roots", otherRoots, archivePath); err == nil {
		t.Error("expected chain error with unrelated roots")
	}

	// a member changed after signing no longer matches the manifest
	contents, err := pass.ReadArchive(archive)
	if err != nil {
		t.Fatalf("ReadArchive() error: %v", err)
	}
	descriptor, _ := contents.Members.Bytes(pass.DescriptorMember)
	tampered, err := pass.BuildArchive(pass.NewMembers(map[string][]byte{
		pass.DescriptorMember: descriptor,
		"icon.png":            []byte("icon bytez"),
	}), contents.ManifestJSON, contents.Signature)
	if err != nil {
		t.Fatalf("BuildArchive() error: %v", err)
	}
	tamperedPath := filepath.Join(dir, "tampered.pkpass")
	if err := os.WriteFile(tamperedPath, tampered.Bytes, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := runCommand(t, "verify", tamperedPath); err == nil {
		t.Error("expected error for tampered archive")
	}
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	archivePath, rootsPath, _ := writeTestPass(t, dir)

	out, err := runCommand(t, "inspect", "--descriptor", archivePath)
	if err != nil {
		t.Fatalf("inspect error: %v\n%s", err, out)
	}

	for _, want := range []string{"pass.json", "icon.png", "true", "Pass Type ID: " + cryptotest.PassTypeIdentifier, "Jane Doe"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if strings.Contains(out, "chain:") {
		t.Errorf("chain should not be checked without --roots:\n%s", out)
	}

	out, err = runCommand(t, "inspect", "--roots", rootsPath, archivePath)
	if err != nil {
		t.Fatalf("inspect --roots error: %v", err)
	}
	if !strings.Contains(out, "chain: valid") {
		t.Errorf("expected a valid chain:\n%s", out)
	}

	otherRoots := writeUnrelatedRoot(t, t.TempDir())
	out, err = runCommand(t, "inspect", "--roots", otherRoots, archivePath)
	if err != nil {
		t.Fatalf("inspect with unrelated roots error: %v", err)
	}
	if !strings.Contains(out, "chain: invalid") {
		t.Errorf("expected an invalid chain with unrelated roots:\n%s", out)
	}

	if _, err := runCommand(t, "inspect", filepath.Join(dir, "missing.pkpass")); err == nil {
		t.Error("expected error for missing file")
	}
}
