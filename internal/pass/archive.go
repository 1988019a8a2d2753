package pass

// archive.go packages a pass into the .pkpass container.
//
// A .pkpass file is a ZIP archive with every member at the root: pass.json, the image assets,
// manifest.json and signature. Member names are case sensitive and must match the manifest.

import (
	"archive/zip"
	"bytes"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cardpass/pass-issuer/internal/crypto"
)

// ContentType is the MIME type of a pass archive.
const ContentType = "application/vnd.apple.pkpass"

// Limits applied when reading archives.
const (
	MaxArchiveMembers    = 64
	MaxArchiveMemberSize = 10 * 1024 * 1024
)

// archiveModTime is stored for every member so equal inputs produce identical archives.
var archiveModTime = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Archive is a packaged pass.
type Archive struct {
	Bytes        []byte
	ContentType  string
	Filename     string
	SerialNumber string
}

// BuildArchive writes members, the manifest and the signature into a pass archive.
//
// manifestJSON must be the exact bytes the signature was computed over. Every member the manifest
// lists must be present, and no member may be left out of the manifest.
func BuildArchive(members Members, manifestJSON, signature []byte) (*Archive, error) {
	if len(manifestJSON) == 0 {
		return nil, NewArchiveError("manifest is empty")
	}
	if len(signature) == 0 {
		return nil, NewArchiveError("signature is empty")
	}

	manifest, err := ParseManifest(manifestJSON)
	if err != nil {
		return nil, WrapArchiveError(err, "manifest is invalid")
	}
	if len(manifest) != members.Len() {
		return nil, NewArchiveError(fmt.Sprintf("manifest lists %d members but %d were supplied", len(manifest), members.Len()))
	}
	for name := range manifest {
		if !members.Has(name) {
			return nil, NewArchiveError(fmt.Sprintf("member %q listed in the manifest is missing", name))
		}
	}

	serial, err := serialFromDescriptor(members)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	for _, name := range members.Names() {
		if err := ValidateMemberName(name); err != nil {
			return nil, WrapArchiveError(err, "invalid archive member")
		}
		if err := writeMember(zw, name, members.files[name]); err != nil {
			return nil, err
		}
	}
	if err := writeMember(zw, ManifestMember, manifestJSON); err != nil {
		return nil, err
	}
	if err := writeMember(zw, SignatureMember, signature); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, WrapArchiveError(err, "failed to finalise archive")
	}

	return &Archive{
		Bytes:        buf.Bytes(),
		ContentType:  ContentType,
		Filename:     serial + ".pkpass",
		SerialNumber: serial,
	}, nil
}

func writeMember(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: archiveModTime,
	})
	if err != nil {
		return WrapArchiveError(err, fmt.Sprintf("failed to add %s", name))
	}
	if _, err := w.Write(data); err != nil {
		return WrapArchiveError(err, fmt.Sprintf("failed to write %s", name))
	}
	return nil
}

func serialFromDescriptor(members Members) (string, error) {
	data, ok := members.files[DescriptorMember]
	if !ok {
		return "", NewArchiveError("members do not include " + DescriptorMember)
	}
	var d struct {
		SerialNumber string `json:"serialNumber"`
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return "", WrapArchiveError(err, "failed to read serial number from descriptor")
	}
	if d.SerialNumber == "" {
		return "", NewArchiveError("descriptor has no serial number")
	}
	return d.SerialNumber, nil
}

// Contents is an unpacked pass archive.
type Contents struct {
	Members Members
	// Manifest is the decoded manifest and ManifestJSON its exact bytes, which the signature covers.
	Manifest     Manifest
	ManifestJSON []byte
	Signature    []byte
}

// ReadArchive unpacks a pass archive into its members, manifest and signature.
func ReadArchive(data []byte) (*Contents, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, WrapArchiveError(err, "failed to open archive")
	}
	if len(zr.File) > MaxArchiveMembers {
		return nil, NewArchiveError(fmt.Sprintf("archive has more than %d members", MaxArchiveMembers))
	}

	files := make(map[string][]byte, len(zr.File))
	contents := &Contents{}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			return nil, NewArchiveError(fmt.Sprintf("archive contains directory %q", f.Name))
		}

		content, err := readMember(f)
		if err != nil {
			return nil, err
		}

		switch f.Name {
		case ManifestMember:
			contents.ManifestJSON = content
		case SignatureMember:
			contents.Signature = content
		default:
			if _, dup := files[f.Name]; dup {
				return nil, NewArchiveError(fmt.Sprintf("archive contains %q twice", f.Name))
			}
			files[f.Name] = content
		}
	}

	if contents.ManifestJSON == nil {
		return nil, NewArchiveError("archive has no " + ManifestMember)
	}
	if contents.Signature == nil {
		return nil, NewArchiveError("archive has no " + SignatureMember)
	}

	contents.Manifest, err = ParseManifest(contents.ManifestJSON)
	if err != nil {
		return nil, err
	}
	contents.Members = Members{files: files}

	return contents, nil
}

// VerifyArchive checks that every member matches the manifest and that the signature is a valid
// detached signature over the manifest bytes. When roots is nil the signer chain is not
// checked against a trust anchor.
func VerifyArchive(data []byte, roots *x509.CertPool) (*Contents, error) {
	contents, err := ReadArchive(data)
	if err != nil {
		return nil, err
	}
	if err := VerifyManifest(contents.Manifest, contents.Members); err != nil {
		return contents, err
	}
	if err := crypto.VerifyDetached(contents.Signature, contents.ManifestJSON, roots); err != nil {
		return contents, WrapSigningError(err, "archive signature is invalid")
	}
	return contents, nil
}

func readMember(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > MaxArchiveMemberSize {
		return nil, NewArchiveError(fmt.Sprintf("member %q is too large", f.Name))
	}
	rc, err := f.Open()
	if err != nil {
		return nil, WrapArchiveError(err, fmt.Sprintf("failed to open %s", f.Name))
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, MaxArchiveMemberSize+1))
	if err != nil {
		return nil, WrapArchiveError(err, fmt.Sprintf("failed to read %s", f.Name))
	}
	if len(content) > MaxArchiveMemberSize {
		return nil, NewArchiveError(fmt.Sprintf("member %q is too large", f.Name))
	}
	return content, nil
}
