package pass

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Reserved archive member names.
const (
	DescriptorMember = "pass.json"
	ManifestMember   = "manifest.json"
	SignatureMember  = "signature"
)

// Members is the frozen set of archive members covered by the manifest: the encoded descriptor
// plus every resolved asset. It is built once and only read afterwards, so the bytes hashed
// into the manifest are the bytes written to the archive.
type Members struct {
	files map[string][]byte
}

// NewMembers copies files into an immutable member set.
func NewMembers(files map[string][]byte) Members {
	m := Members{files: make(map[string][]byte, len(files))}
	for name, data := range files {
		m.files[name] = slices.Clone(data)
	}
	return m
}

// Names returns the member names in sorted order.
func (m Members) Names() []string {
	return slices.Sorted(maps.Keys(m.files))
}

// Len returns the number of members.
func (m Members) Len() int { return len(m.files) }

// Has reports whether the member set contains name.
func (m Members) Has(name string) bool {
	_, ok := m.files[name]
	return ok
}

// Bytes returns a copy of the named member's content.
func (m Members) Bytes(name string) ([]byte, bool) {
	data, ok := m.files[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(data), true
}

// ValidateMemberName rejects names that cannot be stored at the archive root.
func ValidateMemberName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("member name is empty")
	case name == ManifestMember || name == SignatureMember:
		return fmt.Errorf("member name %q is reserved", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("member name %q contains a directory component", name)
	case name == "." || name == "..":
		return fmt.Errorf("member name %q is invalid", name)
	}
	return nil
}
