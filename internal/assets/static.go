package assets

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"image/png"
	"io/fs"
	"maps"
	"os"
	"slices"
	"sync"

	"github.com/cardpass/pass-issuer/internal/pass"
)

//go:embed static/*.png
var bundled embed.FS

// RequiredStaticAssets must be present in every asset set.
var RequiredStaticAssets = []string{"icon.png"}

// OptionalStaticAssets are included when present.
var OptionalStaticAssets = []string{
	"icon@2x.png",
	"icon@3x.png",
	"logo.png",
	"logo@2x.png",
	"logo@3x.png",
}

// StaticAssets loads the bundled images once and serves copies of them afterwards.
type StaticAssets struct {
	load func() (map[string][]byte, error)
}

// NewStaticAssets returns static assets read from fsys on first use.
func NewStaticAssets(fsys fs.FS) *StaticAssets {
	return &StaticAssets{
		load: sync.OnceValues(func() (map[string][]byte, error) {
			return readStatic(fsys)
		}),
	}
}

// BundledStaticAssets returns the images embedded in the binary.
func BundledStaticAssets() *StaticAssets {
	sub, err := fs.Sub(bundled, "static")
	if err != nil {
		// the embed pattern guarantees the directory exists
		panic(err)
	}
	return NewStaticAssets(sub)
}

// DirStaticAssets returns static assets read from dir.
// An empty dir selects the bundled images.
func DirStaticAssets(dir string) (*StaticAssets, error) {
	if dir == "" {
		return BundledStaticAssets(), nil
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, pass.WrapAssetError(err, "failed to open assets directory")
	}
	return NewStaticAssets(root.FS()), nil
}

// Load returns a copy of the static asset members. The files are read on the first call only.
func (s *StaticAssets) Load() (map[string][]byte, error) {
	files, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(files))
	for name, data := range files {
		out[name] = slices.Clone(data)
	}
	return out, nil
}

// Names returns the loaded asset names in sorted order.
func (s *StaticAssets) Names() ([]string, error) {
	files, err := s.load()
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(files)), nil
}

func readStatic(fsys fs.FS) (map[string][]byte, error) {
	files := make(map[string][]byte)

	for _, name := range RequiredStaticAssets {
		data, err := readPNG(fsys, name)
		if err != nil {
			return nil, pass.WrapAssetError(err, fmt.Sprintf("required asset %s is unavailable", name))
		}
		files[name] = data
	}

	for _, name := range OptionalStaticAssets {
		data, err := readPNG(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, pass.WrapAssetError(err, fmt.Sprintf("asset %s is invalid", name))
		}
		files[name] = data
	}

	return files, nil
}

// readPNG reads name and checks that it is a PNG image.
func readPNG(fsys fs.FS, name string) ([]byte, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%s is not a PNG image: %w", name, err)
	}
	return data, nil
}
