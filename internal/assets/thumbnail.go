package assets

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	"image/png"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder
)

// Thumbnail member names and sizes (in pixels).
const (
	ThumbnailMember       = "thumbnail.png"
	ThumbnailRetinaMember = "thumbnail@2x.png"

	ThumbnailSize       = 90
	ThumbnailRetinaSize = 180
)

// maxSourcePixels bounds the decoded size of a profile image.
const maxSourcePixels = 40_000_000

// CircularThumbnails turns a profile image into the two thumbnail members.
//
// The source is centre-cropped to a square, scaled to each size and masked with a centred circle
// (transparent outside, anti-aliased edge). The result depends only on src.
func CircularThumbnails(src []byte) (map[string][]byte, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("unsupported image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%s image has no pixels", format)
	}
	if cfg.Width*cfg.Height > maxSourcePixels {
		return nil, fmt.Errorf("%s image is too large (%dx%d)", format, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s image: %w", format, err)
	}

	crop := centreSquare(img.Bounds())

	out := make(map[string][]byte, 2)
	for name, size := range map[string]int{ThumbnailMember: ThumbnailSize, ThumbnailRetinaMember: ThumbnailRetinaSize} {
		encoded, err := circularThumbnail(img, crop, size)
		if err != nil {
			return nil, err
		}
		out[name] = encoded
	}
	return out, nil
}

func circularThumbnail(img image.Image, crop image.Rectangle, size int) ([]byte, error) {
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, draw.Src, nil)

	applyCircleMask(dst)

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// centreSquare returns the largest square centred in r.
func centreSquare(r image.Rectangle) image.Rectangle {
	w, h := r.Dx(), r.Dy()
	side := min(w, h)
	x0 := r.Min.X + (w-side)/2
	y0 := r.Min.Y + (h-side)/2
	return image.Rect(x0, y0, x0+side, y0+side)
}

// applyCircleMask scales the alpha of every pixel by its coverage of the inscribed circle.
func applyCircleMask(img *image.NRGBA) {
	b := img.Bounds()
	radius := float64(b.Dx()) / 2
	cx := float64(b.Min.X) + radius
	cy := float64(b.Min.Y) + radius

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
			coverage := math.Max(0, math.Min(1, radius-d+0.5))
			if coverage == 1 {
				continue
			}
			c := img.NRGBAAt(x, y)
			if coverage == 0 {
				img.SetNRGBA(x, y, color.NRGBA{})
				continue
			}
			c.A = uint8(math.Round(float64(c.A) * coverage))
			img.SetNRGBA(x, y, c)
		}
	}
}
