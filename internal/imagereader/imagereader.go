// Package imagereader provides a minimal omeinfo.Reader backed by Go's
// standard image codecs (PNG/JPEG). The full acquisition-format reader
// (OME-TIFF, proprietary microscope containers) is an external
// collaborator per spec §1/§6 and out of scope for this module; this
// adapter exists so cmd/analyze has something concrete to run against
// ordinary single-plane images rather than requiring one.
package imagereader

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/joda-analytics/imagec-engine/internal/omeinfo"
)

// Reader treats every file as a single channel, single Z/T-stack plane
// image, decoded whole (no tiling support below the image's own
// dimensions — LoadTile returns the full plane regardless of the
// requested tile coordinates; ReadInfo reports the whole image as the
// optimal tile, so pipelineinit reads an image larger than the
// configured tile as one tile).
type Reader struct{}

var _ omeinfo.Reader = Reader{}

// ReadInfo decodes just the image header to recover its dimensions.
func (Reader) ReadInfo(path string, _ int32) (omeinfo.Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return omeinfo.Info{}, fmt.Errorf("imagereader: open %s: %w", path, err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return omeinfo.Info{}, fmt.Errorf("imagereader: decode config %s: %w", path, err)
	}

	return omeinfo.Info{
		Width:             int32(cfg.Width),
		Height:            int32(cfg.Height),
		Channels:          []omeinfo.Channel{{ID: 0, Name: format}},
		NrZStacks:         1,
		NrTStacks:         1,
		OptimalTileWidth:  int32(cfg.Width),
		OptimalTileHeight: int32(cfg.Height),
		BitsPerSample:     16,
	}, nil
}

// LoadTile decodes the whole image and returns all of it as a
// 16-bit-per-pixel grayscale matrix, via image.Image.At(x, y); the plane
// and tile arguments are not used and no cropping is done — adequate
// for the CLI demo path; real
// acquisition readers stream tiles without a full decode.
func (Reader) LoadTile(path string, plane omeinfo.Plane, _ int32, _ int32, tile omeinfo.Tile) (omeinfo.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return omeinfo.Matrix{}, fmt.Errorf("imagereader: open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return omeinfo.Matrix{}, fmt.Errorf("imagereader: decode %s: %w", path, err)
	}

	bounds := img.Bounds()
	width, height := int32(bounds.Dx()), int32(bounds.Dy())
	pix := make([]uint16, width*height)
	for y := int32(0); y < height; y++ {
		for x := int32(0); x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+int(x), bounds.Min.Y+int(y)).RGBA()
			gray := (uint32(r) + uint32(g) + uint32(b)) / 3
			pix[y*width+x] = uint16(gray)
		}
	}

	return omeinfo.Matrix{Width: width, Height: height, Stride: width, Pix: pix}, nil
}
