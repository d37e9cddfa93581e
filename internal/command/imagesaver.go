package command

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joda-analytics/imagec-engine/internal/enums"
	"github.com/joda-analytics/imagec-engine/internal/imageproc"
	"github.com/joda-analytics/imagec-engine/internal/omeinfo"
)

// Background selects what the image saver draws ROI overlays on top of
// (spec §4.5/§6).
type Background int

const (
	BackgroundImagePlane Background = iota
	BackgroundBlack
	BackgroundWhite
	BackgroundCachedPlane
)

// ImageSaver is the sink command that renders ROIs over a background
// and writes a PNG (spec §4.5: "the image saver command is a sink...").
// It is the pipeline's terminal step; Run never appends ROIs.
type ImageSaver struct {
	OutputFolder string
	SubFolder    string
	NamePrefix   string
	Background   Background
	// CachedPlaneKey selects the cache entry to draw on when Background
	// is BackgroundCachedPlane (spec §4.4's RUN/ITERATION image cache).
	CachedPlaneKey uint64
	CacheScope     imageproc.CacheScope
	// Compression is the PNG compression level, 0-9 per spec §6; Go's
	// image/png only distinguishes none/fastest/default/best, so values
	// are bucketed (0 -> NoCompression, 1-3 -> fastest, 4-6 -> default,
	// 7-9 -> best).
	Compression int
	// Writer lets callers (tests) capture output instead of touching the
	// filesystem; Open is used when Writer is nil.
	Writer io.Writer
	Open   func(path string) (io.WriteCloser, error)
}

func (ImageSaver) Kind() string { return "image_saver" }

func (s ImageSaver) Run(ctx *imageproc.Context, input omeinfo.Matrix, classID enums.ClassID) (omeinfo.Matrix, error) {
	bg := s.backgroundMatrix(ctx, input)
	img := renderOverlay(ctx, bg)

	path := s.renderPath(ctx)
	w, err := s.writer(path)
	if err != nil {
		return input, fmt.Errorf("image_saver: open %s: %w", path, err)
	}
	if wc, ok := w.(io.WriteCloser); ok {
		defer wc.Close()
	}

	enc := &png.Encoder{CompressionLevel: compressionLevel(s.Compression)}
	if err := enc.Encode(w, img); err != nil {
		return input, fmt.Errorf("image_saver: encode %s: %w", path, err)
	}
	return input, nil
}

func (s ImageSaver) backgroundMatrix(ctx *imageproc.Context, input omeinfo.Matrix) omeinfo.Matrix {
	switch s.Background {
	case BackgroundBlack:
		return omeinfo.Matrix{Width: input.Width, Height: input.Height, Stride: input.Width, Pix: make([]uint16, input.Width*input.Height)}
	case BackgroundWhite:
		pix := make([]uint16, input.Width*input.Height)
		for i := range pix {
			pix[i] = math.MaxUint16
		}
		return omeinfo.Matrix{Width: input.Width, Height: input.Height, Stride: input.Width, Pix: pix}
	case BackgroundCachedPlane:
		if m, ok := ctx.CacheGet(s.CacheScope, s.CachedPlaneKey); ok {
			return m
		}
		return input
	default:
		return input
	}
}

func (s ImageSaver) writer(path string) (io.Writer, error) {
	if s.Writer != nil {
		return s.Writer, nil
	}
	open := s.Open
	if open == nil {
		return nil, fmt.Errorf("image_saver: no Writer or Open configured for %s", path)
	}
	return open(path)
}

// renderPath builds the on-disk path following spec §6's exact pattern:
// <outputFolder>/<subFolder>/<imageStem>__<tileY>x<tileX>__<cStack>-<zStack>-<tStack><namePrefix>.png
func (s ImageSaver) renderPath(ctx *imageproc.Context) string {
	stem := imageStem(ctx.ImagePath)
	sub := substituteImageName(s.SubFolder, stem)
	prefix := substituteImageName(s.NamePrefix, stem)

	fileName := fmt.Sprintf("%s__%dx%d__%d-%d-%d%s.png",
		stem, ctx.ActiveTile.Y, ctx.ActiveTile.X,
		ctx.ActivePlane.C, ctx.ActivePlane.Z, ctx.ActivePlane.T, prefix)

	if sub == "" {
		return filepath.Join(s.OutputFolder, fileName)
	}
	return filepath.Join(s.OutputFolder, sub, fileName)
}

func imageStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func substituteImageName(pattern, stem string) string {
	return strings.ReplaceAll(pattern, "${imageName}", stem)
}

func compressionLevel(level int) png.CompressionLevel {
	switch {
	case level <= 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

// renderOverlay draws the 16-bit background as grayscale and overlays
// each ROI's contour in its class color (spec §4.5: "color per class is
// looked up on the context").
func renderOverlay(ctx *imageproc.Context, bg omeinfo.Matrix) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, int(bg.Width), int(bg.Height)))
	for y := int32(0); y < bg.Height; y++ {
		for x := int32(0); x < bg.Width; x++ {
			v := bg.Pix[y*bg.Stride+x]
			g := uint8(v >> 8)
			out.Set(int(x), int(y), color.RGBA{R: g, G: g, B: g, A: 255})
		}
	}
	for _, roi := range ctx.Objects.All() {
		c := classColor(ctx.ColorForClass(roi.ClassID))
		for _, p := range roi.Contour {
			if p.X >= 0 && p.X < bg.Width && p.Y >= 0 && p.Y < bg.Height {
				out.Set(int(p.X), int(p.Y), c)
			}
		}
	}
	return out
}

func classColor(hex string) color.RGBA {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return color.RGBA{R: 255, G: 255, B: 0, A: 255}
	}
	r, _ := strconv.ParseUint(hex[0:2], 16, 8)
	g, _ := strconv.ParseUint(hex[2:4], 16, 8)
	b, _ := strconv.ParseUint(hex[4:6], 16, 8)
	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 255}
}
