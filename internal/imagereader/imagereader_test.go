package imagereader

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/joda-analytics/imagec-engine/internal/omeinfo"
)

func writeTestPNG(t *testing.T, width, height int) string {
	t.Helper()
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.Gray16{Y: uint16(x + y)})
		}
	}
	path := filepath.Join(t.TempDir(), "test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return path
}

func TestReadInfoRecoversDimensions(t *testing.T) {
	path := writeTestPNG(t, 16, 8)
	r := Reader{}
	info, err := r.ReadInfo(path, 0)
	if err != nil {
		t.Fatalf("ReadInfo: %v", err)
	}
	if info.Width != 16 || info.Height != 8 {
		t.Fatalf("expected 16x8, got %dx%d", info.Width, info.Height)
	}
	if info.NrZStacks != 1 || info.NrTStacks != 1 {
		t.Fatalf("expected single z/t stack, got z=%d t=%d", info.NrZStacks, info.NrTStacks)
	}
}

func TestLoadTileDecodesFullPlane(t *testing.T) {
	path := writeTestPNG(t, 4, 4)
	r := Reader{}
	m, err := r.LoadTile(path, omeinfo.Plane{}, 0, 0, omeinfo.Tile{})
	if err != nil {
		t.Fatalf("LoadTile: %v", err)
	}
	if m.Width != 4 || m.Height != 4 || len(m.Pix) != 16 {
		t.Fatalf("expected a 4x4 pixel buffer, got %dx%d (%d pixels)", m.Width, m.Height, len(m.Pix))
	}
}
