package images

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fredrikaverpil/sitebuild/internal/config"
	"github.com/fredrikaverpil/sitebuild/pk"
)

func testContext() context.Context {
	return pk.WithOutput(context.Background(), &pk.Output{Stdout: io.Discard, Stderr: io.Discard})
}

func writeFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func gradient() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := range 64 {
		for x := range 64 {
			img.Set(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 4), B: 128, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image, level png.CompressionLevel) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: level}
	require.NoError(t, enc.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}))
	return buf.Bytes()
}

const svgDoc = `<?xml version="1.0" encoding="UTF-8"?>
<!-- generator comment -->
<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10">
    <rect   x="0"   y="0"   width="10"   height="10"   fill="#ff0000" />
</svg>
`

func TestRun(t *testing.T) {
	root := t.TempDir()
	rawPNG := encodePNG(t, gradient(), png.NoCompression)
	bigJPEG := encodeJPEG(t, gradient(), 100)

	writeFile(t, root, "assets/images/photo.jpg", bigJPEG)
	writeFile(t, root, "assets/images/icons/gradient.png", rawPNG)
	writeFile(t, root, "assets/images/icons/logo.svg", []byte(svgDoc))
	writeFile(t, root, "assets/images/anim.gif", []byte("GIF89a not decoded"))
	writeFile(t, root, "assets/images/favicon.ico", []byte("ico"))

	cfg := config.Default(root, config.Production)
	cfg.ImageQuality = 50
	require.NoError(t, Run(testContext(), cfg))

	dest := cfg.DestPath(cfg.Images)
	read := func(rel string) []byte {
		data, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(rel)))
		require.NoError(t, err)
		return data
	}

	require.Less(t, len(read("photo.jpg")), len(bigJPEG))
	require.Less(t, len(read("icons/gradient.png")), len(rawPNG))

	svg := read("icons/logo.svg")
	require.Less(t, len(svg), len(svgDoc))
	require.NotContains(t, string(svg), "generator comment")

	require.Equal(t, "GIF89a not decoded", string(read("anim.gif")))
	require.Equal(t, "ico", string(read("favicon.ico")))

	_, _, err := image.Decode(bytes.NewReader(read("icons/gradient.png")))
	require.NoError(t, err)
}

func TestOptimize_KeepsOriginalWhenSmaller(t *testing.T) {
	// Already maximally compressed at low quality; re-encoding at a higher
	// quality would grow the file.
	small := encodeJPEG(t, gradient(), 10)
	o := newOptimizer(95)

	out, err := o.optimize("small.jpg", small)
	require.NoError(t, err)
	require.Equal(t, small, out)
}

func TestRun_CorruptImageFailsWithoutOutput(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "assets/images/ok.svg", []byte(svgDoc))
	writeFile(t, root, "assets/images/broken.png", []byte("not a png"))
	cfg := config.Default(root, config.Development)

	err := Run(testContext(), cfg)
	require.ErrorContains(t, err, "broken.png")
	require.NoDirExists(t, cfg.DestPath(cfg.Images))
}

func TestRun_NoImages(t *testing.T) {
	cfg := config.Default(t.TempDir(), config.Development)
	require.NoError(t, Run(testContext(), cfg))
	require.NoDirExists(t, cfg.DestPath(cfg.Images))
}

func TestSavings(t *testing.T) {
	require.Equal(t, "25.0%", savings(100, 75))
	require.Equal(t, "0%", savings(100, 100))
	require.Equal(t, "0%", savings(0, 0))
}
