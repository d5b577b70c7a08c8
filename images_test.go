package styletransfer

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/styletransfer/vgg19"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestPNG writes a solid-color PNG and returns its path.
func writeTestPNG(t *testing.T, width, height int, c color.RGBA) string {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	filePath := filepath.Join(t.TempDir(), "test.png")
	f, err := os.Create(filePath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return filePath
}

func TestLoadImage(t *testing.T) {
	backend := graphtest.BuildTestBackend()

	// A 10x6 gray image is stretched to 8x8 and ImageNet-normalized.
	filePath := writeTestPNG(t, 10, 6, color.RGBA{R: 128, G: 128, B: 128, A: 255})
	got := LoadImage(backend, filePath, 8)
	require.NoError(t, got.Shape().Check(dtypes.F32, 1, 8, 8, 3))
	pixels := got.Value().([][][][]float32)
	for c := 0; c < 3; c++ {
		want := (128.0/255.0 - vgg19.ImageNetMean[c]) / vgg19.ImageNetStdDev[c]
		assert.InDelta(t, want, pixels[0][4][4][c], 1e-2)
	}

	// Denormalizing brings the pixels back to [0, 1].
	denormalized := DenormalizeImage(backend, got)
	require.NoError(t, denormalized.Shape().Check(dtypes.F32, 8, 8, 3))
	assert.InDelta(t, 128.0/255.0, denormalized.Value().([][][]float32)[4][4][0], 1e-2)
}

func TestLoadImageFallback(t *testing.T) {
	backend := graphtest.BuildTestBackend()

	// Missing files and empty paths yield synthetic images of the right
	// shape instead of failing.
	for _, filePath := range []string{"", "/does/not/exist.jpg"} {
		got := LoadImage(backend, filePath, 8)
		require.NoError(t, got.Shape().Check(dtypes.F32, 1, 8, 8, 3))
	}
}

func TestSyntheticImage(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	got := SyntheticImage(backend, 8)
	require.NoError(t, got.Shape().Check(dtypes.F32, 1, 8, 8, 3))

	// Pixels were uniform in [0, 1) before normalization.
	denormalized := DenormalizeImage(backend, got)
	tensors.MustConstFlatData[float32](denormalized, func(flat []float32) {
		for _, v := range flat {
			assert.GreaterOrEqual(t, v, float32(0))
			assert.LessOrEqual(t, v, float32(1))
		}
	})
}

func TestMontageAndPalette(t *testing.T) {
	red := tensors.FromValue([][][]float32{{{1, 0, 0}, {1, 0, 0}}, {{1, 0, 0}, {1, 0, 0}}})
	green := tensors.FromValue([][][]float32{{{0, 1, 0}, {0, 1, 0}}, {{0, 1, 0}, {0, 1, 0}}})
	blue := tensors.FromValue([][][]float32{{{0, 0, 1}, {0, 0, 1}}, {{0, 0, 1}, {0, 0, 1}}})

	montage := Montage(red, green, blue)
	bounds := montage.Bounds()
	assert.Equal(t, 3*2+2*4, bounds.Dx())
	assert.Equal(t, 2, bounds.Dy())

	filePath := filepath.Join(t.TempDir(), "montage.png")
	require.NoError(t, SaveMontage(filePath, red, green, blue))
	_, err := os.Stat(filePath)
	require.NoError(t, err)

	// A solid-color image has a one-color dominant palette.
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	palette := Palette(img, 1)
	require.Len(t, palette, 1)
	hexes := PaletteHex(palette)
	require.Len(t, hexes, 1)
	assert.InDelta(t, 200.0/255.0, palette[0].R, 0.05)
	assert.InDelta(t, 40.0/255.0, palette[0].G, 0.05)
}
