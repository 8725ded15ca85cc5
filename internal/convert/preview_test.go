package convert

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestFitKeepsTopOfTallPage(t *testing.T) {
	// top half red, bottom half blue; the crop should only see red
	src := solid(400, 2000, color.NRGBA{R: 255, A: 255})
	for y := 1000; y < 2000; y++ {
		for x := 0; x < 400; x++ {
			src.SetNRGBA(x, y, color.NRGBA{B: 255, A: 255})
		}
	}

	out, err := Fit(src, 120, 63)
	require.NoError(t, err)
	assert.Equal(t, 120, out.Bounds().Dx())
	assert.Equal(t, 63, out.Bounds().Dy())
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, out.NRGBAAt(0, 62))
}

func TestFitCropsWideImageHorizontally(t *testing.T) {
	// left and right thirds green, middle white
	src := solid(3000, 630, color.NRGBA{G: 255, A: 255})
	for y := 0; y < 630; y++ {
		for x := 900; x < 2100; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}

	out, err := Fit(src, 1200, 630)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(1199, 629))
}

func TestFitAveragesBlocks(t *testing.T) {
	src := solid(4, 2, color.NRGBA{R: 100, A: 255})
	for y := 0; y < 2; y++ {
		src.SetNRGBA(0, y, color.NRGBA{R: 200, A: 255})
	}

	out, err := Fit(src, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 150, A: 255}, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 100, A: 255}, out.NRGBAAt(1, 0))
}

func TestFitRejectsBadSizes(t *testing.T) {
	_, err := Fit(solid(10, 10, color.NRGBA{}), 0, 10)
	assert.Error(t, err)
	_, err = Fit(image.NewNRGBA(image.Rect(0, 0, 0, 0)), 10, 10)
	assert.Error(t, err)
}

func TestPreviewPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(1280, 2400, color.NRGBA{R: 10, G: 20, B: 30, A: 255})))

	data, err := PreviewPNG(buf.Bytes())
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, PreviewWidth, PreviewHeight), img.Bounds())

	_, err = PreviewPNG([]byte("not a png"))
	assert.ErrorContains(t, err, "decode screenshot")
}
