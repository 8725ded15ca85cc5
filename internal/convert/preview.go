// Package convert turns full-page screenshots into fixed-size link preview
// images (the og:image shown when the portfolio is shared).
package convert

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
)

// Open Graph preview geometry.
const (
	PreviewWidth  = 1200
	PreviewHeight = 630
)

// Fit center-crops src to the aspect ratio of w x h and box-downsamples the
// crop to exactly w x h.
//
// Sources shorter than the target aspect are cropped horizontally, taller
// ones (the usual full-page screenshot) keep the top of the page since that
// is where the hero section sits.
func Fit(src image.Image, w, h int) (*image.NRGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("convert: invalid target size %dx%d", w, h)
	}
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw == 0 || sh == 0 {
		return nil, fmt.Errorf("convert: empty source image")
	}

	// crop rectangle with the target aspect ratio
	cw, ch := sw, sw*h/w
	if ch > sh {
		ch = sh
		cw = sh * w / h
	}
	x0 := b.Min.X + (sw-cw)/2
	y0 := b.Min.Y
	crop := image.Rect(x0, y0, x0+cw, y0+ch)

	in := image.NewNRGBA(image.Rect(0, 0, cw, ch))
	draw.Draw(in, in.Bounds(), src, crop.Min, draw.Src)

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for py := 0; py < h; py++ {
		sy0 := py * ch / h
		sy1 := max((py+1)*ch/h, sy0+1)
		for px := 0; px < w; px++ {
			sx0 := px * cw / w
			sx1 := max((px+1)*cw/w, sx0+1)
			average(out, in, px, py, sx0, sy0, sx1, sy1)
		}
	}
	return out, nil
}

// average writes the mean of in[sx0:sx1, sy0:sy1] to out(px, py), reading
// Pix directly to avoid At() per pixel.
func average(out, in *image.NRGBA, px, py, sx0, sy0, sx1, sy1 int) {
	var r, g, b, a, n uint32
	for y := sy0; y < sy1; y++ {
		row := y * in.Stride
		for x := sx0; x < sx1; x++ {
			i := row + x*4
			r += uint32(in.Pix[i+0])
			g += uint32(in.Pix[i+1])
			b += uint32(in.Pix[i+2])
			a += uint32(in.Pix[i+3])
			n++
		}
	}
	o := py*out.Stride + px*4
	out.Pix[o+0] = uint8(r / n)
	out.Pix[o+1] = uint8(g / n)
	out.Pix[o+2] = uint8(b / n)
	out.Pix[o+3] = uint8(a / n)
}

// PreviewPNG decodes a PNG screenshot and returns the encoded
// PreviewWidth x PreviewHeight preview.
func PreviewPNG(data []byte) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("convert: decode screenshot: %w", err)
	}
	img, err := Fit(src, PreviewWidth, PreviewHeight)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("convert: encode preview: %w", err)
	}
	return buf.Bytes(), nil
}
