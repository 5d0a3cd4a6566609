package videoframe

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
)

const jpegQuality = 90

// Encode lays out img in the given format. Raw formats are tightly
// packed rows with no stride padding.
func Encode(img image.Image, f Format) ([]byte, error) {
	if f == JPEG {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("unable to encode jpeg: %w", err)
		}
		return buf.Bytes(), nil
	}

	if !f.IsRaw() {
		return nil, fmt.Errorf("unable to encode to format: %q", f)
	}

	rgba := toRGBA(img)
	b := rgba.Bounds()
	bpp := f.BytesPerPixel()
	out := make([]byte, 0, b.Dx()*b.Dy()*bpp)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := rgba.PixOffset(x, y)
			r, g, bl, a := rgba.Pix[i], rgba.Pix[i+1], rgba.Pix[i+2], rgba.Pix[i+3]
			switch f {
			case BGR24:
				out = append(out, bl, g, r)
			case RGB24:
				out = append(out, r, g, bl)
			case RGBA:
				out = append(out, r, g, bl, a)
			case Gray:
				out = append(out, luma(r, g, bl))
			}
		}
	}
	return out, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}

// ITU-R BT.601, same weights image/color uses for GrayModel.
func luma(r, g, b uint8) uint8 {
	y := (19595*uint32(r) + 38470*uint32(g) + 7471*uint32(b) + 1<<15) >> 16
	return uint8(y)
}
