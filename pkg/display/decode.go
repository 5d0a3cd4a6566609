package display

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/tauraamui/dragondoorbell/pkg/camera"
	"github.com/tauraamui/dragondoorbell/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

const DecodeFailure = xerror.Kind("decode_failure")

var ErrDecodeFailure = xerror.NewWithKind(DecodeFailure, "unable to decode still")

// Decode turns a still's raw bytes back into an image of the
// still's dimensions. Raw formats tolerate trailing row padding,
// anything shorter than a full frame is rejected.
func Decode(still camera.Still) (image.Image, error) {
	d := still.Dimensions
	if d.W <= 0 || d.H <= 0 {
		return nil, xerror.Errorf("still [%s] has no dimensions: %w", still.RequestID, ErrDecodeFailure)
	}

	if still.Format == videoframe.JPEG {
		return decodeJPEG(still)
	}

	if !still.Format.IsRaw() {
		return nil, xerror.Errorf("still [%s] has unsupported format %q: %w", still.RequestID, still.Format, ErrDecodeFailure)
	}

	want := d.ExpectedLen(still.Format)
	if len(still.Data) < want {
		return nil, xerror.Errorf(
			"still [%s] truncated, expected %d bytes for %s %s, got %d: %w",
			still.RequestID, want, d, still.Format, len(still.Data), ErrDecodeFailure,
		)
	}

	return decodeRaw(still.Data[:want], d, still.Format), nil
}

func decodeJPEG(still camera.Still) (image.Image, error) {
	img, err := jpeg.Decode(bytes.NewReader(still.Data))
	if err != nil {
		return nil, xerror.Errorf("still [%s] is not a valid jpeg (%v): %w", still.RequestID, err, ErrDecodeFailure)
	}
	b := img.Bounds()
	if b.Dx() != still.Dimensions.W || b.Dy() != still.Dimensions.H {
		return nil, xerror.Errorf(
			"still [%s] decoded to %dx%d, expected %s: %w",
			still.RequestID, b.Dx(), b.Dy(), still.Dimensions, ErrDecodeFailure,
		)
	}
	return img, nil
}

func decodeRaw(data []byte, d videoframe.Dimensions, f videoframe.Format) image.Image {
	rect := image.Rect(0, 0, d.W, d.H)
	switch f {
	case videoframe.Gray:
		img := image.NewGray(rect)
		copy(img.Pix, data)
		return img
	case videoframe.RGBA:
		img := image.NewRGBA(rect)
		copy(img.Pix, data)
		return img
	}

	img := image.NewRGBA(rect)
	for i, j := 0, 0; i+2 < len(data); i, j = i+3, j+4 {
		r, g, b := data[i], data[i+1], data[i+2]
		if f == videoframe.BGR24 {
			r, b = b, r
		}
		img.Pix[j], img.Pix[j+1], img.Pix[j+2], img.Pix[j+3] = r, g, b, 0xff
	}
	return img
}
