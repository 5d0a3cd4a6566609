package videoframe

import (
	"fmt"
	"strings"
)

type Dimensions struct {
	W, H int
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.W, d.H)
}

// Format is the byte layout a frame's payload is delivered in.
type Format string

const (
	BGR24 Format = "bgr24"
	RGB24 Format = "rgb24"
	RGBA  Format = "rgba"
	Gray  Format = "gray"
	JPEG  Format = "jpeg"
)

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case BGR24, RGB24, RGBA, Gray, JPEG:
		return f, nil
	}
	return "", fmt.Errorf("unknown frame format: %q", s)
}

// BytesPerPixel is zero for compressed formats.
func (f Format) BytesPerPixel() int {
	switch f {
	case BGR24, RGB24:
		return 3
	case RGBA:
		return 4
	case Gray:
		return 1
	}
	return 0
}

func (f Format) IsRaw() bool {
	return f.BytesPerPixel() > 0
}

// ExpectedLen returns the minimum payload size of a raw frame of
// these dimensions, or zero when the format is compressed.
func (d Dimensions) ExpectedLen(f Format) int {
	return d.W * d.H * f.BytesPerPixel()
}

type NoCloser interface {
	DataRef() interface{}
	Dimensions() Dimensions
	Format() Format
	// ToBytes returns a copy of the payload, the result stays
	// valid after the frame is closed.
	ToBytes() ([]byte, error)
}

type Frame interface {
	NoCloser
	Close()
}
