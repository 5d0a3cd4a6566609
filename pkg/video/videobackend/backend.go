package videobackend

import (
	"context"

	"github.com/tauraamui/dragondoorbell/pkg/video/videoframe"
)

// Settings is what a device gets configured with when opened.
type Settings struct {
	Title      string
	Address    string
	Dimensions videoframe.Dimensions
	Format     videoframe.Format
	// BufferSize is the number of frames the driver may hold, reads
	// discard that many before grabbing so the latest frame wins.
	BufferSize int
}

type Device interface {
	UUID() string
	NewFrame() videoframe.Frame
	Read(videoframe.Frame) error
	IsOpen() bool
	Close() error
}

type Backend interface {
	Open(context.Context, Settings) (Device, error)
}

func Default() Backend {
	return OpenCV()
}

func OpenCV() Backend {
	return &openCVBackend{}
}

func Mock() Backend {
	return &mockVideoBackend{}
}

func Resolve(t string) Backend {
	switch t {
	case "mock":
		return Mock()
	default:
		return Default()
	}
}
