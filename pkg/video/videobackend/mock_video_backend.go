package videobackend

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"
	"time"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"github.com/tauraamui/dragondoorbell/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

const (
	defaultMockWidth  = 600
	defaultMockHeight = 400
)

var mockTimestamp = func() time.Time {
	return time.Now()
}

type mockVideoBackend struct{}

func (b *mockVideoBackend) Open(cancel context.Context, settings Settings) (Device, error) {
	select {
	case <-cancel.Done():
		return nil, xerror.New("connection cancelled")
	default:
	}

	d := settings.Dimensions
	if d.W <= 0 || d.H <= 0 {
		d = videoframe.Dimensions{W: defaultMockWidth, H: defaultMockHeight}
	}
	format := settings.Format
	if len(format) == 0 {
		format = videoframe.JPEG
	}
	return &mockVideoConnection{
		cameraTitle: settings.Title,
		dimensions:  d,
		format:      format,
		isOpen:      true,
	}, nil
}

// mockFrame holds a rendered image rather than a driver buffer.
type mockFrame struct {
	mu     sync.Mutex
	img    *image.RGBA
	format videoframe.Format
}

func (frame *mockFrame) DataRef() interface{} {
	return frame
}

func (frame *mockFrame) Format() videoframe.Format {
	return frame.format
}

func (frame *mockFrame) Dimensions() videoframe.Dimensions {
	frame.mu.Lock()
	defer frame.mu.Unlock()
	if frame.img == nil {
		return videoframe.Dimensions{}
	}
	b := frame.img.Bounds()
	return videoframe.Dimensions{W: b.Dx(), H: b.Dy()}
}

func (frame *mockFrame) ToBytes() ([]byte, error) {
	frame.mu.Lock()
	defer frame.mu.Unlock()
	if frame.img == nil {
		return nil, xerror.New("cannot read bytes from empty frame")
	}
	return videoframe.Encode(frame.img, frame.format)
}

func (frame *mockFrame) Close() {
	frame.mu.Lock()
	defer frame.mu.Unlock()
	frame.img = nil
}

type mockVideoConnection struct {
	mu                      sync.Mutex
	uuid                    string
	cameraTitle             string
	dimensions              videoframe.Dimensions
	format                  videoframe.Format
	isOpen                  bool
	readCount               int
	renderedBaseFrameCanvas bool
	baseFrameCanvas         image.Image
}

func (mvc *mockVideoConnection) UUID() string {
	if len(mvc.uuid) == 0 {
		mvc.uuid = uuid.NewString()
	}
	return mvc.uuid
}

func (mvc *mockVideoConnection) NewFrame() videoframe.Frame {
	return &mockFrame{format: mvc.format}
}

// Read renders a fresh still every call, so the frame handed
// back is always the most recent one.
func (mvc *mockVideoConnection) Read(frame videoframe.Frame) error {
	mf, ok := frame.DataRef().(*mockFrame)
	if !ok {
		return xerror.New("must pass mock frame to mock video connection read")
	}

	mvc.mu.Lock()
	defer mvc.mu.Unlock()
	if !mvc.isOpen {
		return xerror.New("unable to read from closed video connection")
	}

	if !mvc.renderedBaseFrameCanvas {
		mvc.baseFrameCanvas = renderBaseFrameCanvas(mvc.dimensions)
		mvc.renderedBaseFrameCanvas = true
	}
	mvc.readCount++

	img, err := drawTextLayerOntoBaseFrameClone(
		mvc.baseFrameCanvas, mvc.cameraTitle, mvc.readCount,
	)
	if err != nil {
		return err
	}

	mf.mu.Lock()
	mf.img = img
	mf.mu.Unlock()
	return nil
}

func (mvc *mockVideoConnection) IsOpen() bool {
	mvc.mu.Lock()
	defer mvc.mu.Unlock()
	return mvc.isOpen
}

func (mvc *mockVideoConnection) Close() error {
	mvc.mu.Lock()
	defer mvc.mu.Unlock()
	mvc.isOpen = false
	mvc.renderedBaseFrameCanvas = false
	mvc.baseFrameCanvas = nil
	return nil
}

func drawTextLayerOntoBaseFrameClone(base image.Image, title string, count int) (*image.RGBA, error) {
	baseClone := cloneImage(base)
	h := baseClone.Bounds().Dy()
	fontSize := float64(h) / 8

	lines := []string{
		"DD_DOORBELL_MOCK",
		title,
		fmt.Sprintf("#%d %s", count, mockTimestamp().Format("2006-01-02 15:04:05.999")),
	}
	for i, line := range lines {
		if len(line) == 0 {
			continue
		}
		y := int(fontSize) * (2*i + 2)
		if err := drawText(baseClone, 5, y, fontSize, line); err != nil {
			return nil, xerror.Errorf("unable to draw text onto in-mem image for mock frame: %w", err)
		}
	}
	return baseClone, nil
}

func renderBaseFrameCanvas(d videoframe.Dimensions) image.Image {
	w, h := d.W, d.H
	var hw, hh float64 = float64(w / 2), float64(h / 2)
	r := math.Min(hw, hh)
	θ := 2 * math.Pi / 3
	cr := &circle{hw - r*math.Sin(0), hh - r*math.Cos(0), r * 1.5}
	cg := &circle{hw - r*math.Sin(θ), hh - r*math.Cos(θ), r * 1.5}
	cb := &circle{hw - r*math.Sin(-θ), hh - r*math.Cos(-θ), r * 1.5}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			c := color.RGBA{
				cr.Brightness(float64(x), float64(y)),
				cg.Brightness(float64(x), float64(y)),
				cb.Brightness(float64(x), float64(y)),
				255,
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func cloneImage(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}

func drawText(canvas *image.RGBA, x, y int, size float64, text string) error {
	fontFace, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return err
	}
	fontDrawer := &font.Drawer{
		Dst: canvas,
		Src: image.White,
		Face: truetype.NewFace(fontFace, &truetype.Options{
			Size:    size,
			Hinting: font.HintingFull,
		}),
	}
	fontDrawer.Dot = fixed.Point26_6{
		X: fixed.I(x),
		Y: fixed.I(y),
	}
	fontDrawer.DrawString(text)
	return nil
}

type circle struct {
	X, Y, R float64
}

func (c *circle) Brightness(x, y float64) uint8 {
	var dx, dy float64 = c.X - x, c.Y - y
	d := math.Sqrt(dx*dx+dy*dy) / c.R
	if d > 1 {
		return 0
	}
	return 255
}
