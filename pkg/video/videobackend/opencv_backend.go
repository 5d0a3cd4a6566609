package videobackend

import (
	"context"
	"image"
	"sync"

	"github.com/google/uuid"
	"github.com/tauraamui/dragondoorbell/pkg/rtsp"
	"github.com/tauraamui/dragondoorbell/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
)

type openCVFrame struct {
	isClosed bool
	mat      gocv.Mat
	format   videoframe.Format
}

func (frame *openCVFrame) DataRef() interface{} {
	return &frame.mat
}

func (frame *openCVFrame) Format() videoframe.Format {
	return frame.format
}

func (frame *openCVFrame) Dimensions() videoframe.Dimensions {
	return videoframe.Dimensions{W: frame.mat.Cols(), H: frame.mat.Rows()}
}

// ToBytes converts from the BGR matrix OpenCV captures into
// the frame's format, both ToBytes and IMEncode hand back copies.
func (frame *openCVFrame) ToBytes() ([]byte, error) {
	if frame.isClosed {
		return nil, xerror.New("cannot read bytes from closed frame")
	}
	if frame.mat.Empty() {
		return nil, xerror.New("cannot read bytes from empty frame")
	}

	switch frame.format {
	case videoframe.JPEG:
		return gocv.IMEncode(gocv.JPEGFileExt, frame.mat)
	case videoframe.BGR24:
		return frame.mat.ToBytes(), nil
	}

	code, ok := map[videoframe.Format]gocv.ColorConversionCode{
		videoframe.RGB24: gocv.ColorBGRToRGB,
		videoframe.RGBA:  gocv.ColorBGRToRGBA,
		videoframe.Gray:  gocv.ColorBGRToGray,
	}[frame.format]
	if !ok {
		return nil, xerror.Errorf("unsupported OpenCV frame format: %s", frame.format)
	}

	converted := gocv.NewMat()
	defer converted.Close()
	gocv.CvtColor(frame.mat, &converted, code)
	return converted.ToBytes(), nil
}

func (frame *openCVFrame) Close() {
	if !frame.isClosed {
		frame.mat.Close()
		frame.isClosed = true
	}
}

type openCVBackend struct{}

func (b *openCVBackend) Open(cancel context.Context, settings Settings) (Device, error) {
	if err := probeStream(cancel, settings.Address); err != nil {
		return nil, err
	}

	conn := openCVConnection{settings: settings}
	err := conn.connect(cancel, settings.Address)
	if err != nil {
		return nil, err
	}
	conn.configure()
	return &conn, nil
}

type openCVConnection struct {
	uuid     string
	mu       sync.Mutex
	isOpen   bool
	settings Settings
	vc       *gocv.VideoCapture
}

func (c *openCVConnection) connect(cancel context.Context, addr string) error {
	connAndError := make(chan openVideoStreamResult, 1)
	go openVideoStream(openVideoCapture, addr, connAndError)
	select {
	case r := <-connAndError:
		if r.err != nil {
			return r.err
		}
		c.vc = r.vc
		c.isOpen = true
		return nil
	case <-cancel.Done():
		// the open may still complete, release it if it does
		go func() {
			if r := <-connAndError; r.vc != nil {
				r.vc.Close()
			}
		}()
		return xerror.New("connection cancelled")
	}
}

func (c *openCVConnection) configure() {
	d := c.settings.Dimensions
	if d.W > 0 && d.H > 0 {
		setVideoCaptureProp(c.vc, gocv.VideoCaptureFrameWidth, float64(d.W))
		setVideoCaptureProp(c.vc, gocv.VideoCaptureFrameHeight, float64(d.H))
	}
	if c.settings.BufferSize > 0 {
		setVideoCaptureProp(c.vc, gocv.VideoCaptureBufferSize, float64(c.settings.BufferSize))
	}
}

type openVideoStreamResult struct {
	vc  *gocv.VideoCapture
	err error
}

func openVideoStream(open func(string) (*gocv.VideoCapture, error), addr string, d chan openVideoStreamResult) {
	vc, err := open(addr)
	result := openVideoStreamResult{vc: vc, err: err}
	d <- result
}

// probeStream checks an rtsp camera answers before the driver is
// handed its address. Local devices are not probed.
var probeStream = func(ctx context.Context, addr string) error {
	if !rtsp.IsRTSP(addr) {
		return nil
	}
	client, err := rtsp.NewClient(addr)
	if err != nil {
		return err
	}
	return client.Options(ctx)
}

var openVideoCapture = func(addr string) (*gocv.VideoCapture, error) {
	return gocv.OpenVideoCapture(addr)
}

var setVideoCaptureProp = func(vc *gocv.VideoCapture, prop gocv.VideoCaptureProperties, v float64) {
	vc.Set(prop, v)
}

var readFromVideoConnection = func(vc *gocv.VideoCapture, mat *gocv.Mat, skip int) bool {
	if !vc.IsOpened() {
		return false
	}
	if skip > 0 {
		vc.Grab(skip)
	}
	return vc.Read(mat)
}

func (c *openCVConnection) UUID() string {
	if len(c.uuid) == 0 {
		c.uuid = uuid.NewString()
	}
	return c.uuid
}

func (c *openCVConnection) NewFrame() videoframe.Frame {
	return &openCVFrame{mat: gocv.NewMat(), format: c.settings.Format}
}

func (c *openCVConnection) Read(frame videoframe.Frame) error {
	mat, ok := frame.DataRef().(*gocv.Mat)
	if !ok {
		return xerror.New("must pass OpenCV frame to OpenCV connection read")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ok = readFromVideoConnection(c.vc, mat, c.settings.BufferSize)
	if !ok || mat.Empty() {
		return xerror.New("unable to read from video connection")
	}
	return c.fitToSettings(mat)
}

// fitToSettings resizes in case the driver ignored the requested resolution.
func (c *openCVConnection) fitToSettings(mat *gocv.Mat) error {
	d := c.settings.Dimensions
	if d.W <= 0 || d.H <= 0 || (mat.Cols() == d.W && mat.Rows() == d.H) {
		return nil
	}
	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(*mat, &resized, image.Pt(d.W, d.H), 0, 0, gocv.InterpolationLinear)
	if resized.Empty() {
		return xerror.Errorf("unable to resize frame to %s", d)
	}
	resized.CopyTo(mat)
	return nil
}

func (c *openCVConnection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isOpen {
		return c.vc.IsOpened()
	}
	return false
}

func (c *openCVConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isOpen {
		return nil
	}
	c.isOpen = false
	return c.vc.Close()
}
