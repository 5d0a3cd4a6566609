package display

import (
	"image"
	"sync"
	"time"

	"github.com/tauraamui/dragondoorbell/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
	"gocv.io/x/gocv"
	"golang.org/x/image/draw"
)

const NoKey = -1

// Surface is where decoded stills end up. All methods are called
// from the UI goroutine only.
type Surface interface {
	Render(image.Image) error
	// PollKey waits up to wait for a key press, returning NoKey if
	// none arrived.
	PollKey(wait time.Duration) int
	Close() error
}

// fit scales img to size, a zero size leaves img untouched.
func fit(img image.Image, size videoframe.Dimensions) image.Image {
	if size.W <= 0 || size.H <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() == size.W && b.Dy() == size.H {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, size.W, size.H))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

var newWindow = func(title string) window {
	return gocv.NewWindow(title)
}

type window interface {
	IMShow(gocv.Mat)
	WaitKey(int) int
	ResizeWindow(int, int)
	Close() error
}

// WindowSurface renders into a highgui window. It must be created
// and used from the same locked OS thread.
type WindowSurface struct {
	title  string
	size   videoframe.Dimensions
	window window
}

func NewWindowSurface(title string, size videoframe.Dimensions) *WindowSurface {
	w := newWindow(title)
	if size.W > 0 && size.H > 0 {
		w.ResizeWindow(size.W, size.H)
	}
	return &WindowSurface{title: title, size: size, window: w}
}

func (s *WindowSurface) Render(img image.Image) error {
	mat, err := gocv.ImageToMatRGBA(fit(img, s.size))
	if err != nil {
		return xerror.Errorf("unable to convert image for window [%s]: %w", s.title, err)
	}
	defer mat.Close()
	s.window.IMShow(mat)
	return nil
}

func (s *WindowSurface) PollKey(wait time.Duration) int {
	ms := int(wait / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	return s.window.WaitKey(ms)
}

func (s *WindowSurface) Close() error {
	return s.window.Close()
}

// HeadlessSurface keeps the last rendered image in memory, keys are
// injected with Press.
type HeadlessSurface struct {
	size videoframe.Dimensions
	keys chan int

	mu      sync.Mutex
	last    image.Image
	renders int
	closed  bool
}

func NewHeadlessSurface(size videoframe.Dimensions) *HeadlessSurface {
	return &HeadlessSurface{size: size, keys: make(chan int, 16)}
}

func (s *HeadlessSurface) Render(img image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return xerror.New("headless surface closed")
	}
	s.last = fit(img, s.size)
	s.renders++
	return nil
}

// Press queues a key for the next poll, dropping it if the buffer
// is full.
func (s *HeadlessSurface) Press(code int) bool {
	select {
	case s.keys <- code:
		return true
	default:
		return false
	}
}

func (s *HeadlessSurface) PollKey(wait time.Duration) int {
	if wait <= 0 {
		select {
		case k := <-s.keys:
			return k
		default:
			return NoKey
		}
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case k := <-s.keys:
		return k
	case <-t.C:
		return NoKey
	}
}

func (s *HeadlessSurface) Last() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *HeadlessSurface) Renders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renders
}

func (s *HeadlessSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
