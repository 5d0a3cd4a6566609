package display

import (
	"image"
	"sync"

	"github.com/tauraamui/dragondoorbell/pkg/camera"
	"github.com/tauraamui/dragondoorbell/pkg/log"
	"github.com/tauraamui/xerror"
)

type poster interface {
	Post(func()) error
}

// Sink decodes stills off the UI goroutine and hands the result to
// the UI looper to draw.
type Sink struct {
	ui      poster
	surface Surface

	mu        sync.Mutex
	displayed image.Image
	scheduled int
}

func NewSink(ui poster, surface Surface) *Sink {
	return &Sink{ui: ui, surface: surface}
}

// Show decodes still and schedules it for rendering. A still that
// fails to decode leaves the displayed image as it was.
func (s *Sink) Show(still camera.Still) error {
	img, err := Decode(still)
	if err != nil {
		log.Error("Unable to display capture [%s]: %v", still.RequestID, err)
		return err
	}

	if err := s.ui.Post(func() { s.render(still.RequestID, img) }); err != nil {
		log.Warn("Dropping capture [%s], UI no longer running: %v", still.RequestID, err)
		return xerror.Errorf("unable to schedule render of [%s]: %w", still.RequestID, err)
	}

	s.mu.Lock()
	s.scheduled++
	s.mu.Unlock()
	return nil
}

// OnFrame lets the sink be registered as a camera frame handler.
func (s *Sink) OnFrame(still camera.Still) {
	_ = s.Show(still)
}

// render runs on the UI goroutine.
func (s *Sink) render(requestID string, img image.Image) {
	s.mu.Lock()
	s.displayed = img
	s.mu.Unlock()

	if s.surface == nil {
		return
	}
	if err := s.surface.Render(img); err != nil {
		log.Error("Unable to render capture [%s]: %v", requestID, err)
	}
}

func (s *Sink) Displayed() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayed
}

// Scheduled reports how many renders have been posted to the UI.
func (s *Sink) Scheduled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduled
}
