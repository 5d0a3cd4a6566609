package camera

import (
	"context"
	"sync"
	"time"

	"github.com/tauraamui/dragondoorbell/pkg/log"
	"github.com/tauraamui/dragondoorbell/pkg/video/videobackend"
	"github.com/tauraamui/xerror"
)

type State int

const (
	Uninitialized State = iota
	Ready
	Capturing
	ShuttingDown
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Capturing:
		return "capturing"
	case ShuttingDown:
		return "shutting down"
	}
	return "unknown"
}

// Dispatcher is the single lane all device access happens on.
type Dispatcher interface {
	Post(func()) error
	Stop()
	Wait()
}

var Timestamp = func() time.Time {
	return time.Now()
}

var errFrameHandlerPanicked = xerror.New("frame handler panicked")

// Session owns the one open camera device. Every call into the
// device runs on the dispatcher it was initialized with.
type Session struct {
	backend  videobackend.Backend
	settings videobackend.Settings

	mu           sync.Mutex
	state        State
	initializing bool
	inFlight     int
	dispatcher   Dispatcher
	onFrame      FrameHandler

	// only touched from the dispatcher
	device videobackend.Device
}

func NewSession(backend videobackend.Backend, settings videobackend.Settings) *Session {
	return &Session{backend: backend, settings: settings}
}

func (s *Session) Settings() videobackend.Settings {
	return s.settings
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Initialize opens and configures the device on the dispatcher and
// arms onFrame, which is then invoked on the dispatcher once per
// completed capture.
func (s *Session) Initialize(ctx context.Context, dispatcher Dispatcher, onFrame FrameHandler) error {
	if dispatcher == nil || onFrame == nil {
		return xerror.New("camera session requires a dispatcher and frame handler")
	}

	s.mu.Lock()
	switch {
	case s.state == ShuttingDown:
		s.mu.Unlock()
		return xerror.Errorf("camera [%s] has been shut down: %w", s.settings.Title, ErrDeviceUnavailable)
	case s.state != Uninitialized || s.initializing:
		s.mu.Unlock()
		return ErrAlreadyInitialized
	}
	s.initializing = true
	s.mu.Unlock()

	log.Info("Opening camera [%s] at [%s]...", s.settings.Title, s.settings.Address)

	opened := make(chan error, 1)
	err := dispatcher.Post(func() { opened <- s.open(ctx) })
	if err != nil {
		s.abandonInitialize()
		return xerror.Errorf("unable to open camera [%s]: %v: %w", s.settings.Title, err, ErrDeviceUnavailable)
	}

	select {
	case err := <-opened:
		if err != nil {
			s.abandonInitialize()
			return xerror.Errorf("unable to open camera [%s]: %v: %w", s.settings.Title, err, ErrDeviceUnavailable)
		}
	case <-ctx.Done():
		s.abandonInitialize()
		return xerror.Errorf("opening camera [%s] cancelled: %v: %w", s.settings.Title, ctx.Err(), ErrDeviceUnavailable)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == ShuttingDown {
		s.initializing = false
		if err := dispatcher.Post(s.closeDevice); err != nil {
			log.Error("Unable to release camera [%s] opened during shutdown: %v", s.settings.Title, err)
		}
		return xerror.Errorf("camera [%s] shut down while opening: %w", s.settings.Title, ErrDeviceUnavailable)
	}
	s.initializing = false
	s.dispatcher = dispatcher
	s.onFrame = onFrame
	s.state = Ready
	log.Info("Camera [%s] ready at %s %s", s.settings.Title, s.settings.Dimensions, s.settings.Format)
	return nil
}

func (s *Session) abandonInitialize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initializing = false
}

// open runs on the dispatcher. A device opened after the caller gave
// up waiting is closed straight away so the handle never leaks.
func (s *Session) open(ctx context.Context) error {
	dev, err := s.backend.Open(ctx, s.settings)
	if err != nil {
		return err
	}

	s.mu.Lock()
	wanted := s.initializing && s.state != ShuttingDown
	s.mu.Unlock()
	if !wanted {
		if err := dev.Close(); err != nil {
			log.Error("Unable to close abandoned camera [%s]: %v", s.settings.Title, err)
		}
		return xerror.New("open abandoned")
	}

	s.device = dev
	return nil
}

// Capture enqueues one capture and returns without waiting for it.
func (s *Session) Capture() *Request {
	req := newRequest()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Ready && s.state != Capturing {
		err := xerror.Errorf("unable to capture [%s] while %s: %w", req.ID(), s.state, ErrNotInitialized)
		log.Error("%v", err)
		req.resolve(Result{Err: err})
		return req
	}

	if err := s.dispatcher.Post(func() { s.capture(req) }); err != nil {
		err = xerror.Errorf("unable to queue capture [%s]: %v: %w", req.ID(), err, ErrNotInitialized)
		log.Error("%v", err)
		req.resolve(Result{Err: err})
		return req
	}
	s.inFlight++
	log.Debug("Capture [%s] queued for camera [%s]", req.ID(), s.settings.Title)
	return req
}

// capture runs on the dispatcher.
func (s *Session) capture(req *Request) {
	s.mu.Lock()
	onFrame := s.onFrame
	if s.state == Ready {
		s.state = Capturing
	}
	s.mu.Unlock()

	defer s.captureDone()
	defer req.resolve(Result{Err: errFrameHandlerPanicked})

	if s.device == nil {
		err := xerror.Errorf("camera [%s] closed before capture [%s]: %w", s.settings.Title, req.ID(), ErrNotInitialized)
		log.Error("%v", err)
		req.resolve(Result{Err: err})
		return
	}

	still, err := s.readStill(req.ID())
	if err != nil {
		log.Error("%v", err)
		req.resolve(Result{Err: err})
		return
	}

	log.Debug("Capture [%s] produced %d bytes", req.ID(), len(still.Data))
	onFrame(still)
	req.resolve(Result{Still: still})
}

func (s *Session) captureDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	if s.state == Capturing && s.inFlight == 0 {
		s.state = Ready
	}
}

// readStill copies the frame's bytes out and releases the frame
// before anything else sees them.
func (s *Session) readStill(requestID string) (Still, error) {
	frame := s.device.NewFrame()
	if err := s.device.Read(frame); err != nil {
		frame.Close()
		return Still{}, xerror.Errorf("unable to read frame from camera [%s]: %w", s.settings.Title, err)
	}

	data, err := frame.ToBytes()
	dimensions, format := frame.Dimensions(), frame.Format()
	frame.Close()
	if err != nil {
		return Still{}, xerror.Errorf("unable to copy frame from camera [%s]: %w", s.settings.Title, err)
	}

	return Still{
		RequestID:  requestID,
		Data:       data,
		Dimensions: dimensions,
		Format:     format,
		Timestamp:  Timestamp(),
	}, nil
}

// Shutdown releases the device and the dispatcher. Captures queued
// before it are still serviced. Safe to call any number of times.
func (s *Session) Shutdown() {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Camera [%s] shutdown panicked: %v", s.settings.Title, r)
		}
	}()

	s.mu.Lock()
	prev := s.state
	if prev == ShuttingDown {
		s.mu.Unlock()
		return
	}
	s.state = ShuttingDown
	dispatcher := s.dispatcher
	s.mu.Unlock()

	if prev == Uninitialized {
		log.Debug("Camera [%s] was never initialized, nothing to shut down", s.settings.Title)
		return
	}

	log.Warn("Closing camera [%s]...", s.settings.Title)
	if err := dispatcher.Post(s.closeDevice); err != nil {
		// the dispatcher is already stopped so nothing else can be
		// touching the device
		log.Warn("Camera [%s] dispatcher already stopped: %v", s.settings.Title, err)
		dispatcher.Wait()
		s.closeDevice()
	}
	dispatcher.Stop()
	dispatcher.Wait()
}

func (s *Session) closeDevice() {
	if s.device == nil {
		return
	}
	if err := s.device.Close(); err != nil {
		log.Error("Unable to close camera [%s]: %v", s.settings.Title, err)
	}
	s.device = nil
}
