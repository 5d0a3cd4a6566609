// Package doorbell wires a camera session, its triggers, the display
// and the forwarder into one app with a create/destroy lifecycle.
package doorbell

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/tauraamui/dragondoorbell/pkg/camera"
	"github.com/tauraamui/dragondoorbell/pkg/configdef"
	"github.com/tauraamui/dragondoorbell/pkg/dispatch"
	"github.com/tauraamui/dragondoorbell/pkg/display"
	"github.com/tauraamui/dragondoorbell/pkg/doorbell/process"
	"github.com/tauraamui/dragondoorbell/pkg/forward"
	"github.com/tauraamui/dragondoorbell/pkg/log"
	"github.com/tauraamui/dragondoorbell/pkg/permission"
	"github.com/tauraamui/dragondoorbell/pkg/trigger"
	"github.com/tauraamui/dragondoorbell/pkg/video/videobackend"
	"github.com/tauraamui/dragondoorbell/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

// Options replace the pieces New would otherwise build from config.
type Options struct {
	Backend   videobackend.Backend
	Checker   permission.Checker
	Surface   display.Surface
	Forwarder forward.Forwarder
	Sources   []trigger.Source
	// Interrupt is called when Ctrl-C is read from a raw terminal.
	Interrupt func()
}

type App struct {
	values configdef.Values
	opts   Options

	mu        sync.Mutex
	created   bool
	destroyed bool
	permitted bool

	session    *camera.Session
	dispatcher *dispatch.Looper
	ui         *display.UI
	sink       *display.Sink
	lane       *forward.Lane
	trigger    *trigger.Trigger
	procs      process.Group
}

func New(values configdef.Values, opts Options) *App {
	return &App{values: values, opts: opts}
}

func (a *App) cameraSettings() (videobackend.Settings, error) {
	cam := a.values.Camera
	format, err := videoframe.ParseFormat(cam.Format)
	if err != nil {
		return videobackend.Settings{}, err
	}
	return videobackend.Settings{
		Title:      cam.Title,
		Address:    cam.Address,
		Dimensions: videoframe.Dimensions{W: cam.Width, H: cam.Height},
		Format:     format,
		BufferSize: cam.BufferSize,
	}, nil
}

// OnCreate checks camera permission, then brings everything up. A
// denied permission or a camera that cannot be opened is logged and
// leaves the app idle without a window, neither is an error.
func (a *App) OnCreate(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.created {
		return xerror.New("doorbell already created")
	}
	a.created = true

	settings, err := a.cameraSettings()
	if err != nil {
		return xerror.Errorf("invalid camera settings: %w", err)
	}

	checker := a.opts.Checker
	if checker == nil {
		checker = permission.DeviceAccess()
	}
	if err := checker.Check(settings.Address); err != nil {
		if errors.Is(err, permission.ErrPermissionDenied) {
			log.Error("Camera [%s] permission denied, doorbell idle: %v", settings.Title, err)
		} else {
			log.Error("Unable to check camera [%s] permission, doorbell idle: %v", settings.Title, err)
		}
		return nil
	}
	a.permitted = true

	a.ui = display.NewUI(a.surface(), a.values.Display.KeyPollInterval())
	if surface := a.ui.Surface(); surface != nil {
		a.sink = display.NewSink(a.ui.Looper(), surface)
	}

	if err := a.setupForwarder(ctx); err != nil {
		return err
	}

	backend := a.opts.Backend
	if backend == nil {
		backend = videobackend.Resolve(a.values.Camera.Backend)
	}
	a.dispatcher = dispatch.New("CameraBackground")
	a.dispatcher.Start()
	a.session = camera.NewSession(backend, settings)
	if err := a.session.Initialize(ctx, a.dispatcher, a.onFrame); err != nil {
		a.releaseCameraView()
		if !errors.Is(err, camera.ErrDeviceUnavailable) {
			return err
		}
		// the session stays uninitialized, triggers are still read
		// and each one is refused as not initialized
		log.Error("Camera [%s] unavailable, doorbell idle: %v", settings.Title, err)
	}

	a.trigger = trigger.New(a.session)
	if a.ui != nil {
		a.ui.OnKey(func(code int) {
			a.trigger.Handle(trigger.KeyEvent(code, "window"))
		})
	}
	if sources := a.sources(); len(sources) > 0 {
		a.procs.Add(a.trigger.Listen(sources...))
	}
	a.procs.Start()

	log.Info("Doorbell ready, press enter to ring")
	return nil
}

// releaseCameraView undoes everything built for a camera that never
// opened.
func (a *App) releaseCameraView() {
	a.dispatcher.Stop()
	a.dispatcher.Wait()
	if a.lane != nil {
		a.lane.Close()
		a.lane = nil
	}
	a.ui.Close()
	a.ui = nil
	a.sink = nil
}

func (a *App) surface() display.Surface {
	if !a.values.Display.Enabled {
		return nil
	}
	if a.opts.Surface != nil {
		return a.opts.Surface
	}
	size := videoframe.Dimensions{W: a.values.Display.Width, H: a.values.Display.Height}
	if a.values.Display.Headless {
		return display.NewHeadlessSurface(size)
	}
	return display.NewWindowSurface(a.values.Display.Title, size)
}

func (a *App) setupForwarder(ctx context.Context) error {
	fwd := a.opts.Forwarder
	if fwd == nil {
		var err error
		fwd, err = forward.New(ctx, forward.Settings{
			Kind:    a.values.Forward.Kind,
			URL:     a.values.Forward.URL,
			APIKey:  a.values.Forward.APIKey,
			Timeout: a.values.Forward.Timeout(),
		})
		if err != nil {
			return xerror.Errorf("unable to set up forwarder: %w", err)
		}
	}
	if fwd == nil {
		return nil
	}
	a.lane = forward.NewLane(fwd, a.values.Forward.Timeout())
	a.lane.Looper().Start()
	log.Info("Forwarding captures to [%s]", fwd.Name())
	return nil
}

func (a *App) sources() []trigger.Source {
	sources := append([]trigger.Source{}, a.opts.Sources...)
	if a.values.Trigger.Terminal {
		sources = append(sources, trigger.NewTerminalSource(os.Stdin, a.opts.Interrupt))
	}
	if b := a.values.Trigger.Button; b.Enabled {
		sources = append(sources, trigger.NewButtonSource(b.Pin, b.PullUp, b.PollInterval()))
	}
	return sources
}

// onFrame runs on the camera dispatcher.
func (a *App) onFrame(still camera.Still) {
	if a.sink != nil {
		a.sink.OnFrame(still)
	}
	if a.lane != nil {
		a.lane.OnFrame(still)
	}
}

// Run drives the UI on the calling goroutine until ctx is done. It
// must be called from the main goroutine when a window is attached.
func (a *App) Run(ctx context.Context) {
	a.mu.Lock()
	ui := a.ui
	a.mu.Unlock()
	if ui == nil {
		<-ctx.Done()
		return
	}
	ui.Run(ctx)
}

// OnDestroy stops the triggers, releases the camera and flushes the
// forwarder. Safe to call more than once, or without OnCreate.
func (a *App) OnDestroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destroyed {
		return
	}
	a.destroyed = true

	a.procs.StopAndWait()
	if a.session != nil {
		a.session.Shutdown()
	}
	if a.lane != nil {
		a.lane.Close()
	}
	if a.ui != nil {
		a.ui.Close()
	}
	log.Info("Doorbell shut down")
}

func (a *App) Permitted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.permitted
}

func (a *App) Session() *camera.Session { return a.session }

func (a *App) Dispatcher() *dispatch.Looper { return a.dispatcher }

func (a *App) UI() *display.UI { return a.ui }

func (a *App) Sink() *display.Sink { return a.sink }

func (a *App) Trigger() *trigger.Trigger { return a.trigger }
