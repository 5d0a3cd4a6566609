package display_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tacusci/logging/v2"
	"github.com/tauraamui/dragondoorbell/pkg/display"
	"github.com/tauraamui/dragondoorbell/pkg/video/videoframe"
	"gocv.io/x/gocv"
)

func silenceLogs(t *testing.T) {
	t.Helper()
	logging.CurrentLoggingLevel = logging.SilentLevel
	t.Cleanup(func() { logging.CurrentLoggingLevel = logging.WarnLevel })
}

func TestSinkRendersOnlyWhenUIDrains(t *testing.T) {
	is := is.New(t)
	silenceLogs(t)

	surface := display.NewHeadlessSurface(videoframe.Dimensions{})
	ui := display.NewUI(surface, 0)
	sink := display.NewSink(ui.Looper(), surface)

	is.NoErr(sink.Show(grayStill(4, 3, 0x20, 12)))
	is.Equal(sink.Scheduled(), 1)
	is.True(sink.Displayed() == nil)
	is.Equal(surface.Renders(), 0)

	is.Equal(ui.Looper().RunPending(), 1)
	is.Equal(surface.Renders(), 1)
	is.Equal(sink.Displayed().At(0, 0), color.Gray{Y: 0x20})
}

func TestSinkKeepsPreviousImageOnDecodeFailure(t *testing.T) {
	is := is.New(t)
	silenceLogs(t)

	surface := display.NewHeadlessSurface(videoframe.Dimensions{})
	ui := display.NewUI(surface, 0)
	sink := display.NewSink(ui.Looper(), surface)

	is.NoErr(sink.Show(grayStill(4, 3, 0x20, 12)))
	ui.Looper().RunPending()
	previous := sink.Displayed()

	err := sink.Show(grayStill(4, 3, 0x40, 5))
	is.True(errors.Is(err, display.ErrDecodeFailure))
	is.Equal(ui.Looper().RunPending(), 0)
	is.Equal(sink.Displayed(), previous)
	is.Equal(surface.Renders(), 1)
	is.Equal(sink.Scheduled(), 1)
}

func TestSinkShowsLatestOfTwoStills(t *testing.T) {
	is := is.New(t)
	silenceLogs(t)

	surface := display.NewHeadlessSurface(videoframe.Dimensions{})
	ui := display.NewUI(surface, 0)
	sink := display.NewSink(ui.Looper(), surface)

	sink.OnFrame(grayStill(4, 3, 0x01, 12))
	sink.OnFrame(grayStill(4, 3, 0x02, 12))
	is.Equal(ui.Looper().RunPending(), 2)
	is.Equal(sink.Displayed().At(1, 1), color.Gray{Y: 0x02})
	is.Equal(surface.Renders(), 2)
}

func TestSinkRefusesStillAfterUIStopped(t *testing.T) {
	is := is.New(t)
	silenceLogs(t)

	ui := display.NewUI(nil, 0)
	sink := display.NewSink(ui.Looper(), nil)
	ui.Looper().Stop()

	err := sink.Show(grayStill(4, 3, 0x01, 12))
	is.True(err != nil)
	is.Equal(sink.Scheduled(), 0)
}

func TestHeadlessSurfaceScalesToConfiguredSize(t *testing.T) {
	is := is.New(t)

	surface := display.NewHeadlessSurface(videoframe.Dimensions{W: 8, H: 6})
	is.NoErr(surface.Render(image.NewGray(image.Rect(0, 0, 4, 3))))
	is.Equal(surface.Last().Bounds(), image.Rect(0, 0, 8, 6))

	is.NoErr(surface.Close())
	is.True(surface.Render(image.NewGray(image.Rect(0, 0, 4, 3))) != nil)
}

func TestHeadlessSurfacePollKey(t *testing.T) {
	is := is.New(t)

	surface := display.NewHeadlessSurface(videoframe.Dimensions{})
	is.Equal(surface.PollKey(0), display.NoKey)
	is.Equal(surface.PollKey(time.Millisecond), display.NoKey)

	is.True(surface.Press(13))
	is.Equal(surface.PollKey(time.Second), 13)
}

func TestUIForwardsKeysAndDrainsOnCancel(t *testing.T) {
	silenceLogs(t)

	surface := display.NewHeadlessSurface(videoframe.Dimensions{})
	ui := display.NewUI(surface, time.Millisecond)
	keys := make(chan int, 1)
	ui.OnKey(func(code int) { keys <- code })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ui.Run(ctx)
		close(done)
	}()

	surface.Press(13)
	select {
	case code := <-keys:
		assert.Equal(t, 13, code)
	case <-time.After(3 * time.Second):
		t.Fatal("test timeout 3s limit exceeded")
	}

	ran := make(chan struct{})
	cancel()
	<-done
	require.Error(t, ui.Looper().Post(func() { close(ran) }))
	require.Error(t, surface.Render(image.NewGray(image.Rect(0, 0, 1, 1))))
}

func TestUIWithoutSurfaceStillRunsPostedWork(t *testing.T) {
	silenceLogs(t)

	ui := display.NewUI(nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ui.Run(ctx)
		close(done)
	}()

	ran := make(chan struct{})
	require.NoError(t, ui.Looper().Post(func() { close(ran) }))
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("test timeout 3s limit exceeded")
	}
	cancel()
	<-done
}

func TestUICloseWithoutRunReleasesSurface(t *testing.T) {
	is := is.New(t)
	silenceLogs(t)

	surface := display.NewHeadlessSurface(videoframe.Dimensions{})
	ui := display.NewUI(surface, 0)

	ran := false
	is.NoErr(ui.Looper().Post(func() { ran = true }))

	ui.Close()
	ui.Close()

	is.True(ran)
	is.True(ui.Looper().IsStopped())
	is.True(surface.Render(image.NewGray(image.Rect(0, 0, 1, 1))) != nil)
}

type testWindow struct {
	title   string
	resized [2]int
	waits   []int
	closed  bool
}

func (w *testWindow) IMShow(gocv.Mat)           {}
func (w *testWindow) WaitKey(ms int) int        { w.waits = append(w.waits, ms); return display.NoKey }
func (w *testWindow) ResizeWindow(width, h int) { w.resized = [2]int{width, h} }
func (w *testWindow) Close() error              { w.closed = true; return nil }

func TestWindowSurfaceUsesHighguiWindow(t *testing.T) {
	is := is.New(t)

	win := &testWindow{}
	reset := display.OverloadNewWindow(func(title string) display.Window {
		win.title = title
		return win
	})
	defer reset()

	surface := display.NewWindowSurface("Front Door", videoframe.Dimensions{W: 640, H: 480})
	is.Equal(win.title, "Front Door")
	is.Equal(win.resized, [2]int{640, 480})

	is.Equal(surface.PollKey(0), display.NoKey)
	is.Equal(surface.PollKey(25*time.Millisecond), display.NoKey)
	is.Equal(win.waits, []int{1, 25})

	is.NoErr(surface.Close())
	is.True(win.closed)
}
