package display

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/tauraamui/dragondoorbell/pkg/dispatch"
	"github.com/tauraamui/dragondoorbell/pkg/log"
)

const defaultKeyPollInterval = 10 * time.Millisecond

// UI owns the UI looper. Its work is only ever run from Run, on the
// goroutine that called it.
type UI struct {
	looper   *dispatch.Looper
	surface  Surface
	keyPoll  time.Duration
	onKey    func(code int)
	attached bool

	closeOnce sync.Once
}

func NewUI(surface Surface, keyPoll time.Duration) *UI {
	if keyPoll <= 0 {
		keyPoll = defaultKeyPollInterval
	}
	return &UI{
		looper:   dispatch.New("UI"),
		surface:  surface,
		keyPoll:  keyPoll,
		attached: surface != nil,
	}
}

func (u *UI) Looper() *dispatch.Looper {
	return u.looper
}

func (u *UI) Surface() Surface {
	return u.surface
}

// OnKey registers the callback every polled key is forwarded to.
// Must be set before Run.
func (u *UI) OnKey(fn func(code int)) {
	u.onKey = fn
}

// Run drains posted work and polls for keys until ctx is done, then
// runs whatever is still queued and closes the surface.
func (u *UI) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	log.Debug("UI running, surface attached: %t", u.attached)
	for {
		u.looper.RunPending()

		select {
		case <-ctx.Done():
			u.Close()
			return
		default:
		}

		if !u.attached {
			select {
			case <-ctx.Done():
			case <-u.looper.Wake():
			}
			continue
		}

		if code := u.surface.PollKey(u.keyPoll); code != NoKey && u.onKey != nil {
			u.onKey(code)
		}
	}
}

// Close stops the UI looper, runs what is still queued and closes the
// surface. Run calls it on exit, only the first call does anything.
func (u *UI) Close() {
	u.closeOnce.Do(u.shutdown)
}

func (u *UI) shutdown() {
	u.looper.Stop()
	u.looper.RunPending()
	u.looper.Wait()
	if !u.attached {
		return
	}
	if err := u.surface.Close(); err != nil {
		log.Error("Unable to close UI surface: %v", err)
	}
}
