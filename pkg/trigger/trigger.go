// Package trigger turns input events into capture requests.
package trigger

import (
	"context"
	"sync"

	"github.com/tauraamui/dragondoorbell/pkg/camera"
	"github.com/tauraamui/dragondoorbell/pkg/doorbell/process"
	"github.com/tauraamui/dragondoorbell/pkg/log"
)

// KeyEnter is the enter/confirm key code, the only code that rings
// the doorbell.
const KeyEnter = 13

const keyLineFeed = 10

type Event struct {
	Code   int
	Source string
}

// KeyEvent builds an event from a raw key code, folding line feed
// onto KeyEnter since terminals and windows disagree on which one
// the enter key sends.
func KeyEvent(code int, source string) Event {
	if code == keyLineFeed {
		code = KeyEnter
	}
	return Event{Code: code, Source: source}
}

type Capturer interface {
	Capture() *camera.Request
}

// Source produces events until ctx is done or it fails.
type Source interface {
	Name() string
	Run(ctx context.Context, events chan<- Event) error
}

type Trigger struct {
	capturer Capturer

	mu    sync.Mutex
	fired int
}

func New(capturer Capturer) *Trigger {
	return &Trigger{capturer: capturer}
}

// Handle requests one capture for a KeyEnter event and reports
// whether it did. Every other event is ignored.
func (t *Trigger) Handle(e Event) bool {
	if e.Code != KeyEnter {
		log.Debug("Ignoring key [%d] from [%s]", e.Code, e.Source)
		return false
	}

	req := t.capturer.Capture()
	t.mu.Lock()
	t.fired++
	t.mu.Unlock()
	log.Info("Doorbell pressed via [%s], capture [%s] requested", e.Source, req.ID())
	return true
}

// Fired reports how many captures have been requested so far.
func (t *Trigger) Fired() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}

// Listen runs every source in its own goroutine and handles their
// events, in arrival order, on one more.
func (t *Trigger) Listen(sources ...Source) process.Process {
	return process.New(process.Settings{
		WaitForShutdownMsg: "Stopping doorbell trigger sources...",
		Process: func(ctx context.Context) []chan interface{} {
			events := make(chan Event)
			signals := []chan interface{}{}
			for _, src := range sources {
				signals = append(signals, runSource(ctx, src, events))
			}
			signals = append(signals, t.drain(ctx, events))
			return signals
		},
	})
}

func runSource(ctx context.Context, src Source, events chan<- Event) chan interface{} {
	stopped := make(chan interface{})
	go func(ctx context.Context, src Source, stopped chan interface{}) {
		defer close(stopped)
		log.Debug("Listening for doorbell presses from [%s]", src.Name())
		if err := src.Run(ctx, events); err != nil {
			log.Error("Trigger source [%s] stopped: %v", src.Name(), err)
		}
	}(ctx, src, stopped)
	return stopped
}

func (t *Trigger) drain(ctx context.Context, events <-chan Event) chan interface{} {
	stopped := make(chan interface{})
	go func(ctx context.Context, stopped chan interface{}) {
		defer close(stopped)
		for {
			select {
			case <-ctx.Done():
				return
			case e := <-events:
				t.Handle(e)
			}
		}
	}(ctx, stopped)
	return stopped
}

func emit(ctx context.Context, events chan<- Event, e Event) bool {
	select {
	case events <- e:
		return true
	case <-ctx.Done():
		return false
	}
}
