// Package dispatch provides single lane executors. Work posted to a
// Looper runs one task at a time, in the order it was posted.
package dispatch

import (
	"runtime/debug"
	"sync"

	"github.com/tauraamui/dragondoorbell/pkg/doorbell/process"
	"github.com/tauraamui/dragondoorbell/pkg/log"
	"github.com/tauraamui/xerror"
)

var ErrLooperStopped = xerror.New("looper no longer accepting work")

type Looper struct {
	name     string
	mu       sync.Mutex
	tasks    []func()
	quitting bool
	started  bool
	wake     chan struct{}
	done     chan struct{}
}

func New(name string) *Looper {
	return &Looper{
		name: name,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (l *Looper) Name() string {
	return l.name
}

// Post queues fn without blocking, the queue is unbounded.
func (l *Looper) Post(fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.quitting {
		return xerror.Errorf("[%s] %w", l.name, ErrLooperStopped)
	}
	l.tasks = append(l.tasks, fn)
	l.signal()
	return nil
}

// Wake fires whenever new work has been posted.
func (l *Looper) Wake() <-chan struct{} {
	return l.wake
}

func (l *Looper) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Looper) Setup() process.Process { return l }

func (l *Looper) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started || l.quitting {
		return
	}
	l.started = true
	log.Debug("Starting looper [%s]", l.name)
	go l.loop()
}

func (l *Looper) loop() {
	defer close(l.done)
	for {
		l.RunPending()

		l.mu.Lock()
		finished := l.quitting && len(l.tasks) == 0
		l.mu.Unlock()
		if finished {
			log.Debug("Looper [%s] drained, exiting", l.name)
			return
		}
		<-l.wake
	}
}

// RunPending executes whatever is queued on the calling goroutine
// and reports how many tasks ran. Loopers that are never started are
// drained this way by their owner.
func (l *Looper) RunPending() int {
	ran := 0
	for {
		l.mu.Lock()
		if len(l.tasks) == 0 {
			l.mu.Unlock()
			return ran
		}
		fn := l.tasks[0]
		l.tasks[0] = nil
		l.tasks = l.tasks[1:]
		l.mu.Unlock()

		l.run(fn)
		ran++
	}
}

func (l *Looper) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Looper [%s] task panicked: %v\n%s", l.name, r, debug.Stack())
		}
	}()
	fn()
}

// Stop refuses new work, anything already queued still runs.
func (l *Looper) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.quitting {
		return
	}
	log.Debug("Stopping looper [%s]", l.name)
	l.quitting = true
	l.signal()
	if !l.started {
		close(l.done)
	}
}

func (l *Looper) IsStopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.quitting
}

// Wait blocks until the loop has drained and exited. For a looper
// that was never started it returns once Stop has been called.
func (l *Looper) Wait() {
	<-l.done
}
