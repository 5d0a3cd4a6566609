package dispatch_test

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tauraamui/dragondoorbell/pkg/dispatch"
	"github.com/tauraamui/dragondoorbell/pkg/log"
)

func overloadErrorLog(overload func(string, ...interface{})) func() {
	logErrorRef := log.Error
	log.Error = overload
	return func() { log.Error = logErrorRef }
}

func TestLooperRunsTasksInPostOrder(t *testing.T) {
	is := is.New(t)
	l := dispatch.New("CameraBackground")
	is.Equal(l.Name(), "CameraBackground")
	l.Start()

	var order []int
	for i := 0; i < 100; i++ {
		i := i
		is.NoErr(l.Post(func() { order = append(order, i) }))
	}
	l.Stop()
	l.Wait()

	is.Equal(len(order), 100)
	for i, v := range order {
		is.Equal(v, i)
	}
}

func TestLooperNeverRunsTwoTasksAtOnce(t *testing.T) {
	l := dispatch.New("CameraBackground")
	l.Start()

	var running, maxRunning int32
	wg := sync.WaitGroup{}
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				assert.NoError(t, l.Post(func() {
					n := atomic.AddInt32(&running, 1)
					if n > atomic.LoadInt32(&maxRunning) {
						atomic.StoreInt32(&maxRunning, n)
					}
					time.Sleep(50 * time.Microsecond)
					atomic.AddInt32(&running, -1)
				}))
			}
		}()
	}
	wg.Wait()
	l.Stop()
	l.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxRunning))
}

func TestLooperPostAfterStopIsRejected(t *testing.T) {
	l := dispatch.New("CameraBackground")
	l.Start()
	l.Stop()
	l.Wait()

	assert.True(t, l.IsStopped())
	err := l.Post(func() { t.Fatal("task must not run") })
	require.Error(t, err)
	assert.True(t, errors.Is(err, dispatch.ErrLooperStopped))
	assert.EqualError(t, err, "[CameraBackground] looper no longer accepting work")
}

func TestLooperDrainsQueuedWorkAfterStop(t *testing.T) {
	is := is.New(t)
	l := dispatch.New("CameraBackground")

	ran := 0
	for i := 0; i < 3; i++ {
		is.NoErr(l.Post(func() { ran++ }))
	}
	l.Start()
	l.Stop()
	l.Wait()

	is.Equal(ran, 3)
}

func TestLooperRecoversFromPanickingTask(t *testing.T) {
	is := is.New(t)
	var errorLogs []string
	reset := overloadErrorLog(func(format string, a ...interface{}) {
		errorLogs = append(errorLogs, fmt.Sprintf(format, a...))
	})
	defer reset()

	l := dispatch.New("CameraBackground")
	l.Start()

	ranAfterPanic := false
	is.NoErr(l.Post(func() { panic("driver exploded") }))
	is.NoErr(l.Post(func() { ranAfterPanic = true }))
	l.Stop()
	l.Wait()

	is.True(ranAfterPanic)
	is.Equal(len(errorLogs), 1)
}

func TestUnstartedLooperDrainedByOwner(t *testing.T) {
	is := is.New(t)
	l := dispatch.New("UI")

	ran := []string{}
	is.NoErr(l.Post(func() { ran = append(ran, "render") }))
	is.NoErr(l.Post(func() { ran = append(ran, "render-again") }))

	select {
	case <-l.Wake():
	default:
		t.Fatal("expected wake signal after post")
	}

	is.Equal(l.RunPending(), 2)
	is.Equal(l.RunPending(), 0)
	is.Equal(ran, []string{"render", "render-again"})

	l.Stop()
	l.Wait()
	l.Start()
}
