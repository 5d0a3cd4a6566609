// Package forward hands captured stills to somewhere off the device.
// Forwarding runs on its own looper so a slow network never holds up
// the camera.
package forward

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tauraamui/dragondoorbell/pkg/camera"
	"github.com/tauraamui/dragondoorbell/pkg/dispatch"
	"github.com/tauraamui/dragondoorbell/pkg/log"
	"github.com/tauraamui/xerror"
)

const DefaultTimeout = 30 * time.Second

const (
	KindHTTP      = "http"
	KindWebSocket = "websocket"
	KindVision    = "vision"
)

type Forwarder interface {
	Name() string
	Forward(ctx context.Context, still camera.Still) error
	Close() error
}

type Settings struct {
	Kind    string
	URL     string
	APIKey  string
	Timeout time.Duration
}

// New builds the forwarder settings.Kind names. An empty kind means
// stills stay on the device and a nil forwarder is returned.
func New(ctx context.Context, settings Settings) (Forwarder, error) {
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	switch strings.ToLower(settings.Kind) {
	case "":
		return nil, nil
	case KindHTTP:
		return NewHTTP(settings.URL, settings.APIKey, timeout), nil
	case KindWebSocket:
		return NewWebSocket(settings.URL, timeout), nil
	case KindVision:
		v, err := NewVision(ctx, settings.APIKey)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil, xerror.Errorf("unknown forwarder kind [%s]", settings.Kind)
}

// Lane forwards stills one at a time, in capture order, on its own
// looper.
type Lane struct {
	looper    *dispatch.Looper
	forwarder Forwarder
	timeout   time.Duration

	mu        sync.Mutex
	forwarded int
	failed    int
	closeOnce sync.Once
}

func NewLane(forwarder Forwarder, timeout time.Duration) *Lane {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Lane{
		looper:    dispatch.New("CloudBackground"),
		forwarder: forwarder,
		timeout:   timeout,
	}
}

func (l *Lane) Looper() *dispatch.Looper {
	return l.looper
}

// OnFrame queues still for forwarding without waiting on it.
func (l *Lane) OnFrame(still camera.Still) {
	if err := l.looper.Post(func() { l.forward(still) }); err != nil {
		log.Warn("Not forwarding capture [%s] to [%s]: %v", still.RequestID, l.forwarder.Name(), err)
	}
}

func (l *Lane) forward(still camera.Still) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	err := l.forwarder.Forward(ctx, still)
	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.failed++
		log.Error("Unable to forward capture [%s] to [%s]: %v", still.RequestID, l.forwarder.Name(), err)
		return
	}
	l.forwarded++
	log.Debug("Forwarded capture [%s] to [%s]", still.RequestID, l.forwarder.Name())
}

// Counts reports how many stills were forwarded and how many failed.
func (l *Lane) Counts() (forwarded, failed int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.forwarded, l.failed
}

// Close stops the lane, waits for queued stills to go out and then
// releases the forwarder. Only the first call does anything.
func (l *Lane) Close() {
	l.closeOnce.Do(func() {
		l.looper.Stop()
		l.looper.Wait()
		if err := l.forwarder.Close(); err != nil {
			log.Error("Unable to close forwarder [%s]: %v", l.forwarder.Name(), err)
		}
	})
}
