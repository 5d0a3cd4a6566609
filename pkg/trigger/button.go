package trigger

import (
	"context"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
	"github.com/tauraamui/dragondoorbell/pkg/log"
	"github.com/tauraamui/xerror"
)

const defaultButtonPollInterval = 20 * time.Millisecond

// Pin is the subset of rpio.Pin a button needs.
type Pin interface {
	Input()
	PullUp()
	PullDown()
	Detect(rpio.Edge)
	EdgeDetected() bool
}

var (
	openGPIO  = rpio.Open
	closeGPIO = rpio.Close
	newPin    = func(n int) Pin { return rpio.Pin(n) }
)

// ButtonSource emits KeyEnter each time a push button wired to a
// GPIO pin is pressed. With the pull-up enabled a press pulls the
// pin low, so the falling edge is watched, otherwise the rising one.
type ButtonSource struct {
	pin    int
	pullUp bool
	poll   time.Duration
}

func NewButtonSource(pin int, pullUp bool, poll time.Duration) *ButtonSource {
	if poll <= 0 {
		poll = defaultButtonPollInterval
	}
	return &ButtonSource{pin: pin, pullUp: pullUp, poll: poll}
}

func (s *ButtonSource) Name() string { return "gpio" }

func (s *ButtonSource) Run(ctx context.Context, events chan<- Event) error {
	if err := openGPIO(); err != nil {
		return xerror.Errorf("unable to open GPIO for doorbell button on pin [%d]: %w", s.pin, err)
	}
	defer func() {
		if err := closeGPIO(); err != nil {
			log.Error("Unable to close GPIO: %v", err)
		}
	}()

	pin := newPin(s.pin)
	pin.Input()
	edge := rpio.RiseEdge
	if s.pullUp {
		pin.PullUp()
		edge = rpio.FallEdge
	} else {
		pin.PullDown()
	}
	pin.Detect(edge)
	defer pin.Detect(rpio.NoEdge)

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !pin.EdgeDetected() {
				continue
			}
			log.Debug("Doorbell button on pin [%d] pressed", s.pin)
			if !emit(ctx, events, Event{Code: KeyEnter, Source: s.Name()}) {
				return nil
			}
		}
	}
}
