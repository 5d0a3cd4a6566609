package configdef

import (
	"fmt"
	"strings"
	"time"

	"github.com/tauraamui/xerror"
	"gopkg.in/dealancer/validate.v2"
)

type Camera struct {
	Title      string `json:"title" yaml:"title" validate:"empty=false"`
	Address    string `json:"address" yaml:"address" validate:"empty=false"`
	Backend    string `json:"backend" yaml:"backend" validate:"one_of=opencv,mock"`
	Width      int    `json:"width" yaml:"width" validate:"gte=1 & lte=7680"`
	Height     int    `json:"height" yaml:"height" validate:"gte=1 & lte=4320"`
	Format     string `json:"format" yaml:"format" validate:"one_of=bgr24,rgb24,rgba,gray,jpeg"`
	BufferSize int    `json:"buffer_size" yaml:"buffer_size" validate:"gte=1 & lte=10"`
}

type Button struct {
	Enabled            bool `json:"enabled" yaml:"enabled"`
	Pin                int  `json:"pin" yaml:"pin" validate:"gte=0 & lte=27"`
	PullUp             bool `json:"pull_up" yaml:"pull_up"`
	PollIntervalMillis int  `json:"poll_interval_ms" yaml:"poll_interval_ms" validate:"gte=1 & lte=1000"`
}

func (b Button) PollInterval() time.Duration {
	return time.Duration(b.PollIntervalMillis) * time.Millisecond
}

type Trigger struct {
	Terminal bool   `json:"terminal" yaml:"terminal"`
	Button   Button `json:"button" yaml:"button"`
}

type Display struct {
	Enabled               bool   `json:"enabled" yaml:"enabled"`
	Headless              bool   `json:"headless" yaml:"headless"`
	Title                 string `json:"title" yaml:"title"`
	Width                 int    `json:"width" yaml:"width" validate:"gte=0 & lte=7680"`
	Height                int    `json:"height" yaml:"height" validate:"gte=0 & lte=4320"`
	KeyPollIntervalMillis int    `json:"key_poll_interval_ms" yaml:"key_poll_interval_ms" validate:"gte=1 & lte=1000"`
}

func (d Display) KeyPollInterval() time.Duration {
	return time.Duration(d.KeyPollIntervalMillis) * time.Millisecond
}

type Forward struct {
	Kind           string `json:"kind" yaml:"kind"`
	URL            string `json:"url" yaml:"url"`
	APIKey         string `json:"api_key" yaml:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds" validate:"gte=0 & lte=300"`
}

func (f Forward) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

type Values struct {
	Debug   bool    `json:"debug" yaml:"debug"`
	Camera  Camera  `json:"camera" yaml:"camera"`
	Trigger Trigger `json:"trigger" yaml:"trigger"`
	Display Display `json:"display" yaml:"display"`
	Forward Forward `json:"forward" yaml:"forward"`
}

// RunValidate checks field level constraints first, then the ones
// spanning fields.
func (v Values) RunValidate() error {
	if err := validate.Validate(&v); err != nil {
		return err
	}
	return v.Validate()
}

func (v Values) Validate() error {
	const validationErrorHeader = "validation failed: %w"
	if err := validateForward(v.Forward); err != nil {
		return xerror.Errorf(validationErrorHeader, err)
	}
	if v.Display.Enabled && hasPartialSize(v.Display.Width, v.Display.Height) {
		return xerror.Errorf(validationErrorHeader, xerror.New("display width and height must both be set or both be zero"))
	}
	return nil
}

func validateForward(f Forward) error {
	switch strings.ToLower(f.Kind) {
	case "", "vision":
		return nil
	case "http", "websocket":
		if len(f.URL) == 0 {
			return xerror.Errorf("forward url required for kind [%s]", f.Kind)
		}
		return nil
	}
	return xerror.New(fmt.Sprintf("unknown forward kind [%s]", f.Kind))
}

func hasPartialSize(w, h int) bool {
	return (w == 0) != (h == 0)
}
