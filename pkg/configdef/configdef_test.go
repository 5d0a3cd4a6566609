package configdef_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/tauraamui/dragondoorbell/pkg/configdef"
)

const validBody = `{
	"camera": {
		"title": "Front Door",
		"address": "/dev/video0",
		"backend": "opencv",
		"width": 640,
		"height": 480,
		"format": "jpeg",
		"buffer_size": 1
	},
	"trigger": {
		"terminal": true,
		"button": {"enabled": true, "pin": 17, "pull_up": true, "poll_interval_ms": 20}
	},
	"display": {
		"enabled": true,
		"title": "Doorbell",
		"width": 320,
		"height": 240,
		"key_poll_interval_ms": 10
	},
	"forward": {"kind": "http", "url": "http://localhost:8080/rings", "timeout_seconds": 5}
}`

func parse(t *testing.T, body string) configdef.Values {
	t.Helper()
	config := configdef.Values{}
	if err := json.Unmarshal([]byte(body), &config); err != nil {
		t.Fatal(err)
	}
	return config
}

func TestValidatePopulatedConfigPassesValidation(t *testing.T) {
	is := is.New(t)
	config := parse(t, validBody)
	is.NoErr(config.RunValidate())
	is.Equal(config.Trigger.Button.PollInterval(), 20*time.Millisecond)
	is.Equal(config.Display.KeyPollInterval(), 10*time.Millisecond)
	is.Equal(config.Forward.Timeout(), 5*time.Second)
}

func TestValidateFailsForMissingCameraTitle(t *testing.T) {
	is := is.New(t)
	config := parse(t, validBody)
	config.Camera.Title = ""
	is.Equal(config.RunValidate().Error(), `Validation error in field "Title" of type "string" using validator "empty=false"`)
}

func TestValidateFailsForUnknownBackend(t *testing.T) {
	is := is.New(t)
	config := parse(t, validBody)
	config.Camera.Backend = "v4l"
	is.Equal(config.RunValidate().Error(), `Validation error in field "Backend" of type "string" using validator "one_of=opencv,mock"`)
}

func TestValidateFailsForBufferSizeLessThan1(t *testing.T) {
	is := is.New(t)
	config := parse(t, validBody)
	config.Camera.BufferSize = 0
	is.Equal(config.RunValidate().Error(), `Validation error in field "BufferSize" of type "int" using validator "gte=1"`)
}

func TestValidateFailsForButtonPinOutOfRange(t *testing.T) {
	is := is.New(t)
	config := parse(t, validBody)
	config.Trigger.Button.Pin = 40
	is.Equal(config.RunValidate().Error(), `Validation error in field "Pin" of type "int" using validator "lte=27"`)
}

func TestValidateFailsForForwardWithoutURL(t *testing.T) {
	is := is.New(t)
	config := parse(t, validBody)
	config.Forward.URL = ""
	is.Equal(config.RunValidate().Error(), "validation failed: forward url required for kind [http]")
}

func TestValidateFailsForUnknownForwardKind(t *testing.T) {
	is := is.New(t)
	config := parse(t, validBody)
	config.Forward.Kind = "smtp"
	is.Equal(config.RunValidate().Error(), "validation failed: unknown forward kind [smtp]")
}

func TestValidateFailsForHalfSetDisplaySize(t *testing.T) {
	is := is.New(t)
	config := parse(t, validBody)
	config.Display.Height = 0
	is.Equal(config.RunValidate().Error(), "validation failed: display width and height must both be set or both be zero")
}

func TestHasPartialSize(t *testing.T) {
	is := is.New(t)
	is.True(!configdef.HasPartialSize(0, 0))
	is.True(!configdef.HasPartialSize(10, 10))
	is.True(configdef.HasPartialSize(10, 0))
	is.True(configdef.HasPartialSize(0, 10))
}
