package config

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/tauraamui/dragondoorbell/pkg/configdef"
	"github.com/tauraamui/dragondoorbell/pkg/log"
	"github.com/tauraamui/xerror"
	"gopkg.in/yaml.v3"
)

func load() (configdef.Values, error) {
	var values configdef.Values

	configPath, err := resolveConfigPath()
	if err != nil {
		return configdef.Values{}, err
	}

	log.Info("Resolved config file location: %s", configPath)
	file, err := readConfigFile(configPath)
	if err != nil {
		return configdef.Values{}, xerror.Errorf("unable to read config file %s: %w", configPath, err)
	}

	if err := unmarshal(configPath, file, &values); err != nil {
		return configdef.Values{}, err
	}

	loadDefaults(&values)

	if err = values.RunValidate(); err != nil {
		return configdef.Values{}, err
	}

	return values, nil
}

var readConfigFile = func(path string) ([]byte, error) {
	return afero.ReadFile(fs, path)
}

func unmarshal(path string, content []byte, values *configdef.Values) error {
	if isYAML(path) {
		if err := yaml.Unmarshal(content, values); err != nil {
			return errors.Errorf("parsing configuration error: %v", err)
		}
		return nil
	}

	if err := json.Unmarshal(content, values); err != nil {
		return errors.Errorf("parsing configuration error: %v", err)
	}
	return nil
}

// loadDefaults fills in every zero valued setting which has a
// default. Switches are left as they were found.
func loadDefaults(values *configdef.Values) {
	cam := &values.Camera
	defCam := defaultSettings[CAMERA].(configdef.Camera)
	if len(cam.Backend) == 0 {
		cam.Backend = defCam.Backend
	}
	if cam.Width == 0 && cam.Height == 0 {
		cam.Width, cam.Height = defCam.Width, defCam.Height
	}
	if len(cam.Format) == 0 {
		cam.Format = defCam.Format
	}
	if cam.BufferSize == 0 {
		cam.BufferSize = defCam.BufferSize
	}

	button := &values.Trigger.Button
	if button.PollIntervalMillis == 0 {
		button.PollIntervalMillis = defaultSettings[BUTTONPOLLINTERVAL].(int)
	}

	display := &values.Display
	if len(display.Title) == 0 {
		display.Title = cam.Title
	}
	if display.KeyPollIntervalMillis == 0 {
		display.KeyPollIntervalMillis = defaultSettings[KEYPOLLINTERVAL].(int)
	}

	if values.Forward.TimeoutSeconds == 0 {
		values.Forward.TimeoutSeconds = defaultSettings[FORWARDTIMEOUT].(int)
	}
}
