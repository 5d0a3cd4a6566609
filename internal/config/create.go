package config

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/tauraamui/dragondoorbell/pkg/configdef"
	"github.com/tauraamui/xerror"
	"gopkg.in/yaml.v3"
)

func create() (string, error) {
	path, err := ensureConfigPath()
	if err != nil {
		return "", err
	}

	data, err := loadRawDefaultConfig(path)
	if err != nil {
		return path, xerror.Errorf("unable to init default config into memory: %w", err)
	}

	if err := writeConfigToDisk(data, path, false); err != nil {
		if errors.Is(err, os.ErrExist) {
			return path, configdef.ErrConfigAlreadyExists
		}
		return path, err
	}

	return path, nil
}

func writeConfigToDisk(data []byte, path string, overwrite bool) error {
	flags := os.O_RDWR | os.O_CREATE
	if !overwrite {
		flags |= os.O_EXCL
	}

	file, err := fs.OpenFile(path, flags, 0666)
	if err != nil {
		return xerror.Errorf("unable to create/open file: %w", err)
	}
	defer file.Close()

	bc, err := file.Write(data)
	if err != nil {
		return xerror.Errorf("unable to write config to file: %s: %w", path, err)
	}

	if bc != len(data) {
		return xerror.Errorf("unable to write full config data to file: %s", path)
	}

	return nil
}

func defaultValues() configdef.Values {
	return configdef.Values{
		Camera:  defaultSettings[CAMERA].(configdef.Camera),
		Trigger: defaultSettings[TRIGGER].(configdef.Trigger),
		Display: defaultSettings[DISPLAY].(configdef.Display),
		Forward: configdef.Forward{
			TimeoutSeconds: defaultSettings[FORWARDTIMEOUT].(int),
		},
	}
}

func loadRawDefaultConfig(path string) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(defaultValues())
	}
	return json.MarshalIndent(defaultValues(), "", " ")
}
