package config

import (
	"errors"
	"os"

	"github.com/tauraamui/dragondoorbell/pkg/log"
	"github.com/tauraamui/xerror"
)

func destroy() (string, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return "", err
	}

	if err := fs.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("No config file to remove at %s", path)
			return path, nil
		}
		return path, xerror.Errorf("unable to remove config file: %w", err)
	}

	return path, nil
}
