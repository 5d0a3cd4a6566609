package config

import "github.com/tauraamui/dragondoorbell/pkg/configdef"

func DefaultDestroyer() configdef.Destroyer {
	return defaultDestroyer{}
}

type defaultDestroyer struct{}

func (d defaultDestroyer) Destroy() (string, error) {
	return destroy()
}
