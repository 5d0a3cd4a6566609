package config

import (
	"github.com/tauraamui/dragondoorbell/internal/config"
	"github.com/tauraamui/dragondoorbell/pkg/configdef"
)

type Destroyer interface {
	configdef.Destroyer
}

func DefaultDestroyer() Destroyer {
	return config.DefaultDestroyer()
}
