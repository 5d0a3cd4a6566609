package config

import (
	"github.com/tauraamui/dragondoorbell/internal/config"
	"github.com/tauraamui/dragondoorbell/pkg/configdef"
)

type Creator interface {
	configdef.Creator
}

func DefaultCreator() Creator {
	return config.DefaultCreator()
}
