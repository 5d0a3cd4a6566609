package config

import (
	"github.com/tauraamui/dragondoorbell/internal/config"
	"github.com/tauraamui/dragondoorbell/pkg/configdef"
)

type Resolver interface {
	configdef.Resolver
}

func DefaultResolver() Resolver {
	return config.DefaultResolver()
}
