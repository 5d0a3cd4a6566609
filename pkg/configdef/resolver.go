package configdef

import "github.com/tauraamui/xerror"

var ErrConfigAlreadyExists = xerror.New("config file already exists")

type Resolver interface {
	Resolve() (Values, error)
}

type Creator interface {
	Create() (string, error)
}

type Destroyer interface {
	Destroy() (string, error)
}
