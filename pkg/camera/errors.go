package camera

import "github.com/tauraamui/xerror"

const (
	DeviceUnavailable = xerror.Kind("device_unavailable")
	NotInitialized    = xerror.Kind("not_initialized")
)

var (
	ErrDeviceUnavailable  = xerror.NewWithKind(DeviceUnavailable, "camera device unavailable")
	ErrNotInitialized     = xerror.NewWithKind(NotInitialized, "camera session not initialized")
	ErrAlreadyInitialized = xerror.New("camera session already initialized")
)
