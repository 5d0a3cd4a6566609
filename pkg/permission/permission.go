// Package permission decides whether the process may touch the
// camera before anything tries to open it.
package permission

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/tauraamui/dragondoorbell/pkg/log"
	"github.com/tauraamui/xerror"
	"golang.org/x/sys/unix"
)

const PermissionDenied = xerror.Kind("permission_denied")

var ErrPermissionDenied = xerror.NewWithKind(PermissionDenied, "camera access denied")

type Checker interface {
	Check(address string) error
}

type CheckerFunc func(address string) error

func (f CheckerFunc) Check(address string) error {
	return f(address)
}

// Granted is a checker for platforms where nothing needs asking.
var Granted = CheckerFunc(func(string) error { return nil })

var access = func(path string, mode uint32) error {
	return unix.Access(path, mode)
}

// indexedDevices is whether a bare camera index N names /dev/videoN.
var indexedDevices = runtime.GOOS == "linux"

type deviceAccess struct{}

// DeviceAccess checks read and write access on device nodes. Network
// streams are always allowed.
func DeviceAccess() Checker {
	return deviceAccess{}
}

func (deviceAccess) Check(address string) error {
	path, ok := devicePath(address)
	if !ok {
		log.Debug("Camera address [%s] is not a device node, nothing to check", address)
		return nil
	}
	if err := access(path, unix.R_OK|unix.W_OK); err != nil {
		return xerror.Errorf("no read/write access to [%s] (%v): %w", path, err, ErrPermissionDenied)
	}
	return nil
}

func devicePath(address string) (string, bool) {
	if strings.HasPrefix(address, "/dev/") {
		return address, true
	}
	if !indexedDevices {
		return "", false
	}
	index, err := strconv.Atoi(strings.TrimSpace(address))
	if err != nil || index < 0 {
		return "", false
	}
	return fmt.Sprintf("/dev/video%d", index), true
}
