package trigger

import "golang.org/x/term"

func OverloadTerminal(
	isTerminalOverload func(int) bool,
	makeRawOverload func(int) (*term.State, error),
	restoreOverload func(int, *term.State) error,
) func() {
	isTerminalRef, makeRawRef, restoreRef := isTerminal, makeRaw, restore
	isTerminal, makeRaw, restore = isTerminalOverload, makeRawOverload, restoreOverload
	return func() { isTerminal, makeRaw, restore = isTerminalRef, makeRawRef, restoreRef }
}

func OverloadGPIO(open func() error, close func() error, pin func(int) Pin) func() {
	openRef, closeRef, pinRef := openGPIO, closeGPIO, newPin
	openGPIO, closeGPIO, newPin = open, close, pin
	return func() { openGPIO, closeGPIO, newPin = openRef, closeRef, pinRef }
}

func NewTerminalSourceFromReader(r interface{ Read([]byte) (int, error) }, fd int, onInterrupt func()) *TerminalSource {
	return &TerminalSource{in: r, fd: fd, onInterrupt: onInterrupt}
}
