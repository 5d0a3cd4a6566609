package display

import "gocv.io/x/gocv"

type Window interface {
	IMShow(gocv.Mat)
	WaitKey(int) int
	ResizeWindow(int, int)
	Close() error
}

func OverloadNewWindow(overload func(string) Window) func() {
	newWindowRef := newWindow
	newWindow = func(title string) window {
		return overload(title)
	}
	return func() { newWindow = newWindowRef }
}
