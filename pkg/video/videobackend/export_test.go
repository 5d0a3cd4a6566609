package videobackend

import (
	"context"
	"time"

	"gocv.io/x/gocv"
)

func OverloadOpenVideoCapture(overload func(addr string) (*gocv.VideoCapture, error)) func() {
	openVidCapRef := openVideoCapture
	openVideoCapture = overload
	return func() { openVideoCapture = openVidCapRef }
}

func OverloadMockTimestamp(overload func() time.Time) func() {
	mockTimestampRef := mockTimestamp
	mockTimestamp = overload
	return func() { mockTimestamp = mockTimestampRef }
}

func OverloadProbeStream(overload func(context.Context, string) error) func() {
	probeStreamRef := probeStream
	probeStream = overload
	return func() { probeStream = probeStreamRef }
}
