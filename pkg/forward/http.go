package forward

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/tauraamui/dragondoorbell/pkg/camera"
	"github.com/tauraamui/dragondoorbell/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
)

const (
	HeaderRequestID  = "X-Doorbell-Request-Id"
	HeaderWidth      = "X-Frame-Width"
	HeaderHeight     = "X-Frame-Height"
	HeaderFormat     = "X-Frame-Format"
	HeaderCapturedAt = "X-Captured-At"
)

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// HTTP posts each still's bytes as the request body, its metadata
// travels in headers.
type HTTP struct {
	url    string
	apiKey string
	client *http.Client
}

func NewHTTP(url, apiKey string, timeout time.Duration) *HTTP {
	return &HTTP{url: url, apiKey: apiKey, client: newHTTPClient(timeout)}
}

func (f *HTTP) Name() string { return "http " + f.url }

func (f *HTTP) Forward(ctx context.Context, still camera.Still) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(still.Data))
	if err != nil {
		return xerror.Errorf("unable to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType(still.Format))
	req.Header.Set(HeaderRequestID, still.RequestID)
	req.Header.Set(HeaderWidth, strconv.Itoa(still.Dimensions.W))
	req.Header.Set(HeaderHeight, strconv.Itoa(still.Dimensions.H))
	req.Header.Set(HeaderFormat, string(still.Format))
	req.Header.Set(HeaderCapturedAt, still.Timestamp.UTC().Format(time.RFC3339Nano))
	if len(f.apiKey) > 0 {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return xerror.Errorf("unable to post capture: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return xerror.Errorf("capture rejected with status [%s]", resp.Status)
	}
	return nil
}

func (f *HTTP) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

func contentType(f videoframe.Format) string {
	if f == videoframe.JPEG {
		return "image/jpeg"
	}
	return "application/octet-stream"
}
