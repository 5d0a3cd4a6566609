package forward

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tauraamui/dragondoorbell/pkg/camera"
	"github.com/tauraamui/dragondoorbell/pkg/log"
	"github.com/tauraamui/xerror"
)

// StillHeader is sent as a text message ahead of each still's bytes.
type StillHeader struct {
	RequestID  string    `json:"request_id"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Format     string    `json:"format"`
	CapturedAt time.Time `json:"captured_at"`
}

// WebSocket keeps one connection open and streams stills down it,
// redialling after a failed write.
type WebSocket struct {
	url    string
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWebSocket(url string, timeout time.Duration) *WebSocket {
	return &WebSocket{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: timeout,
		},
	}
}

func (f *WebSocket) Name() string { return "websocket " + f.url }

func (f *WebSocket) connect(ctx context.Context) (*websocket.Conn, error) {
	if f.conn != nil {
		return f.conn, nil
	}
	conn, resp, err := f.dialer.DialContext(ctx, f.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, xerror.Errorf("unable to connect: %w", err)
	}
	log.Info("Connected to [%s]", f.url)
	f.conn = conn
	return conn, nil
}

func (f *WebSocket) Forward(ctx context.Context, still camera.Still) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	conn, err := f.connect(ctx)
	if err != nil {
		return err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}

	header := StillHeader{
		RequestID:  still.RequestID,
		Width:      still.Dimensions.W,
		Height:     still.Dimensions.H,
		Format:     string(still.Format),
		CapturedAt: still.Timestamp,
	}
	if err := conn.WriteJSON(header); err != nil {
		f.drop()
		return xerror.Errorf("unable to send capture header: %w", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, still.Data); err != nil {
		f.drop()
		return xerror.Errorf("unable to send capture: %w", err)
	}
	return nil
}

func (f *WebSocket) drop() {
	if f.conn == nil {
		return
	}
	f.conn.Close()
	f.conn = nil
}

func (f *WebSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == nil {
		return nil
	}
	_ = f.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "doorbell shutting down"),
		time.Now().Add(time.Second),
	)
	err := f.conn.Close()
	f.conn = nil
	return err
}
