// Package rtsp probes network cameras before the video driver is
// asked to open them. The driver can block for a long time on an
// unreachable stream, a bare OPTIONS round trip fails fast.
package rtsp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/tauraamui/xerror"
)

const (
	defaultPort    = "554"
	defaultTimeout = 5 * time.Second
	userAgent      = "dragondoorbell"
)

type Client struct {
	url     string
	address string
	timeout time.Duration
}

// IsRTSP reports whether address names an rtsp stream.
func IsRTSP(address string) bool {
	return strings.HasPrefix(strings.ToLower(address), "rtsp://")
}

func NewClient(address string) (*Client, error) {
	c := Client{url: address, timeout: defaultTimeout}
	if err := c.validateAndProcessAddr(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Client) validateAndProcessAddr() error {
	parsedURL, err := url.Parse(c.url)
	if err != nil {
		return err
	}

	if s := parsedURL.Scheme; s != "rtsp" {
		return xerror.Errorf("unsupported scheme: %s ('rtsp' is the only supported scheme)", s)
	}

	// credentials stay out of the request line
	parsedURL.User = nil
	c.url = parsedURL.String()

	c.address = parsedURL.Host
	if len(parsedURL.Port()) == 0 {
		c.address = net.JoinHostPort(parsedURL.Hostname(), defaultPort)
	}

	return nil
}

func (c *Client) Address() string {
	return c.address
}

// Options sends a single OPTIONS request and checks the stream
// answers with a 200.
func (c *Client) Options(cancel context.Context) error {
	var d net.Dialer
	ctx, ccancel := context.WithTimeout(cancel, c.timeout)
	defer ccancel()

	conn, err := d.DialContext(ctx, "tcp", c.address)
	if err != nil {
		return xerror.Errorf("unable to reach stream at %s: %w", c.address, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	req := fmt.Sprintf("OPTIONS %s RTSP/1.0\r\nCSeq: 1\r\nUser-Agent: %s\r\n\r\n", c.url, userAgent)
	if _, err := conn.Write([]byte(req)); err != nil {
		return xerror.Errorf("unable to send OPTIONS to %s: %w", c.address, err)
	}

	status, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return xerror.Errorf("no OPTIONS response from %s: %w", c.address, err)
	}

	status = strings.TrimSpace(status)
	parts := strings.SplitN(status, " ", 3)
	if len(parts) < 2 || !strings.HasPrefix(parts[0], "RTSP/") {
		return xerror.Errorf("malformed OPTIONS response from %s: %q", c.address, status)
	}
	if parts[1] != "200" {
		return xerror.Errorf("stream at %s refused OPTIONS: %s", c.address, status)
	}
	return nil
}
