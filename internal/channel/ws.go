package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pkt.systems/roomlink/schema"
)

const (
	// DefaultHandshakeTimeout bounds transport establishment.
	DefaultHandshakeTimeout = 10 * time.Second
	// DefaultPingInterval keeps idle connections from being dropped.
	DefaultPingInterval = 30 * time.Second

	controlWriteTimeout = 5 * time.Second
)

// WSConfig controls the websocket dialer.
type WSConfig struct {
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
}

// WSDialer dials websocket connections to the console.
type WSDialer struct {
	cfg WSConfig
}

// NewWSDialer constructs a dialer with defaults applied.
func NewWSDialer(cfg WSConfig) *WSDialer {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	return &WSDialer{cfg: cfg}
}

// DialContext implements Dialer.
func (d *WSDialer) DialContext(ctx context.Context, url string) (Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: d.cfg.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	wc := &wsConn{conn: conn, stop: make(chan struct{})}
	go wc.keepalive(d.cfg.PingInterval)
	return wc, nil
}

type wsConn struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	stop      chan struct{}
	closeOnce sync.Once
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, mapCloseError(err)
		}
		if messageType != websocket.TextMessage {
			continue
		}
		return data, nil
	}
}

func (c *wsConn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stop)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(controlWriteTimeout))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// keepalive pings the console to prevent idle disconnects.
func (c *wsConn) keepalive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			deadline := time.Now().Add(controlWriteTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// mapCloseError distinguishes a policy-violation close, which the console
// uses to refuse bad credentials, from ordinary transport loss.
func mapCloseError(err error) error {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Code == websocket.ClosePolicyViolation {
		return fmt.Errorf("%w: %s", schema.ErrHandshakeRejected, closeErr.Text)
	}
	return err
}
