package wsclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is one established bidirectional connection.
type Transport interface {
	// ReadMessage blocks until the next inbound frame or an error.
	ReadMessage() ([]byte, error)
	// WriteMessage writes data as a single text frame.
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens Transport to a URL.
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Transport, error)
}

const closeFrameWait = time.Second

// WebsocketDialer dials with gorilla/websocket.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
	MessageSizeLimit int64
	TLSConfig        *tls.Config
}

// NewWebsocketDialer creates WebsocketDialer from Config.
func NewWebsocketDialer(c Config) *WebsocketDialer {
	c = c.withDefaults()
	return &WebsocketDialer{
		HandshakeTimeout: c.HandshakeTimeout,
		WriteTimeout:     c.WriteTimeout,
		PingInterval:     c.PingInterval,
		MessageSizeLimit: c.MessageSizeLimit,
		TLSConfig:        c.TLSConfig,
	}
}

// Dial performs the upgrade handshake.
func (d *WebsocketDialer) Dial(ctx context.Context, url string, header http.Header) (Transport, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
		TLSClientConfig:  d.TLSConfig,
	}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: status %d", err, resp.StatusCode)
		}
		return nil, err
	}
	if d.MessageSizeLimit > 0 {
		conn.SetReadLimit(d.MessageSizeLimit)
	}
	return newWebsocketTransport(conn, websocketTransportOptions{
		pingInterval: d.PingInterval,
		writeTimeout: d.WriteTimeout,
	}), nil
}

// websocketTransport wraps websocket connection, serializes writes and
// keeps the connection alive with pings.
type websocketTransport struct {
	mu        sync.Mutex
	writeMu   sync.Mutex // sync frame writes with ping writes.
	conn      *websocket.Conn
	closed    bool
	closeCh   chan struct{}
	opts      websocketTransportOptions
	pingTimer *time.Timer
}

type websocketTransportOptions struct {
	pingInterval time.Duration
	writeTimeout time.Duration
}

func newWebsocketTransport(conn *websocket.Conn, opts websocketTransportOptions) *websocketTransport {
	t := &websocketTransport{
		conn:    conn,
		closeCh: make(chan struct{}),
		opts:    opts,
	}
	if opts.pingInterval > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(t.readWait()))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(t.readWait()))
			return nil
		})
		t.addPing()
	}
	return t
}

// readWait allows one missed pong.
func (t *websocketTransport) readWait() time.Duration {
	return t.opts.pingInterval * 2
}

func (t *websocketTransport) ping() {
	select {
	case <-t.closeCh:
		return
	default:
		deadline := time.Now().Add(t.opts.pingInterval / 2)
		t.writeMu.Lock()
		err := t.conn.WriteControl(websocket.PingMessage, nil, deadline)
		t.writeMu.Unlock()
		if err != nil {
			_ = t.Close()
			return
		}
		t.addPing()
	}
}

func (t *websocketTransport) addPing() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.pingTimer = time.AfterFunc(t.opts.pingInterval, t.ping)
	t.mu.Unlock()
}

func (t *websocketTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if t.opts.pingInterval > 0 {
		_ = t.conn.SetReadDeadline(time.Now().Add(t.readWait()))
	}
	return data, nil
}

func (t *websocketTransport) WriteMessage(data []byte) error {
	select {
	case <-t.closeCh:
		return errTransportClosed
	default:
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if t.opts.writeTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.opts.writeTimeout))
	}
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	if t.opts.writeTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Time{})
	}
	return nil
}

// Close sends close frame and closes the connection. Idempotent.
func (t *websocketTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	if t.pingTimer != nil {
		t.pingTimer.Stop()
	}
	close(t.closeCh)
	t.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	t.writeMu.Lock()
	_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeFrameWait))
	t.writeMu.Unlock()
	return t.conn.Close()
}
