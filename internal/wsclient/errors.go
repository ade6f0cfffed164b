package wsclient

import (
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

var (
	// ErrNotOpen returned from Send when there is no open connection.
	ErrNotOpen = errors.New("wsclient: connection is not open")
	// ErrReconnectExhausted reported to Listener.OnError when automatic
	// reconnection gave up. The client stays closed until Connect is called.
	ErrReconnectExhausted = errors.New("wsclient: maximum reconnect attempts reached")
	// ErrRateLimited returned from Send when outbound rate limit is exceeded.
	ErrRateLimited = errors.New("wsclient: send rate limit exceeded")
	// ErrInvalidConfig wraps configuration validation problems.
	ErrInvalidConfig = errors.New("wsclient: invalid config")

	errTransportClosed = errors.New("wsclient: transport closed")
)

// TransportError is a socket-level failure. It is never fatal: the client
// reports it and applies the reconnect policy.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("wsclient: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// closeAbnormal is reported for connections which ended without a close frame.
const closeAbnormal = websocket.CloseAbnormalClosure

// CloseEvent describes why a connection ended.
type CloseEvent struct {
	Code   int
	Reason string
	// Err is the underlying read or dial error, nil for clean closes.
	Err error
}

// Clean reports whether the peer closed the connection normally.
func (e CloseEvent) Clean() bool {
	return e.Code == websocket.CloseNormalClosure || e.Code == websocket.CloseGoingAway
}

func closeEventFromError(err error) CloseEvent {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		ev := CloseEvent{Code: closeErr.Code, Reason: closeErr.Text}
		if !ev.Clean() {
			ev.Err = err
		}
		return ev
	}
	return CloseEvent{Code: closeAbnormal, Err: err}
}
