package wsclient

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Defaults.
const (
	DefaultMaxRetries       = 5
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 1 * time.Second
	DefaultPingInterval     = 25 * time.Second
	DefaultMessageSizeLimit = 65536 // 64KB
)

// Config of Client. Zero values are replaced with defaults.
type Config struct {
	// URL is a ws:// or wss:// endpoint to connect to.
	URL string
	// Header contains extra headers sent with the upgrade request.
	Header http.Header
	// TLSConfig for wss:// endpoints, nil means default settings.
	TLSConfig *tls.Config
	// MaxRetries bounds automatic reconnect attempts in a row.
	MaxRetries int
	Backoff    Backoff
	// HandshakeTimeout limits dial and upgrade.
	HandshakeTimeout time.Duration
	// WriteTimeout limits a single frame write.
	WriteTimeout time.Duration
	// PingInterval between client pings. Negative value disables pings.
	PingInterval time.Duration
	// MessageSizeLimit for inbound frames. Negative value disables the limit.
	MessageSizeLimit int64
	// SendRateLimit is a maximum number of Send calls per second, 0 means unlimited.
	SendRateLimit float64
	// SendRateBurst allows bursts above SendRateLimit.
	SendRateBurst int
}

// Validate checks Config. It does not apply defaults.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: url required", ErrInvalidConfig)
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("%w: url: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: url scheme must be ws or wss, got %q", ErrInvalidConfig, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url host required", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must not be negative", ErrInvalidConfig)
	}
	if c.Backoff.BaseDelay < 0 || c.Backoff.MaxDelay < 0 {
		return fmt.Errorf("%w: backoff delays must not be negative", ErrInvalidConfig)
	}
	if c.Backoff.BaseDelay > 0 && c.Backoff.MaxDelay > 0 && c.Backoff.MaxDelay < c.Backoff.BaseDelay {
		return fmt.Errorf("%w: backoff max delay is less than base delay", ErrInvalidConfig)
	}
	if c.HandshakeTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}
	if c.SendRateLimit < 0 || c.SendRateBurst < 0 {
		return fmt.Errorf("%w: send rate limit must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.Backoff.BaseDelay == 0 {
		c.Backoff.BaseDelay = DefaultBaseDelay
	}
	if c.Backoff.MaxDelay == 0 {
		c.Backoff.MaxDelay = DefaultMaxDelay
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.PingInterval == 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.MessageSizeLimit == 0 {
		c.MessageSizeLimit = DefaultMessageSizeLimit
	}
	if c.SendRateLimit > 0 && c.SendRateBurst == 0 {
		c.SendRateBurst = 1
	}
	return c
}
