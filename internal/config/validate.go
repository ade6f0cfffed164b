package config

import (
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
)

// Validate validates config and returns error if problems found.
func (c Config) Validate() error {
	if err := validateURL(c.Endpoint.URL, "ws", "wss"); err != nil {
		return fmt.Errorf("endpoint.url: %w", err)
	}
	if c.API.URL != "" {
		if err := validateURL(c.API.URL, "http", "https"); err != nil {
			return fmt.Errorf("api.url: %w", err)
		}
	}
	if c.Reconnect.MaxRetries < 0 {
		return fmt.Errorf("reconnect.max_retries must not be negative")
	}
	if c.Reconnect.BaseDelay < 0 || c.Reconnect.MaxDelay < 0 {
		return fmt.Errorf("reconnect delays must not be negative")
	}
	if c.Reconnect.MaxDelay > 0 && c.Reconnect.MaxDelay < c.Reconnect.BaseDelay {
		return fmt.Errorf("reconnect.max_delay (%s) is less than reconnect.base_delay (%s)", c.Reconnect.MaxDelay, c.Reconnect.BaseDelay)
	}
	if c.WebSocket.SendRateLimit < 0 || c.WebSocket.SendRateBurst < 0 {
		return fmt.Errorf("websocket send rate limit must not be negative")
	}
	if c.Log.Level != "" && c.Log.Level != "none" {
		if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http_server.port out of range: %d", c.HTTP.Port)
	}
	return nil
}

func validateURL(rawURL string, schemes ...string) error {
	if rawURL == "" {
		return fmt.Errorf("required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if u.Scheme == s {
			if u.Host == "" {
				return fmt.Errorf("host required")
			}
			return nil
		}
	}
	return fmt.Errorf("unsupported scheme %q, expected one of %v", u.Scheme, schemes)
}
