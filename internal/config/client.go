package config

import (
	"fmt"
	"net/http"

	"github.com/promptstream/promptstream/internal/build"
	"github.com/promptstream/promptstream/internal/subscription"
	"github.com/promptstream/promptstream/internal/wsclient"
)

// ClientConfig converts connection related sections to wsclient.Config.
func (c Config) ClientConfig() (wsclient.Config, error) {
	tlsConfig, err := c.Endpoint.TLS.ToGoTLSConfig()
	if err != nil {
		return wsclient.Config{}, fmt.Errorf("endpoint.tls: %w", err)
	}
	header := c.Endpoint.Headers.Header()
	if header == nil {
		header = http.Header{}
	}
	if header.Get("User-Agent") == "" {
		header.Set("User-Agent", build.UserAgent())
	}
	return wsclient.Config{
		URL:       c.Endpoint.URL,
		Header:    header,
		TLSConfig: tlsConfig,
		// Zero values fall back to wsclient defaults.
		MaxRetries: c.Reconnect.MaxRetries,
		Backoff: wsclient.Backoff{
			BaseDelay: c.Reconnect.BaseDelay.ToDuration(),
			MaxDelay:  c.Reconnect.MaxDelay.ToDuration(),
		},
		HandshakeTimeout: c.WebSocket.HandshakeTimeout.ToDuration(),
		WriteTimeout:     c.WebSocket.WriteTimeout.ToDuration(),
		PingInterval:     c.WebSocket.PingInterval.ToDuration(),
		MessageSizeLimit: c.WebSocket.MessageSizeLimit,
		SendRateLimit:    c.WebSocket.SendRateLimit,
		SendRateBurst:    c.WebSocket.SendRateBurst,
	}, nil
}

// SubscriptionConfig wraps ClientConfig.
func (c Config) SubscriptionConfig() (subscription.Config, error) {
	clientConfig, err := c.ClientConfig()
	if err != nil {
		return subscription.Config{}, err
	}
	return subscription.Config{Client: clientConfig}, nil
}

// DomainName reported to the REST API so the backend can push results over
// the streaming connection.
func (c Config) DomainName() string {
	if c.API.DomainName != "" {
		return c.API.DomainName
	}
	return c.Endpoint.URL
}
