// Package configtypes contains configuration sections and custom value types
// decoded by the config package.
package configtypes

// Endpoint is a streaming backend to connect to.
type Endpoint struct {
	// URL is a ws:// or wss:// address of the streaming backend.
	URL string `mapstructure:"url" json:"url" yaml:"url" toml:"url" default:"ws://localhost:8080/ws"`
	// Headers are sent with the WebSocket upgrade request. Values may reference
	// environment variables as ${PROMPTSTREAM_VAR_NAME}.
	Headers MapStringString `mapstructure:"headers" json:"headers" yaml:"headers" toml:"headers"`
	// TLS for wss:// endpoints with custom CA or client certificates.
	TLS ClientTLS `mapstructure:"tls" json:"tls" yaml:"tls" toml:"tls"`
}

// Reconnect configures automatic reconnection after unexpected closes.
type Reconnect struct {
	// MaxRetries is a number of reconnect attempts in a row before giving up.
	MaxRetries int `mapstructure:"max_retries" json:"max_retries" yaml:"max_retries" toml:"max_retries" default:"5"`
	// BaseDelay is a delay before the first attempt, doubled for every next one.
	BaseDelay Duration `mapstructure:"base_delay" json:"base_delay" yaml:"base_delay" toml:"base_delay" default:"1s"`
	// MaxDelay caps the delay.
	MaxDelay Duration `mapstructure:"max_delay" json:"max_delay" yaml:"max_delay" toml:"max_delay" default:"30s"`
}

// WebSocket tunes the client connection.
type WebSocket struct {
	HandshakeTimeout Duration `mapstructure:"handshake_timeout" json:"handshake_timeout" yaml:"handshake_timeout" toml:"handshake_timeout" default:"10s"`
	WriteTimeout     Duration `mapstructure:"write_timeout" json:"write_timeout" yaml:"write_timeout" toml:"write_timeout" default:"1s"`
	// PingInterval between client pings, negative value disables pings.
	PingInterval Duration `mapstructure:"ping_interval" json:"ping_interval" yaml:"ping_interval" toml:"ping_interval" default:"25s"`
	// MessageSizeLimit for inbound frames in bytes.
	MessageSizeLimit int64 `mapstructure:"message_size_limit" json:"message_size_limit" yaml:"message_size_limit" toml:"message_size_limit" default:"65536"`
	// SendRateLimit is a maximum number of outbound messages per second, 0 means unlimited.
	SendRateLimit float64 `mapstructure:"send_rate_limit" json:"send_rate_limit" yaml:"send_rate_limit" toml:"send_rate_limit"`
	SendRateBurst int     `mapstructure:"send_rate_burst" json:"send_rate_burst" yaml:"send_rate_burst" toml:"send_rate_burst"`
}

// API is the REST endpoint which starts document processing and stores prompts.
type API struct {
	// URL is a base http(s) address, e.g. https://abc.execute-api.us-east-1.amazonaws.com/prod.
	URL string `mapstructure:"url" json:"url" yaml:"url" toml:"url"`
	// Stage is passed to the backend to route results back.
	Stage string `mapstructure:"stage" json:"stage" yaml:"stage" toml:"stage"`
	// DomainName is the streaming endpoint the backend pushes results to. Endpoint URL is used when empty.
	DomainName string `mapstructure:"domain_name" json:"domain_name" yaml:"domain_name" toml:"domain_name"`
	// Demo selects a prompt collection.
	Demo    string   `mapstructure:"demo" json:"demo" yaml:"demo" toml:"demo" default:"srb"`
	Timeout Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout" toml:"timeout" default:"30s"`
}

type Log struct {
	// Level is a log level: trace, debug, info, warn, error, fatal or none.
	Level string `mapstructure:"level" json:"level" yaml:"level" toml:"level" default:"info"`
	// File is an optional log file, logs go to STDERR when empty.
	File string `mapstructure:"file" json:"file" yaml:"file" toml:"file"`
}

// HTTPServer serves metrics and health endpoints of a long-running listener.
type HTTPServer struct {
	Address string `mapstructure:"address" json:"address" yaml:"address" toml:"address"`
	Port    int    `mapstructure:"port" json:"port" yaml:"port" toml:"port" default:"9090"`
}

type Prometheus struct {
	Enabled       bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled" toml:"enabled"`
	HandlerPrefix string `mapstructure:"handler_prefix" json:"handler_prefix" yaml:"handler_prefix" toml:"handler_prefix" default:"/metrics"`
}

type Health struct {
	Enabled       bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled" toml:"enabled"`
	HandlerPrefix string `mapstructure:"handler_prefix" json:"handler_prefix" yaml:"handler_prefix" toml:"handler_prefix" default:"/health"`
}

type Shutdown struct {
	Timeout Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout" toml:"timeout" default:"10s"`
}
