package configtypes

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// ClientTLS configures TLS of outgoing connections.
type ClientTLS struct {
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled" toml:"enabled"`
	// CertPem and KeyPem hold a client certificate for mutual TLS.
	CertPem PEMData `mapstructure:"cert_pem" json:"cert_pem" yaml:"cert_pem" toml:"cert_pem"`
	KeyPem  PEMData `mapstructure:"key_pem" json:"key_pem" yaml:"key_pem" toml:"key_pem"`
	// ServerCAPem is a root CA used to verify the server certificate.
	ServerCAPem PEMData `mapstructure:"server_ca_pem" json:"server_ca_pem" yaml:"server_ca_pem" toml:"server_ca_pem"`
	// InsecureSkipVerify turns off server certificate verification.
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" json:"insecure_skip_verify" yaml:"insecure_skip_verify" toml:"insecure_skip_verify"`
	ServerName         string `mapstructure:"server_name" json:"server_name" yaml:"server_name" toml:"server_name"`
}

// ToGoTLSConfig returns nil when TLS is not enabled.
func (c ClientTLS) ToGoTLSConfig() (*tls.Config, error) {
	if !c.Enabled {
		return nil, nil
	}
	tlsConfig := &tls.Config{
		ServerName:         c.ServerName,
		InsecureSkipVerify: c.InsecureSkipVerify,
	}
	if c.CertPem != "" || c.KeyPem != "" {
		certPEM, err := c.CertPem.Load()
		if err != nil {
			return nil, fmt.Errorf("load TLS certificate: %w", err)
		}
		keyPEM, err := c.KeyPem.Load()
		if err != nil {
			return nil, fmt.Errorf("load TLS key: %w", err)
		}
		cert, err := tls.X509KeyPair(certPEM, keyPEM)
		if err != nil {
			return nil, fmt.Errorf("error create x509 key pair: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	if c.ServerCAPem != "" {
		caPEM, err := c.ServerCAPem.Load()
		if err != nil {
			return nil, fmt.Errorf("load server CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, errors.New("no valid server CA certificates found")
		}
		tlsConfig.RootCAs = pool
	}
	log.Debug().Str("server_name", c.ServerName).Bool("insecure_skip_verify", c.InsecureSkipVerify).Msg("TLS config created")
	return tlsConfig, nil
}

// PEMData is raw PEM content, base64 encoded PEM content or a path to a PEM
// file, checked in that order.
type PEMData string

func (p PEMData) Load() ([]byte, error) {
	value := string(p)
	if isValidPEM([]byte(value)) {
		return []byte(value), nil
	}
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil && isValidPEM(decoded) {
		return decoded, nil
	}
	if _, err := os.Stat(value); err == nil {
		content, err := os.ReadFile(value)
		if err != nil {
			return nil, fmt.Errorf("error reading file: %w", err)
		}
		if !isValidPEM(content) {
			return nil, fmt.Errorf("file %q contains invalid PEM data", value)
		}
		return content, nil
	}
	return nil, errors.New("invalid PEM data: not a valid file path, base64-encoded PEM content, or raw PEM content")
}

func isValidPEM(data []byte) bool {
	block, _ := pem.Decode(data)
	return block != nil
}
