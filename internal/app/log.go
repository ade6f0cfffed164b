package app

import (
	"strings"

	"github.com/promptstream/promptstream/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func logStartWarnings(cfg config.Config, cfgMeta config.Meta) {
	if cfg.Endpoint.TLS.InsecureSkipVerify {
		log.Warn().Msg("INSECURE TLS mode enabled for endpoint, server certificate is not verified")
	}
	if cfg.Reconnect.MaxRetries == 0 {
		log.Warn().Msg("reconnect.max_retries is 0, default limit is used")
	}
	if strings.HasPrefix(cfg.Endpoint.URL, "ws://") && len(cfg.Endpoint.Headers) > 0 {
		log.Warn().Msg("sending endpoint headers over unencrypted connection")
	}

	for _, key := range cfgMeta.UnknownKeys {
		log.Warn().Str("key", key).Msg("unknown key in configuration file")
	}
	for _, key := range cfgMeta.UnknownEnvs {
		log.Warn().Str("var", key).Msg("unknown var in environment")
	}
}

type httpErrorLogWriter struct {
	zerolog.Logger
}

func (w *httpErrorLogWriter) Write(data []byte) (int, error) {
	w.Logger.Warn().Msg(strings.TrimSpace(string(data)))
	return len(data), nil
}
