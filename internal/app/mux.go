package app

import (
	stdlog "log"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/promptstream/promptstream/internal/config"
	"github.com/promptstream/promptstream/internal/health"
	"github.com/promptstream/promptstream/internal/middleware"

	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// HandlerFlag is a bit mask of handlers that must be enabled in mux.
type HandlerFlag int

const (
	// HandlerPrometheus enables Prometheus handler.
	HandlerPrometheus HandlerFlag = 1 << iota
	// HandlerHealth enables Health check endpoint.
	HandlerHealth
)

var handlerText = map[HandlerFlag]string{
	HandlerPrometheus: "prometheus",
	HandlerHealth:     "health",
}

func (flags HandlerFlag) String() string {
	flagsOrdered := []HandlerFlag{HandlerPrometheus, HandlerHealth}
	var endpoints []string
	for _, flag := range flagsOrdered {
		text, ok := handlerText[flag]
		if !ok {
			continue
		}
		if flags&flag != 0 {
			endpoints = append(endpoints, text)
		}
	}
	return strings.Join(endpoints, ", ")
}

// Mux returns a mux with handlers enabled in flags.
func Mux(cfg config.Config, source health.Source, flags HandlerFlag) *http.ServeMux {
	mux := http.NewServeMux()

	commonMiddlewares := []alice.Constructor{middleware.ReadOnly}
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		commonMiddlewares = append(commonMiddlewares, middleware.LogRequest)
	}
	if cfg.Prometheus.Enabled {
		commonMiddlewares = append(commonMiddlewares, middleware.HTTPServerInstrumentation)
	}
	basicChain := alice.New(commonMiddlewares...)

	if flags&HandlerPrometheus != 0 {
		prefix := strings.TrimRight(cfg.Prometheus.HandlerPrefix, "/")
		if prefix == "" {
			prefix = "/"
		}
		mux.Handle(prefix, basicChain.Then(promhttp.Handler()))
	}

	if flags&HandlerHealth != 0 {
		prefix := strings.TrimRight(cfg.Health.HandlerPrefix, "/")
		if prefix == "" {
			prefix = "/"
		}
		mux.Handle(prefix, basicChain.Then(health.NewHandler(source, health.Config{})))
	}

	return mux
}

func handlerFlags(cfg config.Config) HandlerFlag {
	var flags HandlerFlag
	if cfg.Prometheus.Enabled {
		flags |= HandlerPrometheus
	}
	if cfg.Health.Enabled {
		flags |= HandlerHealth
	}
	return flags
}

// runHTTPServers starts the server for metrics and health endpoints. Nothing
// is started when both are disabled.
func runHTTPServers(cfg config.Config, source health.Source) ([]*http.Server, error) {
	flags := handlerFlags(cfg)
	if flags == 0 {
		return nil, nil
	}
	addr := net.JoinHostPort(cfg.HTTP.Address, strconv.Itoa(cfg.HTTP.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	log.Info().Msgf("serving %s endpoints on %s", flags, addr)

	server := &http.Server{
		Addr:     addr,
		Handler:  Mux(cfg, source, flags),
		ErrorLog: stdlog.New(&httpErrorLogWriter{Logger: log.Logger}, "", 0),
	}
	go func() {
		if err := server.Serve(ln); err != nil {
			if err != http.ErrServerClosed {
				log.Fatal().Err(err).Msg("error ListenAndServe")
			}
		}
	}()
	return []*http.Server{server}, nil
}
