package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/promptstream/promptstream/internal/build"
	"github.com/promptstream/promptstream/internal/config"
	"github.com/promptstream/promptstream/internal/logging"
	"github.com/promptstream/promptstream/internal/service"
	"github.com/promptstream/promptstream/internal/subscription"
	"github.com/promptstream/promptstream/internal/tools"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

// Bootstrap loads .env file and configuration, sets up logging and validates
// config. Any failure is fatal. Returned func must be called on exit.
func Bootstrap(cmd *cobra.Command, configFile string) (config.Config, config.Meta, func()) {
	dotEnvUsed := false
	if tools.FileExists(".env") {
		err := godotenv.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("error loading .env file")
		}
		dotEnvUsed = true
	}
	cfg, cfgMeta, err := config.GetConfig(cmd, configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("error getting config")
	}
	logCloseFn, err := logging.Setup(cfg.Log)
	if err != nil {
		log.Fatal().Err(err).Msg("error setting up logging")
	}
	if cfgMeta.FileNotFound {
		log.Debug().Msg("config file not found, continue using environment and flag options")
	} else if configFile != "" {
		absConfPath, _ := filepath.Abs(configFile)
		log.Info().Str("path", absConfPath).Msg("using config file")
		if dotEnvUsed {
			log.Info().Msg("environment variables have been loaded from .env file")
		}
	}
	if err = cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("error validating config")
	}
	logStartWarnings(cfg, cfgMeta)
	return cfg, cfgMeta, logCloseFn
}

func Run(cmd *cobra.Command, configFile string) {
	cfg, _, logCloseFn := Bootstrap(cmd, configFile)

	err := tools.WritePidFile(cfg.PidFile)
	if err != nil {
		log.Fatal().Err(err).Msg("error writing PID")
	}

	_, _ = maxprocs.Set(maxprocs.Logger(func(s string, i ...interface{}) {
		log.Debug().Msgf(strings.ToLower(s), i...)
	}))

	log.Info().
		Str("version", build.Version).
		Str("runtime", runtime.Version()).
		Int("pid", os.Getpid()).
		Int("gomaxprocs", runtime.GOMAXPROCS(0)).
		Str("endpoint", cfg.Endpoint.URL).
		Int("max_retries", cfg.Reconnect.MaxRetries).
		Msg("starting Promptstream")

	if build.Version == "0.0.0" {
		log.Warn().Msg("running a development build of Promptstream (version 0.0.0)")
	}

	subCfg, err := cfg.SubscriptionConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error creating subscription config")
	}
	sub, err := subscription.New(subCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating subscription")
	}

	ctx, serviceCancel := context.WithCancel(context.Background())
	defer serviceCancel()

	printer := newFramePrinter(os.Stdout)
	serviceManager := service.NewManager()
	serviceManager.Register(service.Func(func(ctx context.Context) error {
		return sub.Run(ctx, printer.Print)
	}))
	serviceManager.Run(ctx)

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- serviceManager.Wait()
	}()

	httpServers, err := runHTTPServers(cfg, sub)
	if err != nil {
		log.Fatal().Err(err).Msg("error running HTTP server")
	}

	code := handleSignals(cmd, configFile, cfg, httpServers, doneCh, serviceCancel)
	logCloseFn()
	os.Exit(code)
}

// handleSignals blocks until the process must exit and returns exit code.
func handleSignals(
	cmd *cobra.Command, configFile string, cfg config.Config, httpServers []*http.Server,
	doneCh <-chan error, serviceCancel context.CancelFunc,
) int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, os.Interrupt, syscall.SIGTERM)
	for {
		select {
		case err := <-doneCh:
			code := 0
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("subscription stopped")
				code = 1
			}
			shutdown(cfg, httpServers, nil, serviceCancel)
			return code
		case sig := <-sigCh:
			log.Info().Msgf("signal received: %v", sig)
			switch sig {
			case syscall.SIGHUP:
				// Only log level can be changed without reconnecting.
				log.Info().Msg("reloading configuration")
				newCfg, _, err := config.GetConfig(cmd, configFile)
				if err != nil {
					log.Err(err).Msg("error reading config")
					continue
				}
				if err = newCfg.Validate(); err != nil {
					log.Error().Msgf("error validating config: %v", err)
					continue
				}
				logging.SetLevel(newCfg.Log.Level)
				log.Info().Str("log_level", newCfg.Log.Level).Msg("configuration successfully reloaded")
			case syscall.SIGINT, os.Interrupt, syscall.SIGTERM:
				log.Info().Msg("shutting down ...")
				shutdown(cfg, httpServers, doneCh, serviceCancel)
				return 0
			}
		}
	}
}

// shutdown stops HTTP servers and services. With non-nil doneCh it waits for
// services to return.
func shutdown(cfg config.Config, httpServers []*http.Server, doneCh <-chan error, serviceCancel context.CancelFunc) {
	pidFile := cfg.PidFile
	timer := time.AfterFunc(cfg.Shutdown.Timeout.ToDuration(), func() {
		if pidFile != "" {
			_ = os.Remove(pidFile)
		}
		log.Fatal().Msg("shutdown timeout reached")
	})
	defer timer.Stop()

	var wg sync.WaitGroup
	for _, srv := range httpServers {
		wg.Add(1)
		go func(srv *http.Server) {
			defer wg.Done()
			_ = srv.Shutdown(context.Background()) // We have a separate timeout timer.
		}(srv)
	}

	serviceCancel()
	if doneCh != nil {
		if err := <-doneCh; err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("error stopping services")
		}
	}
	wg.Wait()

	if pidFile != "" {
		_ = os.Remove(pidFile)
	}
}
