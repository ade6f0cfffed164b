package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/promptstream/promptstream/internal/app"
	"github.com/promptstream/promptstream/internal/config"
	"github.com/promptstream/promptstream/internal/frame"
	"github.com/promptstream/promptstream/internal/restapi"
	"github.com/promptstream/promptstream/internal/stream"
	"github.com/promptstream/promptstream/internal/subscription"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type evaluateOptions struct {
	File           string
	Prompt         string
	Title          string
	Timeout        time.Duration
	ConnectTimeout time.Duration
}

func Evaluate() *cobra.Command {
	var opts evaluateOptions
	var evaluateCmd = &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a document with a prompt and stream the result",
		Long: `Open streaming connection, submit document and prompt to the processing API
and print the result to STDOUT as it arrives`,
		Run: func(cmd *cobra.Command, args []string) {
			cfg, _, logCloseFn := app.Bootstrap(cmd, app.ConfigFile(cmd))
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			err := evaluate(ctx, cfg, opts, os.Stdout)
			cancel()
			logCloseFn()
			if err != nil {
				fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
				os.Exit(1)
			}
		},
	}
	evaluateCmd.Flags().StringVarP(&opts.File, "file", "f", "", "path to document to evaluate")
	evaluateCmd.Flags().StringVarP(&opts.Prompt, "prompt", "", "", "prompt text")
	evaluateCmd.Flags().StringVarP(&opts.Title, "title", "t", "", "title of a saved prompt to use when --prompt not set")
	evaluateCmd.Flags().DurationVarP(&opts.Timeout, "timeout", "", 5*time.Minute, "maximum time to wait for the result")
	evaluateCmd.Flags().DurationVarP(&opts.ConnectTimeout, "connect-timeout", "", 30*time.Second, "maximum time to wait for session")
	return evaluateCmd
}

var errNoPrompt = errors.New("prompt required, use --prompt or --title")

func evaluate(ctx context.Context, cfg config.Config, opts evaluateOptions, out io.Writer, subOpts ...subscription.Option) error {
	api, err := newAPIClient(cfg)
	if err != nil {
		return err
	}
	prompt, err := resolvePrompt(ctx, api, cfg.API.Demo, opts)
	if err != nil {
		return err
	}
	var file []byte
	if opts.File != "" {
		file, err = os.ReadFile(opts.File)
		if err != nil {
			return err
		}
	}

	subCfg, err := cfg.SubscriptionConfig()
	if err != nil {
		return err
	}
	sub, err := subscription.New(subCfg, subOpts...)
	if err != nil {
		return err
	}

	result := stream.NewResult(stream.WithChunkHandler(func(chunk string) {
		_, _ = io.WriteString(out, chunk)
	}))
	idCh := make(chan string, 1)
	sub.Open(func(f frame.Frame) {
		if id, ok := f.ConnectionID(); ok {
			select {
			case idCh <- id:
			default:
			}
		}
		result.Consume(f)
	})
	defer sub.Close()

	connectionID, err := waitConnectionID(ctx, sub, idCh, opts.ConnectTimeout)
	if err != nil {
		return err
	}

	resp, err := api.Submit(ctx, restapi.SubmitRequest{
		ConnectionID: connectionID,
		Stage:        cfg.API.Stage,
		DomainName:   cfg.DomainName(),
		File:         file,
		Prompt:       prompt,
	})
	if err != nil {
		return err
	}
	log.Debug().Str("response", resp.Response).Str("connection_id", connectionID).Msg("processing started")

	waitCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	go func() {
		select {
		case <-sub.Failed():
			result.Fail(sub.Err())
		case <-result.Done():
		}
	}()
	_, err = result.Wait(waitCtx)
	_, _ = io.WriteString(out, "\n")
	return err
}

func waitConnectionID(ctx context.Context, sub *subscription.Subscription, idCh <-chan string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	select {
	case id := <-idCh:
		return id, nil
	case <-sub.Failed():
		return "", sub.Err()
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for connection id: %w", ctx.Err())
	}
}

func resolvePrompt(ctx context.Context, api *restapi.Client, demo string, opts evaluateOptions) (string, error) {
	if opts.Prompt != "" {
		return opts.Prompt, nil
	}
	if opts.Title == "" {
		return "", errNoPrompt
	}
	prompts, err := api.ListPrompts(ctx, demo)
	if err != nil {
		return "", err
	}
	for _, p := range prompts {
		if p.Title == opts.Title {
			return p.Prompt, nil
		}
	}
	return "", fmt.Errorf("prompt %q not found in %q", opts.Title, demo)
}

func newAPIClient(cfg config.Config) (*restapi.Client, error) {
	if cfg.API.URL == "" {
		return nil, errors.New("api.url required")
	}
	return restapi.New(cfg.API.URL, restapi.NewHTTPClient(cfg.API.Timeout.ToDuration()))
}
