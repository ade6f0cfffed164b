package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/promptstream/promptstream/internal/app"
	"github.com/promptstream/promptstream/internal/config"
	"github.com/promptstream/promptstream/internal/restapi"

	"github.com/spf13/cobra"
)

func Prompts() *cobra.Command {
	var promptsCmd = &cobra.Command{
		Use:   "prompts",
		Short: "Manage saved prompts",
		Long:  `List and save prompts stored by the processing API`,
	}
	promptsCmd.AddCommand(promptsList(), promptsSave())
	return promptsCmd
}

func promptsList() *cobra.Command {
	var format string
	var listCmd = &cobra.Command{
		Use:   "list",
		Short: "List saved prompts",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, _, logCloseFn := app.Bootstrap(cmd, app.ConfigFile(cmd))
			err := listPrompts(cmd.Context(), cfg, format, os.Stdout)
			logCloseFn()
			if err != nil {
				fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
				os.Exit(1)
			}
		},
	}
	listCmd.Flags().StringVarP(&format, "output", "o", "table", "output format: table, json or yaml")
	return listCmd
}

func promptsSave() *cobra.Command {
	var p restapi.Prompt
	var promptFile string
	var saveCmd = &cobra.Command{
		Use:   "save",
		Short: "Save a prompt",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, _, logCloseFn := app.Bootstrap(cmd, app.ConfigFile(cmd))
			err := savePrompt(cmd.Context(), cfg, p, promptFile)
			logCloseFn()
			if err != nil {
				fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
				os.Exit(1)
			}
			fmt.Println(successStyle.Render("prompt saved: " + p.Title))
		},
	}
	saveCmd.Flags().StringVarP(&p.Title, "title", "t", "", "prompt title")
	saveCmd.Flags().StringVarP(&p.Prompt, "prompt", "", "", "prompt text")
	saveCmd.Flags().StringVarP(&promptFile, "prompt-file", "", "", "read prompt text from file")
	return saveCmd
}

func listPrompts(ctx context.Context, cfg config.Config, format string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	api, err := newAPIClient(cfg)
	if err != nil {
		return err
	}
	prompts, err := api.ListPrompts(ctx, cfg.API.Demo)
	if err != nil {
		return err
	}
	formatter := NewFormatter(format)
	if tf, ok := formatter.(*TableFormatter); ok {
		tf.MaxWidth = 60
		_, _ = fmt.Fprintln(out, titleStyle.Render("Prompts: "+cfg.API.Demo))
	}
	_, err = io.WriteString(out, formatter.Format(prompts))
	return err
}

func savePrompt(ctx context.Context, cfg config.Config, p restapi.Prompt, promptFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if promptFile != "" {
		if p.Prompt != "" {
			return errors.New("use either --prompt or --prompt-file")
		}
		data, err := os.ReadFile(promptFile)
		if err != nil {
			return err
		}
		p.Prompt = string(data)
	}
	if p.Demo == "" {
		p.Demo = cfg.API.Demo
	}
	api, err := newAPIClient(cfg)
	if err != nil {
		return err
	}
	return api.SavePrompt(ctx, p)
}
