package app

import (
	"github.com/promptstream/promptstream/internal/config"

	"github.com/spf13/cobra"
)

// Promptstream is a root command. Without subcommand it listens to the
// streaming backend and prints every frame to STDOUT.
func Promptstream() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "promptstream",
		Short: "Promptstream",
		Long:  "Promptstream – persistent streaming client for prompt evaluation backends",
		Run: func(cmd *cobra.Command, args []string) {
			Run(cmd, configFile)
		},
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.json", "path to config file")
	config.DefineFlags(cmd)
	return cmd
}

// ConfigFile returns value of the root --config flag as seen from cmd.
func ConfigFile(cmd *cobra.Command) string {
	if f := cmd.Flag("config"); f != nil {
		return f.Value.String()
	}
	return ""
}
