// Promptstream keeps a persistent streaming connection to a prompt
// evaluation backend and prints results as they arrive.
package main

import (
	"github.com/promptstream/promptstream/internal/app"
	"github.com/promptstream/promptstream/internal/cli"

	"github.com/rs/zerolog/log"
)

func main() {
	rootCmd := app.Promptstream()
	rootCmd.AddCommand(
		cli.Version(),
		cli.CheckConfig(),
		cli.GenConfig(),
		cli.DefaultConfigCommand(),
		cli.DefaultEnv(),
		cli.Evaluate(),
		cli.Prompts(),
	)
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("error executing command")
	}
}
