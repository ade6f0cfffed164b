package cli

import (
	"fmt"
	"os"

	"github.com/promptstream/promptstream/internal/config"
	"github.com/promptstream/promptstream/internal/tools"

	"github.com/spf13/cobra"
)

func GenConfig() *cobra.Command {
	var outputConfigFile string
	var values tools.StarterConfig
	var genConfigCmd = &cobra.Command{
		Use:   "genconfig",
		Short: "Generate minimal configuration file to start with",
		Long:  `Generate minimal configuration file to start with`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := genConfig(outputConfigFile, values); err != nil {
				fmt.Println(errorStyle.Render("error: " + err.Error()))
				os.Exit(1)
			}
			fmt.Println(successStyle.Render("configuration written to " + outputConfigFile))
		},
	}
	genConfigCmd.Flags().StringVarP(&outputConfigFile, "output", "o", "config.json", "path to output config file")
	genConfigCmd.Flags().StringVarP(&values.EndpointURL, "endpoint", "", "ws://localhost:8080/ws", "streaming backend WebSocket URL")
	genConfigCmd.Flags().StringVarP(&values.APIURL, "api", "", "http://localhost:8080", "REST API base URL")
	genConfigCmd.Flags().StringVarP(&values.Stage, "stage", "", "", "API stage")
	return genConfigCmd
}

// genConfig writes a starter file and checks it loads back into valid
// configuration, removing the file otherwise.
func genConfig(outputConfigFile string, values tools.StarterConfig) error {
	if err := tools.GenerateConfig(outputConfigFile, values); err != nil {
		return err
	}
	cfg, _, err := config.GetConfig(nil, outputConfigFile)
	if err != nil {
		_ = os.Remove(outputConfigFile)
		return fmt.Errorf("error getting config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		_ = os.Remove(outputConfigFile)
		return fmt.Errorf("error validating config: %w", err)
	}
	return nil
}
