package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/promptstream/promptstream/internal/app"
	"github.com/promptstream/promptstream/internal/config"

	"github.com/spf13/cobra"
)

func CheckConfig() *cobra.Command {
	var checkConfigStrict bool
	var checkConfigCmd = &cobra.Command{
		Use:   "checkconfig",
		Short: "Check configuration file",
		Long:  `Check Promptstream configuration file`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := checkConfig(cmd, app.ConfigFile(cmd), checkConfigStrict); err != nil {
				fmt.Println(errorStyle.Render(err.Error()))
				os.Exit(1)
			}
			fmt.Println(successStyle.Render("configuration is valid"))
		},
	}
	checkConfigCmd.Flags().BoolVarP(&checkConfigStrict, "strict", "s", false, "strict check - fail on unknown fields")
	return checkConfigCmd
}

func checkConfig(cmd *cobra.Command, checkConfigFile string, strict bool) error {
	cfg, cfgMeta, err := config.GetConfig(cmd, checkConfigFile)
	if err != nil {
		return fmt.Errorf("error getting config: %w", err)
	}
	if cfgMeta.FileNotFound {
		return fmt.Errorf("config file not found")
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("error validating config: %w", err)
	}
	if strict && len(cfgMeta.UnknownKeys) > 0 {
		return fmt.Errorf("unknown keys in config: %v", strings.Join(cfgMeta.UnknownKeys, ", "))
	}
	return nil
}
