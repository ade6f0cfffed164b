package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/promptstream/promptstream/internal/config"
	"github.com/promptstream/promptstream/internal/tools"

	"github.com/pelletier/go-toml/v2"
	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var supportedExtensions = []string{"json", "toml", "yaml", "yml"}

func DefaultConfigCommand() *cobra.Command {
	var defaultConfigFile string
	var defaultConfigCmd = &cobra.Command{
		Use:   "defaultconfig",
		Short: "Generate full configuration file with defaults",
		Long:  `Generate full Promptstream configuration file with defaults`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := DefaultConfig(defaultConfigFile); err != nil {
				fmt.Println(errorStyle.Render("error: " + err.Error()))
				os.Exit(1)
			}
		},
	}
	defaultConfigCmd.Flags().StringVarP(&defaultConfigFile, "output", "o", "config.json", "path to default config file to generate")
	return defaultConfigCmd
}

// DefaultConfig writes configuration with all defaults to configFile. Format
// is chosen by file extension.
func DefaultConfig(configFile string) error {
	exists, err := tools.PathExists(configFile)
	if err != nil {
		return err
	}
	if exists {
		return errors.New("target file already exists")
	}
	conf, _, err := config.GetConfig(nil, "")
	if err != nil {
		return err
	}
	if err = conf.Validate(); err != nil {
		return err
	}
	b, err := encodeConfig(conf, configFile)
	if err != nil {
		return err
	}
	return os.WriteFile(configFile, b, 0644)
}

func encodeConfig(conf config.Config, configFile string) ([]byte, error) {
	ext := filepath.Ext(configFile)
	if len(ext) > 1 {
		ext = ext[1:]
	}
	switch ext {
	case "json":
		return json.MarshalIndent(conf, "", "  ")
	case "toml":
		return toml.Marshal(conf)
	case "yaml", "yml":
		return yaml.Marshal(conf)
	default:
		return nil, errors.New("output config file must have one of supported extensions: " + strings.Join(supportedExtensions, ", "))
	}
}
