// Package config contains promptstream Config and the code to load it.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/promptstream/promptstream/internal/configtypes"

	"github.com/go-viper/mapstructure/v2"
	"github.com/hashicorp/go-envparse"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix of environment variables overriding config keys, e.g.
// PROMPTSTREAM_ENDPOINT_URL for endpoint.url.
const EnvPrefix = "PROMPTSTREAM"

type Config struct {
	// Endpoint is the streaming backend.
	Endpoint configtypes.Endpoint `mapstructure:"endpoint" json:"endpoint" toml:"endpoint" yaml:"endpoint"`
	// Reconnect controls automatic reconnects after unexpected disconnects.
	Reconnect configtypes.Reconnect `mapstructure:"reconnect" json:"reconnect" toml:"reconnect" yaml:"reconnect"`
	// WebSocket tunes the connection.
	WebSocket configtypes.WebSocket `mapstructure:"websocket" json:"websocket" toml:"websocket" yaml:"websocket"`
	// API is the REST endpoint used to start processing and manage prompts.
	API configtypes.API `mapstructure:"api" json:"api" toml:"api" yaml:"api"`
	// Log is a configuration for logging.
	Log configtypes.Log `mapstructure:"log" json:"log" toml:"log" yaml:"log"`
	// HTTP server exposes Prometheus and health endpoints while listening.
	HTTP       configtypes.HTTPServer `mapstructure:"http_server" json:"http_server" toml:"http_server" yaml:"http_server"`
	Prometheus configtypes.Prometheus `mapstructure:"prometheus" json:"prometheus" toml:"prometheus" yaml:"prometheus"`
	Health     configtypes.Health     `mapstructure:"health" json:"health" toml:"health" yaml:"health"`
	Shutdown   configtypes.Shutdown   `mapstructure:"shutdown" json:"shutdown" toml:"shutdown" yaml:"shutdown"`
	// PidFile is a path to write a file with process PID.
	PidFile string `mapstructure:"pid_file" json:"pid_file" toml:"pid_file" yaml:"pid_file"`
}

type Meta struct {
	FileNotFound bool
	UnknownKeys  []string
	UnknownEnvs  []string
	KnownEnvVars []string
}

var bindPFlags = []string{
	"endpoint.url", "api.url", "api.stage", "api.demo", "reconnect.max_retries",
	"log.level", "log.file", "http_server.address", "http_server.port",
	"prometheus.enabled", "health.enabled", "pid_file",
}

// DefineFlags registers flags shared by all commands.
func DefineFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.StringP("endpoint.url", "u", "ws://localhost:8080/ws", "streaming backend WebSocket URL")
	flags.StringP("api.url", "", "", "REST API base URL")
	flags.StringP("api.stage", "", "", "API stage passed to the backend")
	flags.StringP("api.demo", "", "srb", "prompt collection to use")
	flags.IntP("reconnect.max_retries", "", 5, "reconnect attempts before giving up")
	flags.StringP("log.level", "", "info", "set the log level: trace, debug, info, error, fatal or none")
	flags.StringP("log.file", "", "", "optional log file - if not specified logs go to STDERR")
	flags.StringP("http_server.address", "a", "", "interface address for metrics and health endpoints")
	flags.IntP("http_server.port", "p", 9090, "port for metrics and health endpoints")
	flags.BoolP("prometheus.enabled", "", false, "enable Prometheus metrics endpoint")
	flags.BoolP("health.enabled", "", false, "enable health check endpoint")
	flags.StringP("pid_file", "", "", "optional path to create PID file")
}

// GetConfig loads Config applying, in order of priority: flags changed on
// cmd, environment, config file and defaults.
func GetConfig(cmd *cobra.Command, configFile string) (Config, Meta, error) {
	v := viper.NewWithOptions(viper.WithDecodeHook(mapstructure.ComposeDecodeHookFunc(
		configtypes.StringToDurationHookFunc(),
		configtypes.StringToMapStringStringHookFunc(),
	)))
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	knownEnvVars := map[string]struct{}{}
	walkKeys(reflect.TypeOf(Config{}), "", func(key string, field reflect.StructField) {
		v.SetDefault(key, defaultValue(field))
		knownEnvVars[envName(key)] = struct{}{}
	})

	if cmd != nil {
		for _, flag := range bindPFlags {
			if f := cmd.Flag(flag); f != nil {
				_ = v.BindPFlag(flag, f)
			}
		}
	}

	meta := Meta{}

	if configFile != "" {
		v.SetConfigFile(configFile)
		err := v.ReadInConfig()
		if err != nil {
			var configFileNotFoundError *os.PathError
			if errors.As(err, &configFileNotFoundError) {
				meta.FileNotFound = true
			} else {
				return Config{}, Meta{}, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return Config{}, Meta{}, fmt.Errorf("error unmarshaling config: %w", err)
	}

	meta.UnknownKeys = findUnknownKeys(v.AllSettings(), conf, "")
	meta.UnknownEnvs = checkEnvironmentVars(knownEnvVars)
	for name := range knownEnvVars {
		meta.KnownEnvVars = append(meta.KnownEnvVars, name)
	}
	sort.Strings(meta.KnownEnvVars)
	sort.Strings(meta.UnknownKeys)
	sort.Strings(meta.UnknownEnvs)

	return *conf, meta, nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// walkKeys calls fn for every leaf key of a config struct type.
func walkKeys(typ reflect.Type, parent string, fn func(key string, field reflect.StructField)) {
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		key := appendKeyPath(parent, tag)
		if field.Type.Kind() == reflect.Struct {
			walkKeys(field.Type, key, fn)
			continue
		}
		fn(key, field)
	}
}

// defaultValue of a leaf field: its default tag or zero value. Strings from
// tags are converted by weakly typed decoding.
func defaultValue(field reflect.StructField) any {
	if d, ok := field.Tag.Lookup("default"); ok {
		return d
	}
	if field.Type.Kind() == reflect.Map {
		return nil
	}
	return reflect.Zero(field.Type).Interface()
}

func findUnknownKeys(data map[string]any, configStruct any, parentKey string) []string {
	var unknownKeys []string
	typ := reflect.TypeOf(configStruct)
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}

	validKeys := make(map[string]reflect.StructField)
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if tag := field.Tag.Get("mapstructure"); tag != "" {
			validKeys[tag] = field
		}
	}

	for key, value := range data {
		field, exists := validKeys[key]
		if !exists {
			unknownKeys = append(unknownKeys, appendKeyPath(parentKey, key))
			continue
		}
		if field.Type.Kind() != reflect.Struct {
			continue
		}
		if nestedMap, ok := value.(map[string]any); ok {
			nested := reflect.New(field.Type).Interface()
			unknownKeys = append(unknownKeys, findUnknownKeys(nestedMap, nested, appendKeyPath(parentKey, key))...)
		}
	}
	return unknownKeys
}

func appendKeyPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func checkEnvironmentVars(knownEnvVars map[string]struct{}) []string {
	var unknownEnvs []string
	envPrefix := EnvPrefix + "_"
	for _, envVar := range os.Environ() {
		kv, err := envparse.Parse(strings.NewReader(envVar))
		if err != nil {
			continue
		}
		for envKey := range kv {
			if !strings.HasPrefix(envKey, envPrefix) {
				continue
			}
			// Referenced from header values.
			if strings.HasPrefix(envKey, envPrefix+"VAR_") {
				continue
			}
			if _, ok := knownEnvVars[envKey]; !ok {
				unknownEnvs = append(unknownEnvs, envKey)
			}
		}
	}
	return unknownEnvs
}

// DefaultConfig is a helper to be used in tests and for config generation.
func DefaultConfig() Config {
	conf, _, err := GetConfig(nil, "")
	if err != nil {
		panic("error during getting default config: " + err.Error())
	}
	return conf
}
