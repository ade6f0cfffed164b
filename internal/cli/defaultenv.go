package cli

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/promptstream/promptstream/internal/config"

	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"
)

func DefaultEnv() *cobra.Command {
	var baseConfigFile string
	var defaultEnvCmd = &cobra.Command{
		Use:   "defaultenv",
		Short: "Generate full environment var list with defaults",
		Long:  `Generate full Promptstream environment var list with defaults`,
		Run: func(cmd *cobra.Command, args []string) {
			conf, _, err := config.GetConfig(nil, baseConfigFile)
			if err == nil {
				err = conf.Validate()
			}
			if err != nil {
				fmt.Println(errorStyle.Render("error: " + err.Error()))
				os.Exit(1)
			}
			printSortedEnvVars(os.Stdout, envVars(conf))
		},
	}
	defaultEnvCmd.Flags().StringVarP(&baseConfigFile, "base", "b", "", "path to the base config file to use")
	return defaultEnvCmd
}

// envVars maps every environment variable name to its value in conf.
func envVars(conf config.Config) map[string]string {
	vars := map[string]string{}
	collectEnvVars(reflect.ValueOf(conf), config.EnvPrefix, vars)
	return vars
}

func collectEnvVars(v reflect.Value, prefix string, vars map[string]string) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		name := prefix + "_" + strings.ToUpper(tag)
		field := v.Field(i)
		if field.Kind() == reflect.Struct {
			collectEnvVars(field, name, vars)
			continue
		}
		vars[name] = valueToStringReflect(field)
	}
}

func printSortedEnvVars(w io.Writer, vars map[string]string) {
	envKeys := make([]string, 0, len(vars))
	for env := range vars {
		envKeys = append(envKeys, env)
	}
	sort.Strings(envKeys)
	for _, env := range envKeys {
		_, _ = fmt.Fprintf(w, "%s=%s\n", env, vars[env])
	}
}

// valueToStringReflect converts a reflect.Value to a string in a way suitable for environment variables.
func valueToStringReflect(v reflect.Value) string {
	switch v.Kind() {
	case reflect.Map:
		if v.Len() == 0 {
			return "\"\""
		}
		jsonValue, err := json.Marshal(v.Interface())
		if err != nil {
			panic(err)
		}
		// Escape double quotes to make the value suitable for environment variables
		return fmt.Sprintf("\"%v\"", strings.ReplaceAll(string(jsonValue), `"`, `\"`))
	case reflect.String:
		return fmt.Sprintf("\"%v\"", v.Interface())
	default:
		// Fallback for other types (int, bool, Duration etc.)
		return fmt.Sprintf("%v", v.Interface())
	}
}
