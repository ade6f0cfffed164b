package tools

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// PathExists returns whether the given file or directory exists or not
func PathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

var jsonConfigTemplate = `{
  "endpoint": {
    "url": "{{.EndpointURL}}"
  },
  "api": {
    "url": "{{.APIURL}}",
    "stage": "{{.Stage}}"
  },
  "reconnect": {
    "max_retries": 5
  }
}
`

var tomlConfigTemplate = `[endpoint]
  url = "{{.EndpointURL}}"

[api]
  url = "{{.APIURL}}"
  stage = "{{.Stage}}"

[reconnect]
  max_retries = 5
`

var yamlConfigTemplate = `endpoint:
  url: "{{.EndpointURL}}"

api:
  url: "{{.APIURL}}"
  stage: "{{.Stage}}"

reconnect:
  max_retries: 5
`

// StarterConfig holds values substituted into a generated config file.
type StarterConfig struct {
	EndpointURL string
	APIURL      string
	Stage       string
}

// GenerateConfig generates configuration file at provided path.
func GenerateConfig(f string, values StarterConfig) error {
	exists, err := PathExists(f)
	if err != nil {
		return err
	}
	if exists {
		return errors.New("output config file already exists: " + f)
	}
	ext := filepath.Ext(f)

	if len(ext) > 1 {
		ext = ext[1:]
	}

	supportedExtensions := []string{"json", "toml", "yaml", "yml"}

	var t *template.Template

	switch ext {
	case "json":
		t, err = template.New("config").Parse(jsonConfigTemplate)
	case "toml":
		t, err = template.New("config").Parse(tomlConfigTemplate)
	case "yaml", "yml":
		t, err = template.New("config").Parse(yamlConfigTemplate)
	default:
		return errors.New("output config file must have one of supported extensions: " + strings.Join(supportedExtensions, ", "))
	}
	if err != nil {
		return err
	}

	var output bytes.Buffer
	if err := t.Execute(&output, values); err != nil {
		return err
	}
	return os.WriteFile(f, output.Bytes(), 0644)
}
