package configtypes

import (
	"fmt"
	"net/http"
	"os"
	"reflect"
	"regexp"

	"github.com/go-viper/mapstructure/v2"
	"github.com/segmentio/encoding/json"
)

// MapStringString is a string map which may be set from a JSON object in
// environment variables.
type MapStringString map[string]string

var customEnvVarRegex = regexp.MustCompile(`\$\{(PROMPTSTREAM_VAR_[^}]+)}`)

// expandEnvVars replaces ${PROMPTSTREAM_VAR_*} references in values. All
// referenced variables must exist.
func expandEnvVars(m map[string]string) error {
	for key, val := range m {
		var missing string
		m[key] = customEnvVarRegex.ReplaceAllStringFunc(val, func(match string) string {
			name := customEnvVarRegex.FindStringSubmatch(match)[1]
			v, ok := os.LookupEnv(name)
			if !ok && missing == "" {
				missing = name
			}
			return v
		})
		if missing != "" {
			return fmt.Errorf("environment variable %q not found", missing)
		}
	}
	return nil
}

// Header converts the map to http.Header.
func (s MapStringString) Header() http.Header {
	if len(s) == 0 {
		return nil
	}
	h := make(http.Header, len(s))
	for k, v := range s {
		h.Set(k, v)
	}
	return h
}

// StringToMapStringStringHookFunc decodes MapStringString from a JSON string
// (environment), a map or a list of key/value objects.
func StringToMapStringStringHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != reflect.TypeOf(MapStringString{}) {
			return data, nil
		}
		m := make(map[string]string)
		switch v := data.(type) {
		case string:
			if v == "" {
				return MapStringString(m), nil
			}
			if err := json.Unmarshal([]byte(v), &m); err != nil {
				return nil, fmt.Errorf("expected JSON object: %w", err)
			}
		case map[string]any:
			for key, value := range v {
				strValue, ok := value.(string)
				if !ok {
					return nil, fmt.Errorf("expected string value for key %q, got %T", key, value)
				}
				m[key] = strValue
			}
		case map[string]string:
			for key, value := range v {
				m[key] = value
			}
		case []any:
			for i, item := range v {
				kv, ok := item.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("expected map for element %d, got %T", i, item)
				}
				key, ok := kv["key"].(string)
				if !ok {
					return nil, fmt.Errorf("missing or invalid key in element %d", i)
				}
				if _, exists := m[key]; exists {
					return nil, fmt.Errorf("duplicate key %q at element %d", key, i)
				}
				value, ok := kv["value"].(string)
				if !ok {
					return nil, fmt.Errorf("missing or invalid value in element %d", i)
				}
				m[key] = value
			}
		default:
			return nil, fmt.Errorf("unsupported type %T for MapStringString", data)
		}
		if err := expandEnvVars(m); err != nil {
			return nil, err
		}
		return MapStringString(m), nil
	}
}
