package cli

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/segmentio/encoding/json"
	"gopkg.in/yaml.v3"
)

// Formatter renders command results.
type Formatter interface {
	Format(data any) string
}

// NewFormatter returns a Formatter for the given format string.
// Supported formats: "table" (default), "json", "yaml".
func NewFormatter(format string) Formatter {
	switch strings.ToLower(format) {
	case "json":
		return &JSONFormatter{}
	case "yaml":
		return &YAMLFormatter{}
	default:
		return &TableFormatter{}
	}
}

// TableFormatter formats slices of structs as aligned text tables.
type TableFormatter struct {
	// MaxWidth truncates cell values, 0 means no limit.
	MaxWidth int
}

func (f *TableFormatter) Format(data any) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice:
		if v.Len() == 0 {
			return dimStyle.Render("No prompts found.") + "\n"
		}
		t := v.Type().Elem()
		if t.Kind() != reflect.Struct {
			for i := 0; i < v.Len(); i++ {
				_, _ = fmt.Fprintln(w, v.Index(i).Interface())
			}
			break
		}
		headers := make([]string, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			headers[i] = strings.ToUpper(t.Field(i).Name)
		}
		_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
		for i := 0; i < v.Len(); i++ {
			row := v.Index(i)
			vals := make([]string, row.NumField())
			for j := 0; j < row.NumField(); j++ {
				vals[j] = f.cell(row.Field(j).Interface())
			}
			_, _ = fmt.Fprintln(w, strings.Join(vals, "\t"))
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			_, _ = fmt.Fprintf(w, "%s:\t%s\n", t.Field(i).Name, f.cell(v.Field(i).Interface()))
		}
	default:
		_, _ = fmt.Fprintln(w, data)
	}

	_ = w.Flush()
	return buf.String()
}

// cell renders a single-line value.
func (f *TableFormatter) cell(value any) string {
	s := strings.Join(strings.Fields(fmt.Sprintf("%v", value)), " ")
	if f.MaxWidth > 3 && len([]rune(s)) > f.MaxWidth {
		s = strings.TrimSpace(string([]rune(s)[:f.MaxWidth-3])) + "..."
	}
	return s
}

// JSONFormatter formats data as indented JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(data any) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("error formatting JSON: %v\n", err)
	}
	return string(b) + "\n"
}

// YAMLFormatter formats data as YAML.
type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(data any) string {
	b, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Sprintf("error formatting YAML: %v\n", err)
	}
	return string(b)
}
