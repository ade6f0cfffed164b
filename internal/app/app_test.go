package app

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/promptstream/promptstream/internal/config"
	"github.com/promptstream/promptstream/internal/frame"
	"github.com/promptstream/promptstream/internal/subscription"
	"github.com/promptstream/promptstream/internal/wsclient"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	snap subscription.Snapshot
}

func (s staticSource) Snapshot() subscription.Snapshot {
	return s.snap
}

func TestHandlerFlagString(t *testing.T) {
	require.Equal(t, "", HandlerFlag(0).String())
	require.Equal(t, "health", HandlerHealth.String())
	require.Equal(t, "prometheus, health", (HandlerPrometheus | HandlerHealth).String())
}

func TestHandlerFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	require.Equal(t, HandlerFlag(0), handlerFlags(cfg))
	cfg.Health.Enabled = true
	require.Equal(t, HandlerHealth, handlerFlags(cfg))
	cfg.Prometheus.Enabled = true
	require.Equal(t, HandlerPrometheus|HandlerHealth, handlerFlags(cfg))
}

func TestMux(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Prometheus.Enabled = true
	cfg.Health.Enabled = true
	source := staticSource{snap: subscription.Snapshot{Connected: true, ConnectionID: "abc", State: wsclient.StateOpen}}
	mux := Mux(cfg, source, HandlerPrometheus|HandlerHealth)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok","state":"open","connected":true,"connection_id":"abc"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "promptstream_http_incoming_requests_total")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMuxDisabledHandler(t *testing.T) {
	cfg := config.DefaultConfig()
	mux := Mux(cfg, staticSource{}, HandlerHealth)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunHTTPServersDisabled(t *testing.T) {
	servers, err := runHTTPServers(config.DefaultConfig(), staticSource{})
	require.NoError(t, err)
	require.Empty(t, servers)
}

func TestFramePrinter(t *testing.T) {
	var buf bytes.Buffer
	p := newFramePrinter(&buf)
	f, err := frame.Parse([]byte(`{"chunk":"hello"}`))
	require.NoError(t, err)
	p.Print(f)
	p.Print(frame.Frame{"done": true})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.JSONEq(t, `{"chunk":"hello"}`, lines[0])
	require.JSONEq(t, `{"done":true}`, lines[1])
}

func TestConfigFile(t *testing.T) {
	root := Promptstream()
	child := &cobra.Command{Use: "child"}
	root.AddCommand(child)
	require.Equal(t, "config.json", ConfigFile(child))
	require.NoError(t, root.PersistentFlags().Set("config", "custom.yaml"))
	require.Equal(t, "custom.yaml", ConfigFile(child))
	require.Equal(t, "", ConfigFile(&cobra.Command{Use: "orphan"}))
}
