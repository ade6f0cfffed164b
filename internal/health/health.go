// Package health exposes subscription state over HTTP.
package health

import (
	"net/http"

	"github.com/promptstream/promptstream/internal/subscription"

	"github.com/segmentio/encoding/json"
)

// Source provides current subscription state.
type Source interface {
	Snapshot() subscription.Snapshot
}

// Config of health check handler.
type Config struct{}

// Handler handles health endpoint. It responds 503 once reconnect attempts
// ran out and 200 otherwise, including while reconnecting.
type Handler struct {
	source Source
	config Config
}

// NewHandler creates new Handler.
func NewHandler(s Source, c Config) *Handler {
	return &Handler{
		source: s,
		config: c,
	}
}

type response struct {
	Status       string `json:"status"`
	State        string `json:"state"`
	Connected    bool   `json:"connected"`
	ConnectionID string `json:"connection_id,omitempty"`
	Error        string `json:"error,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	snap := h.source.Snapshot()
	resp := response{
		Status:       "ok",
		State:        snap.State.String(),
		Connected:    snap.Connected,
		ConnectionID: snap.ConnectionID,
	}
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}
	code := http.StatusOK
	switch {
	case snap.Exhausted:
		resp.Status = "failed"
		code = http.StatusServiceUnavailable
	case !snap.Connected:
		resp.Status = "connecting"
	}
	data, _ := json.Marshal(resp)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}
