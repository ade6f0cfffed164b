package app

import (
	"io"
	"sync"

	"github.com/promptstream/promptstream/internal/frame"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/encoding/json"
)

// framePrinter writes frames as JSON lines.
type framePrinter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newFramePrinter(w io.Writer) *framePrinter {
	return &framePrinter{enc: json.NewEncoder(w)}
}

func (p *framePrinter) Print(f frame.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enc.Encode(f); err != nil {
		log.Error().Err(err).Msg("error writing frame")
	}
}
