// Package stream accumulates incremental evaluation output delivered over a
// subscription.
package stream

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/promptstream/promptstream/internal/frame"
)

// ErrBackend wraps error markers reported by the backend.
var ErrBackend = errors.New("stream: backend error")

// Result collects chunk payloads until a done marker or an error marker.
// Frames arriving after completion are ignored.
type Result struct {
	onChunk func(chunk string)

	mu       sync.Mutex
	buf      strings.Builder
	chunks   int
	finished bool
	err      error
	doneCh   chan struct{}
}

// Option configures Result.
type Option func(*Result)

// WithChunkHandler calls fn for every accepted chunk, in order.
func WithChunkHandler(fn func(chunk string)) Option {
	return func(r *Result) {
		r.onChunk = fn
	}
}

// NewResult creates Result.
func NewResult(opts ...Option) *Result {
	r := &Result{doneCh: make(chan struct{})}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Consume handles one inbound frame. Its signature matches
// subscription.Consumer.
func (r *Result) Consume(f frame.Frame) {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return
	}
	if msg, ok := f.Error(); ok {
		r.finishLocked(&Error{Message: msg, Parse: f.IsParseError()})
		r.mu.Unlock()
		return
	}
	chunk, hasChunk := f.Chunk()
	if hasChunk {
		r.buf.WriteString(chunk)
		r.chunks++
	}
	onChunk := r.onChunk
	r.mu.Unlock()

	if hasChunk && onChunk != nil {
		onChunk(chunk)
	}
	// Completion is signalled after the handler saw the last chunk.
	if f.Done() {
		r.mu.Lock()
		if !r.finished {
			r.finishLocked(nil)
		}
		r.mu.Unlock()
	}
}

// Fail completes Result with err unless it is already complete.
func (r *Result) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.finished {
		r.finishLocked(err)
	}
}

func (r *Result) finishLocked(err error) {
	r.finished = true
	r.err = err
	close(r.doneCh)
}

// Done returns a channel closed on completion.
func (r *Result) Done() <-chan struct{} {
	return r.doneCh
}

// Text returns everything accumulated so far.
func (r *Result) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

// Chunks returns number of accepted chunks.
func (r *Result) Chunks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chunks
}

// Err returns the completion error, nil while in progress or on success.
func (r *Result) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Wait blocks until Result completes or ctx is done.
func (r *Result) Wait(ctx context.Context) (string, error) {
	select {
	case <-r.doneCh:
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.buf.String(), r.err
	case <-ctx.Done():
		return r.Text(), ctx.Err()
	}
}

// Error is an error marker received in a frame.
type Error struct {
	Message string
	// Parse is set when the frame itself could not be decoded.
	Parse bool
}

func (e *Error) Error() string {
	return "stream: backend error: " + e.Message
}

func (e *Error) Is(target error) bool {
	return target == ErrBackend
}
