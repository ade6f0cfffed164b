// Package frame contains JSON envelopes exchanged with the streaming backend.
package frame

import (
	"errors"

	"github.com/segmentio/encoding/json"
	"github.com/tidwall/gjson"
)

// Known inbound and outbound field names.
const (
	FieldConnectionID = "connectionId"
	FieldChunk        = "chunk"
	FieldDone         = "done"
	FieldError        = "error"
	FieldAction       = "action"
	FieldType         = "type"
	FieldMessage      = "message"
)

// ParseErrorMessage is the error marker of a frame which could not be decoded.
const ParseErrorMessage = "Failed to parse message"

var (
	ErrMalformed = errors.New("frame: malformed JSON")
	ErrNotObject = errors.New("frame: not a JSON object")
)

// Frame is one decoded inbound record. Its shape is defined by the backend,
// accessors below cover the fields the protocol relies on.
type Frame map[string]any

// Parse decodes a raw text frame. It always returns a usable Frame: on error
// the result is a synthetic record carrying ParseErrorMessage in its error
// field, so callers may forward it unconditionally.
func Parse(data []byte) (Frame, error) {
	if !gjson.ValidBytes(data) {
		return parseErrorFrame(), ErrMalformed
	}
	if !gjson.ParseBytes(data).IsObject() {
		return parseErrorFrame(), ErrNotObject
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return parseErrorFrame(), errors.Join(ErrMalformed, err)
	}
	if f == nil {
		f = Frame{}
	}
	return f, nil
}

func parseErrorFrame() Frame {
	return Frame{FieldError: ParseErrorMessage}
}

// ConnectionID returns the session identifier assigned by the backend.
func (f Frame) ConnectionID() (string, bool) {
	return f.nonEmptyString(FieldConnectionID)
}

// Chunk returns an incremental payload.
func (f Frame) Chunk() (string, bool) {
	return f.nonEmptyString(FieldChunk)
}

// Done reports whether the frame carries the completion marker.
func (f Frame) Done() bool {
	v, ok := f[FieldDone].(bool)
	return ok && v
}

// Error returns the error marker. Non-string markers are rendered as JSON.
func (f Frame) Error() (string, bool) {
	switch v := f[FieldError].(type) {
	case nil:
		return "", false
	case string:
		return v, v != ""
	case bool:
		if !v {
			return "", false
		}
		return "true", true
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "unknown error", true
		}
		return string(b), true
	}
}

// IsParseError reports whether f was synthesized by Parse.
func (f Frame) IsParseError() bool {
	msg, ok := f[FieldError].(string)
	return ok && msg == ParseErrorMessage && len(f) == 1
}

func (f Frame) nonEmptyString(key string) (string, bool) {
	s, ok := f[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
