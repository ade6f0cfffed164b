package frame

import "github.com/segmentio/encoding/json"

// Actions and types understood by the backend router.
const (
	ActionGetConnectionInfo = "getConnectionInfo"
	ActionProcessImage      = "processImage"

	TypeConnectionRequest = "connectionRequest"
	TypeEvaluation        = "evaluation"
)

// Message is an outbound record. It is serialized as a whole before
// anything is written to the transport.
type Message map[string]any

// NewMessage creates Message with action and type discriminators set.
func NewMessage(action string, typ string) Message {
	m := Message{FieldAction: action}
	if typ != "" {
		m[FieldType] = typ
	}
	return m
}

// With sets key to value and returns m for chaining.
func (m Message) With(key string, value any) Message {
	m[key] = value
	return m
}

// Action returns the action discriminator.
func (m Message) Action() string {
	s, _ := m[FieldAction].(string)
	return s
}

// Encode serializes m into a single text frame payload.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Handshake is sent right after a connection opens and asks the backend to
// report the session identifier.
func Handshake() Message {
	return NewMessage(ActionGetConnectionInfo, TypeConnectionRequest).
		With(FieldMessage, "Requesting connection details")
}
