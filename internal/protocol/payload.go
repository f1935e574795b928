package protocol

import (
	"fmt"

	"github.com/hpungsan/clipd/internal/store"
)

// PayloadType discriminates the payload variants on the wire.
type PayloadType string

const (
	PayloadOk      PayloadType = "ok"
	PayloadList    PayloadType = "list"
	PayloadValue   PayloadType = "value"
	PayloadMessage PayloadType = "message"
	PayloadStop    PayloadType = "stop"
)

// Payload is the closed set of command results. Items are entry copies; a
// payload never references live store state. Value distinguishes "no value"
// (nil) from an empty string.
type Payload struct {
	Type    PayloadType          `json:"type"`
	Items   []store.IndexedEntry `json:"items,omitempty"`
	Preview *int                 `json:"preview_length,omitempty"`
	Value   *string              `json:"value,omitempty"`
	Message string               `json:"message,omitempty"`
}

// Ok is the bare success payload.
func Ok() Payload {
	return Payload{Type: PayloadOk}
}

// Stop signals dispatcher termination to the caller of quit.
func Stop() Payload {
	return Payload{Type: PayloadStop}
}

// List wraps indexed entry copies, carrying the preview length the renderer
// should bound values to.
func List(items []store.IndexedEntry, preview *int) Payload {
	return Payload{Type: PayloadList, Items: items, Preview: preview}
}

// Value wraps an optional string result.
func Value(v *string) Payload {
	return Payload{Type: PayloadValue, Value: v}
}

// Message wraps a human-readable result or failure description.
func Message(msg string) Payload {
	return Payload{Type: PayloadMessage, Message: msg}
}

// Messagef is Message with formatting.
func Messagef(format string, args ...any) Payload {
	return Message(fmt.Sprintf(format, args...))
}
