// Package serializer provides the pluggable value encoding the cache layer
// stores bytes through, mirroring the source's BaseSerializer /
// MsgPackSerializer split (original_source/sifthub/serializer) without
// carrying over its msgpack dependency — see DESIGN.md for why JSON stands
// in for it here.
package serializer

import "encoding/json"

// Serializer converts between a Go value and the bytes a store persists.
// Swappable so a future store can move off JSON without touching its
// callers, the same role BaseSerializer plays in the source.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSON is the default Serializer. Every pack repo that persists ad hoc
// values through a generic store (rather than a typed protobuf message)
// uses encoding/json for it; nothing in the corpus wires a generic
// MessagePack/gob codec for this role, so JSON is the grounded choice.
type JSON struct{}

// NewJSON builds a JSON serializer.
func NewJSON() JSON { return JSON{} }

// Marshal implements Serializer.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal implements Serializer.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
