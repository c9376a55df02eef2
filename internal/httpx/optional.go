package httpx

import (
	"bytes"
	"encoding/json"
)

// Optional is a JSON field that distinguishes "absent" from "null" from a value.
// Partial-update request bodies use it so that clients can clear a nullable
// column explicitly without touching the fields they leave out.
type Optional[T any] struct {
	Set   bool // the key was present in the body
	Null  bool // the key was present with a null value
	Value T
}

// UnmarshalJSON is only called when the key is present.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// Ptr returns nil when the field is absent or null.
func (o Optional[T]) Ptr() *T {
	if !o.Set || o.Null {
		return nil
	}
	v := o.Value
	return &v
}
