package hxstate

import "github.com/pthm/hxstate/lib/encoding"

// Encoder is an alias for encoding.Encoder for convenience.
type Encoder = encoding.Encoder

// NewEncoder creates a new encoder with the given encryption key.
func NewEncoder(key []byte) (*Encoder, error) {
	return encoding.NewEncoder(key)
}

// ticket is the signed payload carried by a wired element. It binds an
// action to the instance it was rendered for.
type ticket struct {
	Instance string `msgpack:"i"`
	Action   Action `msgpack:"a"`
}
