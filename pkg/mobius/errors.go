package mobius

import (
	"encoding/json"
	"errors"
)

var (
	ErrNotConnected = errors.New("mobius: not connected")
	ErrClosed       = errors.New("mobius: connection closed")
)

// RPCError carries an upstream error payload untouched so it can be relayed
// to downstream callers as-is.
type RPCError struct {
	Cmd string
	Raw json.RawMessage
}

func (e *RPCError) Error() string {
	return "mobius: " + e.Cmd + " failed: " + string(e.Raw)
}

// MarshalJSON emits the original upstream payload.
func (e *RPCError) MarshalJSON() ([]byte, error) {
	if len(e.Raw) == 0 {
		return []byte("null"), nil
	}
	return e.Raw, nil
}
