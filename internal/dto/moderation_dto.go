package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

var ErrInvalidModerationUpdate = errors.New("invalid solved status")

// ModerationUpdate is the only body the solve endpoint accepts.
type ModerationUpdate struct {
	Solved bool `json:"solved"`
}

// ParseModerationUpdate accepts exactly {"solved": <bool>}. A missing field,
// a non-boolean value, unknown fields or trailing data are rejected.
func ParseModerationUpdate(body []byte) (ModerationUpdate, error) {
	var raw struct {
		Solved *bool `json:"solved"`
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return ModerationUpdate{}, ErrInvalidModerationUpdate
	}
	if _, err := dec.Token(); err != io.EOF {
		return ModerationUpdate{}, ErrInvalidModerationUpdate
	}
	if raw.Solved == nil {
		return ModerationUpdate{}, ErrInvalidModerationUpdate
	}
	return ModerationUpdate{Solved: *raw.Solved}, nil
}
