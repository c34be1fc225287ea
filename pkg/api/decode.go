package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/oshocks/bikeshop/pkg/security"
)

// decodeList accepts a bare array or an object holding the array under one of
// keys.
func decodeList[T any](raw json.RawMessage, keys ...string) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var out []T
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
		}
		return out, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	for _, k := range append(keys, "data") {
		if inner, ok := obj[k]; ok {
			return decodeList[T](inner)
		}
	}
	return nil, fmt.Errorf("%w: no list in response", ErrBadResponse)
}

// decodeUser accepts a user object or one wrapped as {"user": {...}}.
func decodeUser(raw json.RawMessage) (*security.User, error) {
	var wrapped struct {
		User *security.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.User != nil {
		return wrapped.User, nil
	}
	var u security.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	if u.ID == 0 && u.Email == "" {
		return nil, fmt.Errorf("%w: no user in response", ErrBadResponse)
	}
	return &u, nil
}
