package config

import (
	"fmt"
	"strconv"
)

// Backend persists the non-secret keys written by `foxstyle config set`.
// Each platform maps the dotted key names onto its native settings store.
type Backend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	// Delete removes key. Removing an absent key succeeds.
	Delete(key string) error
}

// readKey fetches the stored value for s in the type s.apply expects.
func readKey(b Backend, s keySpec) (any, bool, error) {
	if s.typ == kInt {
		v, ok, err := b.GetInt(s.key)
		return v, ok, err
	}
	v, ok, err := b.GetString(s.key)
	return v, ok, err
}

// writeKey stores raw under s.key, converting it to the key's type.
func writeKey(b Backend, s keySpec, raw string) error {
	if s.typ == kInt {
		i, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %w", s.key, err)
		}
		return b.SetInt(s.key, i)
	}
	return b.SetString(s.key, raw)
}
