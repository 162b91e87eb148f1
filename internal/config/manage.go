package config

import "fmt"

// KeyInfo is one row of `foxstyle config show`.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
}

// ShowAll lists the effective value of every non-secret key, in key
// table order.
func ShowAll(cfg Config) []KeyInfo {
	var result []KeyInfo
	for _, s := range specs {
		if s.secret {
			continue
		}
		result = append(result, KeyInfo{
			Key:    s.key,
			EnvVar: s.env,
			Value:  fmt.Sprint(s.extract(cfg)),
		})
	}
	return result
}

// SetKey validates value and stores it in the platform backend.
func SetKey(key, value string) error {
	return setKeyIn(newPlatformBackend(), key, value)
}

// UnsetKey removes key from the platform backend so its default applies.
func UnsetKey(key string) error {
	return unsetKeyIn(newPlatformBackend(), key)
}

func editableSpec(key string) (keySpec, error) {
	s, ok := lookupSpec(key)
	if !ok {
		return keySpec{}, fmt.Errorf("unknown config key: %q", key)
	}
	if s.secret {
		return keySpec{}, fmt.Errorf("cannot store secret %q in config; use environment variable %s", key, s.env)
	}
	return s, nil
}

func setKeyIn(b Backend, key, value string) error {
	s, err := editableSpec(key)
	if err != nil {
		return err
	}
	if s.validate != nil {
		if err := s.validate(value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
	}
	return writeKey(b, s, value)
}

func unsetKeyIn(b Backend, key string) error {
	if _, err := editableSpec(key); err != nil {
		return err
	}
	return b.Delete(key)
}

// ValidKeys returns the keys SetKey accepts.
func ValidKeys() []string {
	var keys []string
	for _, s := range specs {
		if !s.secret {
			keys = append(keys, s.key)
		}
	}
	return keys
}
