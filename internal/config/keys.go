package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
	// validate checks the textual form of a value before it is stored
	// and again after all layers are merged.
	validate func(raw string) error
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "FOXSTYLE_SERVER_PORT",
		apply:    func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract:  func(cfg Config) any { return cfg.Server.Port },
		validate: validPort,
	},
	{
		key: "server.token", typ: kString, env: "FOXSTYLE_SERVER_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Token },
	},
	{
		key: "log.level", typ: kString, env: "FOXSTYLE_LOG_LEVEL",
		apply:    func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract:  func(cfg Config) any { return cfg.Log.Level },
		validate: validLogLevel,
	},
	{
		key: "storage.data_dir", typ: kString, env: "FOXSTYLE_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.handle_ttl", typ: kString, env: "FOXSTYLE_STORAGE_HANDLE_TTL",
		apply:    func(cfg *Config, v any) { cfg.Storage.HandleTTL = v.(string) },
		extract:  func(cfg Config) any { return cfg.Storage.HandleTTL },
		validate: validTTL,
	},
	{
		key: "firefox.profiles_root", typ: kString, env: "FOXSTYLE_FIREFOX_PROFILES_ROOT",
		apply:   func(cfg *Config, v any) { cfg.Firefox.ProfilesRoot = v.(string) },
		extract: func(cfg Config) any { return cfg.Firefox.ProfilesRoot },
	},
	{
		key: "firefox.preference_key", typ: kString, env: "FOXSTYLE_FIREFOX_PREFERENCE_KEY",
		apply:    func(cfg *Config, v any) { cfg.Firefox.PreferenceKey = v.(string) },
		extract:  func(cfg Config) any { return cfg.Firefox.PreferenceKey },
		validate: notEmpty,
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

func validPort(raw string) error {
	p, err := strconv.Atoi(raw)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("port %q out of range 1-65535", raw)
	}
	return nil
}

func validLogLevel(raw string) error {
	switch strings.ToLower(raw) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("unknown level %q (want debug, info, warn or error)", raw)
}

func validTTL(raw string) error {
	if d, err := time.ParseDuration(raw); err != nil || d < 0 {
		return fmt.Errorf("%q is not a non-negative duration", raw)
	}
	return nil
}

func notEmpty(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		v, ok, err := readKey(b, s)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if ok {
			s.apply(cfg, v)
		}
	}
	return nil
}

// validate runs every key's validator over the merged configuration.
func validate(cfg Config) error {
	for _, s := range specs {
		if s.validate == nil {
			continue
		}
		if err := s.validate(fmt.Sprint(s.extract(cfg))); err != nil {
			return fmt.Errorf("invalid config: %s: %w", s.key, err)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
