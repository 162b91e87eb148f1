package config

import "time"

const defaultPreferenceKey = "toolkit.legacyUserProfileCustomizations.stylesheets"

type Config struct {
	Server  ServerConfig
	Log     LogConfig
	Storage StorageConfig
	Firefox FirefoxConfig
}

type ServerConfig struct {
	Port  int
	Token string
}

type LogConfig struct {
	Level string
}

type StorageConfig struct {
	DataDir string
	// HandleTTL is how long an editor file handle survives without a save.
	// "0" disables pruning.
	HandleTTL string
}

// HandleTTLDuration parses HandleTTL. Load has already validated it.
func (c StorageConfig) HandleTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.HandleTTL)
	return d
}

type FirefoxConfig struct {
	// ProfilesRoot overrides the platform default profiles directory.
	ProfilesRoot  string
	PreferenceKey string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 3000,
		},
		Log: LogConfig{
			Level: "info",
		},
		Storage: StorageConfig{
			DataDir:   defaultDataDir(),
			HandleTTL: "720h",
		},
		Firefox: FirefoxConfig{
			PreferenceKey: defaultPreferenceKey,
		},
	}
}

// Load merges defaults, the platform backend and FOXSTYLE_* environment
// variables, then validates the result.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

// loadFromPath loads configuration from an explicit TOML file.
func loadFromPath(path string) (Config, error) {
	return loadWith(newFileBackend(path))
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
