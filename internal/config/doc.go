// Package config loads foxstyle settings.
//
// Values are layered: built-in defaults, then the platform backend
// (UserDefaults domain com.foxstyle.app on macOS, a TOML file at
// $XDG_CONFIG_HOME/foxstyle/config.toml elsewhere), then FOXSTYLE_*
// environment variables. Keys are dotted names:
//
//	server.port             FOXSTYLE_SERVER_PORT
//	server.token            FOXSTYLE_SERVER_TOKEN (environment only)
//	log.level               FOXSTYLE_LOG_LEVEL
//	storage.data_dir        FOXSTYLE_STORAGE_DATA_DIR
//	storage.handle_ttl      FOXSTYLE_STORAGE_HANDLE_TTL
//	firefox.profiles_root   FOXSTYLE_FIREFOX_PROFILES_ROOT
//	firefox.preference_key  FOXSTYLE_FIREFOX_PREFERENCE_KEY
//
// SetKey and UnsetKey edit the backend; they never touch the environment.
package config
