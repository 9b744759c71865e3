// Package config loads steamlens configuration from a YAML file, an optional
// .env file and the process environment.
//
// Files are resolved from standard locations (./cmd/<service>/config.yml,
// ./config.yml, .env) unless given explicitly. Environment variables win over
// file values; STEAM_API_KEY binds to steam.api_key, LOGGING_LEVEL to
// logging.level and so on.
//
// # Usage
//
//	var cfg AppConfig
//	err := config.LoadConfig("steamlens", &cfg, config.WithConfigFile(path))
package config
