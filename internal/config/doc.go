// Package config loads, validates, and normalizes the TOML configuration.
//
// The configuration file is searched at ~/.config/storyart/config.toml and
// then at ./storyart.toml; missing files fall back to defaults. Connection
// secrets (Redis password, backend URL) may be supplied through the
// environment, including a .env file in the working directory.
package config
