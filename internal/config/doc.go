// Package config holds the htmldepth runtime configuration, its defaults,
// and the optional per-host settings file.
package config
