package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file name looked up in the working and
// home directories. It is parsed as YAML.
const DefaultConfigFile = ".htmldepth"

// configFileNames are tried in order in each search directory.
var configFileNames = []string{
	DefaultConfigFile,
	DefaultConfigFile + ".yaml",
	DefaultConfigFile + ".yml",
	DefaultConfigFile + ".toml",
}

// xdgConfigFileNames are tried in order in the XDG config directory.
var xdgConfigFileNames = []string{
	"config.yaml",
	"config.yml",
	"config.toml",
}

// LoadConfigFile loads site settings from path. Files ending in .toml are
// parsed as TOML, everything else as YAML. A missing file yields ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &cf)
	} else {
		err = yaml.Unmarshal(data, &cf)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cf.normalize()
	return &cf, nil
}

// FindConfigFile returns the config file to load, or "" when there is none.
// An explicit configPath is used as-is if it exists. Otherwise the working
// directory, the XDG config directory, and the home directory are searched.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if fileExists(configPath) {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		if path := findIn(cwd, configFileNames); path != "" {
			return path
		}
	}

	if path := findIn(XDGConfigDir(), xdgConfigFileNames); path != "" {
		return path
	}

	if home, err := os.UserHomeDir(); err == nil {
		if path := findIn(home, configFileNames); path != "" {
			return path
		}
	}

	return ""
}

// findIn returns the first of names that exists in dir.
func findIn(dir string, names []string) string {
	for _, name := range names {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
