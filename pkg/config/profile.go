// Package config loads console profiles from YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrProfileNotFound = errors.New("profile not found")

// Profile holds connection defaults for the console. Command-line flags take precedence over it.
type Profile struct {
	APIURL         string        `yaml:"api_url"`
	Token          string        `yaml:"token"`
	DatabaseURL    string        `yaml:"database_url"`
	LogLevel       string        `yaml:"log_level"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	Otel           bool          `yaml:"otel"`
}

// ProfileFile is the on-disk layout: named profiles plus the one used when none is requested.
type ProfileFile struct {
	Default  string             `yaml:"default"`
	Profiles map[string]Profile `yaml:"profiles"`
}

// LoadProfile reads path and returns the named profile, or the file's default profile when name is empty.
// ${VAR} references are expanded from the environment before parsing.
func LoadProfile(path, name string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file ProfileFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &file); err != nil {
		return Profile{}, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if name == "" {
		name = file.Default
	}

	profile, ok := file.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q in %s", ErrProfileNotFound, name, path)
	}

	if profile.PollInterval < 0 || profile.ConnectTimeout < 0 {
		return Profile{}, fmt.Errorf("profile %q: durations must not be negative", name)
	}

	return profile, nil
}
