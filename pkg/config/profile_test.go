package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profiles = `
default: prod
profiles:
  prod:
    api_url: https://ops.example.com
    token: ${BIRUN_TEST_TOKEN}
    poll_interval: 5s
    connect_timeout: 15s
  offline:
    database_url: file:///var/lib/birun
    log_level: debug
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "console.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	return path
}

func TestLoadProfile_Default(t *testing.T) {
	t.Setenv("BIRUN_TEST_TOKEN", "s3cret")

	p, err := LoadProfile(writeConfig(t, profiles), "")
	require.NoError(t, err)

	assert.Equal(t, "https://ops.example.com", p.APIURL)
	assert.Equal(t, "s3cret", p.Token)
	assert.Equal(t, 5*time.Second, p.PollInterval)
	assert.Equal(t, 15*time.Second, p.ConnectTimeout)
}

func TestLoadProfile_Named(t *testing.T) {
	p, err := LoadProfile(writeConfig(t, profiles), "offline")
	require.NoError(t, err)

	assert.Equal(t, "file:///var/lib/birun", p.DatabaseURL)
	assert.Equal(t, "debug", p.LogLevel)
	assert.Zero(t, p.PollInterval)
}

func TestLoadProfile_Errors(t *testing.T) {
	path := writeConfig(t, profiles)

	_, err := LoadProfile(path, "staging")
	require.ErrorIs(t, err, ErrProfileNotFound)

	_, err = LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"), "")
	require.Error(t, err)

	_, err = LoadProfile(writeConfig(t, "profiles: [1, 2"), "")
	require.Error(t, err)

	_, err = LoadProfile(writeConfig(t, "default: a\nprofiles:\n  a:\n    poll_interval: -1s\n"), "")
	require.Error(t, err)
}
