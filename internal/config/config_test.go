package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	// Empty path makes Load search "." for http-test.config.json; absent,
	// ReadInConfig reports ConfigFileNotFoundError, which Load tolerates.
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 30000, cfg.Timeouts.RequestMS)
	assert.True(t, cfg.Security.RejectUnauthorizedTLS)
	assert.Equal(t, 1, cfg.Retries.MaxAttempts)
	assert.True(t, cfg.Performance.Cache.Enabled)
}

func TestLoadPartialOverrideKeepsOtherDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "http-test.config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"timeouts": {"request": 5000},
		"performance": {"parallel": true, "maxConcurrency": 8}
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Timeouts.RequestMS)
	assert.Equal(t, 30000, cfg.Timeouts.ResponseMS, "unset sibling field keeps its default")
	assert.True(t, cfg.Performance.Parallel)
	assert.Equal(t, 8, cfg.Performance.MaxConcurrency)
	assert.True(t, cfg.Performance.Cache.Enabled, "untouched nested section keeps its default")
	assert.Equal(t, 60, cfg.Performance.Cache.TTLSeconds)
}

func TestLoadCredentialsSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "creds.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"credentials": {
			"default": {
				"tokenURL": "https://auth.example.com/token",
				"clientID": "abc",
				"clientSecret": "shh",
				"scopes": ["read", "write"]
			}
		}
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Contains(t, cfg.Credentials, "default")
	cred := cfg.Credentials["default"]
	assert.Equal(t, "https://auth.example.com/token", cred.TokenURL)
	assert.Equal(t, []string{"read", "write"}, cred.Scopes)
}

func TestLoadExplicitMissingPathReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "definitely-missing.json"))
	assert.Error(t, err)
}
