package httpfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvironmentMissingFileYieldsEmptyMap(t *testing.T) {
	dir := t.TempDir()
	env, err := LoadEnvironment(filepath.Join(dir, "x.http"), "dev")
	require.NoError(t, err)
	assert.Empty(t, env)
}

func TestLoadEnvironmentMergesSharedThenNamed(t *testing.T) {
	dir := t.TempDir()
	doc := `{
		"$shared": {"baseUrl": "https://shared.example.com", "timeout": 30},
		"dev": {"baseUrl": "https://dev.example.com", "debug": true}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "http-client.env.json"), []byte(doc), 0o644))

	env, err := LoadEnvironment(filepath.Join(dir, "x.http"), "dev")
	require.NoError(t, err)
	assert.Equal(t, "https://dev.example.com", env["baseUrl"], "named environment overrides shared")
	assert.Equal(t, "30", env["timeout"])
	assert.Equal(t, "true", env["debug"])
}

func TestLoadEnvironmentUnknownNameYieldsSharedOnly(t *testing.T) {
	dir := t.TempDir()
	doc := `{"$shared": {"a": "1"}, "dev": {"a": "2"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "http-client.env.json"), []byte(doc), 0o644))

	env, err := LoadEnvironment(filepath.Join(dir, "x.http"), "staging")
	require.NoError(t, err)
	assert.Equal(t, "1", env["a"])
}
