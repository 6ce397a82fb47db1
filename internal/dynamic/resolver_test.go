package dynamic

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveGuidLooksLikeUUIDv4(t *testing.T) {
	r := NewResolver("")
	v, ok := r.Resolve("$guid")
	require.True(t, ok)
	assert.Len(t, v, 36)
	assert.Equal(t, byte('4'), v[14])

	v2, ok := r.Resolve("$uuid")
	require.True(t, ok)
	assert.NotEqual(t, v, v2)
}

func TestResolveTimestampIsUnixSeconds(t *testing.T) {
	r := NewResolver("")
	v, ok := r.Resolve("$timestamp")
	require.True(t, ok)
	_, err := strconv.ParseInt(v, 10, 64)
	assert.NoError(t, err)
}

func TestResolveRandomIntDefaults(t *testing.T) {
	r := NewResolver("")
	v, ok := r.Resolve("$randomInt")
	require.True(t, ok)
	n, err := strconv.Atoi(v)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 0)
	assert.LessOrEqual(t, n, 1000)
}

func TestResolveRandomIntOneArgIsMin(t *testing.T) {
	r := NewResolver("")
	v, ok := r.Resolve("$randomInt 500")
	require.True(t, ok)
	n, err := strconv.Atoi(v)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 500)
	assert.LessOrEqual(t, n, 1000)
}

func TestResolveRandomIntMinEqualsMax(t *testing.T) {
	r := NewResolver("")
	v, ok := r.Resolve("$randomInt 7 7")
	require.True(t, ok)
	assert.Equal(t, "7", v)
}

func TestResolveRandomIntRange(t *testing.T) {
	r := NewResolver("")
	for i := 0; i < 20; i++ {
		v, ok := r.Resolve("$randomInt 10 20")
		require.True(t, ok)
		n, err := strconv.Atoi(v)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 10)
		assert.LessOrEqual(t, n, 20)
	}
}

func TestResolveProcessEnv(t *testing.T) {
	r := NewResolver("")
	t.Setenv("HTTPRUN_TEST_VAR", "from-env")

	v, ok := r.Resolve("$processEnv HTTPRUN_TEST_VAR")
	require.True(t, ok)
	assert.Equal(t, "from-env", v)

	v, ok = r.Resolve("$processEnv HTTPRUN_TEST_MISSING_VAR")
	require.True(t, ok)
	assert.Equal(t, "{{$processEnv HTTPRUN_TEST_MISSING_VAR}}", v, "missing value yields verbatim return")
}

func TestResolveDotenv(t *testing.T) {
	dir := t.TempDir()
	envContent := "FOO=bar\nQUOTED=\"quoted value\"\n# a comment\nBAZ=baz\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(envContent), 0o644))

	r := NewResolver(dir)
	v, ok := r.Resolve("$dotenv FOO")
	require.True(t, ok)
	assert.Equal(t, "bar", v)

	v, ok = r.Resolve("$dotenv QUOTED")
	require.True(t, ok)
	assert.Equal(t, "quoted value", v)

	v, ok = r.Resolve("$dotenv MISSING")
	require.True(t, ok)
	assert.Equal(t, "{{$dotenv MISSING}}", v)
}

func TestResolveUnrecognizedDirective(t *testing.T) {
	r := NewResolver("")
	_, ok := r.Resolve("$notARealThing")
	assert.False(t, ok)
}
