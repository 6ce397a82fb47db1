package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcoderx/httprun/internal/model"
)

func newGetRequest(url string) *model.Request {
	return &model.Request{Method: "GET", URL: url, Headers: model.NewOrderedHeaders()}
}

func TestFingerprintStableForSameRequest(t *testing.T) {
	r1 := newGetRequest("https://api.example.com/x")
	r2 := newGetRequest("https://api.example.com/x")
	assert.Equal(t, ComputeFingerprint(r1, nil), ComputeFingerprint(r2, nil))
}

func TestFingerprintDiffersOnURL(t *testing.T) {
	r1 := newGetRequest("https://api.example.com/x")
	r2 := newGetRequest("https://api.example.com/y")
	assert.NotEqual(t, ComputeFingerprint(r1, nil), ComputeFingerprint(r2, nil))
}

func TestFingerprintIncludesSignificantHeadersOnly(t *testing.T) {
	r1 := newGetRequest("https://api.example.com/x")
	r1.Headers.Set("Authorization", "Bearer a")
	r1.Headers.Set("X-Irrelevant", "1")

	r2 := newGetRequest("https://api.example.com/x")
	r2.Headers.Set("Authorization", "Bearer b")
	r2.Headers.Set("X-Irrelevant", "2")

	assert.NotEqual(t, ComputeFingerprint(r1, []string{"Authorization"}), ComputeFingerprint(r2, []string{"Authorization"}))
	assert.Equal(t, ComputeFingerprint(r1, nil), ComputeFingerprint(r2, nil), "headers outside the significant set are ignored")
}

func TestCacheGetSetHitsAndMisses(t *testing.T) {
	c := New(time.Minute, 10)
	key := Fingerprint("k1")

	_, ok := c.Get(key)
	assert.False(t, ok)

	resp := &model.Response{StatusCode: 200}
	c.Set(key, resp)

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Same(t, resp, got)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate)
}

func TestCacheClearStats(t *testing.T) {
	c := New(time.Minute, 10)
	c.Set("k", &model.Response{})
	c.Get("k")
	c.Get("missing")
	c.ClearStats()
	stats := c.Stats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)
}

func TestCacheTTLExpiry(t *testing.T) {
	c := New(10*time.Millisecond, 10)
	c.Set("k", &model.Response{StatusCode: 200})
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok, "entries older than ttl are never returned")
}

func TestCacheLRUEvictionOnOverflow(t *testing.T) {
	c := New(0, 2)
	c.Set("a", &model.Response{StatusCode: 1})
	c.Set("b", &model.Response{StatusCode: 2})

	// Touch "a" so it becomes most-recently-used, leaving "b" to evict.
	c.Get("a")
	c.Set("c", &model.Response{StatusCode: 3})

	assert.LessOrEqual(t, c.Len(), 2)
	_, ok := c.Get("b")
	assert.False(t, ok, "least-recently-accessed entry should have been evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestCacheSizeNeverExceedsMaxSize(t *testing.T) {
	c := New(0, 3)
	for i := 0; i < 50; i++ {
		c.Set(Fingerprint(fmt.Sprintf("key-%d", i%26)), &model.Response{StatusCode: i})
		assert.LessOrEqual(t, c.Len(), 3)
	}
}

func TestDefaultCacheableMethodsOnlyGET(t *testing.T) {
	assert.True(t, DefaultCacheableMethods["GET"])
	assert.False(t, DefaultCacheableMethods["POST"])
	assert.False(t, DefaultCacheableMethods["DELETE"])
}
