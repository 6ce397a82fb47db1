package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok-abc","token_type":"bearer","expires_in":3600}`)
	}))
}

func TestBearerTokenReturnsAuthorizationHeaderValue(t *testing.T) {
	var calls int32
	srv := tokenServer(t, &calls)
	defer srv.Close()

	p := NewTokenProvider(map[string]Credential{
		"default": {TokenURL: srv.URL, ClientID: "id", ClientSecret: "secret"},
	})

	header, err := p.BearerToken(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-abc", header)
}

func TestBearerTokenCachesTokenSourceAcrossCalls(t *testing.T) {
	var calls int32
	srv := tokenServer(t, &calls)
	defer srv.Close()

	p := NewTokenProvider(map[string]Credential{
		"default": {TokenURL: srv.URL, ClientID: "id", ClientSecret: "secret"},
	})

	_, err := p.BearerToken(context.Background(), "default")
	require.NoError(t, err)
	_, err = p.BearerToken(context.Background(), "default")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second call must reuse the cached, unexpired token")
}

func TestBearerTokenUnknownCredentialErrors(t *testing.T) {
	p := NewTokenProvider(map[string]Credential{})
	_, err := p.BearerToken(context.Background(), "missing")
	assert.Error(t, err)
}
