package fcm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, keyPEM string, cache TokenCache) *Client {
	t.Helper()
	client, err := NewClient(Credentials{
		ClientEmail: "svc@test-project.iam.gserviceaccount.com",
		PrivateKey:  keyPEM,
		ProjectID:   "test-project",
	}, 5*time.Second, cache)
	require.NoError(t, err)
	return client
}

func decodeJWTClaims(t *testing.T, assertion string) map[string]interface{} {
	t.Helper()
	segments := strings.Split(assertion, ".")
	require.Len(t, segments, 3)

	payload, err := base64.RawURLEncoding.DecodeString(segments[1])
	require.NoError(t, err)

	var claims map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &claims))
	return claims
}

func TestMintAccessTokenLegacyKeyRoundTrip(t *testing.T) {
	// a PKCS#1 key must be converted and still produce a structurally
	// valid, decodable assertion
	keyPEM := pkcs1PEM(t, testRSAKey(t))

	var gotAssertion, gotGrant string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotGrant = r.PostFormValue("grant_type")
		gotAssertion = r.PostFormValue("assertion")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "ya29.test-token",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	client := newTestClient(t, keyPEM, nil)
	client.tokenURL = srv.URL

	token, err := client.MintAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ya29.test-token", token.Value)
	assert.True(t, token.ExpiresAt.After(time.Now()))

	assert.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", gotGrant)

	claims := decodeJWTClaims(t, gotAssertion)
	assert.Equal(t, "svc@test-project.iam.gserviceaccount.com", claims["iss"])
	assert.Equal(t, "https://www.googleapis.com/auth/firebase.messaging", claims["scope"])
	assert.Equal(t, srv.URL, claims["aud"])
}

func TestMintAccessTokenExchangeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, pkcs8PEM(t, testRSAKey(t)), nil)
	client.tokenURL = srv.URL

	_, err := client.MintAccessToken(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestMintAccessTokenBadKey(t *testing.T) {
	client, err := NewClient(Credentials{
		ClientEmail: "svc@test.iam",
		PrivateKey:  "garbage",
		ProjectID:   "p",
	}, time.Second, nil)
	require.NoError(t, err)

	_, err = client.MintAccessToken(context.Background())
	assert.Error(t, err)
}

// memoryCache is a test double for the Redis-backed token cache.
type memoryCache struct {
	mu    sync.Mutex
	items map[string]*AccessToken
	sets  int
}

func (m *memoryCache) GetAccessToken(ctx context.Context, key string) (*AccessToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[key], nil
}

func (m *memoryCache) SetAccessToken(ctx context.Context, key string, token *AccessToken, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = map[string]*AccessToken{}
	}
	m.items[key] = token
	m.sets++
	return nil
}

func TestMintAccessTokenUsesCache(t *testing.T) {
	exchanges := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges++
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "ya29.cached",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	cache := &memoryCache{}
	client := newTestClient(t, pkcs8PEM(t, testRSAKey(t)), cache)
	client.tokenURL = srv.URL

	ctx := context.Background()
	first, err := client.MintAccessToken(ctx)
	require.NoError(t, err)
	second, err := client.MintAccessToken(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Value, second.Value)
	assert.Equal(t, 1, exchanges)
	assert.Equal(t, 1, cache.sets)
}

func TestMintAccessTokenSkipsExpiredCacheEntry(t *testing.T) {
	exchanges := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges++
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "ya29.fresh",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	cache := &memoryCache{}
	client := newTestClient(t, pkcs8PEM(t, testRSAKey(t)), cache)
	client.tokenURL = srv.URL

	// seed an expired token; the cache must never satisfy the mint
	cache.SetAccessToken(context.Background(), client.cacheKey(), &AccessToken{
		Value:     "ya29.stale",
		ExpiresAt: time.Now().Add(-time.Minute),
	}, time.Hour)
	cache.sets = 0

	token, err := client.MintAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ya29.fresh", token.Value)
	assert.Equal(t, 1, exchanges)
}
