package fcm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"order-notify/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	googleTokenURL = "https://oauth2.googleapis.com/token"
	messagingScope = "https://www.googleapis.com/auth/firebase.messaging"
	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	assertionLifetime = time.Hour

	// expiry safety margin: a cached token this close to expiry is
	// treated as expired and re-minted
	expirySkew = time.Minute
)

// AccessToken is a minted OAuth2 bearer token.
type AccessToken struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the token is still usable at the given time.
func (t *AccessToken) Valid(now time.Time) bool {
	return t != nil && t.Value != "" && now.Add(expirySkew).Before(t.ExpiresAt)
}

// TokenCache stores minted access tokens across invocations. Implementations
// must never return an expired token; callers re-check expiry regardless.
type TokenCache interface {
	GetAccessToken(ctx context.Context, key string) (*AccessToken, error)
	SetAccessToken(ctx context.Context, key string, token *AccessToken, ttl time.Duration) error
}

// cacheKey fingerprints the credential pair so rotated keys never reuse a
// stale cached token.
func (c *Client) cacheKey() string {
	sum := sha256.Sum256([]byte(c.creds.ClientEmail + "\x00" + c.creds.PrivateKey))
	return "fcm:access_token:" + hex.EncodeToString(sum[:8])
}

// MintAccessToken produces a bearer token for the messaging API: a signed
// JWT assertion exchanged at the token endpoint via the jwt-bearer grant.
// With a cache configured, a still-valid cached token is reused.
func (c *Client) MintAccessToken(ctx context.Context) (*AccessToken, error) {
	ctx, span := util.StartSpan(ctx, "fcm.MintAccessToken")
	defer span.End()

	if err := c.creds.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()

	if c.cache != nil {
		cached, err := c.cache.GetAccessToken(ctx, c.cacheKey())
		if err != nil {
			c.logger.Warn("Access token cache read failed", zap.Error(err))
		} else if cached.Valid(now) {
			util.AccessTokenMintsTotal.WithLabelValues("cache").Inc()
			return cached, nil
		}
	}

	assertion, err := c.buildAssertion(now)
	if err != nil {
		return nil, err
	}

	token, err := c.exchangeAssertion(ctx, assertion)
	if err != nil {
		return nil, err
	}
	util.AccessTokenMintsTotal.WithLabelValues("exchange").Inc()

	if c.cache != nil {
		ttl := time.Until(token.ExpiresAt) - expirySkew
		if ttl > 0 {
			if err := c.cache.SetAccessToken(ctx, c.cacheKey(), token, ttl); err != nil {
				c.logger.Warn("Access token cache write failed", zap.Error(err))
			}
		}
	}

	return token, nil
}

// buildAssertion signs the service-account JWT: issuer is the account
// email, audience the token endpoint, scoped to messaging, one hour
// lifetime.
func (c *Client) buildAssertion(now time.Time) (string, error) {
	keyPEM, err := NormalizePrivateKey(c.creds.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("failed to normalize private key: %w", err)
	}

	rsaKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(keyPEM))
	if err != nil {
		return "", fmt.Errorf("failed to parse private key: %w", err)
	}

	claims := jwt.MapClaims{
		"iss":   c.creds.ClientEmail,
		"scope": messagingScope,
		"aud":   c.tokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	}

	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(rsaKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT assertion: %w", err)
	}
	return assertion, nil
}

func (c *Client) exchangeAssertion(ctx context.Context, assertion string) (*AccessToken, error) {
	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token exchange response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed: status=%d body=%s", resp.StatusCode, body)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse token exchange response: %w", err)
	}
	if parsed.AccessToken == "" {
		return nil, fmt.Errorf("token exchange response contained no access token")
	}

	return &AccessToken{
		Value:     parsed.AccessToken,
		ExpiresAt: time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second),
	}, nil
}
