package ebay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const tokenScope = "https://api.ebay.com/oauth/api_scope"

// expiryBuffer shortens the cached lifetime so a token is never presented
// right at its expiry edge.
const expiryBuffer = 60 * time.Second

// TokenCache holds a client-credentials OAuth token and refreshes it on
// expiry. Safe for concurrent use; under contention at most one caller
// performs the refresh while the rest wait for its result.
type TokenCache struct {
	clientID     string
	clientSecret string
	tokenURL     string
	client       *http.Client
	now          func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenCache constructs a TokenCache against the given OAuth endpoint.
func NewTokenCache(clientID, clientSecret, tokenURL string, timeout time.Duration) *TokenCache {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if tokenURL == "" {
		tokenURL = "https://api.ebay.com/identity/v1/oauth2/token"
	}
	return &TokenCache{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     strings.TrimRight(tokenURL, "/"),
		client:       &http.Client{Timeout: timeout},
		now:          time.Now,
	}
}

// Token returns a valid access token, refreshing when the cached one is
// missing or within the expiry buffer.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}

	token, expiresIn, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}

	c.token = token
	c.expiresAt = c.now().Add(time.Duration(expiresIn)*time.Second - expiryBuffer)
	return c.token, nil
}

func (c *TokenCache) fetch(ctx context.Context) (string, int64, error) {
	form := "grant_type=client_credentials&scope=" + tokenScope
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form))
	if err != nil {
		return "", 0, fmt.Errorf("create token request: %w", err)
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+credentials)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", 0, fmt.Errorf("parse token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", 0, fmt.Errorf("token endpoint returned empty access_token")
	}

	return payload.AccessToken, payload.ExpiresIn, nil
}
