// Package calendar implements meeting retrieval over the Google Calendar
// REST API, authenticated with a service account.
package calendar

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	perrors "github.com/p-blackswan/pm-agent/internal/errors"
	"github.com/p-blackswan/pm-agent/pkg/tokenstore"
)

const (
	defaultTokenEndpoint = "https://oauth2.googleapis.com/token"
	calendarScope        = "https://www.googleapis.com/auth/calendar.readonly"
	tokenCacheKey        = "calendar-access-token"
	assertionLifetime    = time.Hour
)

// ServiceAccount holds the credentials used to mint access tokens.
type ServiceAccount struct {
	Email      string
	PrivateKey *rsa.PrivateKey
}

// ParseServiceAccount loads a service account from its PEM-encoded key.
func ParseServiceAccount(email, privateKeyPEM string) (ServiceAccount, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return ServiceAccount{}, fmt.Errorf("parsing service account key: %w", err)
	}
	return ServiceAccount{Email: email, PrivateKey: key}, nil
}

// tokenSource exchanges signed JWT assertions for access tokens and caches
// them until shortly before expiry.
type tokenSource struct {
	account       ServiceAccount
	tokenEndpoint string
	httpClient    HTTPClient
	store         tokenstore.Store
	now           func() time.Time
}

func newTokenSource(account ServiceAccount, store tokenstore.Store, hc HTTPClient) *tokenSource {
	return &tokenSource{
		account:       account,
		tokenEndpoint: defaultTokenEndpoint,
		httpClient:    hc,
		store:         store,
		now:           time.Now,
	}
}

// accessToken returns a cached token or mints a fresh one.
func (ts *tokenSource) accessToken(ctx context.Context) (string, error) {
	if cached, err := ts.store.Get(ctx, tokenCacheKey); err == nil {
		return cached, nil
	}

	assertion, err := ts.signAssertion()
	if err != nil {
		return "", err
	}

	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &perrors.APIError{
			Service:    "calendar",
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(respBody)),
		}
	}

	var tr struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", perrors.NewAPIError("calendar", resp.StatusCode, "empty access token in response")
	}

	// Refresh a minute early so in-flight requests never carry a token that
	// expires mid-call.
	ttl := time.Duration(tr.ExpiresIn)*time.Second - time.Minute
	if ttl > 0 {
		if err := ts.store.Set(ctx, tokenCacheKey, tr.AccessToken, ttl); err != nil {
			return "", fmt.Errorf("caching token: %w", err)
		}
	}
	return tr.AccessToken, nil
}

func (ts *tokenSource) signAssertion() (string, error) {
	now := ts.now()
	claims := jwt.MapClaims{
		"iss":   ts.account.Email,
		"scope": calendarScope,
		"aud":   ts.tokenEndpoint,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(ts.account.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("signing assertion: %w", err)
	}
	return signed, nil
}
