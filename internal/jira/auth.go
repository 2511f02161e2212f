package jira

import (
	"encoding/base64"
	"fmt"
	"net/http"
)

// BasicAuth implements Authenticator with email + API token, the usual
// Jira Cloud credential pair.
type BasicAuth struct {
	Email    string
	APIToken string
}

func (b *BasicAuth) Apply(req *http.Request) error {
	cred := base64.StdEncoding.EncodeToString([]byte(b.Email + ":" + b.APIToken))
	req.Header.Set("Authorization", "Basic "+cred)
	return nil
}

// TokenAuth implements Authenticator with a bearer access token, for
// instances fronted by OAuth 2.0 or a personal access token.
type TokenAuth struct {
	AccessToken string
}

func (t *TokenAuth) Apply(req *http.Request) error {
	if t.AccessToken == "" {
		return fmt.Errorf("jira: no access token configured")
	}
	req.Header.Set("Authorization", "Bearer "+t.AccessToken)
	return nil
}
