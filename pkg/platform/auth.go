// Copyright 2025, the fabdeploy authors.  All rights reserved.

package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/fabdeploy/fabdeploy/pkg/util/logging"
	"github.com/fabdeploy/fabdeploy/pkg/workspace"
)

// TokenSource supplies bearer tokens for platform requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns a source that always yields the given token.  Useful for tests and
// for callers that obtain tokens out of band.
func StaticTokenSource(token string) TokenSource {
	return staticTokenSource(token)
}

type staticTokenSource string

func (s staticTokenSource) Token(context.Context) (string, error) { return string(s), nil }

const defaultLoginEndpoint = "https://login.microsoftonline.com"

// refresh tokens this long before their reported expiry.
const expirySkew = 2 * time.Minute

// clientCredentialsSource obtains tokens via the OAuth2 client-credentials grant, reading the
// client secret from the environment variable named in configuration.  Tokens are cached until
// shortly before expiry.
type clientCredentialsSource struct {
	endpoint string
	scope    string
	sp       workspace.ServicePrincipal
	client   *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewServicePrincipalTokenSource builds a token source for the given service principal.  The
// secret is resolved lazily from sp.SecretEnvVar on each refresh, never stored in configuration.
func NewServicePrincipalTokenSource(sp workspace.ServicePrincipal, scope string) TokenSource {
	return &clientCredentialsSource{
		endpoint: defaultLoginEndpoint,
		scope:    scope,
		sp:       sp,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *clientCredentialsSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" && time.Now().Before(s.expires.Add(-expirySkew)) {
		return s.token, nil
	}

	secret := os.Getenv(s.sp.SecretEnvVar)
	if secret == "" {
		return "", &Error{
			Kind:    KindAuth,
			Message: "service principal secret not found in environment variable " + s.sp.SecretEnvVar,
		}
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", s.sp.ClientID)
	form.Set("client_secret", secret)
	form.Set("scope", s.scope)

	tokenURL := s.endpoint + "/" + s.sp.TenantID + "/oauth2/v2.0/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "building token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "requesting token")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &Error{
			Kind:       KindAuth,
			StatusCode: resp.StatusCode,
			Message:    "token request rejected",
		}
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", errors.Wrap(err, "decoding token response")
	}
	if body.AccessToken == "" {
		return "", &Error{Kind: KindAuth, Message: "token response contained no access token"}
	}

	s.token = body.AccessToken
	s.expires = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	logging.V(5).Infof("acquired token for client %s, expires in %ds", s.sp.ClientID, body.ExpiresIn)
	return s.token, nil
}
