// Package identity verifies external sign-in credentials. The provider is
// opaque to the pipeline: credential in, verified email out.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clipsheet/internal/domain"
)

const defaultTimeout = 10 * time.Second

// GoogleVerifier validates Google ID tokens via the tokeninfo endpoint.
type GoogleVerifier struct {
	clientID string
	baseURL  string
	client   *http.Client
}

// NewGoogleVerifier builds a verifier bound to one OAuth client id.
func NewGoogleVerifier(clientID, baseURL string, httpClient *http.Client) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, errors.New("google client id is required")
	}
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = "https://oauth2.googleapis.com"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &GoogleVerifier{clientID: clientID, baseURL: base, client: httpClient}, nil
}

type tokenInfo struct {
	Audience      string `json:"aud"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
}

// Verify checks the credential and returns the verified email.
func (g *GoogleVerifier) Verify(ctx context.Context, credential string) (string, error) {
	endpoint := g.baseURL + "/tokeninfo?id_token=" + url.QueryEscape(credential)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build tokeninfo request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: tokeninfo: %v", domain.ErrProviderFailure, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: credential rejected", domain.ErrUnauthorized)
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("%w: tokeninfo decode: %v", domain.ErrProviderFailure, err)
	}
	if info.Audience != g.clientID {
		return "", fmt.Errorf("%w: audience mismatch", domain.ErrUnauthorized)
	}
	if info.Email == "" || info.EmailVerified != "true" {
		return "", fmt.Errorf("%w: email not verified", domain.ErrUnauthorized)
	}
	return strings.ToLower(info.Email), nil
}
