package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const apiVersion = "/v1"

var (
	// ErrInvalidCredentials is returned when the provider rejects the
	// supplied login, password, or refresh token.
	ErrInvalidCredentials = errors.New("provider rejected credentials")
	// ErrUnavailable is returned on transport failures and unexpected
	// provider status codes. The client never retries; retry policy, if any,
	// belongs to the caller's caller.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrMalformedResponse is returned when a 2xx provider response cannot
	// be decoded into the expected shape.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// UserInfo identifies the authenticated user as reported by the provider.
type UserInfo struct {
	ID             string
	Name           string
	OrganizationID string
}

// Grant is the decoded result of a successful authenticate or refresh call:
// the provider token pair with expiries, plus the user behind it.
type Grant struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             UserInfo
}

// Config holds provider client settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client talks to the identity/financial provider's authorization API over
// HTTP with JSON bodies. Non-2xx means failure, always.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient validates the configuration and returns a ready provider client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("provider base URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		log:     cfg.Logger,
	}, nil
}

// Wire shapes. The provider responds with a member array; the first member
// carries the user this gateway authenticates as.

type wireToken struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

type wireUser struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	ProfileOrganizationID string `json:"profileOrganizationId"`
}

type wireMember struct {
	Role string   `json:"role"`
	User wireUser `json:"user"`
}

type wireAuthResponse struct {
	Action             string       `json:"action"`
	AuthorizationToken wireToken    `json:"authorizationToken"`
	RefreshToken       wireToken    `json:"refreshToken"`
	Members            []wireMember `json:"members"`
}

// Authenticate exchanges primary credentials for a provider token pair.
func (c *Client) Authenticate(ctx context.Context, login, password string) (*Grant, error) {
	body := map[string]string{"login": login, "password": password}
	return c.grantRequest(ctx, http.MethodPost, apiVersion+"/authorization", body, "")
}

// Refresh rotates the provider token pair using a provider refresh token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Grant, error) {
	body := map[string]string{"refreshToken": refreshToken}
	return c.grantRequest(ctx, http.MethodPost, apiVersion+"/authorization/refresh", body, "")
}

// Revoke invalidates a provider access token. A non-2xx status is an error;
// the caller decides whether that blocks local invalidation (it does not).
func (c *Client) Revoke(ctx context.Context, accessToken string) error {
	resp, err := c.do(ctx, http.MethodDelete, apiVersion+"/authorization", nil, accessToken)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: revoke returned status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *Client) grantRequest(ctx context.Context, method, endpoint string, body any, bearer string) (*Grant, error) {
	resp, err := c.do(ctx, method, endpoint, body, bearer)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		return nil, ErrInvalidCredentials
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var decoded wireAuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return decoded.toGrant()
}

func (r *wireAuthResponse) toGrant() (*Grant, error) {
	if r.AuthorizationToken.Token == "" {
		return nil, fmt.Errorf("%w: missing authorization token", ErrMalformedResponse)
	}
	if len(r.Members) == 0 || r.Members[0].User.ID == "" {
		return nil, fmt.Errorf("%w: missing member identity", ErrMalformedResponse)
	}

	accessExpiry, err := time.Parse(time.RFC3339, r.AuthorizationToken.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("%w: bad access expiry %q", ErrMalformedResponse, r.AuthorizationToken.ExpiresAt)
	}

	grant := &Grant{
		AccessToken:     r.AuthorizationToken.Token,
		AccessExpiresAt: accessExpiry,
		RefreshToken:    r.RefreshToken.Token,
		User: UserInfo{
			ID:             r.Members[0].User.ID,
			Name:           r.Members[0].User.Name,
			OrganizationID: r.Members[0].User.ProfileOrganizationID,
		},
	}

	if r.RefreshToken.Token != "" {
		refreshExpiry, err := time.Parse(time.RFC3339, r.RefreshToken.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("%w: bad refresh expiry %q", ErrMalformedResponse, r.RefreshToken.ExpiresAt)
		}
		grant.RefreshExpiresAt = refreshExpiry
	}

	return grant, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, bearer string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Str("endpoint", endpoint).Err(err).Msg("provider request failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
