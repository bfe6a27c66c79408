// Package client talks to the marketdata gateway.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrUnauthorized means the gateway rejected the credentials or token.
var ErrUnauthorized = errors.New("not authenticated")

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	Status int    `json:"-"`
	Detail string `json:"detail"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (field %s, %s)", e.Detail, e.Field, e.Reason)
	}
	if e.Detail == "" {
		return http.StatusText(e.Status)
	}
	return e.Detail
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type User struct {
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
	Disabled bool   `json:"disabled"`
}

type RevokeResponse struct {
	Revoked   bool      `json:"revoked"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Client is a gateway session. The token may be empty for Login.
type Client struct {
	rest *resty.Client
}

func New(baseURL, token string) *Client {
	rest := resty.New()
	rest.SetBaseURL(baseURL)
	rest.SetTimeout(30 * time.Second)
	rest.SetHeader("Accept", "application/json")
	rest.SetHeader("User-Agent", "qline")
	if token != "" {
		rest.SetAuthToken(token)
	}
	return &Client{rest: rest}
}

// Login exchanges a username and password for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var out LoginResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type": "password",
			"username":   username,
			"password":   password,
		}).
		SetResult(&out).
		SetError(&APIError{}).
		Post("/token")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.get(ctx, "/users/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Revoke invalidates the session token on the gateway.
func (c *Client) Revoke(ctx context.Context) (*RevokeResponse, error) {
	var out RevokeResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&APIError{}).
		Post("/token/revoke")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, out any) error {
	req := c.rest.R().SetContext(ctx).SetResult(out).SetError(&APIError{})
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Get(path)
	return check(resp, err)
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}
	apiErr, ok := resp.Error().(*APIError)
	if !ok || apiErr == nil {
		apiErr = &APIError{}
	}
	apiErr.Status = resp.StatusCode()
	return apiErr
}
