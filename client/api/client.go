// Package apiclient is a thin client of the Shule HTTP API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/auth"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response of the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client of the API served at baseURL (e.g. http://localhost:8000/v1).
// httpClient defaults to a client with a 15s timeout.
func New(baseURL string, httpClient ...*http.Client) *Client {
	hc := &http.Client{Timeout: defaultTimeout}
	if len(httpClient) > 0 && httpClient[0] != nil {
		hc = httpClient[0]
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Login exchanges credentials for a token and the session user.
func (c *Client) Login(ctx context.Context, email, password string) (auth.LoginResponse, error) {
	var resp auth.LoginResponse
	err := c.do(ctx, http.MethodPost, "/users/login", "", auth.LoginRequest{Email: email, Password: password}, &resp)
	return resp, err
}

// Logout revokes token on the server.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/users/logout", token, nil, nil)
}

// Me returns the user owning token.
func (c *Client) Me(ctx context.Context, token string) (auth.SessionUser, error) {
	var usr auth.SessionUser
	err := c.do(ctx, http.MethodGet, "/users/me", token, nil, &usr)
	return usr, err
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrap(err, "reading response")
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &APIError{Status: res.StatusCode, Message: errorMessage(data)}
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(data, out), "decoding response")
}

// errorMessage reads the API error body: {"error": msg} or a {field: msg} map.
func errorMessage(data []byte) string {
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil || len(fields) == 0 {
		return strings.TrimSpace(string(data))
	}
	if msg, ok := fields["error"].(string); ok {
		return msg
	}
	if msg, ok := fields["message"].(string); ok {
		return msg
	}

	msgs := make([]string, 0, len(fields))
	for fld, msg := range fields {
		msgs = append(msgs, fmt.Sprintf("%s: %v", fld, msg))
	}
	sort.Strings(msgs)
	return strings.Join(msgs, "; ")
}
