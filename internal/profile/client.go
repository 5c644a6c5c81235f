// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package profile is the client of the remote profile service, the second store
a registration must write to.

The profile service owns its own data; this client only creates the initial
profile of a freshly registered account, authenticated with that account's
own access token. Calls are never retried: the caller decides whether a
failure is compensated.
*/
package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/taibuivan/authgate/internal/platform/constants"
)

const (
	createPath   = "/api/profiles"
	maxErrorBody = 4 << 10
)

// Placeholder values the profile is created with until the user edits it.
const (
	DefaultFirstName = "Default"
	DefaultLastName  = "Default"
	DefaultPhone     = "123456790"
)

// Profile is the creation payload.
type Profile struct {
	UserID    string `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// Placeholder returns the default profile of accountID.
func Placeholder(accountID string) Profile {
	return Profile{
		UserID:    accountID,
		FirstName: DefaultFirstName,
		LastName:  DefaultLastName,
		Phone:     DefaultPhone,
	}
}

// StatusError is returned when the profile service answers with a non-2xx
// status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("profile service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("profile service returned status %d: %s", e.StatusCode, e.Body)
}

// Client creates profiles over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a client for the service at baseURL. Each call is
// bounded by timeout when it is positive. A nil httpClient uses a dedicated
// client rather than [http.DefaultClient].
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		timeout:    timeout,
	}
}

// Create posts p to the profile service with bearer as the access token.
//
// Returns a [*StatusError] on a non-2xx answer, or the transport error
// (including the deadline) wrapped with context.
func (c *Client) Create(ctx context.Context, bearer string, p Profile) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("profile_encode_failed: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("profile_request_build_failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(constants.HeaderAuthorization, "Bearer "+bearer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("profile_request_failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
