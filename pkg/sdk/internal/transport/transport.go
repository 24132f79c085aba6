// Package transport holds the request plumbing shared by the SDK service clients.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Tatenda/fullstori/pkg/sdk/auth"
	sdkerrors "github.com/Tatenda/fullstori/pkg/sdk/errors"
)

// Transport issues authenticated JSON requests against one server.
type Transport struct {
	HTTP *http.Client
	Base string
	Auth auth.Provider

	// Stream shares HTTP's round tripper without its overall timeout, for
	// long-lived responses.
	Stream *http.Client
}

// New returns a transport for base. A nil provider sends no credentials.
func New(httpClient *http.Client, base string, provider auth.Provider) *Transport {
	if provider == nil {
		provider = auth.NoneProvider{}
	}
	return &Transport{
		HTTP:   httpClient,
		Base:   strings.TrimRight(base, "/"),
		Auth:   provider,
		Stream: &http.Client{Transport: httpClient.Transport, Jar: httpClient.Jar},
	}
}

// URL joins path segments onto the base, escaping each one.
func (t *Transport) URL(segments ...string) string {
	var b strings.Builder
	b.WriteString(t.Base)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// NewRequest creates an authenticated request.
func (t *Transport) NewRequest(ctx context.Context, method, reqURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if err := t.Auth.Authenticate(req); err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	return req, nil
}

// Do executes a request, checks for errors, and decodes the JSON response
// into result when it is non-nil.
func (t *Transport) Do(req *http.Request, result any) error {
	resp, err := t.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return sdkerrors.ParseErrorResponse(resp)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Get performs a GET request and decodes the JSON response.
func (t *Transport) Get(ctx context.Context, reqURL string, result any) error {
	req, err := t.NewRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	return t.Do(req, result)
}

// Post performs a POST request with a JSON body.
func (t *Transport) Post(ctx context.Context, reqURL string, body, result any) error {
	return t.send(ctx, http.MethodPost, reqURL, body, result)
}

// Put performs a PUT request with a JSON body.
func (t *Transport) Put(ctx context.Context, reqURL string, body, result any) error {
	return t.send(ctx, http.MethodPut, reqURL, body, result)
}

// Patch performs a PATCH request with a JSON body.
func (t *Transport) Patch(ctx context.Context, reqURL string, body, result any) error {
	return t.send(ctx, http.MethodPatch, reqURL, body, result)
}

// Delete performs a DELETE request and drains the response body.
func (t *Transport) Delete(ctx context.Context, reqURL string) error {
	req, err := t.NewRequest(ctx, http.MethodDelete, reqURL, nil)
	if err != nil {
		return err
	}
	return t.Do(req, nil)
}

func (t *Transport) send(ctx context.Context, method, reqURL string, body, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := t.NewRequest(ctx, method, reqURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return t.Do(req, result)
}
