package facilitator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// APIError is a 4xx answer from a JSON endpoint. It unwraps to ErrNotFound
// for 404 and ErrRejected otherwise.
type APIError struct {
	StatusCode int
	Message    string
	base       error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%v: status %d: %s", e.base, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.base
}

// do sends a JSON request to BaseURL+path and decodes a 2xx body into out.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return c.doURL(ctx, method, target, in, out)
}

func (c *HTTPClient) doURL(ctx context.Context, method, target string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	c.setHeaders(httpReq)

	httpResp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, httpReq.URL.Path, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return apiError(httpResp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrBadResponse, httpReq.URL.Path, err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	if resp.StatusCode < 400 || resp.StatusCode >= 500 {
		return statusError(resp)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	base := ErrRejected
	if resp.StatusCode == http.StatusNotFound {
		base = ErrNotFound
	}
	return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body), base: base}
}

// errorMessage pulls the human-readable part out of a JSON error body, or
// returns the body itself.
func errorMessage(body []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(body, &e) == nil {
		for _, m := range []string{e.Error, e.Message, e.Detail} {
			if m != "" {
				return m
			}
		}
	}
	return truncate(body)
}

// pathID escapes a caller-supplied identifier for use as one path segment.
func pathID(kind, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%s id is required", kind)
	}
	return url.PathEscape(id), nil
}

func rejectedMessage(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && errors.Is(err, ErrRejected) {
		return apiErr.Message, true
	}
	return "", false
}
