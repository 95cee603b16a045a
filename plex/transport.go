package plex

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// newHTTPClient creates the default HTTP client
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     30 * time.Second,
		},
	}
}

var emptyObject = json.RawMessage(`{}`)

// Result is a decoded response. Body always holds valid JSON.
type Result struct {
	StatusCode int
	Body       json.RawMessage
}

// OK reports whether the status is 2xx
func (r *Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the body into v
func (r *Result) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Get reads a single field using a gjson path such as
// "MediaContainer.totalSize"
func (r *Result) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Body, path)
}

// statusError describes a non-2xx result, taking the message from a plex.tv
// error list or a media server error object
func (r *Result) statusError() *StatusError {
	msg := r.Get("errors.0.message").String()
	if msg == "" {
		msg = r.Get("error").String()
	}
	return &StatusError{StatusCode: r.StatusCode, Message: msg}
}

// execute sends req and classifies the outcome
func (c *Client) execute(ctx context.Context, req *Request) (*Result, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: redactURL(req.URL), Err: err}
	}
	httpReq.Header = req.Header.Clone()

	c.logger.Debug().
		Str("method", req.Method).
		Str("url", redactURL(req.URL)).
		Msg("Plex request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: redactURL(req.URL), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{
			Method: req.Method,
			URL:    redactURL(req.URL),
			Err:    fmt.Errorf("failed to read response body: %w", err),
		}
	}

	result, err := classify(resp.StatusCode, raw)
	if err != nil {
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) && decodeErr.IsSuccessStatus() {
			c.logger.Warn().
				Int("status", resp.StatusCode).
				Str("url", redactURL(req.URL)).
				Msg("Plex answered a successful request with a non-JSON body")
		} else {
			c.logger.Debug().
				Int("status", resp.StatusCode).
				Int("bytes", len(raw)).
				Msg("Plex response could not be decoded")
		}
		return nil, err
	}

	c.logger.Debug().
		Int("status", resp.StatusCode).
		Int("bytes", len(raw)).
		Msg("Plex response")

	return result, nil
}

// classify turns a status and raw body into a Result or a DecodeError. A
// 2xx with an empty body is a valid empty object.
func classify(status int, raw []byte) (*Result, error) {
	trimmed := bytes.TrimSpace(raw)

	if json.Valid(trimmed) {
		return &Result{StatusCode: status, Body: json.RawMessage(trimmed)}, nil
	}

	success := status >= 200 && status < 300
	if success && len(trimmed) == 0 {
		return &Result{StatusCode: status, Body: emptyObject}, nil
	}

	var syntaxErr error
	if len(trimmed) == 0 {
		syntaxErr = io.ErrUnexpectedEOF
	} else {
		var v any
		syntaxErr = json.Unmarshal(trimmed, &v)
	}

	return nil, &DecodeError{
		StatusCode: status,
		Body:       truncateBody(trimmed),
		Err:        syntaxErr,
	}
}
