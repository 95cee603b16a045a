package plex

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/s0up4200/plexshelf/session"
)

// Request is a fully built outbound request. It is consumed once by the
// transport and never modified after construction.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// CallOptions carries everything a resource call can customise
type CallOptions struct {
	Options RequestOptions
	// Header is overlaid on the default headers
	Header http.Header
	// Body is sent verbatim; ContentType describes it
	Body        []byte
	ContentType string
	// NoToken keeps the session token out of both headers and query
	NoToken bool
}

// buildRequest composes the request descriptor for one call
func buildRequest(method, target string, params url.Values, snap session.Parameters, clientID string, call CallOptions) *Request {
	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set(HeaderClientIdentifier, clientID)

	for k, vs := range call.Header {
		header.Del(k)
		for _, v := range vs {
			header.Add(k, v)
		}
	}

	if call.Body != nil && call.ContentType != "" {
		header.Set("Content-Type", call.ContentType)
	}

	if call.NoToken {
		header.Del(HeaderToken)
	} else if snap.HasToken() {
		header.Set(HeaderToken, snap.Token)
	}

	return &Request{
		Method: method,
		URL:    appendQuery(target, params),
		Header: header,
		Body:   call.Body,
	}
}

// appendQuery adds the encoded params to target, leaving it untouched when
// there are none
func appendQuery(target string, params url.Values) string {
	if len(params) == 0 {
		return target
	}

	encoded := params.Encode()
	if encoded == "" {
		return target
	}

	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + encoded
}

// redactURL hides the token in a URL for logging
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	q := u.Query()
	if q.Has(HeaderToken) {
		q.Set(HeaderToken, "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
