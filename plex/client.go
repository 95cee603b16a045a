package plex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/s0up4200/plexshelf/session"
)

// DefaultCloudURL is the plex.tv account service base
const DefaultCloudURL = "https://plex.tv/api/v2"

// Client talks to plex.tv and to the media server recorded in the session
type Client struct {
	session     *session.Session
	httpClient  Doer
	logger      zerolog.Logger
	clientID    string
	cloudURL    string
	concurrency int
	sanitizer   sanitizer
}

// Option configures a Client
type Option func(*clientOptions)

type clientOptions struct {
	httpClient  Doer
	timeout     time.Duration
	clientID    string
	cloudURL    string
	pageSize    int
	concurrency int
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(d Doer) Option {
	return func(o *clientOptions) {
		o.httpClient = d
	}
}

// WithTimeout sets the timeout of the default HTTP client
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithClientIdentifier sets the X-Plex-Client-Identifier value
func WithClientIdentifier(id string) Option {
	return func(o *clientOptions) {
		if id != "" {
			o.clientID = id
		}
	}
}

// WithCloudURL overrides the plex.tv account service base URL
func WithCloudURL(u string) Option {
	return func(o *clientOptions) {
		if u != "" {
			o.cloudURL = u
		}
	}
}

// WithPageSize sets the page size used when a page is requested without one
func WithPageSize(size int) Option {
	return func(o *clientOptions) {
		if size > 0 {
			o.pageSize = size
		}
	}
}

// WithConcurrency bounds parallel count requests in Libraries. 1 keeps
// them sequential.
func WithConcurrency(n int) Option {
	return func(o *clientOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// NewClient creates a Client bound to sess
func NewClient(sess *session.Session, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if sess == nil {
		return nil, errors.New("plex client requires a session")
	}

	o := clientOptions{
		timeout:     30 * time.Second,
		clientID:    DefaultClientIdentifier,
		cloudURL:    DefaultCloudURL,
		pageSize:    DefaultPageSize,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if _, err := url.ParseRequestURI(o.cloudURL); err != nil {
		return nil, fmt.Errorf("invalid cloud URL %q: %w", o.cloudURL, err)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = newHTTPClient(o.timeout)
	}

	return &Client{
		session:     sess,
		httpClient:  httpClient,
		logger:      logger,
		clientID:    o.clientID,
		cloudURL:    strings.TrimRight(o.cloudURL, "/"),
		concurrency: o.concurrency,
		sanitizer: sanitizer{
			clientID:        o.clientID,
			defaultPageSize: o.pageSize,
		},
	}, nil
}

// Session returns the session the client reads from and writes to
func (c *Client) Session() *session.Session {
	return c.session
}

// Request builds and executes one call against target, an absolute URL.
// Only transport and decode failures are errors; the status of any
// response with a JSON body is returned in the Result.
func (c *Client) Request(ctx context.Context, method, target string, call CallOptions) (*Result, error) {
	snap := c.session.Snapshot()

	params, err := c.sanitizer.sanitize(snap, call.Options, call.NoToken)
	if err != nil {
		return nil, err
	}

	req := buildRequest(method, target, params, snap, c.clientID, call)
	return c.execute(ctx, req)
}

// TotalSize returns the total item count of a list endpoint without
// fetching any items
func (c *Client) TotalSize(ctx context.Context, target string) (int, error) {
	res, err := c.Request(ctx, http.MethodGet, target, CallOptions{Options: Paginate(1, 0)})
	if err != nil {
		return 0, err
	}
	if !res.OK() {
		return 0, res.statusError()
	}

	total := res.Get("MediaContainer.totalSize")
	if !total.Exists() {
		return 0, fmt.Errorf("response has no MediaContainer.totalSize: %w", &DecodeError{
			StatusCode: res.StatusCode,
			Body:       truncateBody(res.Body),
			Err:        errMissingField,
		})
	}
	return int(total.Int()), nil
}

// ThumbURL returns a transcoded image URL for thumb, a server-relative
// image path. Non-positive dimensions fall back to 200x301.
func (c *Client) ThumbURL(thumb string, width, height int) (string, error) {
	host, err := c.serverURL("/photo/:/transcode")
	if err != nil {
		return "", err
	}

	if width <= 0 {
		width = 200
	}
	if height <= 0 {
		height = 301
	}

	var sb strings.Builder
	sb.WriteString(host)
	sb.WriteString("?width=")
	sb.WriteString(strconv.Itoa(width))
	sb.WriteString("&height=")
	sb.WriteString(strconv.Itoa(height))
	sb.WriteString("&url=")
	sb.WriteString(url.QueryEscape(thumb))
	if token, ok := c.session.Get(session.ParamToken); ok && token != "" {
		sb.WriteString("&" + HeaderToken + "=")
		sb.WriteString(url.QueryEscape(token))
	}
	return sb.String(), nil
}

// serverURL joins path onto the session's media server host
func (c *Client) serverURL(path string) (string, error) {
	host, ok := c.session.Get(session.ParamHostURL)
	if !ok || host == "" {
		return "", ErrNoServer
	}
	return strings.TrimRight(host, "/") + path, nil
}

// fetchContainer requests a media server path and unwraps MediaContainer
func (c *Client) fetchContainer(ctx context.Context, method, path string, opts RequestOptions) (*MediaContainer, error) {
	target, err := c.serverURL(path)
	if err != nil {
		return nil, err
	}

	res, err := c.Request(ctx, method, target, CallOptions{Options: opts})
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := res.Decode(&env); err != nil {
		return nil, err
	}
	return &env.MediaContainer, nil
}

// fetchPlaylists is fetchContainer for responses listing playlists
func (c *Client) fetchPlaylists(ctx context.Context, method, path string, opts RequestOptions) (*PlaylistContainer, error) {
	target, err := c.serverURL(path)
	if err != nil {
		return nil, err
	}

	res, err := c.Request(ctx, method, target, CallOptions{Options: opts})
	if err != nil {
		return nil, err
	}

	var env playlistEnvelope
	if err := res.Decode(&env); err != nil {
		return nil, err
	}
	return &env.MediaContainer, nil
}
