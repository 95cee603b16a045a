package plex

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"

	"github.com/s0up4200/plexshelf/session"
)

// Wire names for the parameters the sanitizer produces
const (
	HeaderClientIdentifier = "X-Plex-Client-Identifier"
	HeaderToken            = "X-Plex-Token"
	ParamContainerStart    = "X-Plex-Container-Start"
	ParamContainerSize     = "X-Plex-Container-Size"
	ParamSort              = "sort"
)

const (
	// DefaultPageSize is used when a page is requested without a size
	DefaultPageSize = 200
	// DefaultClientIdentifier identifies this client to Plex
	DefaultClientIdentifier = "plex-api"
)

// Filter narrows a list query to items whose Key matches Values
type Filter struct {
	Key    string
	Values string
}

// RequestOptions are the caller-supplied query options for one request.
// A nil Page means no pagination. A PageSize of 0 is a count-only query and
// is never replaced by the default.
type RequestOptions struct {
	Page     *int
	PageSize *int
	Sort     string
	Filters  []Filter
	// Params are passed through verbatim and win over every derived value
	Params map[string]string
}

// Paginate returns options asking for page (1-based) of size items
func Paginate(page, size int) RequestOptions {
	return RequestOptions{Page: &page, PageSize: &size}
}

// WithPage returns a copy of o asking for page using the default page size
func (o RequestOptions) WithPage(page int) RequestOptions {
	o.Page = &page
	return o
}

// WithPageSize returns a copy of o with the page size set
func (o RequestOptions) WithPageSize(size int) RequestOptions {
	o.PageSize = &size
	return o
}

// WithSort returns a copy of o sorted by sort ("key" or "key:desc")
func (o RequestOptions) WithSort(sort string) RequestOptions {
	o.Sort = sort
	return o
}

// WithFilter returns a copy of o with one more filter appended
func (o RequestOptions) WithFilter(key, values string) RequestOptions {
	o.Filters = append(slices.Clip(o.Filters), Filter{Key: key, Values: values})
	return o
}

// WithParam returns a copy of o with a passthrough parameter set
func (o RequestOptions) WithParam(key, value string) RequestOptions {
	params := make(map[string]string, len(o.Params)+1)
	maps.Copy(params, o.Params)
	params[key] = value
	o.Params = params
	return o
}

// Validate checks pagination bounds
func (o RequestOptions) Validate() error {
	if o.Page != nil && *o.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidOptions, *o.Page)
	}
	if o.PageSize != nil && *o.PageSize < 0 {
		return fmt.Errorf("%w: page size must be >= 0, got %d", ErrInvalidOptions, *o.PageSize)
	}
	return nil
}

// sanitizer turns caller options plus session state into query parameters
type sanitizer struct {
	clientID        string
	defaultPageSize int
}

// sanitize merges, lowest precedence first: session defaults, filters,
// pagination, then the caller's sort and passthrough params. With noToken
// the token is dropped whatever its source.
func (s sanitizer) sanitize(snap session.Parameters, opts RequestOptions, noToken bool) (url.Values, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set(HeaderClientIdentifier, s.clientID)
	if !noToken && snap.HasToken() {
		params.Set(HeaderToken, snap.Token)
	}

	for _, f := range opts.Filters {
		params.Set(f.Key, f.Values)
	}

	if opts.Page != nil {
		for k, v := range s.paginationParams(*opts.Page, opts.PageSize) {
			params.Set(k, v)
		}
	}

	if opts.Sort != "" {
		params.Set(ParamSort, opts.Sort)
	}
	for k, v := range opts.Params {
		params.Set(k, v)
	}

	if noToken {
		params.Del(HeaderToken)
	}

	return params, nil
}

// paginationParams converts a page number and optional size into the
// container start/size pair
func (s sanitizer) paginationParams(page int, pageSize *int) map[string]string {
	size := s.defaultPageSize
	if pageSize != nil {
		size = *pageSize
	}

	return map[string]string{
		ParamContainerSize:  strconv.Itoa(size),
		ParamContainerStart: strconv.Itoa((page - 1) * size),
	}
}
