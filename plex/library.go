package plex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"
)

// Libraries lists the library sections, each with its total item count
// attached. Counts keep the section order regardless of concurrency.
func (c *Client) Libraries(ctx context.Context) ([]Directory, error) {
	container, err := c.fetchContainer(ctx, http.MethodGet, "/library/sections", RequestOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get libraries: %w", err)
	}

	libraries := container.Directory
	if len(libraries) == 0 {
		return libraries, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i := range libraries {
		i := i
		g.Go(func() error {
			target, err := c.serverURL("/library/sections/" + url.PathEscape(libraries[i].Key) + "/all")
			if err != nil {
				return err
			}

			size, err := c.TotalSize(gctx, target)
			if err != nil {
				return fmt.Errorf("failed to count library %s: %w", libraries[i].Title, err)
			}

			// each goroutine owns its own index
			libraries[i].TotalSize = size
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.logger.Debug().Int("count", len(libraries)).Msg("Retrieved libraries")
	return libraries, nil
}

// Library returns a single library section
func (c *Client) Library(ctx context.Context, id string) (*MediaContainer, error) {
	container, err := c.fetchContainer(ctx, http.MethodGet, "/library/sections/"+url.PathEscape(id), RequestOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get library %s: %w", id, err)
	}
	return container, nil
}

// LibraryFilterValues lists the possible values of a filter type such as
// year, decade or genre
func (c *Client) LibraryFilterValues(ctx context.Context, id, filterType string) (*MediaContainer, error) {
	path := "/library/sections/" + url.PathEscape(id) + "/" + url.PathEscape(filterType)
	container, err := c.fetchContainer(ctx, http.MethodGet, path, RequestOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s values for library %s: %w", filterType, id, err)
	}
	return container, nil
}

// Movies lists the items of a library section
func (c *Client) Movies(ctx context.Context, libraryID string, opts RequestOptions) (*MediaContainer, error) {
	container, err := c.fetchContainer(ctx, http.MethodGet, "/library/sections/"+url.PathEscape(libraryID)+"/all", opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get movies for library %s: %w", libraryID, err)
	}

	c.logger.Debug().
		Str("library", libraryID).
		Int("count", len(container.Metadata)).
		Int("total", container.TotalSize).
		Msg("Retrieved movies")

	return container, nil
}
