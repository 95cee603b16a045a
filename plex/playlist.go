package plex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Position places a moved playlist item relative to its target
type Position string

const (
	PositionAfter  Position = "after"
	PositionBefore Position = "before"
)

// Valid reports whether p is a known position
func (p Position) Valid() bool {
	return p == PositionAfter || p == PositionBefore
}

// librarySectionURI is the item URI format playlists accept
const librarySectionURI = "server://%s/com.plexapp.plugins.library/library/metadata/%s"

func playlistPath(id string, parts ...string) string {
	path := "/playlists/" + url.PathEscape(id)
	for _, p := range parts {
		path += "/" + url.PathEscape(p)
	}
	return path
}

// Playlists lists every playlist on the server
func (c *Client) Playlists(ctx context.Context, opts RequestOptions) (*PlaylistContainer, error) {
	container, err := c.fetchPlaylists(ctx, http.MethodGet, "/playlists", opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlists: %w", err)
	}
	return container, nil
}

// Playlist returns a single playlist
func (c *Client) Playlist(ctx context.Context, id string) (*PlaylistContainer, error) {
	container, err := c.fetchPlaylists(ctx, http.MethodGet, playlistPath(id), RequestOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist %s: %w", id, err)
	}
	return container, nil
}

// PlaylistItems lists the items of a playlist
func (c *Client) PlaylistItems(ctx context.Context, id string, opts RequestOptions) (*MediaContainer, error) {
	c.logger.Debug().Str("playlist", id).Msg("Getting playlist items")

	container, err := c.fetchContainer(ctx, http.MethodGet, playlistPath(id, "items"), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get items of playlist %s: %w", id, err)
	}
	return container, nil
}

// AddPlaylistItem appends a library item to a playlist
func (c *Client) AddPlaylistItem(ctx context.Context, id, mediaID string) (*PlaylistContainer, error) {
	opts := RequestOptions{}.
		WithParam("uri", c.ItemURI(mediaID)).
		WithParam("includeExternalMedia", "1")

	container, err := c.fetchPlaylists(ctx, http.MethodPut, playlistPath(id, "items"), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to add item %s to playlist %s: %w", mediaID, id, err)
	}
	return container, nil
}

// RemovePlaylistItem removes an entry, identified by its playlist item ID
func (c *Client) RemovePlaylistItem(ctx context.Context, id, itemID string) (*PlaylistContainer, error) {
	container, err := c.fetchPlaylists(ctx, http.MethodDelete, playlistPath(id, "items", itemID), RequestOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to remove item %s from playlist %s: %w", itemID, id, err)
	}
	return container, nil
}

// MovePlaylistItem moves an entry before or after another entry
func (c *Client) MovePlaylistItem(ctx context.Context, id, itemID, targetID string, pos Position) (*MediaContainer, error) {
	if pos == "" {
		pos = PositionAfter
	}
	if !pos.Valid() {
		return nil, fmt.Errorf("%w: unknown position %q", ErrInvalidOptions, pos)
	}

	opts := RequestOptions{}.WithParam(string(pos), targetID)
	container, err := c.fetchContainer(ctx, http.MethodPut, playlistPath(id, "items", itemID, "move"), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to move item %s in playlist %s: %w", itemID, id, err)
	}
	return container, nil
}

// UpdatePlaylist changes playlist attributes such as title or summary
func (c *Client) UpdatePlaylist(ctx context.Context, id string, params map[string]string) (*PlaylistContainer, error) {
	container, err := c.fetchPlaylists(ctx, http.MethodPut, playlistPath(id), RequestOptions{Params: params})
	if err != nil {
		return nil, fmt.Errorf("failed to update playlist %s: %w", id, err)
	}
	return container, nil
}

// CreatePlaylist creates a regular video playlist, seeded from uri when it
// is not empty
func (c *Client) CreatePlaylist(ctx context.Context, title, uri string) (*PlaylistContainer, error) {
	opts := RequestOptions{Params: map[string]string{
		"title":                title,
		"uri":                  uri,
		"smart":                "0",
		"type":                 "video",
		"includeExternalMedia": "1",
	}}

	container, err := c.fetchPlaylists(ctx, http.MethodPost, "/playlists", opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist %q: %w", title, err)
	}

	c.logger.Info().Str("title", title).Msg("Created playlist")
	return container, nil
}

// DeletePlaylist deletes a playlist
func (c *Client) DeletePlaylist(ctx context.Context, id string) error {
	if _, err := c.fetchPlaylists(ctx, http.MethodDelete, playlistPath(id), RequestOptions{}); err != nil {
		return fmt.Errorf("failed to delete playlist %s: %w", id, err)
	}

	c.logger.Info().Str("playlist", id).Msg("Deleted playlist")
	return nil
}

// ItemURI returns the library URI of a media item on the session's server
func (c *Client) ItemURI(mediaID string) string {
	return fmt.Sprintf(librarySectionURI, c.session.Snapshot().MachineID, mediaID)
}
