// Package state holds the observable values a user interface binds to:
// the busy flag, the signed-in user, the cached library and playlist
// lists, the current selections and the sort settings.
package state

import (
	"github.com/s0up4200/plexshelf/plex"
)

// DefaultSortBy is the sort key used until one is chosen
const DefaultSortBy = "titleSort"

// Store groups the application's observable values
type Store struct {
	Busy            *Value[bool]
	User            *Value[*plex.SignIn]
	Token           *Value[string]
	Libraries       *Value[[]plex.Directory]
	Playlists       *Value[[]plex.Playlist]
	CurrentLibrary  *Value[*plex.Directory]
	CurrentPlaylist *Value[*plex.Playlist]
	SortBy          *Value[string]
	SortDesc        *Value[bool]

	// SortFilter is derived from SortBy and SortDesc
	SortFilter *Value[string]
}

// NewStore creates a Store with default values
func NewStore() *Store {
	s := &Store{
		Busy:            NewValue(false),
		User:            NewValue[*plex.SignIn](nil),
		Token:           NewValue(""),
		Libraries:       NewValue[[]plex.Directory](nil),
		Playlists:       NewValue[[]plex.Playlist](nil),
		CurrentLibrary:  NewValue[*plex.Directory](nil),
		CurrentPlaylist: NewValue[*plex.Playlist](nil),
		SortBy:          NewValue(DefaultSortBy),
		SortDesc:        NewValue(false),
	}
	s.SortFilter = Derive(s.SortBy, s.SortDesc, SortSpec)
	return s
}

// SortSpec formats a sort key and direction as a sort parameter value
func SortSpec(by string, desc bool) string {
	if desc {
		return by + ":desc"
	}
	return by
}

// Track sets Busy for the duration of fn
func (s *Store) Track(fn func() error) error {
	s.Busy.Set(true)
	defer s.Busy.Set(false)
	return fn()
}

// SelectLibrary makes the library with key current. It reports false when
// no cached library has that key.
func (s *Store) SelectLibrary(key string) bool {
	for _, lib := range s.Libraries.Get() {
		if lib.Key == key {
			s.CurrentLibrary.Set(&lib)
			return true
		}
	}
	return false
}

// SelectPlaylist makes the playlist with ratingKey current. It reports false
// when no cached playlist has that key.
func (s *Store) SelectPlaylist(ratingKey string) bool {
	for _, p := range s.Playlists.Get() {
		if p.RatingKey == ratingKey {
			s.CurrentPlaylist.Set(&p)
			return true
		}
	}
	return false
}

// SortOptions returns list options carrying the current sort
func (s *Store) SortOptions() plex.RequestOptions {
	return plex.RequestOptions{}.WithSort(s.SortFilter.Get())
}
