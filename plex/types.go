package plex

import (
	"strings"
	"time"
)

// ProductMediaServer is the resource product name that identifies a server
const ProductMediaServer = "Plex Media Server"

// envelope is the top-level wrapper of every media server response
type envelope struct {
	MediaContainer MediaContainer `json:"MediaContainer"`
}

// MediaContainer holds a media server payload
type MediaContainer struct {
	Size                int         `json:"size"`
	TotalSize           int         `json:"totalSize,omitempty"`
	Offset              int         `json:"offset,omitempty"`
	Title1              string      `json:"title1,omitempty"`
	Title2              string      `json:"title2,omitempty"`
	Identifier          string      `json:"identifier,omitempty"`
	LibrarySectionID    int         `json:"librarySectionID,omitempty"`
	LibrarySectionTitle string      `json:"librarySectionTitle,omitempty"`
	ViewGroup           string      `json:"viewGroup,omitempty"`
	Directory           []Directory `json:"Directory,omitempty"`
	Metadata            []Metadata  `json:"Metadata,omitempty"`
}

// playlistEnvelope wraps playlist listings, whose entries are playlists
// rather than media items
type playlistEnvelope struct {
	MediaContainer PlaylistContainer `json:"MediaContainer"`
}

// PlaylistContainer is a MediaContainer whose entries are playlists
type PlaylistContainer struct {
	Size      int        `json:"size"`
	TotalSize int        `json:"totalSize,omitempty"`
	Metadata  []Playlist `json:"Metadata,omitempty"`
}

// Directory is a library section, or an entry of a section's browse or
// filter listing
type Directory struct {
	Key       string `json:"key"`
	Title     string `json:"title"`
	Type      string `json:"type,omitempty"`
	FastKey   string `json:"fastKey,omitempty"`
	Agent     string `json:"agent,omitempty"`
	Scanner   string `json:"scanner,omitempty"`
	Language  string `json:"language,omitempty"`
	UUID      string `json:"uuid,omitempty"`
	Thumb     string `json:"thumb,omitempty"`
	Art       string `json:"art,omitempty"`
	Secondary bool   `json:"secondary,omitempty"`
	Prompt    string `json:"prompt,omitempty"`
	UpdatedAt int64  `json:"updatedAt,omitempty"`
	ScannedAt int64  `json:"scannedAt,omitempty"`

	// TotalSize is attached by Client.Libraries
	TotalSize int `json:"totalSize,omitempty"`
}

// Tag is a genre, director, collection or similar label
type Tag struct {
	ID  int    `json:"id,omitempty"`
	Tag string `json:"tag"`
}

// Metadata is a single media item (movie, episode, playlist entry)
type Metadata struct {
	RatingKey             string  `json:"ratingKey"`
	Key                   string  `json:"key"`
	GUID                  string  `json:"guid,omitempty"`
	Type                  string  `json:"type"`
	Title                 string  `json:"title"`
	TitleSort             string  `json:"titleSort,omitempty"`
	OriginalTitle         string  `json:"originalTitle,omitempty"`
	Summary               string  `json:"summary,omitempty"`
	Studio                string  `json:"studio,omitempty"`
	ContentRating         string  `json:"contentRating,omitempty"`
	Rating                float64 `json:"rating,omitempty"`
	AudienceRating        float64 `json:"audienceRating,omitempty"`
	Year                  int     `json:"year,omitempty"`
	Thumb                 string  `json:"thumb,omitempty"`
	Art                   string  `json:"art,omitempty"`
	Duration              int64   `json:"duration,omitempty"`
	ViewCount             int     `json:"viewCount,omitempty"`
	OriginallyAvailableAt string  `json:"originallyAvailableAt,omitempty"`
	AddedAt               int64   `json:"addedAt,omitempty"`
	UpdatedAt             int64   `json:"updatedAt,omitempty"`
	LastViewedAt          int64   `json:"lastViewedAt,omitempty"`
	PlaylistItemID        int64   `json:"playlistItemID,omitempty"`
	Genre                 []Tag   `json:"Genre,omitempty"`
	Director              []Tag   `json:"Director,omitempty"`
	Role                  []Tag   `json:"Role,omitempty"`
	Country               []Tag   `json:"Country,omitempty"`
	Collection            []Tag   `json:"Collection,omitempty"`
}

// Added returns the time the item was added to the library
func (m *Metadata) Added() time.Time {
	if m.AddedAt > 0 {
		return time.Unix(m.AddedAt, 0)
	}
	return time.Time{}
}

// Runtime returns the item duration
func (m *Metadata) Runtime() time.Duration {
	return time.Duration(m.Duration) * time.Millisecond
}

// Watched reports whether the item has been played at least once
func (m *Metadata) Watched() bool {
	return m.ViewCount > 0
}

// HasGenre checks genre membership, case-insensitively
func (m *Metadata) HasGenre(genre string) bool {
	return hasTag(m.Genre, genre)
}

// GenreNames returns the genre labels
func (m *Metadata) GenreNames() []string {
	return tagNames(m.Genre)
}

// Playlist is a playlist as listed by the media server
type Playlist struct {
	RatingKey    string `json:"ratingKey"`
	Key          string `json:"key"`
	GUID         string `json:"guid,omitempty"`
	Type         string `json:"type"`
	Title        string `json:"title"`
	Summary      string `json:"summary,omitempty"`
	Smart        bool   `json:"smart"`
	PlaylistType string `json:"playlistType"`
	Composite    string `json:"composite,omitempty"`
	LeafCount    int    `json:"leafCount"`
	Duration     int64  `json:"duration,omitempty"`
	AddedAt      int64  `json:"addedAt,omitempty"`
	UpdatedAt    int64  `json:"updatedAt,omitempty"`
}

// Runtime returns the total playlist duration
func (p *Playlist) Runtime() time.Duration {
	return time.Duration(p.Duration) * time.Millisecond
}

// Connection is one way to reach a device
type Connection struct {
	Protocol string `json:"protocol"`
	Address  string `json:"address"`
	Port     int    `json:"port"`
	URI      string `json:"uri"`
	Local    bool   `json:"local"`
	Relay    bool   `json:"relay"`
}

// Device is an entry of the account's resource list
type Device struct {
	Name             string       `json:"name"`
	Product          string       `json:"product"`
	ProductVersion   string       `json:"productVersion,omitempty"`
	Platform         string       `json:"platform,omitempty"`
	ClientIdentifier string       `json:"clientIdentifier"`
	Provides         string       `json:"provides,omitempty"`
	Owned            bool         `json:"owned"`
	Presence         bool         `json:"presence"`
	Connections      []Connection `json:"connections"`
}

// IsMediaServer checks whether the device is a Plex Media Server
func (d *Device) IsMediaServer() bool {
	return d.Product == ProductMediaServer
}

// SignIn is the account returned by a successful sign-in
type SignIn struct {
	ID        int    `json:"id,omitempty"`
	UUID      string `json:"uuid,omitempty"`
	Username  string `json:"username"`
	Title     string `json:"title,omitempty"`
	Email     string `json:"email,omitempty"`
	Thumb     string `json:"thumb"`
	AuthToken string `json:"authToken"`
}

// GetDisplayName returns the best available display name for the account
func (s *SignIn) GetDisplayName() string {
	if s.Title != "" {
		return s.Title
	}
	if s.Username != "" {
		return s.Username
	}
	return s.Email
}

func hasTag(tags []Tag, name string) bool {
	for _, t := range tags {
		if strings.EqualFold(t.Tag, name) {
			return true
		}
	}
	return false
}

func tagNames(tags []Tag) []string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Tag)
	}
	return names
}
