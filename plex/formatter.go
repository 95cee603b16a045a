package plex

import (
	"fmt"
	"strings"
	"time"
)

// ConsoleFormatter renders plex entities as tree-style console output
type ConsoleFormatter struct{}

// NewConsoleFormatter creates a new console formatter
func NewConsoleFormatter() *ConsoleFormatter {
	return &ConsoleFormatter{}
}

func treeBranch(isLast bool) (prefix, indent string) {
	if isLast {
		return "╰", "    "
	}
	return "├", "│   "
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// FormatLibraries formats library sections with their item counts
func (f *ConsoleFormatter) FormatLibraries(libraries []Directory) string {
	if len(libraries) == 0 {
		return "No libraries found"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n%s (%d):\n\n", plural(len(libraries), "Library", "Libraries"), len(libraries))

	for i, lib := range libraries {
		isLast := i == len(libraries)-1
		prefix, indent := treeBranch(isLast)

		fmt.Fprintf(&sb, "%s── %s [%s]\n", prefix, lib.Title, lib.Key)
		fmt.Fprintf(&sb, "%sType: %s | Items: %d\n", indent, lib.Type, lib.TotalSize)
		if lib.ScannedAt > 0 {
			fmt.Fprintf(&sb, "%sScanned: %s\n", indent, time.Unix(lib.ScannedAt, 0).Format("2006-01-02"))
		}

		if !isLast {
			sb.WriteString("│\n")
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

// FormatDirectories formats a plain directory listing such as filter values
func (f *ConsoleFormatter) FormatDirectories(title string, dirs []Directory) string {
	if len(dirs) == 0 {
		return "No entries found"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n%s (%d):\n\n", title, len(dirs))
	for i, d := range dirs {
		prefix, _ := treeBranch(i == len(dirs)-1)
		fmt.Fprintf(&sb, "%s── %s [%s]\n", prefix, d.Title, d.Key)
	}
	sb.WriteString("\n")
	return sb.String()
}

// FormatItems formats media items. total is the server-side total, which
// may exceed len(items) for a paginated listing.
func (f *ConsoleFormatter) FormatItems(items []Metadata, total int, showDetails bool) string {
	if len(items) == 0 {
		return "No items found"
	}

	var sb strings.Builder
	sb.WriteString("\n" + plural(len(items), "Item", "Items"))
	if total > len(items) {
		fmt.Fprintf(&sb, " (%d of %d):\n\n", len(items), total)
	} else {
		fmt.Fprintf(&sb, " (%d):\n\n", len(items))
	}

	for i, item := range items {
		isLast := i == len(items)-1
		prefix, indent := treeBranch(isLast)

		fmt.Fprintf(&sb, "%s── %s", prefix, item.Title)
		if item.Year > 0 {
			fmt.Fprintf(&sb, " (%d)", item.Year)
		}
		fmt.Fprintf(&sb, " [%s]", item.RatingKey)
		if item.PlaylistItemID > 0 {
			fmt.Fprintf(&sb, " item:%d", item.PlaylistItemID)
		}
		sb.WriteString("\n")

		if showDetails {
			if len(item.Genre) > 0 {
				fmt.Fprintf(&sb, "%sGenres: %s\n", indent, strings.Join(item.GenreNames(), ", "))
			}

			var parts []string
			if added := item.Added(); !added.IsZero() {
				parts = append(parts, "Added: "+added.Format("2006-01-02"))
			}
			if item.Duration > 0 {
				parts = append(parts, "Runtime: "+item.Runtime().Round(time.Minute).String())
			}
			if item.Rating > 0 {
				parts = append(parts, fmt.Sprintf("Rating: %.1f", item.Rating))
			}
			if item.Watched() {
				parts = append(parts, fmt.Sprintf("Watched %dx", item.ViewCount))
			}
			if len(parts) > 0 {
				fmt.Fprintf(&sb, "%s%s\n", indent, strings.Join(parts, " | "))
			}
		}

		if !isLast {
			sb.WriteString("│\n")
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

// FormatPlaylists formats playlists
func (f *ConsoleFormatter) FormatPlaylists(playlists []Playlist) string {
	if len(playlists) == 0 {
		return "No playlists found"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n%s (%d):\n\n", plural(len(playlists), "Playlist", "Playlists"), len(playlists))

	for i, p := range playlists {
		isLast := i == len(playlists)-1
		prefix, indent := treeBranch(isLast)

		fmt.Fprintf(&sb, "%s── %s [%s]\n", prefix, p.Title, p.RatingKey)

		kind := p.PlaylistType
		if p.Smart {
			kind += ", smart"
		}
		fmt.Fprintf(&sb, "%sType: %s | Items: %d", indent, kind, p.LeafCount)
		if p.Duration > 0 {
			fmt.Fprintf(&sb, " | Runtime: %s", p.Runtime().Round(time.Minute))
		}
		sb.WriteString("\n")

		if !isLast {
			sb.WriteString("│\n")
		}
	}

	sb.WriteString("\n")
	return sb.String()
}
