package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0up4200/plexshelf/plex"
)

var (
	playlistPage     int
	playlistPageSize int
	moveBefore       bool
	createURI        string
	createMedia      string
	updateTitle      string
	updateParams     []string
)

var playlistsCmd = &cobra.Command{
	Use:     "playlists",
	Aliases: []string{"playlist", "pl"},
	Short:   "List and edit playlists",
}

var playlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all playlists",
	Args:  cobra.NoArgs,
	RunE:  runPlaylistList,
}

var playlistShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a playlist",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaylistShow,
}

var playlistItemsCmd = &cobra.Command{
	Use:   "items <id>",
	Short: "List the items of a playlist",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaylistItems,
}

var playlistAddCmd = &cobra.Command{
	Use:   "add <id> <mediaID>",
	Short: "Add a library item to a playlist",
	Args:  cobra.ExactArgs(2),
	RunE:  runPlaylistAdd,
}

var playlistRemoveCmd = &cobra.Command{
	Use:   "remove <id> <itemID>",
	Short: "Remove an entry from a playlist by its playlist item ID",
	Args:  cobra.ExactArgs(2),
	RunE:  runPlaylistRemove,
}

var playlistMoveCmd = &cobra.Command{
	Use:   "move <id> <itemID> <targetItemID>",
	Short: "Move an entry after (or --before) another entry",
	Args:  cobra.ExactArgs(3),
	RunE:  runPlaylistMove,
}

var playlistCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a video playlist",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaylistCreate,
}

var playlistUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change playlist attributes such as the title or summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaylistUpdate,
}

var playlistDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a playlist",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaylistDelete,
}

func init() {
	playlistItemsCmd.Flags().IntVar(&playlistPage, "page", 1, "page number, starting at 1")
	playlistItemsCmd.Flags().IntVar(&playlistPageSize, "page-size", 0, "items per page (default from config)")
	playlistMoveCmd.Flags().BoolVar(&moveBefore, "before", false, "place the entry before the target instead of after")
	playlistCreateCmd.Flags().StringVar(&createURI, "uri", "", "seed the playlist from a library URI")
	playlistCreateCmd.Flags().StringVar(&createMedia, "media", "", "seed the playlist with a library item ID")
	playlistCreateCmd.MarkFlagsMutuallyExclusive("uri", "media")
	playlistUpdateCmd.Flags().StringVar(&updateTitle, "title", "", "new title")
	playlistUpdateCmd.Flags().StringArrayVar(&updateParams, "param", nil, "attribute as key=value (repeatable)")

	playlistsCmd.AddCommand(
		playlistListCmd,
		playlistShowCmd,
		playlistItemsCmd,
		playlistAddCmd,
		playlistRemoveCmd,
		playlistMoveCmd,
		playlistCreateCmd,
		playlistUpdateCmd,
		playlistDeleteCmd,
	)
	rootCmd.AddCommand(playlistsCmd)
}

func runPlaylistList(cmd *cobra.Command, args []string) error {
	var container *plex.PlaylistContainer
	err := store.Track(func() error {
		var err error
		container, err = client.Playlists(commandContext(cmd), plex.RequestOptions{})
		return err
	})
	if err != nil {
		return err
	}
	store.Playlists.Set(container.Metadata)

	fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPlaylists(container.Metadata))
	return nil
}

func runPlaylistShow(cmd *cobra.Command, args []string) error {
	container, err := client.Playlist(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	if len(container.Metadata) > 0 {
		store.CurrentPlaylist.Set(&container.Metadata[0])
	}

	fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPlaylists(container.Metadata))
	return nil
}

func runPlaylistItems(cmd *cobra.Command, args []string) error {
	opts := plex.RequestOptions{}.WithPage(playlistPage)
	if cmd.Flags().Changed("page-size") {
		opts = opts.WithPageSize(playlistPageSize)
	}

	container, err := client.PlaylistItems(commandContext(cmd), args[0], opts)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), formatter.FormatItems(container.Metadata, container.TotalSize, false))
	return nil
}

func runPlaylistAdd(cmd *cobra.Command, args []string) error {
	container, err := client.AddPlaylistItem(commandContext(cmd), args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Added %s to playlist %s%s\n", args[1], args[0], leafCount(container))
	return nil
}

func runPlaylistRemove(cmd *cobra.Command, args []string) error {
	container, err := client.RemovePlaylistItem(commandContext(cmd), args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed item %s from playlist %s%s\n", args[1], args[0], leafCount(container))
	return nil
}

func runPlaylistMove(cmd *cobra.Command, args []string) error {
	pos := plex.PositionAfter
	if moveBefore {
		pos = plex.PositionBefore
	}

	if _, err := client.MovePlaylistItem(commandContext(cmd), args[0], args[1], args[2], pos); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Moved item %s %s item %s\n", args[1], pos, args[2])
	return nil
}

func runPlaylistCreate(cmd *cobra.Command, args []string) error {
	uri := createURI
	if createMedia != "" {
		uri = client.ItemURI(createMedia)
	}

	container, err := client.CreatePlaylist(commandContext(cmd), args[0], uri)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(container.Metadata) == 0 {
		fmt.Fprintf(out, "✓ Created playlist %q\n", args[0])
		return nil
	}
	fmt.Fprintf(out, "✓ Created playlist %q [%s]\n", container.Metadata[0].Title, container.Metadata[0].RatingKey)
	return nil
}

func runPlaylistUpdate(cmd *cobra.Command, args []string) error {
	params, err := parseKeyValues(updateParams)
	if err != nil {
		return fmt.Errorf("invalid --param: %w", err)
	}
	if updateTitle != "" {
		if params == nil {
			params = make(map[string]string, 1)
		}
		params["title"] = updateTitle
	}
	if len(params) == 0 {
		return fmt.Errorf("nothing to update: pass --title or --param")
	}

	if _, err := client.UpdatePlaylist(commandContext(cmd), args[0], params); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated playlist %s\n", args[0])
	return nil
}

func runPlaylistDelete(cmd *cobra.Command, args []string) error {
	if err := client.DeletePlaylist(commandContext(cmd), args[0]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted playlist %s\n", args[0])
	return nil
}

// leafCount describes the playlist size reported after an edit, if any
func leafCount(container *plex.PlaylistContainer) string {
	if len(container.Metadata) == 0 {
		return ""
	}
	return fmt.Sprintf(" (%d items)", container.Metadata[0].LeafCount)
}
