package cmd

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/s0up4200/plexshelf/filter"
	"github.com/s0up4200/plexshelf/plex"
)

var (
	libraryConcurrency int

	moviePage     int
	moviePageSize int
	movieSort     string
	movieDesc     bool
	movieFilters  []string
	movieParams   []string
	movieWhere    string
	moviePreset   string
	movieDetails  bool
)

var librariesCmd = &cobra.Command{
	Use:   "libraries",
	Short: "List library sections with their item counts",
	Args:  cobra.NoArgs,
	RunE:  runLibraries,
}

var libraryCmd = &cobra.Command{
	Use:   "library <id>",
	Short: "Show a library section",
	Args:  cobra.ExactArgs(1),
	RunE:  runLibrary,
}

var filtersCmd = &cobra.Command{
	Use:   "filters <libraryID> <type>",
	Short: "List the values of a library filter such as genre, year or decade",
	Args:  cobra.ExactArgs(2),
	RunE:  runFilters,
}

var moviesCmd = &cobra.Command{
	Use:   "movies <libraryID>",
	Short: "List the items of a library",
	Long: `List the items of a library section, one page at a time.

Server-side options:
  --sort titleSort --desc          sort by a field, descending
  --filter genre=22                narrow by a library filter (repeatable)
  --param unwatched=1              pass any query parameter through (repeatable)

Client-side expression filter, applied to the fetched page:
  --where 'hasGenre("action") and Year > 2000 and not Watched'
  --preset unwatched               use an expression saved under filters: in config

Available in expressions: Title, Year, Rating, AudienceRating, ViewCount,
Watched, Added, LastViewed, Runtime (minutes), Genres, Directors, Actors,
Collections, Countries, Studio, ContentRating and the helpers hasGenre,
hasDirector, hasActor, hasCollection, hasCountry, daysSince, daysAgo,
monthsAgo, yearsAgo, parseDate, contains, startsWith, endsWith.`,
	Args: cobra.ExactArgs(1),
	RunE: runMovies,
}

func init() {
	librariesCmd.Flags().IntVar(&libraryConcurrency, "concurrency", 0, "parallel count requests (default from config)")

	moviesCmd.Flags().IntVar(&moviePage, "page", 1, "page number, starting at 1")
	moviesCmd.Flags().IntVar(&moviePageSize, "page-size", 0, "items per page (default from config)")
	moviesCmd.Flags().StringVar(&movieSort, "sort", "", "sort field (default from config)")
	moviesCmd.Flags().BoolVar(&movieDesc, "desc", false, "sort descending")
	moviesCmd.Flags().StringArrayVar(&movieFilters, "filter", nil, "library filter as key=value")
	moviesCmd.Flags().StringArrayVar(&movieParams, "param", nil, "extra query parameter as key=value")
	moviesCmd.Flags().StringVarP(&movieWhere, "where", "w", "", "client-side filter expression")
	moviesCmd.Flags().StringVarP(&moviePreset, "preset", "p", "", "use a preset filter from config")
	moviesCmd.Flags().BoolVar(&movieDetails, "details", true, "show genres, dates and ratings")

	rootCmd.AddCommand(librariesCmd, libraryCmd, filtersCmd, moviesCmd)
}

func runLibraries(cmd *cobra.Command, args []string) error {
	c := client
	if cmd.Flags().Changed("concurrency") {
		var err error
		if c, err = newClient(libraryConcurrency); err != nil {
			return err
		}
	}

	var libraries []plex.Directory
	err := store.Track(func() error {
		var err error
		libraries, err = c.Libraries(commandContext(cmd))
		return err
	})
	if err != nil {
		return err
	}
	store.Libraries.Set(libraries)

	fmt.Fprint(cmd.OutOrStdout(), formatter.FormatLibraries(libraries))
	return nil
}

func runLibrary(cmd *cobra.Command, args []string) error {
	container, err := client.Library(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	store.SelectLibrary(args[0])

	title := container.Title1
	if title == "" {
		title = "Library " + args[0]
	}
	fmt.Fprint(cmd.OutOrStdout(), formatter.FormatDirectories(title, container.Directory))
	return nil
}

func runFilters(cmd *cobra.Command, args []string) error {
	filterType := strings.TrimSpace(args[1])
	if filterType == "" {
		return fmt.Errorf("a filter type is required")
	}

	container, err := client.LibraryFilterValues(commandContext(cmd), args[0], filterType)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), formatter.FormatDirectories(capitalize(filterType), container.Directory))
	return nil
}

// capitalize upper-cases the first rune of s
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToTitle(r)) + s[size:]
}

func runMovies(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("sort") {
		store.SortBy.Set(movieSort)
	}
	if cmd.Flags().Changed("desc") {
		store.SortDesc.Set(movieDesc)
	}

	opts, err := movieOptions(cmd)
	if err != nil {
		return err
	}

	expression, err := filterExpression()
	if err != nil {
		return err
	}

	// reject bad expressions before any request; the compile is cached
	if expression != "" {
		if _, err := compiler.Compile(expression); err != nil {
			return fmt.Errorf("invalid filter expression: %w", err)
		}
	}

	store.SelectLibrary(args[0])

	ctx := commandContext(cmd)
	var container *plex.MediaContainer
	err = store.Track(func() error {
		var err error
		container, err = client.Movies(ctx, args[0], opts)
		return err
	})
	if err != nil {
		return err
	}

	if opts.PageSize != nil && *opts.PageSize == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Total items: %d\n", container.TotalSize)
		return nil
	}

	items := container.Metadata
	if expression != "" {
		if items, err = filter.CompileAndSelect(ctx, compiler, expression, items); err != nil {
			return err
		}
		logger.Debug().
			Str("filter", expression).
			Int("matched", len(items)).
			Int("fetched", len(container.Metadata)).
			Msg("Applied filter")
	}

	fmt.Fprint(cmd.OutOrStdout(), formatter.FormatItems(items, container.TotalSize, movieDetails))
	return nil
}

// movieOptions builds request options from the movies flags and the
// current sort state. An explicit --page-size is passed through as given,
// so 0 asks for a count only and negatives fail validation.
func movieOptions(cmd *cobra.Command) (plex.RequestOptions, error) {
	opts := plex.RequestOptions{}.WithPage(moviePage)
	if cmd.Flags().Changed("page-size") {
		opts = opts.WithPageSize(moviePageSize)
	}
	opts = opts.WithSort(store.SortFilter.Get())

	for _, pair := range movieFilters {
		key, value, err := parseKeyValue(pair)
		if err != nil {
			return opts, fmt.Errorf("invalid --filter: %w", err)
		}
		opts = opts.WithFilter(key, value)
	}

	params, err := parseKeyValues(movieParams)
	if err != nil {
		return opts, fmt.Errorf("invalid --param: %w", err)
	}
	for k, v := range params {
		opts = opts.WithParam(k, v)
	}

	return opts, opts.Validate()
}

// filterExpression determines the client-side filter to use
func filterExpression() (string, error) {
	// Priority: command line expression > preset
	if movieWhere != "" {
		return movieWhere, nil
	}
	if moviePreset != "" {
		return cfg.Preset(moviePreset)
	}
	return "", nil
}
