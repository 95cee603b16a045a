package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/plexshelf/config"
	"github.com/s0up4200/plexshelf/filter"
	"github.com/s0up4200/plexshelf/plex"
	"github.com/s0up4200/plexshelf/session"
	"github.com/s0up4200/plexshelf/state"
)

var (
	cfgFile  string
	logLevel string

	cfg       *config.Config
	logger    zerolog.Logger
	sess      *session.Session
	client    *plex.Client
	store     *state.Store
	formatter = plex.NewConsoleFormatter()
	compiler  = filter.NewCompiler()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "plexshelf",
	Short: "Browse Plex libraries and manage playlists from the command line",
	Long: `plexshelf signs in to plex.tv, finds your Plex Media Server and lets you
browse libraries, list movies with sorting, filters and pagination, and
create or edit playlists.`,
	PersistentPreRunE: initializeApp,
	SilenceUsage:      true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging level (debug, info, warn, error)")
}

// initializeApp loads configuration, restores the session and creates the
// Plex client
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger = setupLogger(cfg.Logging, isatty.IsTerminal(os.Stderr.Fd()))

	sessionPath := cfg.Session.Path
	if sessionPath == "" {
		if sessionPath, err = session.DefaultPath(); err != nil {
			return err
		}
	}

	sess = session.New(session.NewFileStore(sessionPath), logger)
	sess.Load(commandContext(cmd))

	if client, err = newClient(cfg.Plex.Concurrency); err != nil {
		return err
	}

	store = newStore(cfg.Sort, sess)

	logger.Debug().Str("session", sessionPath).Msg("Initialized")
	return nil
}

// newClient creates a Plex client from the loaded config
func newClient(concurrency int) (*plex.Client, error) {
	c, err := plex.NewClient(sess, logger,
		plex.WithCloudURL(cfg.Plex.CloudURL),
		plex.WithClientIdentifier(cfg.Plex.ClientIdentifier),
		plex.WithPageSize(cfg.Plex.PageSize),
		plex.WithTimeout(cfg.Plex.Timeout),
		plex.WithConcurrency(concurrency),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Plex client: %w", err)
	}
	return c, nil
}

// initializeLogger is the lightweight pre-run for commands that do not talk
// to Plex
func initializeLogger(cmd *cobra.Command, args []string) error {
	level := logLevel
	if level == "" {
		level = "info"
	}
	logger = setupLogger(config.LoggingConfig{Level: level, Format: "console", Color: true}, isatty.IsTerminal(os.Stderr.Fd()))
	return nil
}

// newStore seeds the observable state from config and the session
func newStore(sort config.SortConfig, sess *session.Session) *state.Store {
	s := state.NewStore()
	s.SortBy.Set(sort.By)
	s.SortDesc.Set(sort.Desc)
	if token, ok := sess.Get(session.ParamToken); ok {
		s.Token.Set(token)
	}
	return s
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig, tty bool) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !tty,
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// commandContext returns the command's context, falling back to Background
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
