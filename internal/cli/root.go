package cli

import (
	"context"
	"net/http/cookiejar"
	"net/url"

	"github.com/jrsteele09/carebook-portal/auth"
	"github.com/jrsteele09/carebook-portal/internal/config"
	"github.com/jrsteele09/carebook-portal/internal/logging"
	"github.com/jrsteele09/carebook-portal/portal"
	"github.com/jrsteele09/carebook-portal/sessions"
	"github.com/jrsteele09/carebook-portal/sessions/kvstore"
	"github.com/jrsteele09/carebook-portal/token"
	"github.com/jrsteele09/carebook-portal/token/refresh"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app carries the flags and the session wiring shared by every command
type app struct {
	cfg config.Config

	flagAPIURL    string
	flagTokenURL  string
	flagFolder    string
	flagStorage   string
	flagLogLevel  string
	flagLogFormat string
	flagDebug     bool
	flagNoColor   bool

	logger  zerolog.Logger
	storage kvstore.Store
	manager *auth.Manager
}

// NewRootCmd creates the root cobra command for the carebook CLI.
// Flags default to the values in cfg.
func NewRootCmd(cfg config.Config) *cobra.Command {
	a := &app{cfg: cfg}

	root := &cobra.Command{
		Use:   "carebook",
		Short: "CareBook portal session client",
		Long:  "Sign in to the CareBook booking portal, inspect the session and keep it refreshed.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner(cmd.OutOrStdout(), a.cfg.GetAppName())
			return cmd.Help()
		},
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.flagAPIURL, "api-url", cfg.GetAPIBaseURL(), "Account API base URL (or CAREBOOK_API_URL env)")
	flags.StringVar(&a.flagTokenURL, "token-url", cfg.GetTokenBaseURL(), "Token API base URL (or CAREBOOK_TOKEN_URL env)")
	flags.StringVar(&a.flagFolder, "folder", cfg.GetDataFolder(), "Folder holding the persisted session (or FOLDER env)")
	flags.StringVar(&a.flagStorage, "storage", cfg.GetStorageBackend(), "Session storage backend: file, sqlite or memory (or STORAGE env)")
	flags.StringVar(&a.flagLogLevel, "log-level", cfg.GetLogLevel(), "Log level (debug, info, warn, error, disabled)")
	flags.StringVar(&a.flagLogFormat, "log-format", cfg.GetLogFormat(), "Log format (console, json)")
	flags.BoolVar(&a.flagDebug, "debug", false, "Enable debug logging")
	flags.BoolVar(&a.flagNoColor, "no-color", false, "Disable coloured output")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newRefreshCmd(a),
		newKeepaliveCmd(a),
	)
	return root
}

// open builds the session stack and restores the persisted session
func (a *app) open(cmd *cobra.Command) error {
	if a.flagDebug {
		a.flagLogLevel = "debug"
	}
	a.logger = logging.NewWithWriter(a.flagLogLevel, a.flagLogFormat, cmd.ErrOrStderr())

	origin, err := apiOrigin(a.flagAPIURL)
	if err != nil {
		return err
	}
	storage, err := kvstore.Open(a.flagStorage, a.flagFolder)
	if err != nil {
		return errors.Wrap(err, "failed to open session storage")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		storage.Close()
		return errors.Wrap(err, "failed to create cookie jar")
	}

	decoder := token.NewDecoder(token.WithFallbackLifetime(a.cfg.GetFallbackTokenLifetime()))
	store := sessions.NewStore(storage,
		sessions.WithDecoder(decoder),
		sessions.WithLogger(a.logger),
		sessions.WithSinks(sessions.NewCookieSink(jar, origin, sessions.WithCookieMaxAge(a.cfg.GetCookieMaxAge()))),
	)
	client := portal.NewClient(a.flagAPIURL, a.flagTokenURL, portal.WithLogger(a.logger))
	manager, err := auth.NewManager(store, client,
		auth.WithDecoder(decoder),
		auth.WithScheduler(refresh.NewScheduler(refresh.WithLeadTime(a.cfg.GetRefreshLeadTime()))),
		auth.WithRefreshTokenLifetime(a.cfg.GetDefaultRefreshTokenLifetime()),
		auth.WithLogger(a.logger),
	)
	if err != nil {
		storage.Close()
		return err
	}

	a.storage = storage
	a.manager = manager
	state := manager.Restore(contextOf(cmd))
	a.logger.Debug().Str("state", state.String()).Str("storage", a.flagStorage).Str("env", a.cfg.GetEnv()).Msg("session opened")
	return nil
}

func (a *app) close() error {
	if a.manager != nil {
		a.manager.Close()
	}
	if a.storage != nil {
		return a.storage.Close()
	}
	return nil
}

// apiOrigin reduces the API base URL to the origin cookies are scoped to
func apiOrigin(apiURL string) (*url.URL, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid api url %q", apiURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("api url %q must be absolute", apiURL)
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}, nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
