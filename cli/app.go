package cli

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inkwell-editor/inkwell/auth"
	"github.com/inkwell-editor/inkwell/config"
	"github.com/inkwell-editor/inkwell/errors"
	"github.com/inkwell-editor/inkwell/gh"
	"github.com/inkwell-editor/inkwell/logging"
	"github.com/inkwell-editor/inkwell/state"
)

// App bundles the wired-up core components behind a command.
type App struct {
	Config   *config.Config
	Store    *state.Store
	Sessions *auth.Manager
	Errors   *ErrorHandler
	Log      *logrus.Logger
}

// NewApp loads configuration and constructs the session manager and its API
// client for a command invocation.
func NewApp(cmd *cobra.Command) (*App, error) {
	opts := GetOptions(cmd)

	var cfg *config.Config
	var err error
	if opts.ConfigFile != "" {
		cfg, err = config.Load(opts.ConfigFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}

	// Let loggers created from here on pick up the config's logging section.
	logging.SetExtensionLoader(cfg.UnmarshalExtension)

	store := state.NewStore()
	sessions := auth.NewManager(cfg.Auth, cfg.Provider.APIBaseURL, store)

	handler := NewErrorHandler(opts.Verbose)
	handler.OnAuthExpired = sessions.Invalidate

	return &App{
		Config:   cfg,
		Store:    store,
		Sessions: sessions,
		Errors:   handler,
		Log:      GetLogger(cmd),
	}, nil
}

// API returns the client bound to the session manager's token.
func (a *App) API() *gh.Client {
	return a.Sessions.API()
}

// RequireSession restores the persisted session and fails with a sign-in
// hint when there is none.
func (a *App) RequireSession(ctx context.Context) (*auth.Session, error) {
	session, err := a.Sessions.Restore(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errors.New(errors.ErrCodeAuthExpired, "not signed in; run 'inkwell login'")
	}
	return session, nil
}
