package cli

import (
	"bufio"
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/demomiru/minicrm/internal/client/config"
	"github.com/demomiru/minicrm/internal/client/identity"
	"github.com/demomiru/minicrm/internal/client/remote"
	"github.com/demomiru/minicrm/internal/client/repositories/session"
	"github.com/demomiru/minicrm/internal/client/services"
	"github.com/demomiru/minicrm/internal/logging"

	_ "modernc.org/sqlite"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config          *config.Config
	db              *sql.DB
	authService     services.AuthService
	customerService services.CustomerService
	logger          logging.Logger
	userName        string
	Mode            Mode
	reader          *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	db, err := InitDatabase(ctx, c.DatabaseDSN)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	sessions := session.NewSQLiteRepository(db)
	provider := identity.NewSessionProvider(sessions)
	store := remote.NewHTTPStore(c.ServerEndpointAddr, provider.Token)

	as := services.NewAuthService(store, sessions, logger)
	cs := services.NewCustomerService(db, store, provider, logger)

	app := &App{
		config:          c,
		db:              db,
		authService:     as,
		customerService: cs,
		logger:          logger,
		reader:          bufio.NewReader(os.Stdin),
	}

	// restore the login name cached by a previous session
	if login, err := as.CurrentLogin(ctx); err == nil {
		app.userName = login
	}

	return app, nil
}

func (a *App) setMode(mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		printlnFn("Switched to", string(mode), "mode")
	}
}

func (a *App) Run(ctx context.Context) {
	defer a.authService.Close(ctx)
	defer a.db.Close()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}

// StartOnlineStatusWatcher periodically probes server reachability and flips
// the Mode shown in the prompt.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := a.authService.Ping(pingCtx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}
