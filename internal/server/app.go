// Package server initializes and runs the document-store server: it opens
// the PostgreSQL database, applies migrations, and serves the REST API with
// graceful shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/demomiru/minicrm/internal/common"
	"github.com/demomiru/minicrm/internal/dbx"
	"github.com/demomiru/minicrm/internal/logging"
	"github.com/demomiru/minicrm/internal/server/config"
	"github.com/demomiru/minicrm/internal/server/migrations"
	"github.com/demomiru/minicrm/internal/server/repositories/documents"
	"github.com/demomiru/minicrm/internal/server/repositories/users"
	"github.com/demomiru/minicrm/internal/server/rest"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	rest   *rest.Server
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if c.SecretKey == "" {
		secret, err := common.MakeRandHexString(32)
		if err != nil {
			return nil, fmt.Errorf("secret generation error: %w", err)
		}
		c.SecretKey = secret
		logger.Warn(context.Background(), "no JWT secret configured, generated an ephemeral one; tokens will not survive a restart")
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	inTx := func(ctx context.Context, fn func(docs documents.Repository) error) error {
		return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return fn(documents.NewPostgresRepository(tx))
		})
	}

	restServer := rest.NewServer(c,
		users.NewPostgresRepository(db),
		documents.NewPostgresRepository(db),
		inTx,
		logger,
	)

	return &App{config: c, logger: logger, db: db, rest: restServer}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "addr", app.config.EndpointAddr)

	app.initSignalHandler(cancelFunc)

	if err := app.rest.Run(ctx); err != nil {
		app.logger.Error(ctx, "server error", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "error closing database", "error", err)
	}
}
