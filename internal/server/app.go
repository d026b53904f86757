// Package server initializes and runs the application server. It wires
// configuration, storage, services, and the HTTP endpoint, and handles
// graceful shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dkolesov/todovault/internal/logging"
	"github.com/dkolesov/todovault/internal/server/config"
	"github.com/dkolesov/todovault/internal/server/httpapi"
	"github.com/dkolesov/todovault/internal/server/repositories/repomanager"
	"github.com/dkolesov/todovault/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	tokenService *services.TokenService
	userService  *services.UserService
	todoService  *services.TodoService
}

func NewApp(cfg *config.Config) (*App, error) {
	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()

	ts := services.NewTokenService(db, m, cfg)
	us := services.NewUserService(db, m, ts)
	tds := services.NewTodoService(db, m)

	return &App{
		config:       cfg,
		logger:       logger,
		db:           db,
		repomanager:  m,
		tokenService: ts,
		userService:  us,
		todoService:  tds,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) router() http.Handler {
	cookies := httpapi.CookieConfig{
		Secure:     app.config.SecureCookies,
		AccessTTL:  app.config.AccessTokenValidityDuration,
		RefreshTTL: app.config.RefreshTokenValidityDuration,
	}

	users := httpapi.NewUserHandler(app.userService, app.tokenService, cookies, app.logger)
	todos := httpapi.NewTodoHandler(app.todoService, app.logger)
	gate := httpapi.NewAuthGate(app.tokenService, app.userService, app.logger)

	return httpapi.NewRouter(users, todos, gate, app.logger)
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app")
	app.initSignalHandler(cancelFunc)

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	// Heal any user↔todo links broken by a crash mid-transaction before
	// taking traffic.
	orphans, dangling, err := app.todoService.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconcile error: %w", err)
	}
	if orphans > 0 || dangling > 0 {
		app.logger.Warn(ctx, "repaired broken ownership links",
			"orphans", orphans, "dangling", dangling)
	}

	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: app.router(),
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "listening", "addr", app.config.EndpointAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "err", err.Error())
	}
	return nil
}
