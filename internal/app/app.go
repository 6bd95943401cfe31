package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"marketplace/internal/config"
	"marketplace/internal/controller"
	"marketplace/internal/notify"
	"marketplace/internal/repository"
	"marketplace/internal/repository/sqlite"
	"marketplace/internal/router"
	"marketplace/internal/service"
)

// Store is everything the app needs from an Entity Store implementation.
type Store interface {
	service.Repository
	notify.ConversationStore
	Close() error
}

type App struct {
	repo       Store
	rdb        *redis.Client
	service    *service.Service
	controller *controller.Controller
	logger     *slog.Logger
	stopSig    chan os.Signal
	cfg        *config.Config
	addr       net.Addr

	Ready chan struct{}
	Done  chan struct{}
}

type option func(*App)

func WithConfig(cfg *config.Config) option {
	return func(app *App) {
		app.cfg = cfg
	}
}

func WithLogger(logger *slog.Logger) option {
	return func(app *App) {
		app.logger = logger
	}
}

func NewApp(opts ...option) (*App, error) {
	var err error

	app := &App{
		stopSig: make(chan os.Signal, 2),
		Ready:   make(chan struct{}),
		Done:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.cfg == nil {
		app.cfg, err = config.NewConfig()
		if err != nil {
			return nil, err
		}
	}

	if app.logger == nil {
		app.logger, err = NewLogger(app.cfg)
		if err != nil {
			return nil, err
		}
	}

	app.repo, err = OpenStore(app.cfg)
	if err != nil {
		return nil, err
	}

	notifyOpts := []notify.Option{notify.WithLogger(app.logger)}
	app.rdb = notify.NewRedis(app.cfg.RedisConfig)
	if app.rdb != nil {
		notifyOpts = append(notifyOpts, notify.WithPublisher(app.rdb, app.cfg.Channel))
	}

	app.service = service.NewService(app.repo,
		service.WithLogger(app.logger),
		service.WithStoreTimeout(app.cfg.StoreTimeout),
		service.WithNotifier(notify.NewConversationNotifier(app.repo, notifyOpts...)),
	)
	app.controller = controller.NewController(app.service, app.logger)

	return app, nil
}

// NewLogger builds the process logger from LOG_LEVEL.
func NewLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, fmt.Errorf("app.NewLogger: %w", err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// OpenStore opens the Entity Store selected by STORE_DRIVER.
func OpenStore(cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		repo, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("app.OpenStore: %w", err)
		}
		return repo, nil
	case config.DriverPostgres:
		repo, err := repository.NewRepository(nil, &cfg.PostgresConfig)
		if err != nil {
			return nil, fmt.Errorf("app.OpenStore: %w", err)
		}
		return repo, nil
	}
	return nil, fmt.Errorf("app.OpenStore: unknown store driver %q", cfg.StoreDriver)
}

func (app *App) Service() *service.Service {
	return app.service
}

// Addr is the address the server listens on. It is set once Ready is closed.
func (app *App) Addr() string {
	if app.addr == nil {
		return app.cfg.ServerAddress
	}
	return app.addr.String()
}

// Stop asks a running app to shut down and waits until it has.
func (app *App) Stop() {
	app.stopSig <- os.Interrupt
	<-app.Done
}

func (app *App) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer close(app.Done)

	go func() {
		signal.Notify(app.stopSig, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		sig := <-app.stopSig
		signal.Stop(app.stopSig)
		app.logger.Info("received signal", "signal", sig)
		cancel()
	}()

	server := http.Server{
		Handler:      router.NewRouter(app.controller),
		ReadTimeout:  app.cfg.HTTPReadTimeout,
		WriteTimeout: app.cfg.HTTPWriteTimeout,
	}

	listener, err := net.Listen("tcp", app.cfg.ServerAddress)
	if err != nil {
		app.logger.Error("could not listen", "addr", app.cfg.ServerAddress, "err", err)
		app.close()
		return
	}
	app.addr = listener.Addr()

	go func() {
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("http server error", "err", err)
		}
	}()

	app.logger.Info("server started, listening for connections", "addr", app.addr.String(), "store", app.cfg.StoreDriver)
	close(app.Ready)
	<-ctx.Done()

	timeout, tcancel := context.WithTimeout(context.Background(), app.cfg.ShutdownTimeout)
	defer tcancel()
	app.logger.Info("shutting down http server")
	if err = server.Shutdown(timeout); err != nil {
		app.logger.Error("http server shutdown error", "err", err)
	}

	app.close()
	app.logger.Info("exiting app")
}

func (app *App) close() {
	app.logger.Info("closing repository")
	err := app.repo.Close()
	if app.rdb != nil {
		err = errors.Join(err, app.rdb.Close())
	}
	if err != nil {
		app.logger.Error("closing error", "err", err)
	}
}
