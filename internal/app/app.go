// Package app initializes and runs the user list server.
// It configures logging, storage, the default list source, rendering and routing,
// and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/userlist/internal/config"
	"github.com/patric-chuzhbe/userlist/internal/db/jsondb"
	"github.com/patric-chuzhbe/userlist/internal/db/memorystorage"
	"github.com/patric-chuzhbe/userlist/internal/db/postgresdb"
	"github.com/patric-chuzhbe/userlist/internal/db/storage"
	"github.com/patric-chuzhbe/userlist/internal/echo"
	"github.com/patric-chuzhbe/userlist/internal/logger"
	"github.com/patric-chuzhbe/userlist/internal/models"
	"github.com/patric-chuzhbe/userlist/internal/placeholder"
	"github.com/patric-chuzhbe/userlist/internal/render"
	"github.com/patric-chuzhbe/userlist/internal/router"
	"github.com/patric-chuzhbe/userlist/internal/service"
	"github.com/patric-chuzhbe/userlist/internal/writer"
)

const (
	writerQueueCapacity = 100
	shutdownTimeout     = 10 * time.Second
)

// App encapsulates the configuration, HTTP handler, storage backend
// and background workers needed to run the server.
type App struct {
	cfg         *config.Config
	db          storage.Storage
	hub         *echo.Hub
	stopWriter  context.CancelFunc
	httpHandler http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - starting the serializing writer when it is enabled
// - loading the server-side renderer
// - setting up the router and middleware
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	var executor *writer.Writer
	if app.cfg.SerializeWrites {
		executor = writer.New(writerQueueCapacity)
		writerRunCtx, stopWriter := context.WithCancel(context.Background())
		app.stopWriter = stopWriter
		executor.Run(writerRunCtx)
	}

	var svc *service.Service
	fetcher := placeholder.New(app.cfg.PlaceholderURL, app.cfg.FetchTimeout)
	if executor != nil {
		svc = service.New(app.db, fetcher, executor)
	} else {
		svc = service.New(app.db, fetcher, nil)
	}

	renderer, err := render.NewTemplateRenderer(resolvePath(app.cfg.SSRBundle))
	if err != nil {
		return nil, app.abort(err)
	}
	shell, err := render.NewShell(app.cfg.DocumentTitle)
	if err != nil {
		return nil, app.abort(err)
	}
	documents, err := render.NewHandler(shell, renderer)
	if err != nil {
		return nil, app.abort(err)
	}

	routerOptions := []router.InitOption{
		router.WithExposedUserID(app.cfg.ExposedUserID),
		router.WithBodyLimit(app.cfg.BodyLimit),
		router.WithDocuments(documents),
	}
	if app.cfg.AssetsDir != "" {
		routerOptions = append(routerOptions, router.WithAssetsDir(resolvePath(app.cfg.AssetsDir)))
	}
	if app.cfg.EnableSockets {
		app.hub = echo.NewHub()
		routerOptions = append(routerOptions, router.WithSockets(app.hub))
	}

	app.httpHandler = router.New(svc, routerOptions...)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infoln(
		"server running",
		"RunAddr", a.cfg.RunAddr,
		"sockets", a.cfg.EnableSockets,
		"serializeWrites", a.cfg.SerializeWrites,
	)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Closing connections and exiting...")
		if a.hub != nil {
			if err := a.hub.Close(); err != nil {
				logger.Log.Errorln("Error calling the `a.hub.Close()`:", zap.Error(err))
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		if a.stopWriter != nil {
			a.stopWriter()
		}

		return a.db.Close()

	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

// abort releases what New has acquired so far.
func (a *App) abort(cause error) error {
	if a.stopWriter != nil {
		a.stopWriter()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return errors.Join(cause, err)
		}
	}

	return cause
}

// resolvePath makes a relative path relative to the directory of the executable.
func resolvePath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}

	executable, err := os.Executable()
	if err != nil {
		logger.Log.Warnln("unable to locate the executable, using the working directory", zap.Error(err))
		return name
	}

	return filepath.Join(filepath.Dir(executable), name)
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
			resolvePath(cfg.MigrationsDir),
		)

	case models.StorageTypeFile:
		return jsondb.New(resolvePath(cfg.DBFileName))
	}

	return memorystorage.New()
}
