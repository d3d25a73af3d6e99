// Package server wires the Lango services together and runs the HTTP API.
// It selects the storage backend, prepares its schema, handles graceful
// shutdown and exposes request metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrijs2005/lango/internal/logging"
	"github.com/dmitrijs2005/lango/internal/server/auth"
	"github.com/dmitrijs2005/lango/internal/server/cascade"
	"github.com/dmitrijs2005/lango/internal/server/config"
	"github.com/dmitrijs2005/lango/internal/server/httpapi"
	"github.com/dmitrijs2005/lango/internal/server/store"
	"github.com/dmitrijs2005/lango/internal/server/store/dynamo"
	"github.com/dmitrijs2005/lango/internal/server/store/memory"
	"github.com/dmitrijs2005/lango/internal/server/store/postgres"
	"github.com/dmitrijs2005/lango/internal/server/users"
	"github.com/dmitrijs2005/lango/internal/server/vocab"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	server *http.Server
	closer io.Closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewApp opens the configured store and builds the HTTP server.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, logging.ParseLevel(c.LogLevel))

	table, closer, err := openStore(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	tokens, err := auth.NewTokenService([]byte(c.SecretKey), c.TokenValidityDuration)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("token service: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	del := cascade.New(table, logger)
	repo := users.NewStoreRepository(table, c.UsernameIndexName)
	router := httpapi.NewRouter(httpapi.Deps{
		Users:          users.NewService(repo, tokens, del, logger),
		Vocab:          vocab.NewService(table, del, logger),
		Tokens:         tokens,
		Logger:         logger,
		Metrics:        httpapi.NewMetrics(reg),
		RequestTimeout: c.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              c.EndpointAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       c.RequestTimeout,
		WriteTimeout:      c.RequestTimeout + 5*time.Second,
		IdleTimeout:       time.Minute,
	}

	return &App{config: c, logger: logger, server: srv, closer: closer}, nil
}

// openStore returns the table for the configured backend and whatever has to
// be closed on shutdown.
func openStore(ctx context.Context, c *config.Config, logger logging.Logger) (store.Table, io.Closer, error) {
	switch c.StoreBackend {
	case config.BackendDynamoDB:
		client, err := dynamo.NewClient(ctx, dynamo.ClientOptions{
			Region:          c.AWSRegion,
			Endpoint:        c.DynamoDBEndpoint,
			AccessKeyID:     c.AWSAccessKeyID,
			SecretAccessKey: c.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, nil, err
		}
		table := dynamo.NewTable(client, c.TableName)
		if c.AutoMigrate {
			created, err := table.EnsureTable(ctx, c.UsernameIndexName, users.AttrUsername)
			if err != nil {
				return nil, nil, err
			}
			if created {
				logger.Info(ctx, "table created", "table", c.TableName)
			}
		}
		return table, nopCloser{}, nil

	case config.BackendPostgres:
		db, err := postgres.Open(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		if c.AutoMigrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		return postgres.NewTable(db), db, nil

	case config.BackendMemory:
		logger.Warn(ctx, "using in-memory store, data is lost on exit")
		return memory.New(), nopCloser{}, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", c.StoreBackend)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Handler exposes the HTTP handler, mainly for tests.
func (app *App) Handler() http.Handler {
	return app.server.Handler
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// drains in-flight requests.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)
	app.logger.Info(ctx, "Starting app...", "addr", app.server.Addr, "backend", app.config.StoreBackend)

	errCh := make(chan error, 1)
	go func() {
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "shutdown failed", "error", err)
	}
	if err := app.closer.Close(); err != nil {
		app.logger.Error(shutdownCtx, "store close failed", "error", err)
	}
	app.logger.Info(shutdownCtx, "App stopped")
	return runErr
}
