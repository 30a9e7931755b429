// Package app wires the relay server runtime: config, logging, HTTP routes,
// the chat engine, and its persistence backends.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"relay/cmd/identity"
	"relay/cmd/internal/chat"
	"relay/cmd/internal/register"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App owns HTTP server wiring and the chat engine's shared state.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	bus      *chat.Bus
	history  chat.HistoryStore
	gateway  *chat.Gateway
	register *register.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogPretty)
	}

	dbPool, history, users, err := newStores(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	presence := chat.NewPresence()
	bus := chat.NewBus(log, cfg.BusQueueSize)
	router := chat.NewRouter(log, history)

	gateway := chat.NewGateway(log, presence, bus, router, history,
		chat.WithWriteTimeout(cfg.WSWriteTimeout),
		chat.WithOriginPatterns(cfg.WSOriginPatterns),
		chat.WithDevInsecure(cfg.WSDevInsecure),
	)

	return &App{
		cfg:       cfg,
		log:       log,
		dbPool:    dbPool,
		dbEnabled: dbPool != nil,
		bus:       bus,
		history:   history,
		gateway:   gateway,
		register:  register.NewHandler(log, users),
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.gateway, a.register)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log),
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
		IdleTimeout:       a.cfg.IdleTimeout,
		MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
	}

	// Drop every subscriber so session write loops terminate, then release
	// persistence resources.
	a.bus.Close()
	if err := a.history.Close(); err != nil {
		a.log.Error("history.close.fail", "err", err)
	}
	if a.dbPool != nil {
		a.dbPool.Close()
	}

	a.log.Info("server.stopped")
	return nil
}

// newStores decides between Postgres-backed persistence and the in-memory
// dev stores.
func newStores(ctx context.Context, cfg Config, log Logger) (*pgxpool.Pool, chat.HistoryStore, identity.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_stores")
		return nil, chat.NewMemoryStore(), identity.NewMemoryStore(), nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := EnsureSchema(ctx, pool, cfg.DBSchema); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	history, err := chat.NewPostgresStore(pool, chat.WithSchema(cfg.DBSchema))
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	users, err := identity.NewPostgresStore(pool, identity.WithSchema(cfg.DBSchema))
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	log.Info("db.enabled.postgres_stores")
	return pool, history, users, nil
}
