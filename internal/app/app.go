// Package app wires configuration into a running HTTP service: it picks the
// credential store, connects the optional Redis and Kafka backends, builds
// the services and mounts them on the router.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/99minutos/user-service/internal/api"
	"github.com/99minutos/user-service/internal/core/access"
	"github.com/99minutos/user-service/internal/core/ports"
	"github.com/99minutos/user-service/internal/core/service"
	mongodb "github.com/99minutos/user-service/internal/infrastructure/db/mongo"
	redisdb "github.com/99minutos/user-service/internal/infrastructure/db/redis"
	"github.com/99minutos/user-service/internal/infrastructure/db/sqldb"
	"github.com/99minutos/user-service/internal/infrastructure/http/handlers"
	"github.com/99minutos/user-service/internal/infrastructure/notify"
	"github.com/99minutos/user-service/internal/infrastructure/queue"
	"github.com/99minutos/user-service/internal/pkg/config"
	"github.com/99minutos/user-service/internal/pkg/password"
	"github.com/99minutos/user-service/internal/pkg/token"
)

const shutdownTimeout = 15 * time.Second

type closer func(ctx context.Context) error

// App is a fully wired service ready to serve.
type App struct {
	cfg     *config.Config
	log     zerolog.Logger
	echo    *echo.Echo
	closers []closer
}

// New connects every configured backend and builds the router. On error,
// anything already opened is closed again.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	checks := map[string]handlers.PingFunc{}

	repo, err := a.openStore(ctx, checks)
	if err != nil {
		return nil, err
	}

	var authOpts []service.AuthOption
	redisCfg := redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	if redisCfg.Enabled() {
		client, err := redisdb.Connect(ctx, redisCfg)
		if err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { return client.Close() })
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		authOpts = append(authOpts, service.WithDenylist(redisdb.NewDenylist(client)))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("token revocation enabled")
	}

	table, err := access.LoadTable(cfg.PermissionsFile)
	if err != nil {
		return nil, err
	}

	issuer, err := token.NewIssuer(cfg.JWT.Secret, cfg.JWT.TTL, token.WithIssuer(cfg.JWT.Issuer))
	if err != nil {
		return nil, err
	}
	hasher := password.NewBcrypt(password.Cost)

	authService := service.NewAuthService(repo, hasher, issuer, a.buildNotifier(), service.AuthConfig{
		DefaultRole:       cfg.Auth.DefaultRole,
		AllowRegistration: cfg.Auth.AllowRegistration,
		ResetTokenTTL:     cfg.Auth.ResetTokenTTL,
		DefaultResetURL:   cfg.Auth.ResetURL(),
	}, log, authOpts...)

	a.echo = api.NewRouter(api.Deps{
		Log:          log,
		Auth:         authService,
		Profile:      service.NewProfileService(repo, hasher, log),
		Users:        service.NewUserService(repo, hasher, log),
		Service:      cfg.AppName,
		Access:       table,
		Revocation:   authService.RevocationEnabled(),
		HealthChecks: checks,
	})
	a.echo.Server.ReadTimeout = 10 * time.Second
	a.echo.Server.WriteTimeout = 30 * time.Second
	a.echo.Server.ReadHeaderTimeout = 3 * time.Second

	return a, nil
}

// Handler exposes the router, mainly for tests.
func (a *App) Handler() http.Handler { return a.echo }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	addr := ":" + a.cfg.Port
	errCh := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", addr).Str("store", a.cfg.Store.Driver).Msg("http server starting")
		if err := a.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		_ = a.Close(context.Background())
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.echo.Shutdown(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("http shutdown")
	}
	return a.Close(shutdownCtx)
}

// Close releases backends in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn closer) { a.closers = append(a.closers, fn) }

func (a *App) openStore(ctx context.Context, checks map[string]handlers.PingFunc) (ports.UserRepository, error) {
	cfg := a.cfg
	switch cfg.Store.Driver {
	case config.StoreMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  cfg.AppName,
		})
		if err != nil {
			return nil, err
		}
		a.onClose(client.Disconnect)
		checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }
		return mongodb.NewUserRepository(db), nil

	case config.StorePostgres, config.StoreSQLite:
		sqlCfg := sqldb.Config{Driver: sqldb.DriverPostgres, DSN: cfg.SQL.PostgresDSN}
		if cfg.Store.Driver == config.StoreSQLite {
			sqlCfg = sqldb.Config{Driver: sqldb.DriverSQLite, DSN: cfg.SQL.SQLitePath}
		}
		db, err := sqldb.Open(sqlCfg, a.log)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqldb: %w", err)
		}
		a.onClose(func(context.Context) error { return sqlDB.Close() })
		checks[cfg.Store.Driver] = sqlDB.PingContext
		return sqldb.NewUserRepository(db), nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}

func (a *App) buildNotifier() ports.Notifier {
	var n ports.Notifier = notify.NewLogNotifier(a.log)
	if len(a.cfg.Kafka.Brokers) > 0 {
		kn := notify.NewKafkaNotifier(a.cfg.Kafka.Brokers, a.cfg.Kafka.Topic, a.log)
		a.onClose(func(context.Context) error { return kn.Close() })
		n = kn
		a.log.Info().Strs("brokers", a.cfg.Kafka.Brokers).Str("topic", a.cfg.Kafka.Topic).Msg("kafka notifications enabled")
	}

	if a.cfg.NotifyWorkers == 0 {
		return n
	}

	d := queue.NewDispatcher(a.cfg.NotifyWorkers, n, a.log)
	workerCtx, cancel := context.WithCancel(context.Background())
	d.Start(workerCtx)
	a.onClose(func(context.Context) error {
		d.Stop()
		cancel()
		return nil
	})
	return d
}
