// Package app assembles the Wanderlate server from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/wanderlate/internal/accounts"
	"github.com/MrEthical07/wanderlate/internal/audit"
	"github.com/MrEthical07/wanderlate/internal/config"
	"github.com/MrEthical07/wanderlate/internal/hotels"
	"github.com/MrEthical07/wanderlate/internal/httpapi"
	"github.com/MrEthical07/wanderlate/internal/rate"
	"github.com/MrEthical07/wanderlate/internal/users"
	"github.com/MrEthical07/wanderlate/jwt"
	"github.com/MrEthical07/wanderlate/metrics"
	"github.com/MrEthical07/wanderlate/middleware"
	"github.com/MrEthical07/wanderlate/password"
	"github.com/MrEthical07/wanderlate/session"
)

// App owns the HTTP server and the connections behind it.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	server   *http.Server
	postgres *pgxpool.Pool
	redis    *goredis.Client
	audit    *audit.Dispatcher
	handler  http.Handler
}

// New builds every component. Codec and password configuration errors are
// returned so the caller can abort startup; an unreachable database only
// degrades the account endpoints.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	codec, err := jwt.NewCodec(jwt.Config{Secret: []byte(cfg.Session.Secret), TTL: cfg.Session.TTL, Issuer: "wanderlate"})
	if err != nil {
		return nil, fmt.Errorf("session codec: %w", err)
	}
	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	pool, err := users.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	if err := users.EnsureSchema(ctx, pool); err != nil {
		log.Warn("postgres schema check failed, continuing in degraded mode", zap.Error(err))
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("redis ping failed, login throttling fails closed until it recovers", zap.Error(err))
	}

	recorder := metrics.New()

	storeOpts := []session.Option{
		session.WithCookieName(cfg.Session.CookieName),
		session.WithWindow(cfg.Session.TTL),
		session.WithSecureCookie(cfg.Session.SecureCookie),
		session.WithLogger(log.Named("session")),
	}
	if cfg.Session.Revocation {
		storeOpts = append(storeOpts, session.WithRevoker(session.NewRedisRevoker(redisClient, cfg.Redis.Prefix)))
	}
	store, err := session.NewStore(codec, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}

	dispatcher := audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, audit.NewZapSink(log))
	var emitter audit.Emitter = audit.NoOpSink{}
	if dispatcher != nil {
		emitter = dispatcher
		recorder.TrackAuditDropped(dispatcher.Dropped)
	}

	limiter := rate.New(redisClient, rate.Config{
		Prefix:           cfg.Redis.Prefix,
		EnableIPThrottle: cfg.Login.EnableIPThrottle,
		MaxLoginAttempts: cfg.Login.MaxAttempts,
		LoginCooldown:    cfg.Login.Cooldown,
	})
	repo := users.NewPostgresRepository(pool)
	accountService, err := accounts.NewService(accounts.Deps{
		Users:   repo,
		Hasher:  hasher,
		Limiter: limiter,
		Audit:   emitter,
		Metrics: recorder,
		Logger:  log.Named("accounts"),
	})
	if err != nil {
		return nil, err
	}

	var searcher httpapi.HotelSearcher
	if cfg.Hotels.Enabled() {
		client, err := hotels.NewClient(hotels.Config{
			BaseURL: cfg.Hotels.BaseURL,
			APIKey:  cfg.Hotels.APIKey,
			Secret:  cfg.Hotels.Secret,
			Timeout: cfg.Hotels.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("hotels client: %w", err)
		}
		searcher = client
	} else {
		log.Warn("hotelbeds credentials missing, hotel search disabled")
	}

	gateCfg := middleware.DefaultGateConfig()
	gateCfg.Locales = cfg.Locale.Supported
	gateCfg.DefaultLocale = cfg.Locale.Default
	gateCfg.Observer = recorder

	handler := httpapi.NewRouter(httpapi.Dependencies{
		Auth:     httpapi.NewAuthHandler(accountService, store, repo, limiter, log.Named("auth")),
		Hotels:   httpapi.NewHotelsHandler(searcher, log.Named("hotels")),
		Gate:     middleware.Gate(store, gateCfg),
		Metrics:  recorder.Handler(),
		Observer: recorder,
		Logger:   log,

		TrustProxy: cfg.HTTP.TrustProxy,
	})

	return &App{
		cfg:      cfg,
		logger:   log,
		postgres: pool,
		redis:    redisClient,
		audit:    dispatcher,
		handler:  handler,
		server: &http.Server{
			Addr:         cfg.HTTP.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
			IdleTimeout:  cfg.HTTP.IdleTimeout,
		},
	}, nil
}

// Run serves until Shutdown is called. A clean shutdown returns nil.
func (a *App) Run() error {
	a.logger.Info("http server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests, then flushes audit events and closes
// the backing stores. Both drains share ctx's deadline.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if err := a.audit.Shutdown(ctx); err != nil {
		a.logger.Warn("audit queue not fully flushed", zap.Uint64("dropped", a.audit.Dropped()), zap.Error(err))
		if shutdownErr == nil {
			shutdownErr = err
		}
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

// Handler returns the routed handler without the listener, for tests.
func (a *App) Handler() http.Handler {
	return a.handler
}
