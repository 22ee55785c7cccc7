package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"crm/internal/auth"
	"crm/internal/bootstrap"
	"crm/internal/cache"
	"crm/internal/config"
	"crm/internal/database"
	"crm/internal/metrics"
	"crm/internal/middleware"
	"crm/internal/router"
	"crm/internal/server"
	"crm/internal/service"
	"crm/internal/store"
	"crm/internal/store/memory"
	"crm/internal/store/mongostore"
	"crm/internal/telemetry"
)

type flags struct {
	envFile string
	port    string
}

func main() {
	var f flags
	fs := pflag.NewFlagSet("crm", pflag.ExitOnError)
	fs.StringVar(&f.envFile, "env-file", "", "path to a .env file (defaults to ./.env when present)")
	fs.StringVar(&f.port, "port", "", "HTTP port, overrides PORT")
	_ = fs.Parse(os.Args[1:])

	app := fx.New(
		fx.Supply(f),
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newMetrics,
			newStores,
			newRedisClient,
			newRosterCache,
			newHasher,
			newTokenManager,
			newRateLimiter,
			service.NewAuthService,
			service.NewUserService,
			service.NewCustomerService,
			router.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(bootstrap.EnsureAdmin, startHTTPServer),
	)

	app.Run()
}

func newConfig(f flags) (config.Config, error) {
	cfg, err := config.Load(f.envFile)
	if err != nil {
		return config.Config{}, err
	}
	if f.port != "" {
		cfg.Port = f.port
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		gin.SetMode(gin.ReleaseMode)
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newMetrics() *metrics.Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.New(reg)
}

type stores struct {
	fx.Out

	Users     store.UserStore
	Customers store.CustomerStore
	Pinger    store.Pinger
}

func newStores(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (stores, error) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		users := memory.NewUserStore()
		return stores{Users: users, Customers: memory.NewCustomerStore(), Pinger: users}, nil
	}

	ctx := context.Background()
	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return stores{}, err
	}
	db := client.Database(cfg.DBName)
	logger.Info("mongodb connected", zap.String("database", db.Name()))

	if err := database.EnsureUserIndexes(ctx, db, logger); err != nil {
		logger.Warn("user index warning", zap.Error(err))
	}
	if err := database.EnsureCustomerIndexes(ctx, db, logger); err != nil {
		logger.Warn("customer index warning", zap.Error(err))
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	})

	users := mongostore.NewUserStore(db)
	return stores{Users: users, Customers: mongostore.NewCustomerStore(db), Pinger: users}, nil
}

// newRedisClient returns nil when REDIS_ADDR is unset.
func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newRosterCache(client redis.UniversalClient, cfg config.Config, logger *zap.Logger) cache.RosterCache {
	if client == nil {
		logger.Info("roster cache disabled")
		return cache.Noop{}
	}
	return cache.NewRedisRoster(client, cfg.RosterCacheTTL)
}

func newHasher(cfg config.Config) *auth.Hasher {
	return auth.NewHasher(cfg.BcryptCost)
}

func newTokenManager(cfg config.Config) *auth.TokenManager {
	return auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
}

func newRateLimiter(cfg config.Config) *middleware.RateLimiter {
	return middleware.NewRateLimiter(cfg.RateLimitRPM)
}

// startHTTPServer runs srv for the app's lifetime. A Run error shuts the
// app down with exit code 1.
func startHTTPServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				defer close(done)
				if err := srv.Run(runCtx, cfg.Addr()); err != nil {
					logger.Error("http server stopped", zap.Error(err))
					if err := shutdowner.Shutdown(fx.ExitCode(1)); err != nil {
						logger.Error("app shutdown", zap.Error(err))
					}
				}
			}()

			logger.Info("http server starting", zap.String("addr", cfg.Addr()))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}
