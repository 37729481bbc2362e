package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"tally/internal/config"
	apphttp "tally/internal/http"
	"tally/internal/repository"
	"tally/internal/repository/postgres"
	"tally/internal/repository/sqlite"
	"tally/internal/service"
	"tally/internal/session"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("unknown log level %q, keeping %s", cfg.Log.Level, logger.GetLevel())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, closeUsers, err := openUserRepository(ctx, cfg)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer closeUsers()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = users.Ping(pingCtx)
	cancel()
	if err != nil {
		logger.Fatalf("database unavailable: %v", err)
	}
	if err := users.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	logger.Infof("using %s credential store", cfg.Database.Driver)

	store, closeStore, err := openSessionStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("setup session store: %v", err)
	}
	defer closeStore()
	logger.Infof("using %s session store", cfg.Session.Store)

	sessions, err := session.NewManager(store, session.Options{
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.Secure,
		Secret:     []byte(cfg.Session.Secret),
	})
	if err != nil {
		logger.Fatalf("setup session manager: %v", err)
	}

	hasher, err := service.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatalf("setup password hasher: %v", err)
	}

	authService := service.NewAuthService(users, hasher, sessions)
	counterService := service.NewCounterService(users)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	checks := []apphttp.HealthChecker{users}
	if hc, ok := store.(apphttp.HealthChecker); ok {
		checks = append(checks, hc)
	}
	handler := apphttp.NewHandler(authService, counterService, sessions, logger, checks...)
	if cfg.Metrics.Enabled {
		metrics, err := apphttp.NewHTTPMetrics(prometheus.DefaultRegisterer)
		if err != nil {
			logger.Fatalf("setup metrics: %v", err)
		}
		handler.EnableMetrics(metrics, prometheus.DefaultGatherer)
	}
	if err := handler.RegisterRoutes(router); err != nil {
		logger.Fatalf("register routes: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func openUserRepository(ctx context.Context, cfg config.Config) (repository.UserRepository, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pool, err := postgres.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewUserRepository(pool), pool.Close, nil
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewUserRepository(db), func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

func openSessionStore(ctx context.Context, cfg config.Config) (session.Store, func(), error) {
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		client, err := session.DialRedis(ctx, session.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return session.NewRedisStore(client, cfg.Redis.KeyPrefix), func() { _ = client.Close() }, nil
	case config.SessionStoreMemory:
		return session.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported session store %q", cfg.Session.Store)
	}
}
