package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"diamond_tma/internal/config"
	"diamond_tma/internal/db"
	"diamond_tma/internal/domain"
	"diamond_tma/internal/events"
	httpServer "diamond_tma/internal/http"
	"diamond_tma/internal/http/handlers"
	"diamond_tma/internal/logger"
	"diamond_tma/internal/ratelimit"
	"diamond_tma/internal/repository"
	"diamond_tma/internal/revocation"
	"diamond_tma/internal/service"
	"diamond_tma/internal/telegram"
	"diamond_tma/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.Log.Level, cfg.Log.JSON)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.PingFunc{}

	var (
		profiles service.ProfileStore = repository.NewMemoryProfileRepository()
		audits   service.AuditStore   = repository.NewMemoryAuditRepository()
	)
	if cfg.DatabaseURL != "" {
		pool := db.Connect(ctx, cfg.DatabaseURL)
		defer pool.Close()
		profiles = repository.NewProfileRepository(pool)
		audits = repository.NewAuditRepository(pool)
		checks["database"] = pool.Ping
	} else {
		logger.Warn("DATABASE_URL not set, profiles and audit logs are kept in memory")
	}

	var (
		guard   ratelimit.Guard  = ratelimit.NewSlidingWindow()
		revoked revocation.Store = revocation.NewMemoryStore()
		rdb     *redis.Client
	)
	if cfg.Redis.Addr != "" {
		rdb = connectRedis(ctx, cfg.Redis)
		if rdb != nil {
			defer rdb.Close()
			guard = ratelimit.NewRedisGuard(rdb)
			revoked = revocation.NewRedisStore(rdb)
			checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		}
	}

	tokens, err := service.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.BotToken, cfg.Auth.JWTIssuer, cfg.Auth.SessionTTL)
	if err != nil {
		logger.Fatal("failed to create token issuer", "error", err)
	}

	hub := ws.NewHub()
	deps := service.AuthDeps{
		Validator: telegram.NewValidator(cfg.Auth.BotToken, cfg.Auth.InitDataMaxAge),
		Sessions:  service.NewSessionIssuer(tokens, profiles),
		Revoked:   revoked,
		Audit:     service.NewAuditService(audits),
		Mock: service.MockConfig{
			Enabled: cfg.Auth.MockEnabled,
			Identity: domain.Identity{
				TelegramID: cfg.Auth.MockTelegramID,
				FirstName:  cfg.Auth.MockFirstName,
			},
		},
	}

	if cfg.Events.Enabled {
		ps := newPubSub(rdb)
		defer ps.Close()
		deps.Events = events.NewPublisher(ps)

		go func() {
			if err := hub.Run(ctx, ps); err != nil {
				logger.Error("revocation hub stopped", "error", err)
			}
		}()
	}

	auth := service.NewAuthService(deps)

	r := httpServer.NewRouter(httpServer.Deps{
		Auth:           auth,
		Guard:          guard,
		Hub:            hub,
		Health:         handlers.NewHealthHandler(version, checks),
		RateLimit:      cfg.RateLimit,
		AllowedOrigin:  cfg.AllowedOrigin,
		TrustedProxies: cfg.TrustedProxies,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "env", cfg.Env, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited")
}

// connectRedis returns nil when Redis is unreachable; callers fall back to
// in-process stores.
func connectRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, using in-memory rate limits and revocations", "addr", cfg.Addr, "error", err)
		_ = client.Close()
		return nil
	}

	logger.Info("redis connected", "addr", cfg.Addr)
	return client
}

// newPubSub fans events out across instances through Redis Streams when
// Redis is available.
func newPubSub(rdb *redis.Client) events.PubSub {
	if rdb != nil {
		ps, err := events.NewRedisStream(rdb, logger.Get())
		if err == nil {
			return ps
		}
		logger.Warn("redis stream transport unavailable, using in-process events", "error", err)
	}
	return events.NewInProcess(logger.Get())
}
