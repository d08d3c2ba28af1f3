// Command server runs the auth HTTP API.
//
// @title                       Trading Desk Auth API
// @version                     1.0
// @description                 Registration, login and bearer-token verification.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tradedesk/auth-service/internal/api"
	"github.com/tradedesk/auth-service/internal/api/handler"
	"github.com/tradedesk/auth-service/internal/core/ports"
	"github.com/tradedesk/auth-service/internal/core/service"
	"github.com/tradedesk/auth-service/internal/infrastructure/config"
	mongodb "github.com/tradedesk/auth-service/internal/infrastructure/db/mongo"
	redisdb "github.com/tradedesk/auth-service/internal/infrastructure/db/redis"
	"github.com/tradedesk/auth-service/internal/infrastructure/queue"
	"github.com/tradedesk/auth-service/internal/infrastructure/security"
	"github.com/tradedesk/auth-service/pkg/logger"
)

const serviceName = "auth-service"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// The configured logger does not exist yet.
		bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLog.Fatal().Err(err).Msg("refusing to start: invalid configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: serviceName,
		Env:     cfg.Env,
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  serviceName,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}()
	log.Info().Str("database", cfg.Mongo.Database).Msg("DB connected successfully")

	mongoUsers := mongodb.NewUserRepository(db)
	if err := mongoUsers.EnsureIndexes(ctx); err != nil {
		return err
	}

	var (
		users       ports.UserRepository = mongoUsers
		redisPinger handler.RedisPinger
	)
	if cfg.Redis.Enabled() {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		users = redisdb.NewCachedUserRepository(mongoUsers, rdb, cfg.Redis.CacheTTL, logger.Component("identity_cache"))
		redisPinger = rdb
		log.Info().Str("addr", cfg.Redis.Addr).Msg("identity cache enabled")
	}

	// The pool outlives the signal context so that requests still draining
	// during Shutdown can finish hashing; it stops once run returns.
	poolCtx, stopPool := context.WithCancel(context.Background())
	defer stopPool()
	pool := queue.NewPool(cfg.Auth.HashWorkers, logger.Component("hash_pool"))
	pool.Start(poolCtx)

	hasher, err := security.NewBcryptHasher(cfg.Auth.BcryptCost, pool)
	if err != nil {
		return err
	}
	tokens, err := security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	authService := service.NewAuthService(users, hasher, tokens, logger.Component("auth_service"))
	if err := authService.WarmUp(ctx); err != nil {
		log.Warn().Err(err).Msg("auth warm-up failed; retrying on first unknown-email login")
	}

	e := api.NewRouter(api.Deps{
		Env:           cfg.Env,
		AuthService:   authService,
		Users:         users,
		Tokens:        tokens,
		LookupTimeout: cfg.Auth.LookupTimeout,
		Mongo:         mongoClient,
		Redis:         redisPinger,
		Logger:        log,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("addr", cfg.Addr()).
			Int("hash_workers", pool.Size()).
			Dur("token_ttl", cfg.Auth.TokenTTL).
			Msg("server listening")
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
