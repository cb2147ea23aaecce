// @title                       hub-auth API
// @version                     1.0
// @description                 Discord login, session and role service for the translation hub.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/translation-hub/hub-auth/docs"
	"github.com/translation-hub/hub-auth/internal/api"
	"github.com/translation-hub/hub-auth/internal/api/handler"
	"github.com/translation-hub/hub-auth/internal/core/domain"
	"github.com/translation-hub/hub-auth/internal/core/ports"
	"github.com/translation-hub/hub-auth/internal/core/service"
	"github.com/translation-hub/hub-auth/internal/infrastructure/crypto"
	"github.com/translation-hub/hub-auth/internal/infrastructure/db/memory"
	mongodb "github.com/translation-hub/hub-auth/internal/infrastructure/db/mongo"
	redisdb "github.com/translation-hub/hub-auth/internal/infrastructure/db/redis"
	"github.com/translation-hub/hub-auth/internal/infrastructure/db/sqlite"
	"github.com/translation-hub/hub-auth/internal/infrastructure/discord"
	"github.com/translation-hub/hub-auth/internal/infrastructure/queue"
	"github.com/translation-hub/hub-auth/internal/pkg/config"
	"github.com/translation-hub/hub-auth/pkg/logger"
)

const (
	pruneInterval   = time.Minute
	syncInterval    = 5 * time.Second
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "hub-auth",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	backend, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backend.close()

	var sealer ports.TokenSealer
	if cfg.Session.SealKey != "" {
		s, err := crypto.NewSealerFromBase64(cfg.Session.SealKey)
		if err != nil {
			return err
		}
		sealer = s
	} else if cfg.IsProduction() {
		log.Warn().Msg("TOKEN_SEAL_KEY not set, provider tokens are stored unencrypted")
	}

	oauth := discord.New(discord.Config{
		ClientID:     cfg.Discord.ClientID,
		ClientSecret: cfg.Discord.ClientSecret,
		GuildID:      cfg.Discord.GuildID,
		RedirectURI:  cfg.Discord.RedirectURI,
		APIBase:      cfg.Discord.APIBase,
	})

	// Audit trail (optional).
	var (
		auditor ports.LoginAuditor
		history ports.LoginHistory
	)
	workers, workersCancel := context.WithCancel(context.Background())
	defer workersCancel()
	var dispatcher *queue.Dispatcher
	if cfg.Audit.Enabled {
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Audit.MongoURI, Database: cfg.Audit.MongoDB})
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.Background()) }()

		repo := mongodb.NewLoginRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Warn().Err(err).Msg("login audit index not created")
		}
		dispatcher = queue.NewDispatcher(cfg.Audit.Workers, repo, logger.Component("audit"))
		dispatcher.Start(workers)
		auditor, history = dispatcher, repo
		backend.health["mongodb"] = handler.PingFunc(func(ctx context.Context) error { return client.Ping(ctx, nil) })
	}

	registry := service.NewSessionRegistry(backend.storage, sealer, logger.Component("session"))
	authService := service.NewAuthService(service.AuthDeps{
		OAuth:      oauth,
		Registry:   registry,
		Classifier: domain.NewRoleClassifier(cfg.Discord.AdminIDs, time.Now),
		Tokens:     service.NewTokenIssuer(cfg.Session.JWTSecret, cfg.Session.TTL),
		Guard:      backend.guard,
		Auditor:    auditor,
		Log:        logger.Component("auth"),
	})

	e := api.NewRouter(api.RouterDeps{
		AuthService:    authService,
		History:        history,
		JWTSecret:      cfg.Session.JWTSecret,
		AllowedOrigins: []string{cfg.PublicURL},
		Health:         backend.health,
		Log:            logger.Component("http"),
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runJanitor(ctx, authService, backend, cfg.Session.IdleEvict, log)
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("storage", cfg.Storage.Driver).Bool("audit", cfg.Audit.Enabled).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	wg.Wait()

	if dispatcher != nil {
		workersCancel()
		dispatcher.Wait()
	}
	return nil
}

// runJanitor evicts idle session stores and, on SQLite, expired rows.
func runJanitor(ctx context.Context, svc *service.AuthService, backend *storageBackend, maxIdle time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	syncTicker := time.NewTicker(syncInterval)
	defer syncTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-syncTicker.C:
			if err := svc.SyncObservedSessions(ctx); err != nil {
				log.Warn().Err(err).Msg("sync observed sessions")
			}
		case <-ticker.C:
			if n := svc.PruneSessions(maxIdle); n > 0 {
				log.Debug().Int("evicted", n).Msg("pruned idle sessions")
			}
			if backend.expire != nil {
				if _, err := backend.expire(ctx); err != nil {
					log.Warn().Err(err).Msg("expire stored sessions")
				}
			}
		}
	}
}

type storageBackend struct {
	storage ports.SessionStorage
	guard   ports.CodeGuard
	health  map[string]handler.Pinger
	expire  func(ctx context.Context) (int64, error)
	close   func()
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storageBackend, error) {
	switch cfg.Storage.Driver {
	case config.DriverRedis:
		client, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPass,
			DB:       cfg.Storage.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		storage := redisdb.NewStorage(client, cfg.Session.TTL)
		return &storageBackend{
			storage: storage,
			guard:   redisdb.NewCodeGuard(client),
			health:  map[string]handler.Pinger{"redis": storage},
			close:   func() { _ = client.Close() },
		}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		storage := sqlite.NewStorage(db, cfg.Session.TTL)
		return &storageBackend{
			storage: storage,
			guard:   sqlite.NewCodeGuard(db),
			health:  map[string]handler.Pinger{"sqlite": storage},
			expire:  storage.DeleteExpired,
			close:   func() { _ = db.Close() },
		}, nil

	default:
		log.Warn().Msg("using in-memory session storage, sessions are lost on restart")
		return &storageBackend{
			storage: memory.NewStorage(),
			guard:   memory.NewCodeGuard(),
			health:  map[string]handler.Pinger{},
			close:   func() {},
		}, nil
	}
}
