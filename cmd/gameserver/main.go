package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/archive"
	appcfg "github.com/park285/cheese-arena/internal/config"
	"github.com/park285/cheese-arena/internal/game"
	"github.com/park285/cheese-arena/internal/lobby"
	"github.com/park285/cheese-arena/internal/match"
	"github.com/park285/cheese-arena/internal/msgcat"
	"github.com/park285/cheese-arena/internal/notify"
	"github.com/park285/cheese-arena/internal/obslog"
	"github.com/park285/cheese-arena/internal/transport/ws"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}
	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("messages_error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis when configured, process memory otherwise
	var (
		store match.Store
		rdb   *redis.Client
	)
	opts := []match.Option{match.WithSettings(settingsFrom(cfg))}
	if cfg.RedisURL != "" {
		rdb, err = match.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis_init_error", zap.Error(err))
		}
		defer rdb.Close()
		store = match.NewRedisStore(rdb, cfg.MatchTTL)
		logger.Info("store_redis", zap.Duration("ttl", cfg.MatchTTL))
	} else {
		store = match.NewMemoryStore()
		logger.Warn("store_memory", zap.String("reason", "REDIS_URL not set"))
	}

	var repo *archive.Repository
	if cfg.DatabaseURL != "" {
		repo, err = archive.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("archive_init_error", zap.String("driver", cfg.DatabaseDriver), zap.Error(err))
		}
		defer repo.Close()
		opts = append(opts, match.WithArchive(repo))
	}
	if cfg.WebhookURL != "" {
		headers := func() map[string]string {
			if cfg.WebhookToken == "" {
				return nil
			}
			return map[string]string{"Authorization": "Bearer " + cfg.WebhookToken}
		}
		opts = append(opts, match.WithNotifier(notify.NewWebhook(notify.NewClient(cfg.WebhookURL, notify.WithHeaderProvider(headers)))))
	}
	matches := match.NewManager(store, opts...)

	serverOpts := []ws.Option{ws.WithCatalog(catalog), ws.WithOrigins(cfg.AllowedOrigins)}
	// lobbies need Redis
	if rdb != nil {
		serverOpts = append(serverOpts, ws.WithLobby(lobby.NewManager(lobby.NewStore(rdb, cfg.LobbyTTL), matches)))
	}
	if repo != nil {
		serverOpts = append(serverOpts, ws.WithResults(repo))
	}
	srv := ws.NewServer(matches, serverOpts...)
	matches.AddNotifier(srv)

	go matches.RunSweeper(ctx, cfg.SweepInterval)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listen", zap.String("addr", cfg.ListenAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("server_shutdown", zap.String("reason", "signal"))
	case err := <-errCh:
		logger.Error("server_error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server_shutdown_error", zap.Error(err))
	}
}

func settingsFrom(cfg *appcfg.AppConfig) match.Settings {
	s := match.DefaultSettings()
	s.Checkers.ScoreLimit = cfg.ScoreLimit
	s.Chess.ScoreLimit = cfg.ScoreLimit
	s.CheckersClock = game.ClockConfig{MoveTimeLimit: cfg.CheckersMoveTime, GlobalTimeLimit: cfg.CheckersGameTime}
	s.ChessClock = game.ClockConfig{MoveTimeLimit: cfg.ChessMoveTime, GlobalTimeLimit: cfg.ChessGameTime}
	return s
}
