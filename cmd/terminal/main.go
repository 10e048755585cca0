package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"bidacafe/terminal/internal/api"
	"bidacafe/terminal/internal/auth"
	"bidacafe/terminal/internal/board"
	"bidacafe/terminal/internal/cashier"
	"bidacafe/terminal/internal/config"
	"bidacafe/terminal/internal/draft"
	draftfile "bidacafe/terminal/internal/draft/file"
	draftredis "bidacafe/terminal/internal/draft/redis"
	"bidacafe/terminal/internal/httpapi"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg.Debug)
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	closers := make([]func() error, 0, 2)

	var drafts draft.Store
	if cfg.RedisAddr != "" {
		rs := draftredis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		err := rs.Ping(pingCtx)
		pingCancel()
		if err != nil {
			logger.Warn("redis unavailable, falling back to file drafts", zap.Error(err))
			drafts = draftfile.New(cfg.DraftFile, logger)
		} else {
			drafts = rs
			closers = append(closers, rs.Close)
			logger.Info("draft store: redis", zap.String("addr", cfg.RedisAddr))
		}
	} else {
		drafts = draftfile.New(cfg.DraftFile, logger)
		logger.Info("draft store: file", zap.String("path", cfg.DraftFile))
	}

	tokens := auth.NewFileStore(cfg.TokenFile, logger)
	if token, ok := tokens.Token(); ok && auth.Expired(token, time.Now()) {
		logger.Info("stored token is expired, clearing")
		tokens.Clear()
	}

	client := api.New(cfg.APIBaseURL, tokens, logger)
	svc := cashier.NewService(client, drafts, logger)

	poller := board.NewPoller(client, cfg.RefreshInterval, cfg.TickInterval, logger)
	go poller.Run(ctx)

	sched := cron.New()
	retention := time.Duration(cfg.DraftRetentionDays) * 24 * time.Hour
	if _, err := sched.AddFunc("@daily", func() {
		if n := svc.PruneStaleDrafts(ctx, retention); n > 0 {
			logger.Info("stale drafts pruned", zap.Int("count", n))
		}
	}); err != nil {
		logger.Fatal("cannot schedule draft sweep", zap.Error(err))
	}
	sched.Start()

	surface := httpapi.New(poller, drafts, logger)
	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           surface.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("terminal listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cancel()
	<-sched.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Warn("close error", zap.Error(err))
		}
	}

	logger.Info("terminal stopped")
}

func newLogger(debug bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}
