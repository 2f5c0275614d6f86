package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Pamplemouss/eorguessr-backend/internal/archive"
	"github.com/Pamplemouss/eorguessr-backend/internal/config"
	"github.com/Pamplemouss/eorguessr-backend/internal/httpapi"
	"github.com/Pamplemouss/eorguessr-backend/internal/hub"
	"github.com/Pamplemouss/eorguessr-backend/internal/scenes"
	"github.com/Pamplemouss/eorguessr-backend/internal/session"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg.AppEnv)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seed := cfg.SceneSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	source := scenes.NewMemorySource(seed, scenes.DefaultCatalog())

	var sink session.RoundSink
	var history httpapi.RoundHistory
	if cfg.DatabaseURL != "" {
		a, err := archive.Open(cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("open round archive", zap.Error(err))
		}
		sink = a
		history = a
		logger.Info("round archive enabled")
	}

	h := hub.NewHub(ctx, hub.Deps{
		Source:        source,
		Sink:          sink,
		Logger:        logger,
		RoundDuration: cfg.RoundDuration,
	})

	defaults := httpapi.Defaults{
		MaxRounds:     cfg.MaxRounds,
		MinPlayers:    cfg.MinPlayers,
		MaxPlayers:    cfg.MaxPlayers,
		ResultSeconds: int(cfg.ResultDuration / time.Second),
	}
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(h, defaults, history, logger),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
}

func newLogger(appEnv string) *zap.Logger {
	var logger *zap.Logger
	var err error
	if appEnv == "prod" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	return logger
}
