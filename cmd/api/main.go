package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/moodflip/internal/config"
	"github.com/zhouzirui/moodflip/internal/logging"
	"github.com/zhouzirui/moodflip/internal/service/detector"
	"github.com/zhouzirui/moodflip/internal/service/events"
)

func main() {
	logging.Preinit()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, continuing with system environment variables only", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, logCloser := logging.New(cfg.Log.Level, cfg.Log.File)
	defer logCloser.Close()
	slog.SetDefault(logger)

	di := do.New()
	defer func() {
		if err := di.Shutdown(); err != nil {
			logger.Warn("service shutdown reported errors", "error", err)
		}
	}()

	do.ProvideValue(di, cfg)
	do.ProvideValue(di, logger)
	provideServices(ctx, di)

	if err := run(ctx, di); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("moodflip backend stopped")
}

// run commits a detector backend and serves HTTP until ctx is cancelled.
func run(ctx context.Context, di *do.Injector) error {
	cfg := do.MustInvoke[*config.Config](di)
	logger := do.MustInvoke[*slog.Logger](di)
	cascade := do.MustInvoke[*detector.Cascade](di)
	publisher := do.MustInvoke[events.Publisher](di)
	router := do.MustInvoke[http.Handler](di)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		selection := cascade.Select(gctx)
		if selection.Simulated {
			logger.Warn(selection.Notice)
		}
		publisher.Publish(events.SubjectDetectorSelected, selection)
		return nil
	})

	g.Go(func() error {
		logger.Info("moodflip backend listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
