package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/do"

	"github.com/zhouzirui/moodflip/internal/config"
	"github.com/zhouzirui/moodflip/internal/handler"
	"github.com/zhouzirui/moodflip/internal/service/ai"
	chatService "github.com/zhouzirui/moodflip/internal/service/chat"
	"github.com/zhouzirui/moodflip/internal/service/detector"
	emotionService "github.com/zhouzirui/moodflip/internal/service/emotion"
	"github.com/zhouzirui/moodflip/internal/service/events"
)

// publisherService lets the injector drain the NATS connection on shutdown.
type publisherService struct {
	events.Publisher
}

func (p publisherService) Shutdown() error {
	return p.Close()
}

func provideServices(ctx context.Context, di *do.Injector) {
	do.Provide(di, func(i *do.Injector) (events.Publisher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		logger := do.MustInvoke[*slog.Logger](i)
		pub, err := events.Connect(cfg.Events.NATSURL, cfg.Events.NATSToken, logger)
		if err != nil {
			logger.Warn("event publishing disabled", "error", err)
			return events.Noop{}, nil
		}
		return publisherService{pub}, nil
	})

	do.Provide(di, func(i *do.Injector) (*emotionService.Hub, error) {
		return emotionService.NewHub(do.MustInvoke[events.Publisher](i), do.MustInvoke[*slog.Logger](i)), nil
	})

	do.Provide(di, func(i *do.Injector) (*detector.Cascade, error) {
		cfg := do.MustInvoke[*config.Config](i).Detector
		logger := do.MustInvoke[*slog.Logger](i)

		client := &http.Client{Timeout: 30 * time.Second}
		overrides := cfg.LabelOverrides

		return detector.NewCascade(logger, cfg.InitTimeout,
			detector.NewAdapter(
				detector.NewPrimary(cfg.PrimaryURL, client, cfg.SampleInterval),
				detector.DefaultTable(detector.Primary, overrides[string(detector.Primary)]),
			),
			detector.NewAdapter(
				detector.NewSecondary(cfg.SecondaryURL, client, cfg.SampleInterval),
				detector.DefaultTable(detector.Secondary, overrides[string(detector.Secondary)]),
			),
			detector.NewAdapter(detector.NewSimulator(cfg.SimulatorSeed, cfg.SimulatedInterval), nil),
		), nil
	})

	do.Provide(di, func(i *do.Injector) (*detector.Sampler, error) {
		cfg := do.MustInvoke[*config.Config](i).Detector
		return detector.NewSampler(
			do.MustInvoke[*detector.Cascade](i),
			do.MustInvoke[*emotionService.Hub](i),
			cfg.SampleTimeout,
			do.MustInvoke[*slog.Logger](i),
		), nil
	})

	do.Provide(di, func(i *do.Injector) (*chatService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		logger := do.MustInvoke[*slog.Logger](i)

		var replier chatService.Replier
		if cfg.AI.Enabled() {
			chatModel, err := cfg.AI.NewChatModel(ctx)
			if err != nil {
				logger.Warn("failed to create chat model, replies will fall back", "provider", cfg.AI.Provider, "error", err)
			} else if aiSvc, err := ai.NewService(ctx, chatModel, cfg.AI.Timeout, logger); err != nil {
				logger.Warn("failed to initialize reply service, replies will fall back", "error", err)
			} else {
				logger.Info("reply engine initialized", "provider", cfg.AI.Provider)
				replier = aiSvc
			}
		} else {
			logger.Warn("reply engine credentials not configured, replies will fall back", "provider", cfg.AI.Provider)
		}

		return chatService.NewService(replier, do.MustInvoke[events.Publisher](i), logger), nil
	})

	do.Provide(di, func(i *do.Injector) (http.Handler, error) {
		return handler.NewRouter(handler.Deps{
			Chat:    do.MustInvoke[*chatService.Service](i),
			Hub:     do.MustInvoke[*emotionService.Hub](i),
			Cascade: do.MustInvoke[*detector.Cascade](i),
			Sampler: do.MustInvoke[*detector.Sampler](i),
			Logger:  do.MustInvoke[*slog.Logger](i),
		}), nil
	})
}
