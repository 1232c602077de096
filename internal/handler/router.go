package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/moodflip/internal/handler/camera"
	"github.com/zhouzirui/moodflip/internal/handler/chat"
	"github.com/zhouzirui/moodflip/internal/handler/emotion"
	"github.com/zhouzirui/moodflip/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/moodflip/internal/middleware"
	chatService "github.com/zhouzirui/moodflip/internal/service/chat"
	"github.com/zhouzirui/moodflip/internal/service/detector"
	emotionService "github.com/zhouzirui/moodflip/internal/service/emotion"
	"github.com/zhouzirui/moodflip/pkg/utils"
)

// Deps 汇总路由需要的服务。
type Deps struct {
	Chat    *chatService.Service
	Hub     *emotionService.Hub
	Cascade *detector.Cascade
	Sampler *detector.Sampler
	Logger  *slog.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	chatHandler := chat.New(deps.Chat, deps.Hub, logger)
	emotionHandler := emotion.New(deps.Hub, deps.Cascade, deps.Sampler)
	streamHandler := stream.New(deps.Hub, 0, logger)
	cameraHandler := camera.NewWebSocketHandler(deps.Sampler, deps.Hub, logger)

	r.Route("/api", func(api chi.Router) {
		chatHandler.RegisterRoutes(api)
		emotionHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		cameraHandler.RegisterRoutes(api)
	})

	return r
}
