package health

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// Pinger проверка доступности хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	log        *slog.Logger
	middleware huma.Middlewares
	storage    string
	pinger     Pinger
}

// NewHandler pinger может быть nil, тогда хранилище считается доступным
func NewHandler(log *slog.Logger, middleware huma.Middlewares, storage string, pinger Pinger) *Handler {
	return &Handler{
		log:        log,
		middleware: middleware,
		storage:    storage,
		pinger:     pinger,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.healthCheckOp(), h.healthCheck)
}

func (h *Handler) healthCheck(ctx context.Context, _ *Input) (*Output, error) {
	h.log.Debug("health check request received")

	if h.pinger != nil {
		if err := h.pinger.Ping(ctx); err != nil {
			h.log.Error("storage unavailable", "storage", h.storage, "error", err)
			return nil, huma.Error503ServiceUnavailable("storage unavailable")
		}
	}

	return &Output{
		Body: Response{
			Status:  "OK",
			Storage: h.storage,
			Time:    time.Now().UTC(),
		},
	}, nil
}
