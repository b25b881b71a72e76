package entity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"fieldsync/internal/domain/entity"
)

type Handler struct {
	service    entity.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service entity.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.todayOp(), h.view(entity.ViewToday))
	huma.Register(api, h.upcomingOp(), h.view(entity.ViewUpcoming))
	huma.Register(api, h.followUpsOp(), h.view(entity.ViewFollowUps))
	huma.Register(api, h.findOp(), h.find)
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.replaceOp(), h.replace)
	huma.Register(api, h.patchOp(), h.patch)
	huma.Register(api, h.deleteOp(), h.delete)
}

func (h *Handler) list(ctx context.Context, input *familyInput) (*listOutput, error) {
	entities, err := h.service.List(ctx, input.Family)
	if err != nil {
		return nil, h.httpError(err)
	}
	return &listOutput{Body: entities}, nil
}

func (h *Handler) view(v entity.View) func(context.Context, *viewInput) (*listOutput, error) {
	return func(ctx context.Context, input *viewInput) (*listOutput, error) {
		entities, err := h.service.View(ctx, input.Family, string(v), input.Days)
		if err != nil {
			return nil, h.httpError(err)
		}
		return &listOutput{Body: entities}, nil
	}
}

func (h *Handler) find(ctx context.Context, input *findInput) (*output, error) {
	e, err := h.service.Find(ctx, input.Family, input.ID)
	if err != nil {
		return nil, h.httpError(err)
	}
	return &output{Status: http.StatusOK, Body: e}, nil
}

func (h *Handler) create(ctx context.Context, input *createInput) (*output, error) {
	data, err := json.Marshal(input.Body)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid body", err)
	}

	res, err := h.service.Create(ctx, input.Family, input.IdempotencyKey, data)
	if err != nil {
		return nil, h.httpError(err)
	}
	return result(res, http.StatusCreated), nil
}

func (h *Handler) replace(ctx context.Context, input *updateInput) (*output, error) {
	data, err := json.Marshal(input.Body)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid body", err)
	}

	res, err := h.service.Replace(ctx, input.Family, input.ID, input.IdempotencyKey, data)
	if err != nil {
		return nil, h.httpError(err)
	}
	return result(res, http.StatusOK), nil
}

func (h *Handler) patch(ctx context.Context, input *updateInput) (*output, error) {
	data, err := json.Marshal(input.Body)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid body", err)
	}

	res, err := h.service.Patch(ctx, input.Family, input.ID, input.IdempotencyKey, data)
	if err != nil {
		return nil, h.httpError(err)
	}
	return result(res, http.StatusOK), nil
}

func (h *Handler) delete(ctx context.Context, input *deleteInput) (*output, error) {
	res, err := h.service.Delete(ctx, input.Family, input.ID, input.IdempotencyKey)
	if err != nil {
		return nil, h.httpError(err)
	}
	return result(res, http.StatusOK), nil
}

// result повтор по ключу идемпотентности всегда отвечает 200
func result(res entity.Result, status int) *output {
	if res.Replayed {
		status = http.StatusOK
	}
	return &output{Status: status, Body: res.Entity}
}

func (h *Handler) httpError(err error) error {
	switch {
	case errors.Is(err, entity.ErrNotFound),
		errors.Is(err, entity.ErrInvalidFamily),
		errors.Is(err, entity.ErrUnknownView):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, entity.ErrInvalidData):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		h.log.Error("entity operation failed", "error", err)
		return huma.Error500InternalServerError("internal error")
	}
}
