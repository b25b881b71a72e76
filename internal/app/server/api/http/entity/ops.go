package entity

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) op(id, method, path, summary string, status int) huma.Operation {
	return huma.Operation{
		OperationID:   id,
		Method:        method,
		Path:          path,
		Summary:       summary,
		Tags:          []string{"fieldflow"},
		Security:      []map[string][]string{{"bearer": {}}},
		Middlewares:   h.middleware,
		DefaultStatus: status,
	}
}

func (h *Handler) listOp() huma.Operation {
	return h.op("entities-list", http.MethodGet, "/fieldflow/{family}", "Все сущности семейства", http.StatusOK)
}

func (h *Handler) todayOp() huma.Operation {
	return h.op("entities-today", http.MethodGet, "/fieldflow/{family}/today", "Сущности на сегодня", http.StatusOK)
}

func (h *Handler) upcomingOp() huma.Operation {
	return h.op("entities-upcoming", http.MethodGet, "/fieldflow/{family}/upcoming", "Сущности на ближайшие дни", http.StatusOK)
}

func (h *Handler) followUpsOp() huma.Operation {
	return h.op("entities-follow-ups", http.MethodGet, "/fieldflow/{family}/follow-ups", "Просроченные и сегодняшние", http.StatusOK)
}

func (h *Handler) findOp() huma.Operation {
	return h.op("entities-find", http.MethodGet, "/fieldflow/{family}/{id}", "Получить сущность", http.StatusOK)
}

func (h *Handler) createOp() huma.Operation {
	return h.op("entities-create", http.MethodPost, "/fieldflow/{family}", "Создать сущность", http.StatusCreated)
}

func (h *Handler) replaceOp() huma.Operation {
	return h.op("entities-replace", http.MethodPut, "/fieldflow/{family}/{id}", "Заменить данные сущности", http.StatusOK)
}

func (h *Handler) patchOp() huma.Operation {
	return h.op("entities-patch", http.MethodPatch, "/fieldflow/{family}/{id}", "Изменить поля сущности", http.StatusOK)
}

func (h *Handler) deleteOp() huma.Operation {
	return h.op("entities-delete", http.MethodDelete, "/fieldflow/{family}/{id}", "Удалить сущность", http.StatusOK)
}
