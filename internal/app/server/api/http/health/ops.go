package health

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) healthCheckOp() huma.Operation {
	return huma.Operation{
		OperationID: "sandbox-health",
		Method:      http.MethodGet,
		Path:        "/api/v1/health",
		Summary:     "Состояние песочницы",
		Description: "Проверяет доступность хранилища; клиент синхронизации опрашивает этот путь, чтобы понять, есть ли сеть.",
		Tags:        []string{"health"},
		Errors:      []int{http.StatusServiceUnavailable},
		Middlewares: h.middleware,
	}
}
