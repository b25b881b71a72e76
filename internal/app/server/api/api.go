// Песочница FieldFlow для отладки клиента синхронизации:
//
//	GET    /api/v1/health                     # Состояние сервера и хранилища (публичный)
//	GET    /fieldflow/{family}                # Все записи семейства (auth)
//	GET    /fieldflow/{family}/today          # Записи на сегодня (auth)
//	GET    /fieldflow/{family}/upcoming       # Ближайшие записи, ?days=N (auth)
//	GET    /fieldflow/{family}/follow-ups     # Просроченные и сегодняшние (auth)
//	GET    /fieldflow/{family}/{id}           # Получить запись (auth)
//	POST   /fieldflow/{family}                # Создать запись, Idempotency-Key (auth)
//	PUT    /fieldflow/{family}/{id}           # Заменить запись (auth)
//	PATCH  /fieldflow/{family}/{id}           # Частично обновить запись (auth)
//	DELETE /fieldflow/{family}/{id}           # Удалить запись (auth)
package api

import (
	entityAPI "fieldsync/internal/app/server/api/http/entity"
	healthAPI "fieldsync/internal/app/server/api/http/health"
	"fieldsync/internal/app/server/api/http/middleware"
	"fieldsync/internal/app/server/api/http/middleware/auth"
	"fieldsync/internal/app/server/api/http/middleware/logger"
	"fieldsync/internal/domain/entity"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/exp/slog"
)

// Deps зависимости HTTP слоя
type Deps struct {
	Service   entity.Servicer
	Storage   string
	Pinger    healthAPI.Pinger
	AuthToken string
}

type Handlers struct {
	Health *healthAPI.Handler
	Entity *entityAPI.Handler
}

// New создает *chi.Mux со всеми операциями через huma.Register
func New(deps Deps, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()
	mux.Use(chimw.RequestID, chimw.Recoverer)

	config := huma.DefaultConfig("FieldFlow sandbox API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, config)

	h := handlers(deps, log)
	h.Health.SetupRoutes(API)
	h.Entity.SetupRoutes(API)

	return mux
}

func handlers(deps Deps, log *slog.Logger) *Handlers {
	authMW := auth.New(deps.AuthToken, log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(log, middlewares.GetAllAndClear(), deps.Storage, deps.Pinger)

	middlewares.Add(authMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	entityHandler := entityAPI.NewHandler(deps.Service, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health: healthHandler,
		Entity: entityHandler,
	}
}
