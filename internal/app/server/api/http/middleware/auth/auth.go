package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

// Auth проверяет статический Bearer токен песочницы. Пустой токен отключает проверку.
// Токен можно задать bcrypt хешем, тогда в конфигурации не хранится открытое значение.
type Auth struct {
	token    string
	hashed   bool
	verified sync.Map
	log      *slog.Logger
}

func New(token string, log *slog.Logger) *Auth {
	_, err := bcrypt.Cost([]byte(token))
	return &Auth{
		token:  token,
		hashed: token != "" && err == nil,
		log:    log.With("component", "auth_middleware"),
	}
}

// Middleware возвращает middleware для Huma с сигнатурой func(ctx Context, next func(Context))
func (a *Auth) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if a.token == "" {
			next(ctx)
			return
		}

		header := ctx.Header("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || !a.valid(token) {
			a.log.Warn("unauthorized request", "path", ctx.URL().Path)
			ctx.SetHeader("Content-Type", "application/json")
			ctx.SetStatus(http.StatusUnauthorized)

			err := json.NewEncoder(ctx.BodyWriter()).Encode(map[string]string{
				"error": "Unauthorized",
			})
			if err != nil {
				a.log.Error("json encode", "error", err)
			}
			return
		}

		next(ctx)
	}
}

func (a *Auth) valid(token string) bool {
	if !a.hashed {
		return subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) == 1
	}
	if _, ok := a.verified.Load(token); ok {
		return true
	}
	if bcrypt.CompareHashAndPassword([]byte(a.token), []byte(token)) != nil {
		return false
	}
	// bcrypt дорогой, проверенный токен запоминаем
	a.verified.Store(token, struct{}{})
	return true
}
