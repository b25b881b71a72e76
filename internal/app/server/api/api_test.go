package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldsync/internal/domain/entity"
	"fieldsync/internal/infrastructure/storage/entitystore"
	"fieldsync/internal/infrastructure/storage/memory"
	"fieldsync/internal/utils/logger"
)

func newServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	log := logger.Discard()
	service := entity.NewService(entitystore.New(memory.New(), log), log)

	srv := httptest.NewServer(New(Deps{
		Service:   service,
		Storage:   "memory",
		AuthToken: token,
	}, log))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, token, body string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHealthIsPublic(t *testing.T) {
	srv := newServer(t, "secret")

	resp := do(t, http.MethodGet, srv.URL+"/api/v1/health", "", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status  string `json:"status"`
		Storage string `json:"storage"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "OK", body.Status)
	assert.Equal(t, "memory", body.Storage)
}

func TestEntitiesRequireToken(t *testing.T) {
	srv := newServer(t, "secret")

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{name: "missing", token: "", want: http.StatusUnauthorized},
		{name: "wrong", token: "nope", want: http.StatusUnauthorized},
		{name: "valid", token: "secret", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodGet, srv.URL+"/fieldflow/visits", tt.token, "", nil)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestCreateReplayAndView(t *testing.T) {
	srv := newServer(t, "")
	headers := map[string]string{"Idempotency-Key": "0b6c1b36-visit-1"}
	body := `{"customer":"Acme","scheduled_at":"2999-01-01T10:00:00Z"}`

	first := do(t, http.MethodPost, srv.URL+"/fieldflow/visits", "", body, headers)
	assert.Equal(t, http.StatusCreated, first.StatusCode)

	second := do(t, http.MethodPost, srv.URL+"/fieldflow/visits", "", body, headers)
	assert.Equal(t, http.StatusOK, second.StatusCode)

	var a, b entity.Entity
	require.NoError(t, json.NewDecoder(first.Body).Decode(&a))
	require.NoError(t, json.NewDecoder(second.Body).Decode(&b))
	assert.Equal(t, a.ID, b.ID)

	list := do(t, http.MethodGet, srv.URL+"/fieldflow/visits", "", "", nil)
	var items []entity.Entity
	require.NoError(t, json.NewDecoder(list.Body).Decode(&items))
	assert.Len(t, items, 1)

	today := do(t, http.MethodGet, srv.URL+"/fieldflow/visits/today", "", "", nil)
	assert.Equal(t, http.StatusOK, today.StatusCode)
	items = nil
	require.NoError(t, json.NewDecoder(today.Body).Decode(&items))
	assert.Empty(t, items)
}
