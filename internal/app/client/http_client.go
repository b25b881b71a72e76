package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/exp/slog"

	"fieldsync/internal/app/client/config"
	"fieldsync/internal/domain/mutation"
	"fieldsync/internal/domain/snapshot"
	"fieldsync/internal/domain/sync"
)

const healthPath = "/api/v1/health"

var (
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrMalformedListing = errors.New("malformed listing response")
)

// httpClient удаленный API полевого приложения
type httpClient struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	token     string
	userAgent string
}

func NewHTTPClient(cfg *config.Config, log *slog.Logger) *httpClient {
	client := &http.Client{
		Timeout: cfg.RequestTimeoutDuration(),
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	return &httpClient{
		client:    client,
		log:       log.With("component", "http_client"),
		baseURL:   strings.TrimRight(cfg.BaseURL(), "/"),
		token:     cfg.AuthToken,
		userAgent: "FieldSync-Client/1.0",
	}
}

// SetToken устанавливает токен аутентификации
func (h *httpClient) SetToken(token string) {
	h.token = token
}

// HealthCheck проверяет доступность сервера
func (h *httpClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}

// Send воспроизводит сохраненную запись как есть: метод, адрес, заголовки и тело.
// Тело ответа не читается, важен только статус.
func (h *httpClient) Send(ctx context.Context, m mutation.Mutation) (int, error) {
	var body io.Reader
	if len(m.Payload) > 0 {
		body = bytes.NewReader(m.Payload)
	}

	req, err := http.NewRequestWithContext(ctx, m.Method, h.url(m.Endpoint), body)
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %w", sync.ErrUnsendable, err)
	}
	for k, v := range m.Headers {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	h.authorize(req)

	h.log.Debug("Отправка записи",
		"id", m.ID,
		"method", m.Method,
		"url", req.URL.String(),
		"retry", m.RetryCount,
	)

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send %s %s: %w", m.Method, m.Endpoint, err)
	}
	defer drain(resp)

	return resp.StatusCode, nil
}

// List загружает выборку. Ответ либо массив объектов, либо объект с массивом
// в поле data или items. У каждого элемента обязателен id.
func (h *httpClient) List(ctx context.Context, path string) ([]snapshot.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url(path), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	h.authorize(req)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: list %s: %d", ErrUnexpectedStatus, path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read listing %s: %w", path, err)
	}

	h.log.Debug("Получена выборка", "path", path, "bytes", len(body))

	return decodeListing(path, body)
}

func decodeListing(path string, body []byte) ([]snapshot.Record, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: %s: invalid json", ErrMalformedListing, path)
	}

	items := gjson.ParseBytes(body)
	if items.IsObject() {
		items = envelope(items)
	}
	if !items.IsArray() {
		return nil, fmt.Errorf("%w: %s: expected array", ErrMalformedListing, path)
	}

	arr := items.Array()
	recs := make([]snapshot.Record, 0, len(arr))
	for i, item := range arr {
		id := item.Get("id")
		if !id.Exists() || id.String() == "" {
			return nil, fmt.Errorf("%w: %s[%d]", snapshot.ErrMissingID, path, i)
		}
		recs = append(recs, snapshot.Record{
			ID:   id.String(),
			Data: []byte(item.Raw),
		})
	}
	return recs, nil
}

func envelope(obj gjson.Result) gjson.Result {
	for _, field := range []string{"data", "items"} {
		if v := obj.Get(field); v.Exists() {
			return v
		}
	}
	return obj
}

// url абсолютные адреса используются как есть
func (h *httpClient) url(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return h.baseURL + endpoint
}

func (h *httpClient) authorize(req *http.Request) {
	req.Header.Set("User-Agent", h.userAgent)
	if h.token != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
