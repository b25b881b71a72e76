package client

import (
	"context"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"

	"fieldsync/internal/domain/sync"
)

// HealthChecker проверка доступности сервера
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ConnectivityHandler получатель событий сети
type ConnectivityHandler interface {
	HandleOnline(ctx context.Context) (sync.CycleResult, error)
	HandleOffline()
}

// Prober периодически проверяет сервер и сообщает только о смене состояния.
// Первая проверка сообщается всегда.
type Prober struct {
	checker  HealthChecker
	handler  ConnectivityHandler
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger

	mu     gosync.Mutex
	known  bool
	online bool
}

func NewProber(checker HealthChecker, handler ConnectivityHandler, interval, timeout time.Duration, log *slog.Logger) *Prober {
	return &Prober{
		checker:  checker,
		handler:  handler,
		interval: interval,
		timeout:  timeout,
		log:      log.With("component", "connectivity_prober"),
	}
}

// Probe выполняет одну проверку и возвращает доступность сервера.
func (p *Prober) Probe(ctx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	err := p.checker.HealthCheck(checkCtx)
	cancel()

	online := err == nil
	if err != nil {
		p.log.Debug("Сервер недоступен", "error", err)
	}

	p.mu.Lock()
	changed := !p.known || p.online != online
	p.known, p.online = true, online
	p.mu.Unlock()

	if !changed {
		return online
	}

	if !online {
		p.handler.HandleOffline()
		return false
	}

	res, err := p.handler.HandleOnline(ctx)
	if err != nil {
		p.log.Error("Ошибка синхронизации после восстановления сети", "error", err)
		return true
	}
	if !res.Skipped {
		p.log.Info("Синхронизация после восстановления сети",
			"sent", res.Drain.Succeeded,
			"failed", res.Drain.Failed,
			"families", res.Refresh.Refreshed,
		)
	}
	return true
}

// Run проверяет сервер сразу и затем с периодом interval до отмены ctx.
func (p *Prober) Run(ctx context.Context) {
	p.Probe(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Probe(ctx)
		}
	}
}
