package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	gosync "sync"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"fieldsync/internal/app/client/config"
	"fieldsync/internal/domain/mutation"
	"fieldsync/internal/domain/snapshot"
	"fieldsync/internal/domain/sync"
	"fieldsync/internal/infrastructure/storage"
	"fieldsync/internal/infrastructure/storage/memory"
	"fieldsync/internal/infrastructure/storage/sqlite"
)

const connectivityTimeout = 3 * time.Second

type App struct {
	config     *config.Config
	log        *slog.Logger
	store      storage.Store
	queue      *mutation.Queue
	cache      *snapshot.Cache
	httpClient *httpClient
	sync       *sync.Orchestrator
	prober     *Prober
	families   []snapshot.Family
	wg         gosync.WaitGroup
	cancel     context.CancelFunc
	mu         gosync.Mutex
}

type options struct {
	checkConnectivity bool
	store             storage.Store
}

// Option настройка приложения
type Option func(*options)

// WithConnectivityCheck проверяет сервер при создании, чтобы разовые команды
// синхронизации знали состояние сети без запуска полного прогона.
func WithConnectivityCheck() Option {
	return func(o *options) { o.checkConnectivity = true }
}

// WithStore подменяет локальное хранилище.
func WithStore(s storage.Store) Option {
	return func(o *options) { o.store = s }
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	families, err := loadFamilies(cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки семейств: %w", err)
	}

	store := o.store
	if store == nil {
		if cfg.InMemory {
			// очередь живет только до выхода процесса
			log.Warn("Локальное хранилище в памяти, несинхронизированные записи будут потеряны при выходе")
			store = memory.New()
		} else {
			sqliteStore, err := sqlite.Open(cfg.DataPath)
			if err != nil {
				return nil, fmt.Errorf("ошибка инициализации хранилища: %w", err)
			}
			store = sqliteStore
		}
	}

	queue, err := mutation.NewQueue(ctx, store, log)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("ошибка инициализации очереди: %w", err)
	}
	cache, err := snapshot.NewCache(ctx, store, log)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("ошибка инициализации кэша снимков: %w", err)
	}

	httpCl := NewHTTPClient(cfg, log)

	online := false
	if o.checkConnectivity {
		checkCtx, cancel := context.WithTimeout(ctx, connectivityTimeout)
		online = httpCl.HealthCheck(checkCtx) == nil
		cancel()
	}

	orchestrator, err := sync.NewOrchestrator(ctx, queue, cache, httpCl, log,
		sync.WithConfig(sync.Config{
			Interval: cfg.SyncIntervalDuration(),
			MaxRetry: cfg.MaxRetry,
			Families: families,
		}),
		sync.WithOnline(online),
		sync.WithDeadLetterHandler(func(dl mutation.DeadLetter) {
			log.Warn("Запись отброшена",
				"id", dl.Mutation.ID,
				"endpoint", dl.Mutation.Endpoint,
				"reason", dl.Reason,
				"status", dl.StatusCode,
			)
		}),
	)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("ошибка инициализации синхронизации: %w", err)
	}

	app := &App{
		config:     cfg,
		log:        log,
		store:      store,
		queue:      queue,
		cache:      cache,
		httpClient: httpCl,
		sync:       orchestrator,
		families:   families,
	}
	app.prober = NewProber(httpCl, orchestrator, cfg.ProbeIntervalDuration(), connectivityTimeout, log)

	return app, nil
}

func loadFamilies(cfg *config.Config) ([]snapshot.Family, error) {
	if cfg.FamiliesFile == "" {
		return snapshot.DefaultFamilies(cfg.UpcomingDays), nil
	}
	return snapshot.LoadFamilies(cfg.FamiliesFile)
}

// Run запускает планировщик и проверку сети и блокируется до сигнала
// завершения или отмены ctx.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	go a.handleSignals(ctx)

	unsubscribe := a.sync.SubscribeToStatus(func(s sync.Status) {
		a.log.Debug("Состояние синхронизации",
			"online", s.IsOnline,
			"syncing", s.IsSyncing,
			"pending", s.PendingCount,
			"error", s.Error,
		)
	})
	defer unsubscribe()

	if err := a.sync.StartScheduler(ctx); err != nil {
		cancel()
		return fmt.Errorf("ошибка запуска планировщика: %w", err)
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.prober.Run(ctx)
	}()

	a.log.Info("Клиент запущен",
		"server", a.config.ServerAddress,
		"env", a.config.Env,
		"interval", a.config.SyncIntervalDuration(),
	)

	<-ctx.Done()
	a.Shutdown()
	return nil
}

func (a *App) handleSignals(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		return
	case sig := <-sigChan:
		a.log.Info("Получен сигнал завершения", "signal", sig.String())
	}

	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Shutdown останавливает фоновые задачи; начатый прогон завершается.
func (a *App) Shutdown() {
	a.log.Info("Завершение работы клиента...")

	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	a.sync.StopScheduler()
	a.wg.Wait()
	a.log.Info("Клиент завершил работу")
}

// Close закрывает локальное хранилище
func (a *App) Close() error {
	return a.store.Close()
}

// CheckConnection проверяет соединение с сервером
func (a *App) CheckConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, connectivityTimeout)
	defer cancel()
	return a.httpClient.HealthCheck(ctx)
}

// Enqueue сохраняет запись на сервер для последующей отправки.
func (a *App) Enqueue(ctx context.Context, endpoint, method string, headers map[string]string, payload []byte) (mutation.Mutation, error) {
	return a.sync.EnqueueMutation(ctx, endpoint, method, headers, payload)
}

func (a *App) PendingMutations(ctx context.Context) ([]mutation.Mutation, error) {
	return a.queue.ListAll(ctx)
}

func (a *App) DeadLetters(ctx context.Context) ([]mutation.DeadLetter, error) {
	return a.queue.ListDeadLetters(ctx)
}

func (a *App) ClearDeadLetters(ctx context.Context) error {
	return a.queue.ClearDeadLetters(ctx)
}

func (a *App) Drain(ctx context.Context) (sync.DrainResult, error) {
	return a.sync.DrainPendingMutations(ctx)
}

func (a *App) Refresh(ctx context.Context) (sync.RefreshResult, error) {
	return a.sync.RefreshSnapshotCache(ctx)
}

func (a *App) SyncNow(ctx context.Context) (sync.CycleResult, error) {
	return a.sync.SyncNow(ctx)
}

func (a *App) Status() sync.Status {
	return a.sync.Status()
}

func (a *App) Families() []snapshot.Family {
	return a.families
}

// SetInterval меняет период синхронизации на лету
func (a *App) SetInterval(d time.Duration) error {
	return a.sync.SetInterval(d)
}

func (a *App) LastSyncTime(ctx context.Context, family string) (time.Time, bool, error) {
	return a.sync.LastSyncTime(ctx, family)
}

// Snapshot записи семейства из локального кэша
func (a *App) Snapshot(ctx context.Context, family string) ([]snapshot.Record, error) {
	if err := a.checkFamily(family); err != nil {
		return nil, err
	}
	return a.cache.List(ctx, family)
}

// SnapshotRecord одна запись семейства из локального кэша
func (a *App) SnapshotRecord(ctx context.Context, family, id string) (snapshot.Record, error) {
	if err := a.checkFamily(family); err != nil {
		return snapshot.Record{}, err
	}
	return a.cache.Get(ctx, family, id)
}

func (a *App) checkFamily(family string) error {
	for _, f := range a.families {
		if f.Key == family {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", snapshot.ErrUnknownFamily, family)
}

// IsNotFound сообщает, что запись отсутствует в очереди или кэше
func IsNotFound(err error) bool {
	return errors.Is(err, snapshot.ErrNotFound) || errors.Is(err, mutation.ErrNotFound)
}
