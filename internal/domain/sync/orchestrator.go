package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"

	"fieldsync/internal/domain/mutation"
	"fieldsync/internal/domain/snapshot"
)

const (
	// DefaultMaxRetry число временных ошибок, после которого запись отбрасывается
	DefaultMaxRetry = 5
	// DefaultInterval период планировщика
	DefaultInterval = 5 * time.Minute
)

// Queue очередь неподтвержденных записей
type Queue interface {
	Enqueue(ctx context.Context, endpoint, method string, headers map[string]string, payload []byte) (mutation.Mutation, error)
	ListAll(ctx context.Context) ([]mutation.Mutation, error)
	Remove(ctx context.Context, id int64) error
	MarkRetried(ctx context.Context, id int64) (mutation.Mutation, error)
	Count(ctx context.Context) (int, error)
	Bury(ctx context.Context, m mutation.Mutation, reason mutation.Reason, status int, cause error) (mutation.DeadLetter, error)
}

// Cache снимки серверных семейств
type Cache interface {
	Replace(ctx context.Context, family string, recs []snapshot.Record) (snapshot.Metadata, error)
	Metadata(ctx context.Context, family string) (snapshot.Metadata, bool, error)
}

// Config параметры оркестратора
type Config struct {
	Interval time.Duration
	MaxRetry int
	Families []snapshot.Family
}

// DefaultConfig настройки по умолчанию
func DefaultConfig() Config {
	return Config{
		Interval: DefaultInterval,
		MaxRetry: DefaultMaxRetry,
		Families: snapshot.DefaultFamilies(snapshot.DefaultUpcomingDays),
	}
}

// Option настройка оркестратора
type Option func(*Orchestrator)

// WithConfig задает параметры; нулевые поля заменяются значениями по умолчанию.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		def := DefaultConfig()
		if cfg.Interval <= 0 {
			cfg.Interval = def.Interval
		}
		if cfg.MaxRetry <= 0 {
			cfg.MaxRetry = def.MaxRetry
		}
		if len(cfg.Families) == 0 {
			cfg.Families = def.Families
		}
		o.cfg = cfg
	}
}

// WithReplayer подключает платформенный фоновый повтор.
func WithReplayer(r BackgroundReplayer) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.replayer = r
		}
	}
}

// WithDeadLetterHandler вызывается для каждой отброшенной записи.
func WithDeadLetterHandler(fn func(mutation.DeadLetter)) Option {
	return func(o *Orchestrator) { o.onDeadLetter = fn }
}

// WithOnline задает начальное состояние сети.
func WithOnline(online bool) Option {
	return func(o *Orchestrator) { o.status.IsOnline = online }
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator отправляет очередь записей на сервер, обновляет снимки и
// публикует состояние синхронизации. В один момент выполняется не больше
// одной синхронизации: отправка и загрузка делят общий флаг IsSyncing.
type Orchestrator struct {
	queue        Queue
	cache        Cache
	remote       Remote
	replayer     BackgroundReplayer
	onDeadLetter func(mutation.DeadLetter)
	log          *slog.Logger
	cfg          Config
	now          func() time.Time

	mu     gosync.Mutex
	status Status

	// pubMu делает изменение состояния и рассылку одним шагом
	pubMu     gosync.Mutex
	publisher *Publisher

	schedMu  gosync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	interval chan time.Duration
}

// NewOrchestrator создает оркестратор и считывает текущий размер очереди.
func NewOrchestrator(ctx context.Context, queue Queue, cache Cache, remote Remote, log *slog.Logger, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		queue:     queue,
		cache:     cache,
		remote:    remote,
		replayer:  NoopReplayer{},
		log:       log.With("component", "sync_orchestrator"),
		cfg:       DefaultConfig(),
		now:       time.Now,
		publisher: NewPublisher(),
	}
	for _, opt := range opts {
		opt(o)
	}

	n, err := queue.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count pending mutations: %w", err)
	}
	o.status.PendingCount = n
	return o, nil
}

// Status текущее состояние.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Config действующие параметры.
func (o *Orchestrator) Config() Config {
	o.schedMu.Lock()
	defer o.schedMu.Unlock()
	return o.cfg
}

// SubscribeToStatus сразу вызывает cb с текущим состоянием, затем регистрирует его.
// Подписчик вызывается синхронно и не должен из обработчика менять состояние оркестратора.
func (o *Orchestrator) SubscribeToStatus(cb Subscriber) func() {
	o.pubMu.Lock()
	defer o.pubMu.Unlock()

	cb(o.Status())
	return o.publisher.Add(cb)
}

// update меняет состояние и рассылает его. fn возвращает false, если менять нечего.
func (o *Orchestrator) update(fn func(*Status) bool) (Status, bool) {
	o.pubMu.Lock()
	defer o.pubMu.Unlock()

	o.mu.Lock()
	changed := fn(&o.status)
	s := o.status
	o.mu.Unlock()

	if changed {
		o.publisher.Notify(s)
	}
	return s, changed
}

// begin занимает флаг синхронизации, если сеть есть и другая синхронизация не идет.
func (o *Orchestrator) begin() bool {
	_, ok := o.update(func(s *Status) bool {
		if s.IsSyncing || !s.IsOnline {
			return false
		}
		s.IsSyncing = true
		return true
	})
	return ok
}

func (o *Orchestrator) end() {
	o.update(func(s *Status) bool {
		s.IsSyncing = false
		return true
	})
}

func (o *Orchestrator) publishPending(ctx context.Context) error {
	n, err := o.queue.Count(ctx)
	if err != nil {
		return fmt.Errorf("count pending mutations: %w", err)
	}
	o.update(func(s *Status) bool {
		s.PendingCount = n
		return true
	})
	return nil
}

// EnqueueMutation ставит запись в очередь, публикует новый размер очереди и
// просит платформу о фоновом повторе.
func (o *Orchestrator) EnqueueMutation(ctx context.Context, endpoint, method string, headers map[string]string, payload []byte) (mutation.Mutation, error) {
	m, err := o.queue.Enqueue(ctx, endpoint, method, headers, payload)
	if err != nil {
		return mutation.Mutation{}, err
	}
	if err := o.publishPending(ctx); err != nil {
		return m, err
	}
	if err := o.replayer.RequestReplay(ctx); err != nil {
		o.log.Warn("не удалось запросить фоновый повтор", "error", err)
	}
	return m, nil
}

// DrainPendingMutations отправляет очередь на сервер в порядке постановки.
// Без сети или во время другой синхронизации ничего не делает.
func (o *Orchestrator) DrainPendingMutations(ctx context.Context) (DrainResult, error) {
	if !o.begin() {
		return DrainResult{Skipped: true}, nil
	}
	defer o.end()
	return o.drain(ctx)
}

func (o *Orchestrator) drain(ctx context.Context) (DrainResult, error) {
	var res DrainResult

	pending, err := o.queue.ListAll(ctx)
	if err != nil {
		o.setError(err)
		return res, fmt.Errorf("list pending mutations: %w", err)
	}
	o.log.Debug("отправка очереди", "pending", len(pending))

	cause := o.replay(ctx, pending, &res)
	err = o.finishDrain(ctx, &res, cause)
	return res, err
}

// replay проходит по записям по порядку. Временная ошибка оставляет запись на
// месте до следующего прохода. Ошибка хранилища прерывает проход.
func (o *Orchestrator) replay(ctx context.Context, pending []mutation.Mutation, res *DrainResult) error {
	for _, m := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		if m.RetryCount >= o.cfg.MaxRetry {
			if err := o.bury(ctx, m, mutation.ReasonRetriesExceeded, 0, nil); err != nil {
				return err
			}
			res.Terminal++
			continue
		}

		status, sendErr := o.remote.Send(ctx, m)
		if sendErr != nil && ctx.Err() != nil {
			// прерван вызывающим, повтор не засчитывается
			return ctx.Err()
		}

		switch Classify(status, sendErr) {
		case OutcomeSuccess:
			if err := o.queue.Remove(ctx, m.ID); err != nil {
				return err
			}
			res.Succeeded++
		case OutcomeTransient:
			if _, err := o.queue.MarkRetried(ctx, m.ID); err != nil {
				return err
			}
			o.log.Warn("временная ошибка отправки",
				"id", m.ID,
				"endpoint", m.Endpoint,
				"status", status,
				"retry", m.RetryCount+1,
				"error", sendErr,
			)
			res.Transient++
		case OutcomeTerminal:
			if err := o.bury(ctx, m, mutation.ReasonRejected, status, sendErr); err != nil {
				return err
			}
			res.Terminal++
		}
	}
	return nil
}

// finishDrain публикует размер очереди и время синхронизации после прохода.
func (o *Orchestrator) finishDrain(ctx context.Context, res *DrainResult, cause error) error {
	res.Failed = res.Transient + res.Terminal

	n, err := o.queue.Count(context.WithoutCancel(ctx))
	if err != nil && cause == nil {
		cause = fmt.Errorf("count pending mutations: %w", err)
	}
	now := o.now()
	o.update(func(s *Status) bool {
		if err == nil {
			s.PendingCount = n
		}
		s.LastSyncAt = now
		if cause != nil && ctx.Err() == nil {
			s.Error = cause.Error()
		}
		return true
	})

	o.log.Info("очередь отправлена",
		"succeeded", res.Succeeded,
		"transient", res.Transient,
		"terminal", res.Terminal,
		"pending", n,
	)
	return cause
}

func (o *Orchestrator) bury(ctx context.Context, m mutation.Mutation, reason mutation.Reason, status int, cause error) error {
	dl, err := o.queue.Bury(ctx, m, reason, status, cause)
	if err != nil {
		return err
	}
	if o.onDeadLetter != nil {
		o.onDeadLetter(dl)
	}
	return nil
}

func (o *Orchestrator) setError(err error) {
	o.update(func(s *Status) bool {
		s.Error = err.Error()
		return true
	})
}

// RefreshSnapshotCache загружает все семейства параллельно. Ошибка одного
// семейства не мешает остальным; в Status.Error попадает последняя из них.
func (o *Orchestrator) RefreshSnapshotCache(ctx context.Context) (RefreshResult, error) {
	if !o.begin() {
		return RefreshResult{Skipped: true}, nil
	}
	defer o.end()
	return o.refresh(ctx)
}

func (o *Orchestrator) refresh(ctx context.Context) (RefreshResult, error) {
	families := o.cfg.Families
	res := RefreshResult{Families: make([]FamilyResult, len(families))}

	var (
		errMu   gosync.Mutex
		lastErr error
		g       errgroup.Group
	)
	for i, family := range families {
		g.Go(func() error {
			n, err := o.refreshFamily(ctx, family)
			res.Families[i] = FamilyResult{Family: family.Key, Records: n}
			if err != nil {
				res.Families[i].Error = err.Error()
				o.log.Error("ошибка загрузки семейства", "family", family.Key, "error", err)
				errMu.Lock()
				lastErr = err
				errMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, f := range res.Families {
		if f.Error == "" {
			res.Refreshed++
		} else {
			res.Failed++
		}
	}

	now := o.now()
	o.update(func(s *Status) bool {
		if res.Refreshed > 0 {
			s.LastSyncAt = now
		}
		if lastErr != nil {
			s.Error = lastErr.Error()
		} else {
			s.Error = ""
		}
		return true
	})

	o.log.Info("снимки обновлены", "refreshed", res.Refreshed, "failed", res.Failed)
	return res, ctx.Err()
}

func (o *Orchestrator) refreshFamily(ctx context.Context, family snapshot.Family) (int, error) {
	listings := make([][]snapshot.Record, 0, len(family.Listings))
	for _, l := range family.Listings {
		recs, err := o.remote.List(ctx, l.Path)
		if err != nil {
			return 0, fmt.Errorf("%s %s: %w", family.Key, l.Name, err)
		}
		listings = append(listings, recs)
	}

	merged := snapshot.Merge(listings...)
	if _, err := o.cache.Replace(ctx, family.Key, merged); err != nil {
		return 0, err
	}
	return len(merged), nil
}

// cycle выполняет отправку и загрузку под одним захватом флага синхронизации.
func (o *Orchestrator) cycle(ctx context.Context, drainFirst bool) (CycleResult, error) {
	if !o.begin() {
		return CycleResult{Skipped: true, Drain: DrainResult{Skipped: true}, Refresh: RefreshResult{Skipped: true}}, nil
	}
	defer o.end()

	var (
		res CycleResult
		err error
	)
	if drainFirst {
		if res.Drain, err = o.drain(ctx); err != nil {
			return res, err
		}
		res.Refresh, err = o.refresh(ctx)
		return res, err
	}

	if res.Refresh, err = o.refresh(ctx); err != nil {
		return res, err
	}
	res.Drain, err = o.drain(ctx)
	return res, err
}

// SyncNow ручная синхронизация: сначала очередь, затем снимки.
func (o *Orchestrator) SyncNow(ctx context.Context) (CycleResult, error) {
	return o.cycle(ctx, true)
}

// HandleOnline реакция на появление сети: очередь уходит на сервер раньше,
// чем загружаются возможно устаревшие снимки.
func (o *Orchestrator) HandleOnline(ctx context.Context) (CycleResult, error) {
	o.update(func(s *Status) bool {
		if s.IsOnline {
			return false
		}
		s.IsOnline = true
		return true
	})
	o.log.Info("сеть доступна")
	return o.cycle(ctx, true)
}

// HandleOffline только снимает флаг сети; начатые операции завершаются сами.
func (o *Orchestrator) HandleOffline() {
	if _, changed := o.update(func(s *Status) bool {
		if !s.IsOnline {
			return false
		}
		s.IsOnline = false
		return true
	}); changed {
		o.log.Info("сеть недоступна")
	}
}

// HandleBackgroundReplay сигнал платформы о фоновом повторе. Очередь не
// отправляется, только публикуется ее текущий размер.
func (o *Orchestrator) HandleBackgroundReplay(ctx context.Context) error {
	return o.publishPending(ctx)
}

// LastSyncTime время последней успешной загрузки семейства.
func (o *Orchestrator) LastSyncTime(ctx context.Context, family string) (time.Time, bool, error) {
	if !o.knownFamily(family) {
		return time.Time{}, false, fmt.Errorf("%w: %s", snapshot.ErrUnknownFamily, family)
	}
	meta, ok, err := o.cache.Metadata(ctx, family)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return meta.LastSyncAt, true, nil
}

func (o *Orchestrator) knownFamily(key string) bool {
	for _, f := range o.cfg.Families {
		if f.Key == key {
			return true
		}
	}
	return false
}
