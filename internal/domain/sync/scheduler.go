package sync

import (
	"context"
	"time"
)

// StartScheduler запускает периодическую синхронизацию: сначала снимки, затем
// очередь. Прогон пропускается, если сети нет или синхронизация уже идет.
func (o *Orchestrator) StartScheduler(ctx context.Context) error {
	o.schedMu.Lock()
	defer o.schedMu.Unlock()

	if o.cancel != nil {
		return ErrSchedulerRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.done = make(chan struct{})
	o.interval = make(chan time.Duration, 1)

	go o.schedule(loopCtx, o.cfg.Interval, o.interval, o.done)

	o.log.Info("планировщик синхронизации запущен", "interval", o.cfg.Interval)
	return nil
}

// StopScheduler останавливает таймер. Уже начатый прогон не прерывается,
// метод возвращается после его завершения.
func (o *Orchestrator) StopScheduler() {
	o.schedMu.Lock()
	cancel, done := o.cancel, o.done
	o.cancel, o.done, o.interval = nil, nil, nil
	o.schedMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	o.log.Info("планировщик синхронизации остановлен")
}

// SchedulerRunning сообщает, запущен ли планировщик.
func (o *Orchestrator) SchedulerRunning() bool {
	o.schedMu.Lock()
	defer o.schedMu.Unlock()
	return o.cancel != nil
}

// SetInterval меняет период; работающий планировщик перезапускает таймер.
func (o *Orchestrator) SetInterval(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidInterval
	}

	o.schedMu.Lock()
	defer o.schedMu.Unlock()
	o.cfg.Interval = d
	if o.interval != nil {
		select {
		case <-o.interval:
		default:
		}
		o.interval <- d
	}
	return nil
}

func (o *Orchestrator) schedule(ctx context.Context, interval time.Duration, reset <-chan time.Duration, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-reset:
			ticker.Reset(d)
			o.log.Info("период синхронизации изменен", "interval", d)
		case <-ticker.C:
			// остановка таймера не прерывает начатый прогон
			res, err := o.cycle(context.WithoutCancel(ctx), false)
			if err != nil {
				o.log.Error("ошибка периодической синхронизации", "error", err)
				continue
			}
			if res.Skipped {
				o.log.Debug("периодическая синхронизация пропущена", "online", o.Status().IsOnline)
			}
		}
	}
}
