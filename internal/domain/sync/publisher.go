package sync

import (
	gosync "sync"
)

// Subscriber получает полное состояние при каждом изменении.
//
// Вызов синхронный и идет под блокировкой рассылки оркестратора. Из
// обработчика можно читать Status, но нельзя вызывать EnqueueMutation,
// SubscribeToStatus, синхронизацию или обработчики сети: это взаимоблокировка.
// Долгую работу обработчик переносит в свою горутину.
type Subscriber func(Status)

type subscription struct {
	id uint64
	cb Subscriber
}

// Publisher реестр подписчиков. Уведомление синхронное, в порядке подписки.
type Publisher struct {
	mu   gosync.Mutex
	next uint64
	subs []subscription
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

// Add регистрирует подписчика и возвращает функцию отписки.
// Повторный вызов отписки ничего не делает.
func (p *Publisher) Add(cb Subscriber) func() {
	p.mu.Lock()
	p.next++
	id := p.next
	p.subs = append(p.subs, subscription{id: id, cb: cb})
	p.mu.Unlock()

	var once gosync.Once
	return func() {
		once.Do(func() { p.remove(id) })
	}
}

func (p *Publisher) remove(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, s := range p.subs {
		if s.id == id {
			p.subs = append(p.subs[:i:i], p.subs[i+1:]...)
			return
		}
	}
}

// Notify вызывает всех подписчиков, зарегистрированных на момент вызова.
func (p *Publisher) Notify(s Status) {
	p.mu.Lock()
	subs := make([]subscription, len(p.subs))
	copy(subs, p.subs)
	p.mu.Unlock()

	for _, sub := range subs {
		sub.cb(s)
	}
}

// Len количество подписчиков.
func (p *Publisher) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}
