package sync

import (
	"context"
	"errors"
	"net/http"

	"fieldsync/internal/domain/mutation"
	"fieldsync/internal/domain/snapshot"
)

// Remote удаленный сервис. Send возвращает HTTP статус ответа; ошибка означает,
// что ответ не получен (сеть, таймаут). Если запрос из записи собрать нельзя,
// Send возвращает ошибку с ErrUnsendable.
type Remote interface {
	Send(ctx context.Context, m mutation.Mutation) (int, error)
	List(ctx context.Context, path string) ([]snapshot.Record, error)
}

// BackgroundReplayer платформенный механизм фонового повтора. Необязателен.
type BackgroundReplayer interface {
	RequestReplay(ctx context.Context) error
}

// NoopReplayer используется, когда платформа фоновый повтор не поддерживает.
type NoopReplayer struct{}

func (NoopReplayer) RequestReplay(context.Context) error { return nil }

// Outcome класс результата отправки записи
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeTransient
	OutcomeTerminal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTransient:
		return "transient"
	default:
		return "terminal"
	}
}

// Classify относит результат отправки к одному из классов.
// Сетевая ошибка, 5xx, 408, 425 и 429 временные; 2xx успех; остальное терминально.
// ErrUnsendable терминальна сразу.
func Classify(status int, err error) Outcome {
	if errors.Is(err, ErrUnsendable) {
		return OutcomeTerminal
	}
	if err != nil {
		return OutcomeTransient
	}
	switch {
	case status >= 200 && status < 300:
		return OutcomeSuccess
	case status >= 500:
		return OutcomeTransient
	case status == http.StatusRequestTimeout,
		status == http.StatusTooEarly,
		status == http.StatusTooManyRequests:
		return OutcomeTransient
	default:
		return OutcomeTerminal
	}
}
