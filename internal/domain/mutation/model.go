package mutation

import (
	"strings"
	"time"
)

const (
	// PendingCollection коллекция неподтвержденных записей
	PendingCollection = "pending_mutations"
	// DeadLetterCollection коллекция отброшенных записей
	DeadLetterCollection = "dead_letters"

	// IdempotencyHeader заголовок, по которому сервер распознает повтор одной и той же записи
	IdempotencyHeader = "Idempotency-Key"
)

// Mutation запись, предназначенная для удаленного сервиса и еще не подтвержденная им.
// После постановки в очередь меняется только RetryCount.
type Mutation struct {
	ID         int64             `json:"id"`
	Endpoint   string            `json:"endpoint"`
	Method     string            `json:"method"`
	Headers    map[string]string `json:"headers,omitempty"`
	Payload    []byte            `json:"payload,omitempty"`
	EnqueuedAt time.Time         `json:"enqueued_at"`
	RetryCount int               `json:"retry_count"`
}

// Header ищет заголовок без учета регистра.
func (m Mutation) Header(name string) (string, bool) {
	for k, v := range m.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// IdempotencyKey ключ идемпотентности записи, если он есть.
func (m Mutation) IdempotencyKey() string {
	v, _ := m.Header(IdempotencyHeader)
	return v
}

// Reason причина, по которой запись попала в dead letters
type Reason string

const (
	ReasonRejected        Reason = "rejected"
	ReasonRetriesExceeded Reason = "retries_exceeded"
)

// DeadLetter запись, отброшенная после терминальной ошибки
type DeadLetter struct {
	ID          int64     `json:"id"`
	Mutation    Mutation  `json:"mutation"`
	Reason      Reason    `json:"reason"`
	StatusCode  int       `json:"status_code,omitempty"`
	Error       string    `json:"error,omitempty"`
	DiscardedAt time.Time `json:"discarded_at"`
}
