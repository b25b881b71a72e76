package entity

import (
	"encoding/json"
	"time"
)

// Family семейство сущностей полевого приложения
type Family string

const (
	FamilyProspects Family = "prospects"
	FamilyMeetings  Family = "meetings"
	FamilyVisits    Family = "visits"
)

// dueFields поле данных, из которого берется дата сущности для выборок
var dueFields = map[Family]string{
	FamilyProspects: "follow_up_at",
	FamilyMeetings:  "scheduled_at",
	FamilyVisits:    "scheduled_at",
}

// ParseFamily проверяет имя семейства
func ParseFamily(s string) (Family, error) {
	f := Family(s)
	if _, ok := dueFields[f]; !ok {
		return "", ErrInvalidFamily
	}
	return f, nil
}

// DueField имя поля даты семейства
func (f Family) DueField() string {
	return dueFields[f]
}

// View именованная выборка семейства
type View string

const (
	ViewToday     View = "today"
	ViewUpcoming  View = "upcoming"
	ViewFollowUps View = "follow-ups"
)

// DefaultUpcomingDays горизонт выборки upcoming по умолчанию
const DefaultUpcomingDays = 7

func ParseView(s string) (View, bool) {
	switch v := View(s); v {
	case ViewToday, ViewUpcoming, ViewFollowUps:
		return v, true
	default:
		return "", false
	}
}

type Entity struct {
	ID        int64           `json:"id"`
	Family    Family          `json:"family"`
	Data      json.RawMessage `json:"data"`
	DueAt     *time.Time      `json:"due_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Replay сохраненный результат операции с ключом идемпотентности
type Replay struct {
	Key      string
	Status   int
	Response json.RawMessage
}

// Result итог операции записи. Replayed означает, что ключ уже встречался и
// операция повторно не выполнялась.
type Result struct {
	Entity   Entity
	Replayed bool
}
